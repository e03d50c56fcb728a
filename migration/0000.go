package migration

import (
	"context"

	"github.com/questx-lab/rewardissuer/internal/entity"
	"github.com/questx-lab/rewardissuer/pkg/xcontext"
)

// migrate0000 creates the reward ledger.
func migrate0000(ctx context.Context) error {
	return xcontext.DB(ctx).AutoMigrate(&entity.RewardClaim{})
}
