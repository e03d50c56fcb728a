package migration

import (
	"context"

	"github.com/questx-lab/rewardissuer/internal/entity"
	"github.com/questx-lab/rewardissuer/pkg/xcontext"
)

// When this migrator is called, no need to call other migrators. Used by tests and local sqlite
// databases.
func AutoMigrate(ctx context.Context) error {
	return xcontext.DB(ctx).AutoMigrate(
		&entity.Migration{},
		&entity.RewardClaim{},
	)
}
