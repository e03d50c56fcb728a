package migration

import (
	"context"
	"fmt"

	"github.com/questx-lab/rewardissuer/internal/entity"
	"github.com/questx-lab/rewardissuer/pkg/xcontext"
)

type migrator func(context.Context) error

// Append new migrators at the end, never reorder or remove them: version = index + 1.
var migrators = []migrator{
	migrate0000,
}

// Migrate applies every migrator whose version is not recorded yet.
func Migrate(ctx context.Context) error {
	if err := xcontext.DB(ctx).AutoMigrate(&entity.Migration{}); err != nil {
		return err
	}

	var applied []entity.Migration
	if err := xcontext.DB(ctx).Find(&applied).Error; err != nil {
		return err
	}

	done := map[int]bool{}
	for _, m := range applied {
		done[m.Version] = true
	}

	for i, fn := range migrators {
		version := i + 1
		if done[version] {
			continue
		}

		xcontext.Logger(ctx).Infof("Applying migration %04d", i)
		if err := fn(ctx); err != nil {
			return fmt.Errorf("migration %04d: %w", i, err)
		}

		if err := xcontext.DB(ctx).Create(&entity.Migration{Version: version}).Error; err != nil {
			return err
		}
	}

	return nil
}
