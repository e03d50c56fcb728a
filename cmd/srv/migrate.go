package main

import (
	"github.com/questx-lab/rewardissuer/migration"
	"github.com/questx-lab/rewardissuer/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startMigrate(*cli.Context) error {
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
	if err := migration.Migrate(s.ctx); err != nil {
		return err
	}

	xcontext.Logger(s.ctx).Infof("Migrated reward ledger")
	return nil
}
