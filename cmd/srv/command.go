package main

import "github.com/urfave/cli/v2"

func (s *srv) loadApp() {
	s.app = cli.NewApp()
	s.app.Action = cli.ShowAppHelp
	s.app.Name = "rewardissuer"
	s.app.Usage = "Pay task rewards with on chain token transfers"
	s.app.Before = s.beforeCommand
	s.app.Commands = []*cli.Command{
		{
			Action:      s.startApi,
			Name:        "api",
			Usage:       "Start service api",
			Category:    "Api",
			Description: `Serve the claim, health and ledger apis together with the metrics endpoint.`,
		},
		{
			Action:      s.startMigrate,
			Name:        "migrate",
			Usage:       "Migrate the reward ledger database",
			Category:    "Database",
			Description: `Create or update the tables of the reward ledger.`,
		},
		{
			Action:      s.checkHealth,
			Name:        "health",
			Usage:       "Check the blockchain rpc and admin account",
			Category:    "Api",
			Description: `Print the current block number and the admin address, exit with an error if the rpc is unavailable.`,
		},
	}
}

func (s *srv) beforeCommand(*cli.Context) error {
	s.loadConfig()
	s.loadLogger()
	return nil
}
