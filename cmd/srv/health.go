package main

import (
	"fmt"

	"github.com/questx-lab/rewardissuer/internal/domain"
	"github.com/questx-lab/rewardissuer/internal/model"
	"github.com/urfave/cli/v2"
)

func (s *srv) checkHealth(*cli.Context) error {
	if err := s.configs.ValidateRewardIssuer(); err != nil {
		return err
	}

	s.loadEthClient()
	defer s.closeAll()

	resp, err := domain.NewRewardDomain(nil, s.ethClient, nil).Health(s.ctx, &model.HealthRequest{})
	if err != nil {
		return err
	}

	fmt.Printf("network=%s chain_id=%d block=%d admin=%s token=%s\n",
		resp.Network, resp.ChainID, resp.BlockNumber, resp.AdminAddress, resp.TokenAddress)
	return nil
}
