package service

import (
	"context"

	"portfolio_tracker/internal/app/analytics"
	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"

	"golang.org/x/sync/errgroup"
)

// HolderService implements port.HolderService. Nothing is persisted.
type HolderService struct {
	clientProvider port.BlockchainClientProvider
	logger         port.Logger
	maxConcurrency int
}

func NewHolderService(cp port.BlockchainClientProvider, l port.Logger, maxConcurrency int) *HolderService {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	return &HolderService{clientProvider: cp, logger: l, maxConcurrency: maxConcurrency}
}

// ClassifyHolders checks which holders are contracts and recomputes their type.
// A holder already marked as dev keeps that type. An unknown chain is returned as an error;
// a failed code lookup keeps the IsContract value the caller supplied.
func (s *HolderService) ClassifyHolders(ctx context.Context, chainKey string, holders []entity.HolderInfo) ([]entity.HolderInfo, error) {
	client, err := s.clientProvider.GetClient(chainKey)
	if err != nil {
		return nil, err
	}

	out := make([]entity.HolderInfo, len(holders))
	copy(out, holders)

	var g errgroup.Group
	g.SetLimit(s.maxConcurrency)
	for i := range out {
		i := i
		g.Go(func() error {
			h := &out[i]
			isContract, err := client.IsContract(ctx, h.Address)
			if err != nil {
				s.logger.Warn("Contract check failed", "chain", chainKey, "address", h.Address, "error", err)
			} else {
				h.IsContract = isContract
			}
			if h.HolderType != entity.HolderDev {
				h.HolderType = analytics.IdentifyHolderType(h.BalanceFormatted, h.TransactionCount, h.IsContract)
			}
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}
