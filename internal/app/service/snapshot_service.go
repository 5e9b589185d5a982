package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"portfolio_tracker/internal/app/analytics"
	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

// SnapshotRetention is how far back the snapshot series of a wallet reaches.
const SnapshotRetention = 90 * 24 * time.Hour

// PortfolioSnapshotsKey is the cache key of a wallet snapshot series.
func PortfolioSnapshotsKey(wallet string) string {
	return "portfolio_snapshots_" + strings.ToLower(wallet)
}

// SnapshotService implements port.SnapshotService.
type SnapshotService struct {
	holdings port.HoldingsService
	pnl      port.PNLService
	cache    port.Cache
	logger   port.Logger
	now      func() time.Time
}

// SnapshotOption configures a SnapshotService.
type SnapshotOption func(*SnapshotService)

// WithSnapshotClock replaces time.Now.
func WithSnapshotClock(now func() time.Time) SnapshotOption {
	return func(s *SnapshotService) { s.now = now }
}

func NewSnapshotService(holdings port.HoldingsService, pnl port.PNLService, cache port.Cache, l port.Logger, opts ...SnapshotOption) *SnapshotService {
	s := &SnapshotService{
		holdings: holdings,
		pnl:      pnl,
		cache:    cache,
		logger:   l,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SavePortfolioSnapshot appends the snapshot, keeps the series in time order and drops entries
// older than SnapshotRetention.
func (s *SnapshotService) SavePortfolioSnapshot(ctx context.Context, wallet string, snapshot entity.PortfolioSnapshot) error {
	series, err := s.GetPortfolioSnapshots(ctx, wallet)
	if err != nil {
		return err
	}
	series = append(series, snapshot)
	sort.SliceStable(series, func(i, j int) bool { return series[i].Timestamp < series[j].Timestamp })
	series = analytics.PruneSnapshots(series, s.now(), SnapshotRetention)

	if err := s.cache.PutPlain(ctx, PortfolioSnapshotsKey(wallet), series); err != nil {
		return fmt.Errorf("failed to save snapshots for %s: %w", wallet, err)
	}
	s.logger.Debug("Portfolio snapshot saved", "wallet", wallet, "series_length", len(series), "total_value_usd", snapshot.TotalValueUSD)
	return nil
}

// GetPortfolioSnapshots returns the stored series, oldest first. A wallet without snapshots has an empty series.
func (s *SnapshotService) GetPortfolioSnapshots(ctx context.Context, wallet string) ([]entity.PortfolioSnapshot, error) {
	var series []entity.PortfolioSnapshot
	if _, err := s.cache.GetPlain(ctx, PortfolioSnapshotsKey(wallet), &series); err != nil {
		return nil, fmt.Errorf("failed to read snapshots for %s: %w", wallet, err)
	}
	if series == nil {
		series = []entity.PortfolioSnapshot{}
	}
	return series, nil
}

// CaptureSnapshot values the current holdings of the wallet on chainKeys and stores the snapshot.
func (s *SnapshotService) CaptureSnapshot(ctx context.Context, wallet string, chainKeys []string) (entity.PortfolioSnapshot, error) {
	byChain := s.holdings.FetchAllChainsHoldings(ctx, wallet, chainKeys, nil)

	keys := make([]string, 0, len(byChain))
	for k := range byChain {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var all []entity.TokenHolding
	for _, k := range keys {
		all = append(all, byChain[k]...)
	}
	priced := s.holdings.PriceHoldings(ctx, all)

	snap := analytics.BuildSnapshot(priced, s.now())
	if err := s.SavePortfolioSnapshot(ctx, wallet, snap); err != nil {
		return snap, err
	}
	s.logger.Info("Portfolio snapshot captured", "wallet", wallet, "chains", len(keys), "holdings", len(snap.Holdings), "total_value_usd", snap.TotalValueUSD)
	return snap, nil
}

// GetPortfolioMetrics combines the snapshot series with the closed trades found on chainKeys.
// Without chainKeys no trade statistics are computed.
func (s *SnapshotService) GetPortfolioMetrics(ctx context.Context, wallet string, chainKeys []string) (entity.PortfolioMetrics, error) {
	series, err := s.GetPortfolioSnapshots(ctx, wallet)
	if err != nil {
		return entity.PortfolioMetrics{}, err
	}

	var trades []entity.TradeRecord
	if s.pnl != nil {
		for _, key := range chainKeys {
			trades = append(trades, s.pnl.ClosedTrades(ctx, wallet, key)...)
		}
	}
	return analytics.GeneratePortfolioMetrics(series, trades, s.now()), nil
}
