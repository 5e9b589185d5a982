package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"portfolio_tracker/internal/app/port"

	"golang.org/x/sync/errgroup"
)

// SnapshotScheduler periodically captures a snapshot of every tracked wallet.
type SnapshotScheduler struct {
	walletProvider        port.WalletProvider
	networkProvider       port.NetworkDefinitionProvider
	snapshots             port.SnapshotService
	logger                port.Logger
	interval              time.Duration
	trackedNetworkNames   []string
	maxConcurrentRoutines int

	mu            sync.Mutex
	failedWallets map[string]bool
}

// NewSnapshotScheduler creates a new SnapshotScheduler. interval <= 0 makes Run return immediately.
func NewSnapshotScheduler(
	wp port.WalletProvider,
	np port.NetworkDefinitionProvider,
	snapshots port.SnapshotService,
	l port.Logger,
	interval time.Duration,
	trackedNetworkNames []string,
	maxRoutines int,
) *SnapshotScheduler {
	if maxRoutines <= 0 {
		maxRoutines = 1
	}
	return &SnapshotScheduler{
		walletProvider:        wp,
		networkProvider:       np,
		snapshots:             snapshots,
		logger:                l,
		interval:              interval,
		trackedNetworkNames:   trackedNetworkNames,
		maxConcurrentRoutines: maxRoutines,
		failedWallets:         make(map[string]bool),
	}
}

// activeChainKeys filters the registry by the tracked network names. No names means every network.
func (s *SnapshotScheduler) activeChainKeys() []string {
	all := s.networkProvider.GetAllNetworkDefinitions()
	tracked := make(map[string]bool, len(s.trackedNetworkNames))
	for _, name := range s.trackedNetworkNames {
		tracked[strings.ToLower(name)] = true
	}

	keys := make([]string, 0, len(all))
	for _, nd := range all {
		if len(tracked) == 0 || tracked[strings.ToLower(nd.Identifier)] {
			keys = append(keys, nd.Identifier)
		}
	}
	return keys
}

// CaptureAllWallets captures one snapshot per wallet of the WalletProvider.
// It returns the number of stored snapshots.
func (s *SnapshotScheduler) CaptureAllWallets(ctx context.Context) (int, error) {
	wallets, err := s.walletProvider.GetWallets()
	if err != nil {
		return 0, fmt.Errorf("failed to load wallets: %w", err)
	}

	chainKeys := s.activeChainKeys()
	if len(chainKeys) == 0 {
		s.logger.Warn("No active networks found to process (either no networks defined by provider or filter mismatch).")
		return 0, nil
	}

	var (
		captured int
		countMu  sync.Mutex
	)
	var g errgroup.Group
	g.SetLimit(s.maxConcurrentRoutines)

	for _, wallet := range wallets {
		w := wallet
		g.Go(func() error {
			_, err := s.snapshots.CaptureSnapshot(ctx, w.Address, chainKeys)

			s.mu.Lock()
			if err != nil {
				s.failedWallets[w.Address] = true
			} else {
				delete(s.failedWallets, w.Address)
			}
			s.mu.Unlock()

			if err != nil {
				// ошибка одного кошелька не прерывает остальные
				s.logger.Error("Failed to capture snapshot", "wallet", w.Address, "error", err)
				return nil
			}
			countMu.Lock()
			captured++
			countMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("Snapshots captured for tracked wallets", "wallets", len(wallets), "captured", captured)
	return captured, nil
}

// Run captures snapshots every interval until ctx is done.
func (s *SnapshotScheduler) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("Snapshot scheduler disabled")
		return
	}
	s.logger.Info("Snapshot scheduler started", "interval", s.interval.String())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Snapshot scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.CaptureAllWallets(ctx); err != nil {
				s.logger.Error("Scheduled snapshot run failed", "error", err)
			}
		}
	}
}

// GetFailedWallets returns the wallets whose last capture failed, sorted.
func (s *SnapshotScheduler) GetFailedWallets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	failed := make([]string, 0, len(s.failedWallets))
	for addr := range s.failedWallets {
		failed = append(failed, addr)
	}
	sort.Strings(failed)
	return failed
}
