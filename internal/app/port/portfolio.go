package port

import (
	"context"

	"portfolio_tracker/internal/domain/entity"
)

// HoldingsService aggregates wallet balances across chains. It is best effort: I/O failures are
// logged and dropped, never returned.
type HoldingsService interface {
	// FetchWalletHoldings returns the non-zero holdings of one chain. An empty tokenAddresses
	// falls back to the chain's popular tokens and the token lists on disk.
	FetchWalletHoldings(ctx context.Context, wallet, chainKey string, tokenAddresses []string) []entity.TokenHolding

	// FetchAllChainsHoldings runs FetchWalletHoldings per chain. Empty chainKeys means every chain.
	FetchAllChainsHoldings(ctx context.Context, wallet string, chainKeys []string, tokensByChain map[string][]string) map[string][]entity.TokenHolding

	// PriceHoldings fills BalanceUSD where a price is known.
	PriceHoldings(ctx context.Context, holdings []entity.TokenHolding) []entity.TokenHolding
}

// HistoryService merges explorer and indexer transaction lists.
type HistoryService interface {
	FetchCompleteWalletHistory(ctx context.Context, wallet, chainKey string) []entity.TransactionRecord
	// GetWalletHistory serves the cached history when fresh and refetches otherwise.
	GetWalletHistory(ctx context.Context, wallet, chainKey string) []entity.TransactionRecord
	CacheWalletHistory(ctx context.Context, wallet, chainKey string, txs []entity.TransactionRecord) error
	GetCachedWalletHistory(ctx context.Context, wallet, chainKey string) ([]entity.TransactionRecord, bool)
}

// PNLService computes cost-basis PNL.
type PNLService interface {
	CalculatePortfolioPNL(ctx context.Context, txs []entity.TransactionRecord) entity.PortfolioPNL
	// GetWalletPNL serves the cached PNL when fresh, otherwise computes it from the wallet history.
	GetWalletPNL(ctx context.Context, wallet, chainKey string) entity.PortfolioPNL
	// ClosedTrades lists the fully closed positions of the wallet history as trade records.
	ClosedTrades(ctx context.Context, wallet, chainKey string) []entity.TradeRecord
}

// SnapshotService keeps the per-wallet snapshot series.
type SnapshotService interface {
	SavePortfolioSnapshot(ctx context.Context, wallet string, snapshot entity.PortfolioSnapshot) error
	GetPortfolioSnapshots(ctx context.Context, wallet string) ([]entity.PortfolioSnapshot, error)
	// CaptureSnapshot values the current holdings on chainKeys and saves the snapshot.
	CaptureSnapshot(ctx context.Context, wallet string, chainKeys []string) (entity.PortfolioSnapshot, error)
	// GetPortfolioMetrics combines the snapshots with the closed trades on chainKeys.
	GetPortfolioMetrics(ctx context.Context, wallet string, chainKeys []string) (entity.PortfolioMetrics, error)
}

// StreamingService stores the payment streams reported for a wallet.
type StreamingService interface {
	SaveStreams(ctx context.Context, wallet string, streams []entity.StreamData) error
	GetStreams(ctx context.Context, wallet string) ([]entity.StreamData, bool)
}

// HolderService classifies token holders.
type HolderService interface {
	ClassifyHolders(ctx context.Context, chainKey string, holders []entity.HolderInfo) ([]entity.HolderInfo, error)
}
