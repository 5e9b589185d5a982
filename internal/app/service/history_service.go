package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"portfolio_tracker/internal/app/analytics"
	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	dex_types "portfolio_tracker/internal/entity"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	// WalletHistoryTTL is how long a fetched history is served from the cache.
	WalletHistoryTTL = 5 * time.Minute
	// IndexerTransferLimit is the page size requested from the indexer.
	IndexerTransferLimit = 100
)

// WalletHistoryKey is the cache key of a wallet history on one chain.
func WalletHistoryKey(wallet, chainKey string) string {
	return "wallet_history_" + strings.ToLower(wallet) + "_" + chainKey
}

// HistoryService implements port.HistoryService.
type HistoryService struct {
	networkProvider port.NetworkDefinitionProvider
	explorer        port.ExplorerClient
	indexer         port.IndexerClient
	cache           port.Cache
	logger          port.Logger
}

// NewHistoryService creates a new HistoryService. explorer and indexer may be nil.
func NewHistoryService(np port.NetworkDefinitionProvider, explorer port.ExplorerClient, indexer port.IndexerClient, cache port.Cache, l port.Logger) *HistoryService {
	return &HistoryService{
		networkProvider: np,
		explorer:        explorer,
		indexer:         indexer,
		cache:           cache,
		logger:          l,
	}
}

// FetchCompleteWalletHistory asks the explorer and the indexer concurrently and merges the lists.
// On a hash collision the indexer record wins.
func (s *HistoryService) FetchCompleteWalletHistory(ctx context.Context, wallet, chainKey string) []entity.TransactionRecord {
	netDef, ok := s.networkProvider.GetNetworkDefinitionByName(chainKey)
	if !ok {
		s.logger.Warn("History requested for unsupported chain", "chain", chainKey)
		return []entity.TransactionRecord{}
	}

	var explorerTxs, indexerTxs []entity.TransactionRecord
	var g errgroup.Group
	g.Go(func() error {
		explorerTxs = s.fetchExplorer(ctx, netDef, wallet)
		return nil
	})
	g.Go(func() error {
		indexerTxs = s.fetchIndexer(ctx, netDef, wallet)
		return nil
	})
	_ = g.Wait()

	merged := analytics.MergeTransactions(explorerTxs, indexerTxs)
	s.logger.Debug("Wallet history merged",
		"wallet", wallet, "chain", chainKey,
		"explorer", len(explorerTxs), "indexer", len(indexerTxs), "merged", len(merged))
	return merged
}

func (s *HistoryService) fetchExplorer(ctx context.Context, netDef entity.NetworkDefinition, wallet string) []entity.TransactionRecord {
	if s.explorer == nil || !s.explorer.Enabled() || netDef.ExplorerAPIURL == "" {
		return nil
	}
	txs, err := s.explorer.GetTransactions(ctx, netDef.ExplorerAPIURL, wallet)
	if err != nil {
		s.logger.Warn("Explorer history fetch failed", "chain", netDef.Identifier, "wallet", wallet, "error", err)
		return nil
	}
	out := make([]entity.TransactionRecord, 0, len(txs))
	for _, tx := range txs {
		out = append(out, explorerRecord(tx, netDef))
	}
	return out
}

func explorerRecord(tx dex_types.EtherscanTransaction, netDef entity.NetworkDefinition) entity.TransactionRecord {
	valueFormatted := "0.0000"
	if wei, err := decimal.NewFromString(tx.Value); err == nil {
		valueFormatted = wei.Shift(-18).StringFixed(4)
	}
	ts, _ := strconv.ParseInt(tx.TimeStamp, 10, 64)
	block, _ := strconv.ParseUint(tx.BlockNumber, 10, 64)

	return entity.TransactionRecord{
		Hash:            tx.Hash,
		From:            tx.From,
		To:              tx.To,
		Value:           tx.Value,
		ValueFormatted:  valueFormatted,
		Timestamp:       ts * 1000,
		BlockNumber:     block,
		GasUsed:         tx.Gas,
		GasPrice:        tx.GasPrice,
		Input:           tx.Input,
		Type:            analytics.DetectTransactionType(tx.Input),
		TokenAddress:    tx.ContractAddress,
		IsTokenTransfer: strings.Contains(strings.ToLower(tx.FunctionName), "transfer"),
		ChainID:         netDef.Identifier,
		ChainName:       netDef.Name,
	}
}

func (s *HistoryService) fetchIndexer(ctx context.Context, netDef entity.NetworkDefinition, wallet string) []entity.TransactionRecord {
	if s.indexer == nil || !s.indexer.Enabled() || netDef.IndexerChain == "" {
		return nil
	}
	transfers, err := s.indexer.GetERC20Transfers(ctx, netDef.IndexerChain, wallet, IndexerTransferLimit)
	if err != nil {
		s.logger.Warn("Indexer history fetch failed", "chain", netDef.Identifier, "wallet", wallet, "error", err)
		return nil
	}
	out := make([]entity.TransactionRecord, 0, len(transfers))
	for _, tr := range transfers {
		out = append(out, indexerRecord(tr, netDef, wallet))
	}
	return out
}

func indexerRecord(tr dex_types.MoralisTransfer, netDef entity.NetworkDefinition, wallet string) entity.TransactionRecord {
	value := tr.Value
	if value == "" {
		value = "0"
	}
	var ts int64
	if t, err := time.Parse(time.RFC3339, tr.BlockTimestamp); err == nil {
		ts = t.UnixMilli()
	}
	block, _ := strconv.ParseUint(tr.BlockNumber, 10, 64)
	gasUsed := tr.TransactionFee
	if gasUsed == "" {
		gasUsed = "0"
	}
	var decimals uint8
	if d, err := strconv.ParseUint(string(tr.TokenDecimals), 10, 8); err == nil {
		decimals = uint8(d)
	}

	txType := entity.TransactionSend
	if strings.EqualFold(tr.ToAddress, wallet) {
		txType = entity.TransactionReceive
	}

	return entity.TransactionRecord{
		Hash:            tr.TransactionHash,
		From:            tr.FromAddress,
		To:              tr.ToAddress,
		Value:           value,
		ValueFormatted:  tr.ValueDecimal,
		Timestamp:       ts,
		BlockNumber:     block,
		GasUsed:         gasUsed,
		GasPrice:        "0",
		Input:           "0x",
		Type:            txType,
		TokenAddress:    tr.Address,
		TokenSymbol:     tr.TokenSymbol,
		TokenName:       tr.TokenName,
		TokenAmount:     tr.ValueDecimal,
		TokenDecimals:   decimals,
		IsTokenTransfer: true,
		ChainID:         netDef.Identifier,
		ChainName:       netDef.Name,
	}
}

// GetWalletHistory serves a fresh cached history or fetches and caches a new one.
func (s *HistoryService) GetWalletHistory(ctx context.Context, wallet, chainKey string) []entity.TransactionRecord {
	if txs, ok := s.GetCachedWalletHistory(ctx, wallet, chainKey); ok {
		return txs
	}
	txs := s.FetchCompleteWalletHistory(ctx, wallet, chainKey)
	if _, known := s.networkProvider.GetNetworkDefinitionByName(chainKey); known {
		if err := s.CacheWalletHistory(ctx, wallet, chainKey, txs); err != nil {
			s.logger.Warn("Failed to cache wallet history", "wallet", wallet, "chain", chainKey, "error", err)
		}
	}
	return txs
}

func (s *HistoryService) CacheWalletHistory(ctx context.Context, wallet, chainKey string, txs []entity.TransactionRecord) error {
	return s.cache.Put(ctx, WalletHistoryKey(wallet, chainKey), txs)
}

// GetCachedWalletHistory returns the cached history if it is younger than WalletHistoryTTL.
func (s *HistoryService) GetCachedWalletHistory(ctx context.Context, wallet, chainKey string) ([]entity.TransactionRecord, bool) {
	var txs []entity.TransactionRecord
	ok, err := s.cache.GetFresh(ctx, WalletHistoryKey(wallet, chainKey), WalletHistoryTTL, &txs)
	if err != nil {
		s.logger.Warn("Failed to read cached wallet history", "wallet", wallet, "chain", chainKey, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if txs == nil {
		txs = []entity.TransactionRecord{}
	}
	return txs, true
}
