package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"portfolio_tracker/internal/app/analytics"
	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"

	"golang.org/x/sync/errgroup"
)

// PortfolioPNLTTL is how long a computed PNL is served from the cache.
const PortfolioPNLTTL = 10 * time.Minute

// PortfolioPNLKey is the cache key of a wallet PNL on one chain.
func PortfolioPNLKey(wallet, chainKey string) string {
	return "portfolio_pnl_" + strings.ToLower(wallet) + "_" + chainKey
}

// PNLService implements port.PNLService.
type PNLService struct {
	history        port.HistoryService
	priceSvc       port.TokenPriceService
	cache          port.Cache
	logger         port.Logger
	maxConcurrency int
}

func NewPNLService(history port.HistoryService, ps port.TokenPriceService, cache port.Cache, l port.Logger, maxConcurrency int) *PNLService {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	return &PNLService{
		history:        history,
		priceSvc:       ps,
		cache:          cache,
		logger:         l,
		maxConcurrency: maxConcurrency,
	}
}

type positionQuote struct {
	price  *float64
	symbol string
}

// quotePositions fetches price and symbol of every open position concurrently.
// Closed positions only need a symbol, which the history usually carries.
func (s *PNLService) quotePositions(ctx context.Context, groups []analytics.TradeGroup, txs []entity.TransactionRecord) map[entity.PositionKey]positionQuote {
	fallbackSymbols := make(map[entity.PositionKey]string)
	for _, tx := range txs {
		if tx.TokenAddress == "" || tx.TokenSymbol == "" {
			continue
		}
		key := entity.PositionKey{TokenAddress: tx.TokenAddress, ChainID: tx.ChainID}
		if _, ok := fallbackSymbols[key]; !ok {
			fallbackSymbols[key] = tx.TokenSymbol
		}
	}

	quotes := make(map[entity.PositionKey]positionQuote, len(groups))
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.maxConcurrency)
	for _, grp := range groups {
		key := grp.Key
		open := analytics.CalculateCurrentHoldings(grp.Trades) > 0
		g.Go(func() error {
			q := positionQuote{symbol: fallbackSymbols[key]}
			if open && s.priceSvc != nil {
				q.price = s.priceSvc.GetTokenPrice(ctx, key.TokenAddress, key.ChainID)
				if md := s.priceSvc.GetTokenMetadata(ctx, key.TokenAddress, key.ChainID); md != nil && md.Symbol != UnknownTokenSymbol {
					q.symbol = md.Symbol
				}
			}
			mu.Lock()
			quotes[key] = q
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return quotes
}

// CalculatePortfolioPNL computes cost-basis PNL of the transactions with current prices.
func (s *PNLService) CalculatePortfolioPNL(ctx context.Context, txs []entity.TransactionRecord) entity.PortfolioPNL {
	groups := analytics.ParseTradesFromTransactions(txs)
	quotes := s.quotePositions(ctx, groups, txs)

	return analytics.BuildPortfolioPNL(groups,
		func(key entity.PositionKey) *float64 { return quotes[key].price },
		func(key entity.PositionKey) string { return quotes[key].symbol },
	)
}

// GetWalletPNL serves the cached PNL when fresh, otherwise computes and caches it.
func (s *PNLService) GetWalletPNL(ctx context.Context, wallet, chainKey string) entity.PortfolioPNL {
	key := PortfolioPNLKey(wallet, chainKey)

	var cached entity.PortfolioPNL
	ok, err := s.cache.GetFresh(ctx, key, PortfolioPNLTTL, &cached)
	if err != nil {
		s.logger.Warn("Failed to read cached PNL", "wallet", wallet, "chain", chainKey, "error", err)
	}
	if ok {
		if cached.Tokens == nil {
			cached.Tokens = []entity.TokenTrade{}
		}
		return cached
	}

	txs := s.history.GetWalletHistory(ctx, wallet, chainKey)
	pnl := s.CalculatePortfolioPNL(ctx, txs)
	if err := s.cache.Put(ctx, key, pnl); err != nil {
		s.logger.Warn("Failed to cache PNL", "wallet", wallet, "chain", chainKey, "error", err)
	}
	s.logger.Debug("Portfolio PNL computed", "wallet", wallet, "chain", chainKey, "positions", len(pnl.Tokens), "transactions", len(txs))
	return pnl
}

// ClosedTrades derives closed trade records from the wallet history.
func (s *PNLService) ClosedTrades(ctx context.Context, wallet, chainKey string) []entity.TradeRecord {
	txs := s.history.GetWalletHistory(ctx, wallet, chainKey)
	groups := analytics.ParseTradesFromTransactions(txs)
	quotes := s.quotePositions(ctx, groups, txs)
	return analytics.ClosedTrades(groups, func(key entity.PositionKey) string { return quotes[key].symbol })
}
