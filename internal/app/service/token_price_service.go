package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	dex_types "portfolio_tracker/internal/entity"
	"portfolio_tracker/internal/pkg/utils"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

const (
	stablecoinUSDCSymbol = "USDC"
	stablecoinUSDTSymbol = "USDT"
	stablecoinDAISymbol  = "DAI"
)

var stablecoinSymbols = map[string]struct{}{
	stablecoinUSDCSymbol: {},
	stablecoinUSDTSymbol: {},
	stablecoinDAISymbol:  {},
}

// Defaults of the indexer metadata lookup.
const (
	UnknownTokenSymbol   = "UNKNOWN"
	UnknownTokenName     = "Unknown Token"
	DefaultTokenDecimals = 18
)

// PriceServiceOptions tunes the price service.
type PriceServiceOptions struct {
	PriceTTL                 time.Duration
	MaxTokensPerBatchRequest int
	MaxConcurrentRoutines    int
}

func (o PriceServiceOptions) withDefaults() PriceServiceOptions {
	if o.PriceTTL <= 0 {
		o.PriceTTL = time.Minute
	}
	if o.MaxTokensPerBatchRequest <= 0 {
		o.MaxTokensPerBatchRequest = 30
	}
	if o.MaxConcurrentRoutines <= 0 {
		o.MaxConcurrentRoutines = 5
	}
	return o
}

// TokenPriceService implements port.TokenPriceService. The indexer is asked first, DEX Screener
// is the fallback. Found prices and metadata are memoised for PriceTTL.
type TokenPriceService struct {
	networkProvider   port.NetworkDefinitionProvider
	tokenProvider     port.TokenProvider
	indexer           port.IndexerClient
	dexscreenerClient port.DEXScreenerClient
	logger            port.Logger
	opts              PriceServiceOptions

	prices   *cache.Cache
	metadata *cache.Cache
}

// NewTokenPriceService creates a new TokenPriceService. tokenProvider, indexer and dexscreenerClient may be nil.
func NewTokenPriceService(
	np port.NetworkDefinitionProvider,
	tp port.TokenProvider,
	indexer port.IndexerClient,
	dsc port.DEXScreenerClient,
	l port.Logger,
	opts PriceServiceOptions,
) *TokenPriceService {
	opts = opts.withDefaults()
	s := &TokenPriceService{
		networkProvider:   np,
		tokenProvider:     tp,
		indexer:           indexer,
		dexscreenerClient: dsc,
		logger:            l,
		opts:              opts,
		prices:            cache.New(opts.PriceTTL, 2*opts.PriceTTL),
		metadata:          cache.New(cache.NoExpiration, 0),
	}
	l.Info("TokenPriceService успешно инициализирован.", "priceTTL", opts.PriceTTL.String())
	return s
}

func priceKey(chainKey, tokenAddress string) string {
	return chainKey + ":" + strings.ToLower(tokenAddress)
}

func (s *TokenPriceService) cachedPrice(chainKey, tokenAddress string) (float64, bool) {
	v, ok := s.prices.Get(priceKey(chainKey, tokenAddress))
	if !ok {
		return 0, false
	}
	return v.(float64), true
}

func (s *TokenPriceService) storePrice(chainKey, tokenAddress string, price float64) {
	if price <= 0 {
		return
	}
	s.prices.SetDefault(priceKey(chainKey, tokenAddress), price)
}

// GetTokenPrice returns the USD price of a token, nil when no provider knows it.
// The native placeholder address is priced through the wrapped native token.
func (s *TokenPriceService) GetTokenPrice(ctx context.Context, tokenAddress string, chainKey string) *float64 {
	netDef, ok := s.networkProvider.GetNetworkDefinitionByName(chainKey)
	if !ok {
		s.logger.Debug("Price requested for unsupported chain", "chain", chainKey)
		return nil
	}
	if strings.EqualFold(tokenAddress, entity.NativeTokenAddress) {
		if netDef.WrappedNativeTokenAddress == "" {
			return nil
		}
		tokenAddress = netDef.WrappedNativeTokenAddress
	}

	if price, ok := s.cachedPrice(chainKey, tokenAddress); ok {
		return &price
	}

	if price, ok := s.indexerPrice(ctx, netDef, tokenAddress); ok {
		s.storePrice(chainKey, tokenAddress, price)
		return &price
	}

	prices := s.dexScreenerPrices(ctx, netDef, []string{tokenAddress})
	if price, ok := prices[strings.ToLower(tokenAddress)]; ok {
		return &price
	}
	return nil
}

// GetTokenPrices prices a set of tokens of one chain. Memoised prices are served first, the rest goes
// to DEX Screener in batches and finally, one by one, to the indexer.
func (s *TokenPriceService) GetTokenPrices(ctx context.Context, chainKey string, tokenAddresses []string) map[string]float64 {
	out := make(map[string]float64, len(tokenAddresses))
	netDef, ok := s.networkProvider.GetNetworkDefinitionByName(chainKey)
	if !ok {
		return out
	}

	var missing []string
	seen := make(map[string]struct{}, len(tokenAddresses))
	for _, addr := range tokenAddresses {
		lower := strings.ToLower(addr)
		if _, dup := seen[lower]; dup || lower == "" {
			continue
		}
		seen[lower] = struct{}{}
		if price, ok := s.cachedPrice(chainKey, lower); ok {
			out[lower] = price
			continue
		}
		missing = append(missing, lower)
	}
	if len(missing) == 0 {
		return out
	}

	for addr, price := range s.dexScreenerPrices(ctx, netDef, missing) {
		out[addr] = price
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.opts.MaxConcurrentRoutines)
	for _, addr := range missing {
		if _, ok := out[addr]; ok {
			continue
		}
		addr := addr
		g.Go(func() error {
			if price, ok := s.indexerPrice(ctx, netDef, addr); ok {
				s.storePrice(chainKey, addr, price)
				mu.Lock()
				out[addr] = price
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *TokenPriceService) indexerPrice(ctx context.Context, netDef entity.NetworkDefinition, tokenAddress string) (float64, bool) {
	if s.indexer == nil || !s.indexer.Enabled() || netDef.IndexerChain == "" {
		return 0, false
	}
	price, err := s.indexer.GetTokenPrice(ctx, netDef.IndexerChain, tokenAddress)
	if err != nil {
		s.logger.Warn("Indexer price lookup failed", "chain", netDef.Identifier, "token", tokenAddress, "error", err)
		return 0, false
	}
	if price == nil || price.UsdPrice <= 0 {
		return 0, false
	}
	return price.UsdPrice, true
}

// dexScreenerPrices asks DEX Screener for the tokens in batches and memoises what it finds.
func (s *TokenPriceService) dexScreenerPrices(ctx context.Context, netDef entity.NetworkDefinition, tokenAddresses []string) map[string]float64 {
	out := make(map[string]float64)
	if s.dexscreenerClient == nil || netDef.DEXScreenerChainID == "" || len(tokenAddresses) == 0 {
		return out
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.opts.MaxConcurrentRoutines)
	for _, batch := range utils.BatchStrings(tokenAddresses, s.opts.MaxTokensPerBatchRequest) {
		batch := batch
		g.Go(func() error {
			pairs, err := s.dexscreenerClient.GetTokenPairsByAddresses(ctx, netDef.DEXScreenerChainID, batch)
			if err != nil {
				s.logger.Error("Failed to get token pairs from DEXScreener",
					"dexScreenerID", netDef.DEXScreenerChainID,
					"token_addresses_count", len(batch),
					"error", err)
				return nil
			}
			for _, addr := range batch {
				priceStr := s.selectBestPriceFromPairs(pairs, addr)
				if priceStr == "" {
					continue
				}
				price, errConv := strconv.ParseFloat(priceStr, 64)
				if errConv != nil || price <= 0 {
					s.logger.Warn("Failed to parse token price from DEXScreener",
						"dexScreenerID", netDef.DEXScreenerChainID,
						"tokenAddress", addr,
						"price_string", priceStr,
						"error", errConv)
					continue
				}
				s.storePrice(netDef.Identifier, addr, price)
				mu.Lock()
				out[strings.ToLower(addr)] = price
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// selectBestPriceFromPairs prefers the most liquid pair quoted in a stablecoin, then the most liquid pair overall.
func (s *TokenPriceService) selectBestPriceFromPairs(pairs []dex_types.PairData, baseTokenAddress string) string {
	if len(pairs) == 0 {
		return ""
	}

	var bestOverallPair *dex_types.PairData
	var bestStablecoinPair *dex_types.PairData

	for i := range pairs {
		pair := &pairs[i]
		if !strings.EqualFold(pair.BaseToken.Address, baseTokenAddress) {
			continue
		}
		if pair.PriceUsd == "" || pair.PriceUsd == "0" {
			continue
		}

		_, isStablecoin := stablecoinSymbols[strings.ToUpper(pair.QuoteToken.Symbol)]

		if isStablecoin {
			if bestStablecoinPair == nil || liquidityUSD(pair) > liquidityUSD(bestStablecoinPair) {
				bestStablecoinPair = pair
			}
		}
		if bestOverallPair == nil || liquidityUSD(pair) > liquidityUSD(bestOverallPair) {
			bestOverallPair = pair
		}
	}

	if bestStablecoinPair != nil {
		s.logger.Debug("Selected best price from stablecoin pair",
			"baseTokenAddress", baseTokenAddress,
			"pairAddress", bestStablecoinPair.PairAddress,
			"priceUsd", bestStablecoinPair.PriceUsd,
			"liquidityUsd", liquidityUSD(bestStablecoinPair),
			"quoteToken", bestStablecoinPair.QuoteToken.Symbol)
		return bestStablecoinPair.PriceUsd
	}

	if bestOverallPair != nil {
		s.logger.Debug("Selected best price from overall highest liquidity pair",
			"baseTokenAddress", baseTokenAddress,
			"pairAddress", bestOverallPair.PairAddress,
			"priceUsd", bestOverallPair.PriceUsd,
			"liquidityUsd", liquidityUSD(bestOverallPair),
			"quoteToken", bestOverallPair.QuoteToken.Symbol)
		return bestOverallPair.PriceUsd
	}

	s.logger.Debug("No suitable price found from pairs",
		"baseTokenAddress", baseTokenAddress,
		"evaluatedPairCount", len(pairs))
	return ""
}

func liquidityUSD(p *dex_types.PairData) float64 {
	return utils.SafeDerefFloat64(p.Liquidity, func(l dex_types.DEXLiquidity) float64 { return l.Usd })
}

// GetTokenMetadata returns indexer metadata with UNKNOWN/18/"Unknown Token" defaults,
// or nil when the indexer is off or the lookup failed.
func (s *TokenPriceService) GetTokenMetadata(ctx context.Context, tokenAddress string, chainKey string) *entity.TokenMetadata {
	if s.indexer == nil || !s.indexer.Enabled() {
		return nil
	}
	netDef, ok := s.networkProvider.GetNetworkDefinitionByName(chainKey)
	if !ok || netDef.IndexerChain == "" {
		return nil
	}

	key := priceKey(chainKey, tokenAddress)
	if v, ok := s.metadata.Get(key); ok {
		md := v.(entity.TokenMetadata)
		return &md
	}

	raw, err := s.indexer.GetTokenMetadata(ctx, netDef.IndexerChain, tokenAddress)
	if err != nil || raw == nil {
		if err != nil {
			s.logger.Warn("Indexer metadata lookup failed", "chain", chainKey, "token", tokenAddress, "error", err)
		}
		return nil
	}

	md := entity.TokenMetadata{
		Address:  tokenAddress,
		Name:     raw.Name,
		Symbol:   raw.Symbol,
		Decimals: DefaultTokenDecimals,
	}
	if md.Symbol == "" {
		md.Symbol = UnknownTokenSymbol
	}
	if md.Name == "" {
		md.Name = UnknownTokenName
	}
	if d, err := strconv.ParseUint(string(raw.Decimals), 10, 8); err == nil && d > 0 {
		md.Decimals = uint8(d)
	}
	s.metadata.SetDefault(key, md)
	return &md
}

// WarmUp loads prices of every popular and listed token into the memo, chain by chain.
func (s *TokenPriceService) WarmUp(ctx context.Context) error {
	s.logger.Info("Starting to load and cache token prices...")

	networks := s.networkProvider.GetAllNetworkDefinitions()
	if len(networks) == 0 {
		s.logger.Warn("No active networks found by NetworkDefinitionProvider. Cannot fetch token prices.")
		return nil
	}

	var listed map[string][]entity.TokenInfo
	if s.tokenProvider != nil {
		var err error
		listed, err = s.tokenProvider.GetTokensByNetwork(networks)
		if err != nil {
			return fmt.Errorf("failed to get tokens for price fetching: %w", err)
		}
	}

	var processed int
	for _, netDef := range networks {
		addrs := append([]string{}, netDef.PopularTokens...)
		if netDef.WrappedNativeTokenAddress != "" {
			addrs = append(addrs, netDef.WrappedNativeTokenAddress)
		}
		for _, t := range listed[netDef.Identifier] {
			addrs = append(addrs, t.Address)
		}
		if len(addrs) == 0 {
			continue
		}
		prices := s.GetTokenPrices(ctx, netDef.Identifier, addrs)
		processed += len(prices)
		s.logger.Debug("Prices cached for network", "network", netDef.Identifier, "requested", len(addrs), "priced", len(prices))
	}

	s.logger.Info("Finished loading and caching token prices.", "processedSuccessfully", processed)
	return ctx.Err()
}
