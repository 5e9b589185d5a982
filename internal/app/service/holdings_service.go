package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/utils"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// NativeDustThreshold is the formatted native balance a wallet must exceed to list the native asset.
var NativeDustThreshold = decimal.RequireFromString("0.0001")

// HoldingsService implements port.HoldingsService.
type HoldingsService struct {
	networkProvider port.NetworkDefinitionProvider
	clientProvider  port.BlockchainClientProvider
	tokenProvider   port.TokenProvider
	priceSvc        port.TokenPriceService
	logger          port.Logger
	maxConcurrency  int
}

// NewHoldingsService creates a new HoldingsService. tokenProvider and priceSvc may be nil.
func NewHoldingsService(
	np port.NetworkDefinitionProvider,
	cp port.BlockchainClientProvider,
	tp port.TokenProvider,
	ps port.TokenPriceService,
	l port.Logger,
	maxConcurrency int,
) *HoldingsService {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	return &HoldingsService{
		networkProvider: np,
		clientProvider:  cp,
		tokenProvider:   tp,
		priceSvc:        ps,
		logger:          l,
		maxConcurrency:  maxConcurrency,
	}
}

// listedTokens returns the token file entries of a chain keyed by lower-cased address.
func (s *HoldingsService) listedTokens(netDef entity.NetworkDefinition) map[string]entity.TokenInfo {
	out := make(map[string]entity.TokenInfo)
	if s.tokenProvider == nil {
		return out
	}
	byNetwork, err := s.tokenProvider.GetTokensByNetwork([]entity.NetworkDefinition{netDef})
	if err != nil {
		s.logger.Warn("Failed to load listed tokens", "network", netDef.Identifier, "error", err)
		return out
	}
	for _, t := range byNetwork[netDef.Identifier] {
		out[strings.ToLower(t.Address)] = t
	}
	return out
}

// candidateTokens dedups the requested addresses, falling back to popular and listed tokens.
func candidateTokens(requested []string, netDef entity.NetworkDefinition, listed map[string]entity.TokenInfo) []string {
	src := requested
	if len(src) == 0 {
		src = append([]string{}, netDef.PopularTokens...)
		extra := make([]string, 0, len(listed))
		for addr := range listed {
			extra = append(extra, addr)
		}
		sort.Strings(extra)
		src = append(src, extra...)
	}

	seen := make(map[string]struct{}, len(src))
	out := make([]string, 0, len(src))
	for _, addr := range src {
		addr = strings.TrimSpace(addr)
		lower := strings.ToLower(addr)
		if lower == "" || lower == entity.NativeTokenAddress {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// FetchWalletHoldings reads native and token balances in one batch, then resolves metadata of the
// non-zero tokens concurrently. Failures are logged and the affected item is dropped.
func (s *HoldingsService) FetchWalletHoldings(ctx context.Context, wallet, chainKey string, tokenAddresses []string) []entity.TokenHolding {
	holdings := []entity.TokenHolding{}

	client, err := s.clientProvider.GetClient(chainKey)
	if err != nil {
		var unsupported *entity.UnsupportedChainError
		if errors.As(err, &unsupported) {
			s.logger.Warn("Holdings requested for unsupported chain", "chain", chainKey)
		} else {
			s.logger.Error("Failed to get blockchain client for network", "network", chainKey, "error", err)
		}
		return holdings
	}
	netDef := client.Definition()
	listed := s.listedTokens(netDef)
	tokens := candidateTokens(tokenAddresses, netDef, listed)

	requests := make([]entity.BalanceRequestItem, 0, len(tokens)+1)
	requests = append(requests, entity.BalanceRequestItem{
		ID:            fmt.Sprintf("%s-%s-NATIVE", wallet, netDef.Identifier),
		Type:          entity.NativeBalanceRequest,
		WalletAddress: wallet,
	})
	for _, addr := range tokens {
		requests = append(requests, entity.BalanceRequestItem{
			ID:            fmt.Sprintf("%s-%s-%s", wallet, netDef.Identifier, addr),
			Type:          entity.TokenBalanceRequest,
			WalletAddress: wallet,
			TokenAddress:  addr,
		})
	}

	s.logger.Debug("Executing batch balance request", "wallet", wallet, "network", netDef.Identifier, "request_count", len(requests))
	results, err := client.GetBalances(ctx, requests)
	if err != nil {
		s.logger.Error("Batch GetBalances call failed for network", "wallet", wallet, "network", netDef.Identifier, "error", err)
		return holdings
	}

	var nonZero []entity.BalanceResultItem
	for _, res := range results {
		if res.Error != nil {
			s.logger.Warn("Error in batch balance sub-request",
				"wallet", wallet, "network", netDef.Identifier,
				"token_address", res.TokenAddress, "error", res.Error)
			continue
		}
		if res.Balance == nil || res.Balance.Sign() <= 0 {
			continue
		}
		if res.IsNative {
			if h, ok := s.nativeHolding(netDef, res); ok {
				holdings = append(holdings, h)
			}
			continue
		}
		nonZero = append(nonZero, res)
	}

	fetched := make([]utils.Result[entity.TokenHolding], len(nonZero))
	var g errgroup.Group
	g.SetLimit(s.maxConcurrency)
	for i, res := range nonZero {
		i, res := i, res
		g.Go(func() error {
			fetched[i] = s.tokenHolding(ctx, client, netDef, listed, res)
			return nil
		})
	}
	_ = g.Wait()

	holdings = append(holdings, utils.CollectOK(fetched, func(i int, err error) {
		s.logger.Warn("Failed to resolve token holding, skipping",
			"wallet", wallet, "network", netDef.Identifier,
			"token_address", nonZero[i].TokenAddress, "error", err)
	})...)
	return holdings
}

func (s *HoldingsService) nativeHolding(netDef entity.NetworkDefinition, res entity.BalanceResultItem) (entity.TokenHolding, bool) {
	decimals := netDef.Decimals
	if decimals == 0 {
		decimals = 18
	}
	formatted := decimal.NewFromBigInt(res.Balance, -int32(decimals))
	if !formatted.GreaterThan(NativeDustThreshold) {
		s.logger.Debug("Skipping native dust balance", "network", netDef.Identifier, "balance", formatted.String())
		return entity.TokenHolding{}, false
	}
	return entity.TokenHolding{
		ChainID:          netDef.Identifier,
		ChainName:        utils.Capitalize(netDef.Identifier),
		Address:          entity.NativeTokenAddress,
		Symbol:           netDef.NativeSymbol,
		Name:             netDef.NativeName,
		Decimals:         decimals,
		Amount:           res.Balance,
		Balance:          res.Balance.String(),
		BalanceFormatted: formatted.String(),
		IsNative:         true,
	}, true
}

func (s *HoldingsService) tokenHolding(
	ctx context.Context,
	client port.BlockchainClient,
	netDef entity.NetworkDefinition,
	listed map[string]entity.TokenInfo,
	res entity.BalanceResultItem,
) utils.Result[entity.TokenHolding] {
	var md entity.TokenMetadata
	if info, ok := listed[strings.ToLower(res.TokenAddress)]; ok && info.Symbol != "" {
		md = entity.TokenMetadata{Address: info.Address, Name: info.Name, Symbol: info.Symbol, Decimals: info.Decimals}
	} else {
		var err error
		md, err = client.GetTokenMetadata(ctx, res.TokenAddress)
		if err != nil {
			return utils.Fail[entity.TokenHolding](err)
		}
	}

	formatted, err := utils.FormatBigInt(res.Balance, md.Decimals)
	if err != nil {
		return utils.Fail[entity.TokenHolding](err)
	}
	return utils.Ok(entity.TokenHolding{
		ChainID:          netDef.Identifier,
		ChainName:        utils.Capitalize(netDef.Identifier),
		Address:          res.TokenAddress,
		Symbol:           md.Symbol,
		Name:             md.Name,
		Decimals:         md.Decimals,
		Amount:           res.Balance,
		Balance:          res.Balance.String(),
		BalanceFormatted: formatted,
	})
}

// FetchAllChainsHoldings queries every requested chain concurrently. Each chain is independent.
func (s *HoldingsService) FetchAllChainsHoldings(ctx context.Context, wallet string, chainKeys []string, tokensByChain map[string][]string) map[string][]entity.TokenHolding {
	if len(chainKeys) == 0 {
		for _, nd := range s.networkProvider.GetAllNetworkDefinitions() {
			chainKeys = append(chainKeys, nd.Identifier)
		}
	}

	out := make(map[string][]entity.TokenHolding, len(chainKeys))
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.maxConcurrency)
	for _, key := range chainKeys {
		key := key
		g.Go(func() error {
			h := s.FetchWalletHoldings(ctx, wallet, key, tokensByChain[key])
			mu.Lock()
			out[key] = h
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// PriceHoldings fills BalanceUSD for holdings with a known price. The input slice is not modified.
func (s *HoldingsService) PriceHoldings(ctx context.Context, holdings []entity.TokenHolding) []entity.TokenHolding {
	out := make([]entity.TokenHolding, len(holdings))
	copy(out, holdings)
	if s.priceSvc == nil || len(out) == 0 {
		return out
	}

	byChain := make(map[string][]string)
	for _, h := range out {
		if h.IsNative {
			continue
		}
		byChain[h.ChainID] = append(byChain[h.ChainID], h.Address)
	}

	prices := make(map[string]map[string]float64, len(byChain))
	for chainKey, addrs := range byChain {
		prices[chainKey] = s.priceSvc.GetTokenPrices(ctx, chainKey, addrs)
	}

	for i := range out {
		h := &out[i]
		price, ok := prices[h.ChainID][strings.ToLower(h.Address)]
		if !ok && h.IsNative {
			if p := s.priceSvc.GetTokenPrice(ctx, entity.NativeTokenAddress, h.ChainID); p != nil {
				price, ok = *p, true
			}
		}
		if !ok || h.Amount == nil {
			continue
		}
		value, err := utils.CalculateValueUSD(h.Amount, h.Decimals, price)
		if err != nil {
			s.logger.Error("Failed to calculate valueUSD", "network", h.ChainID, "token", h.Symbol, "price", price, "error", err)
			continue
		}
		h.BalanceUSD = &value
	}
	return out
}

// CalculatePortfolioValue sums holdings priced by priceMap (keyed by lower-cased address) per chain.
func CalculatePortfolioValue(holdings []entity.TokenHolding, priceMap map[string]float64) entity.PortfolioValue {
	v := entity.PortfolioValue{ByChain: make(map[string]float64)}
	for _, h := range holdings {
		price, ok := priceMap[strings.ToLower(h.Address)]
		if !ok || h.Amount == nil {
			continue
		}
		value, err := utils.CalculateValueUSD(h.Amount, h.Decimals, price)
		if err != nil {
			continue
		}
		v.Total += value
		v.ByChain[h.ChainID] += value
	}
	return v
}
