package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"portfolio_tracker/internal/domain/entity"
	dex_types "portfolio_tracker/internal/entity"
	"portfolio_tracker/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pair(base, quoteSymbol, price string, liquidity float64) dex_types.PairData {
	return dex_types.PairData{
		ChainID:     "base",
		PairAddress: "0xpair-" + quoteSymbol,
		BaseToken:   dex_types.DEXToken{Address: base},
		QuoteToken:  dex_types.DEXToken{Symbol: quoteSymbol},
		PriceUsd:    price,
		Liquidity:   &dex_types.DEXLiquidity{Usd: liquidity},
	}
}

func newPriceService(idx *fakeIndexer, dex *fakeDEX, maxBatch int) *TokenPriceService {
	return NewTokenPriceService(
		&fakeNetworks{defs: []entity.NetworkDefinition{testBase, testOptimism}},
		nil, idx, dex, logger.NewNopAdapter(),
		PriceServiceOptions{PriceTTL: time.Minute, MaxTokensPerBatchRequest: maxBatch},
	)
}

func TestPriceIndexerFirst(t *testing.T) {
	idx := &fakeIndexer{enabled: true, prices: map[string]float64{strings.ToLower(tokenA): 2.5}}
	dex := &fakeDEX{}
	svc := newPriceService(idx, dex, 30)

	p := svc.GetTokenPrice(context.Background(), tokenA, "base")
	require.NotNil(t, p)
	assert.InDelta(t, 2.5, *p, 1e-9)
	assert.Zero(t, dex.calls())

	// memoised
	p = svc.GetTokenPrice(context.Background(), strings.ToLower(tokenA), "base")
	require.NotNil(t, p)
	assert.EqualValues(t, 1, idx.priceCalls.Load())
}

func TestPriceDEXScreenerFallbackPrefersStablecoinPair(t *testing.T) {
	dex := &fakeDEX{pairs: []dex_types.PairData{
		pair(tokenA, "WETH", "1.10", 900_000),
		pair(tokenA, "USDC", "1.02", 50_000),
		pair(tokenA, "USDT", "1.01", 10_000),
		pair(tokenB, "USDC", "7", 1_000),
	}}
	svc := newPriceService(&fakeIndexer{}, dex, 30)

	p := svc.GetTokenPrice(context.Background(), tokenA, "base")
	require.NotNil(t, p)
	assert.InDelta(t, 1.02, *p, 1e-9)
}

func TestPriceHighestLiquidityWithoutStablecoin(t *testing.T) {
	dex := &fakeDEX{pairs: []dex_types.PairData{
		pair(tokenA, "WETH", "3", 100),
		pair(tokenA, "AERO", "4", 5_000),
		pair(tokenA, "VIRTUAL", "0", 9_000),
	}}
	svc := newPriceService(&fakeIndexer{}, dex, 30)

	p := svc.GetTokenPrice(context.Background(), tokenA, "base")
	require.NotNil(t, p)
	assert.InDelta(t, 4.0, *p, 1e-9)
}

func TestPriceNativeUsesWrappedToken(t *testing.T) {
	idx := &fakeIndexer{enabled: true, prices: map[string]float64{wrappedETH: 3000}}
	svc := newPriceService(idx, &fakeDEX{}, 30)

	p := svc.GetTokenPrice(context.Background(), entity.NativeTokenAddress, "base")
	require.NotNil(t, p)
	assert.InDelta(t, 3000.0, *p, 1e-9)

	assert.Nil(t, svc.GetTokenPrice(context.Background(), entity.NativeTokenAddress, "optimism"))
}

func TestPriceUnknownChainAndUnknownToken(t *testing.T) {
	svc := newPriceService(&fakeIndexer{enabled: true}, &fakeDEX{}, 30)
	assert.Nil(t, svc.GetTokenPrice(context.Background(), tokenA, "solana"))
	assert.Nil(t, svc.GetTokenPrice(context.Background(), tokenA, "base"))
}

func TestGetTokenPricesBatchesDEXRequests(t *testing.T) {
	dex := &fakeDEX{pairs: []dex_types.PairData{
		pair(strings.ToLower(tokenA), "USDC", "1", 10),
		pair(strings.ToLower(tokenB), "USDC", "2", 10),
		pair(strings.ToLower(tokenC), "USDC", "3", 10),
	}}
	svc := newPriceService(&fakeIndexer{}, dex, 2)

	prices := svc.GetTokenPrices(context.Background(), "base", []string{tokenA, tokenB, tokenC, tokenA})
	assert.Equal(t, map[string]float64{
		strings.ToLower(tokenA): 1,
		strings.ToLower(tokenB): 2,
		strings.ToLower(tokenC): 3,
	}, prices)
	assert.Equal(t, 2, dex.calls())

	// everything is memoised now
	_ = svc.GetTokenPrices(context.Background(), "base", []string{tokenB})
	assert.Equal(t, 2, dex.calls())
}

func TestTokenMetadataDefaults(t *testing.T) {
	idx := &fakeIndexer{enabled: true, metadata: map[string]dex_types.MoralisTokenMetadata{
		strings.ToLower(tokenA): {Symbol: "AAA", Name: "Token A", Decimals: "6"},
		strings.ToLower(tokenB): {},
	}}
	svc := newPriceService(idx, &fakeDEX{}, 30)

	md := svc.GetTokenMetadata(context.Background(), strings.ToLower(tokenA), "base")
	require.NotNil(t, md)
	assert.Equal(t, "AAA", md.Symbol)
	assert.EqualValues(t, 6, md.Decimals)

	md = svc.GetTokenMetadata(context.Background(), strings.ToLower(tokenB), "base")
	require.NotNil(t, md)
	assert.Equal(t, UnknownTokenSymbol, md.Symbol)
	assert.Equal(t, UnknownTokenName, md.Name)
	assert.EqualValues(t, DefaultTokenDecimals, md.Decimals)

	assert.Nil(t, svc.GetTokenMetadata(context.Background(), tokenC, "base"))

	disabled := newPriceService(&fakeIndexer{}, &fakeDEX{}, 30)
	assert.Nil(t, disabled.GetTokenMetadata(context.Background(), tokenA, "base"))
}

func TestWarmUpCachesPopularAndListedTokens(t *testing.T) {
	dex := &fakeDEX{pairs: []dex_types.PairData{
		pair(strings.ToLower(tokenA), "USDC", "1", 10),
		pair(strings.ToLower(tokenC), "USDC", "3", 10),
	}}
	tp := &fakeTokenProvider{tokens: map[string][]entity.TokenInfo{
		"base": {{ChainID: 8453, Address: tokenC, Symbol: "CCC", Decimals: 18}},
	}}
	svc := NewTokenPriceService(&fakeNetworks{defs: []entity.NetworkDefinition{testBase}},
		tp, nil, dex, logger.NewNopAdapter(), PriceServiceOptions{})

	require.NoError(t, svc.WarmUp(context.Background()))
	calls := dex.calls()

	prices := svc.GetTokenPrices(context.Background(), "base", []string{tokenA, tokenC})
	assert.Len(t, prices, 2)
	assert.Equal(t, calls, dex.calls())
}

func newHoldingsFixture() (*HoldingsService, *fakeChainClient) {
	cl := &fakeChainClient{
		def: testBase,
		balances: map[string]*big.Int{
			entity.NativeTokenAddress: wei("500000000000000000"), // 0.5 ETH
			strings.ToLower(tokenA):   wei("1500000"),
			strings.ToLower(tokenC):   wei("42"),
		},
		metadata: map[string]entity.TokenMetadata{
			strings.ToLower(tokenA): {Symbol: "USDC", Name: "USD Coin", Decimals: 6},
		},
	}
	cp := &fakeClientProvider{clients: map[string]*fakeChainClient{"base": cl}}
	svc := NewHoldingsService(&fakeNetworks{defs: []entity.NetworkDefinition{testBase}}, cp, nil, nil, logger.NewNopAdapter(), 4)
	return svc, cl
}

func TestFetchWalletHoldingsDefaultsToPopularTokens(t *testing.T) {
	svc, cl := newHoldingsFixture()

	holdings := svc.FetchWalletHoldings(context.Background(), testWallet, "base", nil)
	require.Len(t, holdings, 2)

	native := holdings[0]
	assert.True(t, native.IsNative)
	assert.Equal(t, entity.NativeTokenAddress, native.Address)
	assert.Equal(t, "0.5", native.BalanceFormatted)
	assert.Equal(t, "Base", native.ChainName)

	usdc := holdings[1]
	assert.Equal(t, "USDC", usdc.Symbol)
	assert.Equal(t, "1.5", usdc.BalanceFormatted)
	assert.Equal(t, "1500000", usdc.Balance)

	// native + popular tokens A and B; C is not popular
	assert.Len(t, cl.lastRequest, 3)
}

func TestFetchWalletHoldingsDropsDustAndFailures(t *testing.T) {
	svc, cl := newHoldingsFixture()
	cl.balances[entity.NativeTokenAddress] = wei("50000000000000") // 0.00005 ETH
	cl.itemErrs = map[string]error{strings.ToLower(tokenB): errors.New("execution reverted")}

	holdings := svc.FetchWalletHoldings(context.Background(), testWallet, "base", []string{tokenA, tokenB, tokenC, tokenA})
	require.Len(t, holdings, 1)
	assert.Equal(t, "USDC", holdings[0].Symbol)
	// tokenC has a balance but no metadata
	assert.EqualValues(t, 2, cl.metaCalls.Load())
	assert.Len(t, cl.lastRequest, 4)
}

func TestFetchWalletHoldingsUsesListedTokenInfo(t *testing.T) {
	svc, cl := newHoldingsFixture()
	svc.tokenProvider = &fakeTokenProvider{tokens: map[string][]entity.TokenInfo{
		"base": {{ChainID: 8453, Address: tokenC, Name: "Token C", Symbol: "CCC", Decimals: 0}},
	}}

	holdings := svc.FetchWalletHoldings(context.Background(), testWallet, "base", nil)
	require.Len(t, holdings, 3)
	symbols := []string{holdings[1].Symbol, holdings[2].Symbol}
	assert.ElementsMatch(t, []string{"USDC", "CCC"}, symbols)
	assert.EqualValues(t, 1, cl.metaCalls.Load())
}

func TestFetchWalletHoldingsUnsupportedChainAndBatchFailure(t *testing.T) {
	svc, cl := newHoldingsFixture()
	assert.Empty(t, svc.FetchWalletHoldings(context.Background(), testWallet, "solana", nil))

	cl.batchErr = errors.New("all endpoints failed")
	holdings := svc.FetchWalletHoldings(context.Background(), testWallet, "base", nil)
	assert.NotNil(t, holdings)
	assert.Empty(t, holdings)
}

func TestFetchAllChainsHoldings(t *testing.T) {
	svc, _ := newHoldingsFixture()
	svc.networkProvider = &fakeNetworks{defs: []entity.NetworkDefinition{testBase, testOptimism}}

	all := svc.FetchAllChainsHoldings(context.Background(), testWallet, nil, nil)
	require.Contains(t, all, "base")
	require.Contains(t, all, "optimism")
	assert.Len(t, all["base"], 2)
	assert.Empty(t, all["optimism"])

	only := svc.FetchAllChainsHoldings(context.Background(), testWallet, []string{"base"}, map[string][]string{"base": {tokenA}})
	assert.Len(t, only, 1)
	assert.Len(t, only["base"], 2)
}

func TestPriceHoldings(t *testing.T) {
	svc, _ := newHoldingsFixture()
	prices := map[string]float64{"base:native": 3000}
	prices["base:"+strings.ToLower(tokenA)] = 1
	svc.priceSvc = &fakePriceService{prices: prices}

	holdings := svc.FetchWalletHoldings(context.Background(), testWallet, "base", nil)
	priced := svc.PriceHoldings(context.Background(), holdings)
	require.Len(t, priced, 2)
	require.NotNil(t, priced[0].BalanceUSD)
	assert.InDelta(t, 1500.0, *priced[0].BalanceUSD, 1e-9)
	require.NotNil(t, priced[1].BalanceUSD)
	assert.InDelta(t, 1.5, *priced[1].BalanceUSD, 1e-9)
	assert.Nil(t, holdings[0].BalanceUSD)
}

func TestCalculatePortfolioValue(t *testing.T) {
	holdings := []entity.TokenHolding{
		{ChainID: "base", Address: tokenA, Decimals: 6, Amount: wei("2000000")},
		{ChainID: "ethereum", Address: tokenB, Decimals: 18, Amount: wei("1000000000000000000")},
		{ChainID: "base", Address: tokenC, Decimals: 18, Amount: wei("1")},
	}
	v := CalculatePortfolioValue(holdings, map[string]float64{
		strings.ToLower(tokenA): 1.5,
		strings.ToLower(tokenB): 10,
	})
	assert.InDelta(t, 13.0, v.Total, 1e-9)
	assert.InDelta(t, 3.0, v.ByChain["base"], 1e-9)
	assert.InDelta(t, 10.0, v.ByChain["ethereum"], 1e-9)
}

func newHistoryFixture(t *testing.T, clock *fakeClock) (*HistoryService, *fakeExplorer, *fakeIndexer) {
	explorer := &fakeExplorer{txs: []dex_types.EtherscanTransaction{
		{Hash: "0x01", TimeStamp: "1700000000", BlockNumber: "100", Value: "1500000000000000000", Input: "0x", Gas: "21000", GasPrice: "1"},
		{Hash: "0x02", TimeStamp: "1700000100", BlockNumber: "101", Value: "0", Input: "0x3593564c0000", FunctionName: "execute(bytes,bytes[])"},
	}}
	indexer := &fakeIndexer{enabled: true, transfers: []dex_types.MoralisTransfer{
		{TransactionHash: "0x02", Address: tokenA, BlockTimestamp: "2023-11-14T22:15:00.000Z", BlockNumber: "101",
			FromAddress: "0xpool", ToAddress: "0x" + strings.ToUpper(testWallet[2:]), Value: "5000000", ValueDecimal: "5",
			TokenSymbol: "USDC", TokenDecimals: "6"},
		{TransactionHash: "0x03", Address: tokenB, BlockTimestamp: "2023-11-14T22:20:00Z", BlockNumber: "102",
			FromAddress: testWallet, ToAddress: "0xfriend", ValueDecimal: "2", TokenSymbol: "BBB"},
	}}
	svc := NewHistoryService(&fakeNetworks{defs: []entity.NetworkDefinition{testBase}}, explorer, indexer, newTestCache(t, clock), logger.NewNopAdapter())
	return svc, explorer, indexer
}

func TestFetchCompleteWalletHistoryMerges(t *testing.T) {
	svc, _, _ := newHistoryFixture(t, newFakeClock())

	txs := svc.FetchCompleteWalletHistory(context.Background(), testWallet, "base")
	require.Len(t, txs, 3)

	byHash := make(map[string]entity.TransactionRecord)
	for _, tx := range txs {
		byHash[tx.Hash] = tx
	}

	first := byHash["0x01"]
	assert.Equal(t, "1.5000", first.ValueFormatted)
	assert.Equal(t, int64(1700000000000), first.Timestamp)
	assert.Equal(t, entity.TransactionReceive, first.Type)
	assert.Equal(t, "21000", first.GasUsed)
	assert.Equal(t, "base", first.ChainID)

	// the indexer record replaces the explorer one
	swap := byHash["0x02"]
	assert.True(t, swap.IsTokenTransfer)
	assert.Equal(t, "USDC", swap.TokenSymbol)
	assert.EqualValues(t, 6, swap.TokenDecimals)
	assert.Equal(t, "5", swap.TokenAmount)
	assert.Equal(t, "0x", swap.Input)
	assert.Equal(t, "0", swap.GasPrice)

	sent := byHash["0x03"]
	assert.Equal(t, entity.TransactionSend, sent.Type)
	assert.Equal(t, "0", sent.Value)
	assert.Equal(t, "0", sent.GasUsed)

	for i := 1; i < len(txs); i++ {
		assert.GreaterOrEqual(t, txs[i-1].Timestamp, txs[i].Timestamp)
	}
}

func TestFetchCompleteWalletHistoryProviderFailure(t *testing.T) {
	svc, explorer, _ := newHistoryFixture(t, newFakeClock())
	explorer.err = errors.New("rate limited")

	txs := svc.FetchCompleteWalletHistory(context.Background(), testWallet, "base")
	assert.Len(t, txs, 2)

	assert.Empty(t, svc.FetchCompleteWalletHistory(context.Background(), testWallet, "solana"))
}

func TestWalletHistoryCacheTTL(t *testing.T) {
	clock := newFakeClock()
	svc, explorer, indexer := newHistoryFixture(t, clock)
	ctx := context.Background()

	txs := svc.GetWalletHistory(ctx, testWallet, "base")
	require.Len(t, txs, 3)

	explorer.txs = nil
	indexer.transfers = nil

	clock.Advance(WalletHistoryTTL - time.Second)
	cached, ok := svc.GetCachedWalletHistory(ctx, strings.ToUpper(testWallet[:2])+testWallet[2:], "base")
	require.True(t, ok)
	assert.Len(t, cached, 3)

	clock.Advance(2 * time.Second)
	_, ok = svc.GetCachedWalletHistory(ctx, testWallet, "base")
	assert.False(t, ok)

	assert.Empty(t, svc.GetWalletHistory(ctx, testWallet, "base"))
}

func TestWalletPNLCached(t *testing.T) {
	clock := newFakeClock()
	history, explorer, indexer := newHistoryFixture(t, clock)
	explorer.txs = nil
	indexer.transfers = []dex_types.MoralisTransfer{
		{TransactionHash: "0x10", Address: tokenA, BlockTimestamp: "2024-01-01T00:00:00Z",
			ToAddress: testWallet, ValueDecimal: "100", TokenSymbol: "AAA"},
	}
	lowerA := strings.ToLower(tokenA)
	prices := &fakePriceService{prices: map[string]float64{"base:" + lowerA: 0.05}}
	svc := NewPNLService(history, prices, newTestCache(t, clock), logger.NewNopAdapter(), 2)

	pnl := svc.GetWalletPNL(context.Background(), testWallet, "base")
	require.Len(t, pnl.Tokens, 1)
	assert.Equal(t, "AAA", pnl.Tokens[0].Symbol)
	assert.InDelta(t, 5.0, pnl.TotalValue, 1e-9)
	assert.InDelta(t, 1.0, pnl.TotalCost, 1e-9)
	assert.InDelta(t, 400.0, pnl.UnrealizedPNLPercent, 1e-9)

	prices.prices["base:"+lowerA] = 1
	clock.Advance(PortfolioPNLTTL - time.Second)
	again := svc.GetWalletPNL(context.Background(), testWallet, "base")
	assert.InDelta(t, 5.0, again.TotalValue, 1e-9)

	clock.Advance(WalletHistoryTTL + time.Minute)
	fresh := svc.GetWalletPNL(context.Background(), testWallet, "base")
	assert.InDelta(t, 100.0, fresh.TotalValue, 1e-9)
}

func TestCalculatePortfolioPNLPrefersMetadataSymbol(t *testing.T) {
	prices := &fakePriceService{
		prices:   map[string]float64{"base:" + strings.ToLower(tokenA): 1},
		metadata: map[string]entity.TokenMetadata{"base:" + strings.ToLower(tokenA): {Symbol: "REAL"}},
	}
	svc := NewPNLService(nil, prices, nil, logger.NewNopAdapter(), 0)

	pnl := svc.CalculatePortfolioPNL(context.Background(), []entity.TransactionRecord{
		{Hash: "0x1", Type: entity.TransactionReceive, TokenAddress: tokenA, TokenSymbol: "OLD", TokenAmount: "10", ChainID: "base"},
	})
	require.Len(t, pnl.Tokens, 1)
	assert.Equal(t, "REAL", pnl.Tokens[0].Symbol)
}

type stubHoldings struct {
	byChain map[string][]entity.TokenHolding
	price   float64
}

func (s *stubHoldings) FetchWalletHoldings(_ context.Context, _ string, chainKey string, _ []string) []entity.TokenHolding {
	return s.byChain[chainKey]
}

func (s *stubHoldings) FetchAllChainsHoldings(_ context.Context, _ string, _ []string, _ map[string][]string) map[string][]entity.TokenHolding {
	return s.byChain
}

func (s *stubHoldings) PriceHoldings(_ context.Context, holdings []entity.TokenHolding) []entity.TokenHolding {
	out := make([]entity.TokenHolding, len(holdings))
	for i, h := range holdings {
		v := s.price
		h.BalanceUSD = &v
		out[i] = h
	}
	return out
}

type stubPNL struct {
	trades map[string][]entity.TradeRecord
}

func (s *stubPNL) CalculatePortfolioPNL(context.Context, []entity.TransactionRecord) entity.PortfolioPNL {
	return entity.PortfolioPNL{}
}

func (s *stubPNL) GetWalletPNL(context.Context, string, string) entity.PortfolioPNL {
	return entity.PortfolioPNL{}
}

func (s *stubPNL) ClosedTrades(_ context.Context, _ string, chainKey string) []entity.TradeRecord {
	return s.trades[chainKey]
}

func TestSnapshotSeriesOrderAndPruning(t *testing.T) {
	clock := newFakeClock()
	svc := NewSnapshotService(&stubHoldings{}, nil, newTestCache(t, clock), logger.NewNopAdapter(), WithSnapshotClock(clock.Now))
	ctx := context.Background()

	now := clock.Now()
	old := entity.PortfolioSnapshot{Timestamp: now.Add(-91 * 24 * time.Hour).UnixMilli(), TotalValueUSD: 1}
	mid := entity.PortfolioSnapshot{Timestamp: now.Add(-48 * time.Hour).UnixMilli(), TotalValueUSD: 2}
	latest := entity.PortfolioSnapshot{Timestamp: now.UnixMilli(), TotalValueUSD: 3}

	series, err := svc.GetPortfolioSnapshots(ctx, testWallet)
	require.NoError(t, err)
	assert.Empty(t, series)

	require.NoError(t, svc.SavePortfolioSnapshot(ctx, testWallet, old))
	require.NoError(t, svc.SavePortfolioSnapshot(ctx, testWallet, latest))
	require.NoError(t, svc.SavePortfolioSnapshot(ctx, testWallet, mid))

	series, err = svc.GetPortfolioSnapshots(ctx, strings.ToUpper(testWallet))
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, mid.Timestamp, series[0].Timestamp)
	assert.Equal(t, latest.Timestamp, series[1].Timestamp)

	// plain entries do not expire
	clock.Advance(24 * time.Hour)
	series, err = svc.GetPortfolioSnapshots(ctx, testWallet)
	require.NoError(t, err)
	assert.Len(t, series, 2)
}

func TestCaptureSnapshotAndMetrics(t *testing.T) {
	clock := newFakeClock()
	holdings := &stubHoldings{price: 10, byChain: map[string][]entity.TokenHolding{
		"ethereum": {{ChainID: "ethereum", Address: "native", Symbol: "ETH", BalanceFormatted: "1"}},
		"base":     {{ChainID: "base", Address: tokenA, Symbol: "AAA", BalanceFormatted: "2"}},
	}}
	pnl := &stubPNL{trades: map[string][]entity.TradeRecord{
		"base": {{Symbol: "AAA", GainLoss: 5, GainLossPercent: 25}, {Symbol: "BBB", GainLoss: -1, GainLossPercent: -10}},
	}}
	svc := NewSnapshotService(holdings, pnl, newTestCache(t, clock), logger.NewNopAdapter(), WithSnapshotClock(clock.Now))
	ctx := context.Background()

	snap, err := svc.CaptureSnapshot(ctx, testWallet, nil)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, snap.TotalValueUSD, 1e-9)
	require.Len(t, snap.Holdings, 2)
	assert.Equal(t, "AAA", snap.Holdings[0].Symbol) // chains in key order

	clock.Advance(25 * time.Hour)
	holdings.price = 15
	_, err = svc.CaptureSnapshot(ctx, testWallet, nil)
	require.NoError(t, err)

	m, err := svc.GetPortfolioMetrics(ctx, testWallet, []string{"base"})
	require.NoError(t, err)
	assert.InDelta(t, 30.0, m.TotalValueUSD, 1e-9)
	assert.InDelta(t, 10.0, m.DayChange, 1e-9)
	assert.InDelta(t, 50.0, m.DayChangePercent, 1e-9)
	assert.Equal(t, 2, m.TotalTrades)
	assert.InDelta(t, 50.0, m.WinRate, 1e-9)
	assert.Equal(t, "AAA", m.BestTrade.Symbol)

	noTrades, err := svc.GetPortfolioMetrics(ctx, testWallet, nil)
	require.NoError(t, err)
	assert.Zero(t, noTrades.TotalTrades)
}

func TestStreamingCacheTTL(t *testing.T) {
	clock := newFakeClock()
	svc := NewStreamingService(newTestCache(t, clock), logger.NewNopAdapter())
	ctx := context.Background()

	_, ok := svc.GetStreams(ctx, testWallet)
	assert.False(t, ok)

	streams := []entity.StreamData{{TokenSymbol: "USDCx", FlowRate: "1000000000000", IsActive: true}}
	require.NoError(t, svc.SaveStreams(ctx, testWallet, streams))

	clock.Advance(StreamingDataTTL - time.Second)
	got, ok := svc.GetStreams(ctx, testWallet)
	require.True(t, ok)
	assert.Equal(t, streams, got)

	clock.Advance(2 * time.Second)
	_, ok = svc.GetStreams(ctx, testWallet)
	assert.False(t, ok)
}

func TestClassifyHolders(t *testing.T) {
	bot := "0x00000000000000000000000000000000000000b0"
	whale := "0x00000000000000000000000000000000000000a1"
	dev := "0x00000000000000000000000000000000000000d1"
	unknown := "0x00000000000000000000000000000000000000ff"

	cl := &fakeChainClient{def: testBase, contracts: map[string]bool{bot: true, whale: false, dev: true}}
	svc := NewHolderService(&fakeClientProvider{clients: map[string]*fakeChainClient{"base": cl}}, logger.NewNopAdapter(), 2)

	out, err := svc.ClassifyHolders(context.Background(), "base", []entity.HolderInfo{
		{Address: bot, BalanceFormatted: "10", TransactionCount: 3},
		{Address: whale, BalanceFormatted: "2000000", TransactionCount: 1},
		{Address: dev, BalanceFormatted: "5", HolderType: entity.HolderDev},
		{Address: unknown, BalanceFormatted: "1", TransactionCount: 101, IsContract: false},
	})
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Equal(t, entity.HolderBot, out[0].HolderType)
	assert.True(t, out[0].IsContract)
	assert.Equal(t, entity.HolderInsider, out[1].HolderType)
	assert.Equal(t, entity.HolderDev, out[2].HolderType)
	assert.True(t, out[2].IsContract)
	assert.Equal(t, entity.HolderSniper, out[3].HolderType)

	_, err = svc.ClassifyHolders(context.Background(), "solana", nil)
	var unsupported *entity.UnsupportedChainError
	assert.True(t, errors.As(err, &unsupported))
}

type stubSnapshots struct {
	fail map[string]bool
}

func (s *stubSnapshots) SavePortfolioSnapshot(context.Context, string, entity.PortfolioSnapshot) error {
	return nil
}

func (s *stubSnapshots) GetPortfolioSnapshots(context.Context, string) ([]entity.PortfolioSnapshot, error) {
	return nil, nil
}

func (s *stubSnapshots) CaptureSnapshot(_ context.Context, wallet string, _ []string) (entity.PortfolioSnapshot, error) {
	if s.fail[wallet] {
		return entity.PortfolioSnapshot{}, errors.New("store down")
	}
	return entity.PortfolioSnapshot{}, nil
}

func (s *stubSnapshots) GetPortfolioMetrics(context.Context, string, []string) (entity.PortfolioMetrics, error) {
	return entity.PortfolioMetrics{}, nil
}

func TestSnapshotSchedulerCapturesAllWallets(t *testing.T) {
	wallets := &fakeWalletProvider{wallets: []entity.Wallet{{Address: "0xa"}, {Address: "0xb"}, {Address: "0xc"}}}
	snaps := &stubSnapshots{fail: map[string]bool{"0xb": true}}
	sched := NewSnapshotScheduler(wallets, &fakeNetworks{defs: []entity.NetworkDefinition{testBase, testOptimism}},
		snaps, logger.NewNopAdapter(), time.Hour, []string{"BASE"}, 2)

	assert.Equal(t, []string{"base"}, sched.activeChainKeys())

	n, err := sched.CaptureAllWallets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"0xb"}, sched.GetFailedWallets())

	snaps.fail = nil
	_, err = sched.CaptureAllWallets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sched.GetFailedWallets())

	wallets.err = errors.New("missing file")
	_, err = sched.CaptureAllWallets(context.Background())
	assert.Error(t, err)
}

type boundedSnapshots struct {
	stubSnapshots
	inFlight, peak, calls atomic.Int32
}

func (s *boundedSnapshots) CaptureSnapshot(ctx context.Context, wallet string, chainKeys []string) (entity.PortfolioSnapshot, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	s.calls.Add(1)
	time.Sleep(5 * time.Millisecond)
	return s.stubSnapshots.CaptureSnapshot(ctx, wallet, chainKeys)
}

func TestSnapshotSchedulerRespectsConcurrencyLimit(t *testing.T) {
	var ws []entity.Wallet
	for i := 0; i < 12; i++ {
		ws = append(ws, entity.Wallet{Address: fmt.Sprintf("0x%02d", i)})
	}
	snaps := &boundedSnapshots{stubSnapshots: stubSnapshots{fail: map[string]bool{"0x03": true}}}
	sched := NewSnapshotScheduler(&fakeWalletProvider{wallets: ws}, &fakeNetworks{defs: []entity.NetworkDefinition{testBase}},
		snaps, logger.NewNopAdapter(), time.Hour, nil, 3)

	n, err := sched.CaptureAllWallets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, int32(12), snaps.calls.Load())
	assert.LessOrEqual(t, snaps.peak.Load(), int32(3))
	assert.Equal(t, []string{"0x03"}, sched.GetFailedWallets())
}

func TestSnapshotSchedulerDisabled(t *testing.T) {
	sched := NewSnapshotScheduler(&fakeWalletProvider{}, &fakeNetworks{}, &stubSnapshots{}, logger.NewNopAdapter(), 0, nil, 1)
	done := make(chan struct{})
	go func() {
		sched.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled scheduler did not return")
	}
}
