package service

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	dex_types "portfolio_tracker/internal/entity"
	"portfolio_tracker/internal/infrastructure/storage"
	"portfolio_tracker/internal/pkg/logger"
)

const (
	testWallet = "0x1111111111111111111111111111111111111111"
	tokenA     = "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	tokenB     = "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
	tokenC     = "0xCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC"
	wrappedETH = "0x4200000000000000000000000000000000000006"
)

var testBase = entity.NetworkDefinition{
	ChainID:                   8453,
	Name:                      "Base",
	Identifier:                "base",
	NativeName:                "Base Ethereum",
	NativeSymbol:              "ETH",
	Decimals:                  18,
	ExplorerAPIURL:            "https://api.basescan.org/api",
	IndexerChain:              "base",
	DEXScreenerChainID:        "base",
	WrappedNativeTokenAddress: wrappedETH,
	PopularTokens:             []string{tokenA, tokenB},
}

var testOptimism = entity.NetworkDefinition{
	ChainID:      10,
	Name:         "Optimism",
	Identifier:   "optimism",
	NativeSymbol: "ETH",
	Decimals:     18,
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(t *testing.T, clock *fakeClock) *storage.TTLCache {
	t.Helper()
	store := storage.NewMemoryStore(time.Minute)
	t.Cleanup(func() { _ = store.Close() })
	return storage.NewTTLCache(store, logger.NewNopAdapter(), storage.WithClock(clock.Now))
}

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad int " + s)
	}
	return v
}

type fakeNetworks struct {
	defs []entity.NetworkDefinition
}

func (f *fakeNetworks) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	return f.defs
}

func (f *fakeNetworks) GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool) {
	for _, d := range f.defs {
		if d.Identifier == identifier {
			return d, true
		}
	}
	return entity.NetworkDefinition{}, false
}

type fakeChainClient struct {
	def         entity.NetworkDefinition
	balances    map[string]*big.Int // lower-cased address or "native"
	itemErrs    map[string]error
	batchErr    error
	metadata    map[string]entity.TokenMetadata
	contracts   map[string]bool
	metaCalls   atomic.Int32
	lastRequest []entity.BalanceRequestItem
}

func (c *fakeChainClient) GetBalances(_ context.Context, requests []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error) {
	c.lastRequest = requests
	if c.batchErr != nil {
		return nil, c.batchErr
	}
	out := make([]entity.BalanceResultItem, 0, len(requests))
	for _, r := range requests {
		key := strings.ToLower(r.TokenAddress)
		isNative := r.Type == entity.NativeBalanceRequest
		if isNative {
			key = entity.NativeTokenAddress
		}
		res := entity.BalanceResultItem{
			RequestID:     r.ID,
			WalletAddress: r.WalletAddress,
			TokenAddress:  r.TokenAddress,
			IsNative:      isNative,
			Balance:       big.NewInt(0),
		}
		if err, ok := c.itemErrs[key]; ok {
			res.Error = err
			res.Balance = nil
		} else if b, ok := c.balances[key]; ok {
			res.Balance = b
		}
		out = append(out, res)
	}
	return out, nil
}

func (c *fakeChainClient) GetTokenMetadata(_ context.Context, tokenAddress string) (entity.TokenMetadata, error) {
	c.metaCalls.Add(1)
	md, ok := c.metadata[strings.ToLower(tokenAddress)]
	if !ok {
		return entity.TokenMetadata{}, errors.New("execution reverted")
	}
	return md, nil
}

func (c *fakeChainClient) IsContract(_ context.Context, address string) (bool, error) {
	isContract, ok := c.contracts[strings.ToLower(address)]
	if !ok {
		return false, errors.New("rpc unavailable")
	}
	return isContract, nil
}

func (c *fakeChainClient) Definition() entity.NetworkDefinition {
	return c.def
}

type fakeClientProvider struct {
	clients map[string]*fakeChainClient
}

func (p *fakeClientProvider) GetClient(chainKey string) (port.BlockchainClient, error) {
	cl, ok := p.clients[chainKey]
	if !ok {
		return nil, &entity.UnsupportedChainError{ChainKey: chainKey}
	}
	return cl, nil
}

type fakeIndexer struct {
	enabled    bool
	transfers  []dex_types.MoralisTransfer
	prices     map[string]float64
	metadata   map[string]dex_types.MoralisTokenMetadata
	priceCalls atomic.Int32
}

func (f *fakeIndexer) Enabled() bool { return f.enabled }

func (f *fakeIndexer) GetERC20Transfers(_ context.Context, _ string, _ string, _ int) ([]dex_types.MoralisTransfer, error) {
	return f.transfers, nil
}

func (f *fakeIndexer) GetTokenPrice(_ context.Context, _ string, tokenAddress string) (*dex_types.MoralisPrice, error) {
	f.priceCalls.Add(1)
	p, ok := f.prices[strings.ToLower(tokenAddress)]
	if !ok {
		return nil, nil
	}
	return &dex_types.MoralisPrice{UsdPrice: p}, nil
}

func (f *fakeIndexer) GetTokenMetadata(_ context.Context, _ string, tokenAddress string) (*dex_types.MoralisTokenMetadata, error) {
	md, ok := f.metadata[strings.ToLower(tokenAddress)]
	if !ok {
		return nil, errors.New("not found")
	}
	return &md, nil
}

type fakeExplorer struct {
	txs []dex_types.EtherscanTransaction
	err error
}

func (f *fakeExplorer) Enabled() bool { return true }

func (f *fakeExplorer) GetTransactions(_ context.Context, _ string, _ string) ([]dex_types.EtherscanTransaction, error) {
	return f.txs, f.err
}

type fakeDEX struct {
	mu      sync.Mutex
	pairs   []dex_types.PairData
	batches [][]string
}

func (f *fakeDEX) GetTokenPairsByAddresses(_ context.Context, _ string, tokenAddresses []string) ([]dex_types.PairData, error) {
	f.mu.Lock()
	f.batches = append(f.batches, tokenAddresses)
	f.mu.Unlock()
	return f.pairs, nil
}

func (f *fakeDEX) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

type fakePriceService struct {
	prices   map[string]float64 // chain:lower(address)
	metadata map[string]entity.TokenMetadata
}

func (f *fakePriceService) GetTokenPrice(_ context.Context, tokenAddress string, chainKey string) *float64 {
	p, ok := f.prices[chainKey+":"+strings.ToLower(tokenAddress)]
	if !ok {
		return nil
	}
	return &p
}

func (f *fakePriceService) GetTokenPrices(ctx context.Context, chainKey string, tokenAddresses []string) map[string]float64 {
	out := make(map[string]float64)
	for _, a := range tokenAddresses {
		if p := f.GetTokenPrice(ctx, a, chainKey); p != nil {
			out[strings.ToLower(a)] = *p
		}
	}
	return out
}

func (f *fakePriceService) GetTokenMetadata(_ context.Context, tokenAddress string, chainKey string) *entity.TokenMetadata {
	md, ok := f.metadata[chainKey+":"+strings.ToLower(tokenAddress)]
	if !ok {
		return nil
	}
	return &md
}

type fakeTokenProvider struct {
	tokens map[string][]entity.TokenInfo
}

func (f *fakeTokenProvider) GetTokensByNetwork(_ []entity.NetworkDefinition) (map[string][]entity.TokenInfo, error) {
	return f.tokens, nil
}

type fakeWalletProvider struct {
	wallets []entity.Wallet
	err     error
}

func (f *fakeWalletProvider) GetWallets() ([]entity.Wallet, error) {
	return f.wallets, f.err
}
