package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "0x1111111111111111111111111111111111111111"

func TestEtherscanDisabledWithoutKey(t *testing.T) {
	c := NewEtherscanClient("", 5, time.Second, nil)
	assert.False(t, c.Enabled())

	txs, err := c.GetTransactions(context.Background(), "http://127.0.0.1:1/api", testWallet)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestEtherscanTxList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "account", q.Get("module"))
		assert.Equal(t, "txlist", q.Get("action"))
		assert.Equal(t, "desc", q.Get("sort"))
		assert.Equal(t, "secret", q.Get("apikey"))
		assert.Equal(t, testWallet, q.Get("address"))
		assert.False(t, q.Has("chainid")) // per-chain explorer host, no multichain parameter

		var b strings.Builder
		b.WriteString(`{"status":"1","message":"OK","result":[`)
		for i := 0; i < 120; i++ {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(`{"hash":"0x` + strings.Repeat("a", 2) + `","timeStamp":"1700000000","input":"0x","value":"0"}`)
		}
		b.WriteString(`]}`)
		_, _ = w.Write([]byte(b.String()))
	}))
	defer srv.Close()

	c := NewEtherscanClient("secret", 0, time.Second, nil)
	txs, err := c.GetTransactions(context.Background(), srv.URL+"/api", testWallet)
	require.NoError(t, err)
	assert.Len(t, txs, MaxExplorerTransactions)
	assert.Equal(t, "1700000000", txs[0].TimeStamp)
}

func TestEtherscanNoTransactions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"0","message":"No transactions found","result":[]}`))
	}))
	defer srv.Close()

	c := NewEtherscanClient("secret", 0, time.Second, nil)
	txs, err := c.GetTransactions(context.Background(), srv.URL, testWallet)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestEtherscanNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Invalid API Key"}`))
	}))
	defer srv.Close()

	c := NewEtherscanClient("bad", 0, time.Second, nil)
	_, err := c.GetTransactions(context.Background(), srv.URL, testWallet)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API Key")
	assert.NotContains(t, err.Error(), "apikey=bad")
}

func TestEtherscanHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewEtherscanClient("secret", 0, time.Second, nil)
	_, err := c.GetTransactions(context.Background(), srv.URL, testWallet)
	assert.Error(t, err)
}

func TestMoralisTransfers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("X-API-Key"))
		assert.Equal(t, "/"+testWallet+"/erc20/transfers", r.URL.Path)
		assert.Equal(t, "eth", r.URL.Query().Get("chain"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"cursor":"","page_size":100,"result":[
			{"transaction_hash":"0xabc","address":"0xtoken","block_timestamp":"2024-01-02T03:04:05.000Z",
			 "block_number":"19000000","from_address":"0xfrom","to_address":"` + testWallet + `",
			 "value":"1000000","value_decimal":"1","token_symbol":"USDC","token_name":"USD Coin","token_decimals":6}
		]}`))
	}))
	defer srv.Close()

	c := NewMoralisClient(srv.URL, "key", time.Second, nil)
	transfers, err := c.GetERC20Transfers(context.Background(), "eth", testWallet, 100)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, "0xabc", transfers[0].TransactionHash)
	assert.EqualValues(t, "6", transfers[0].TokenDecimals)
	assert.Equal(t, "1", transfers[0].ValueDecimal)
}

func TestMoralisPriceAndMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/price"):
			_, _ = w.Write([]byte(`{"usdPrice":1.0002,"tokenSymbol":"USDC","tokenDecimals":"6"}`))
		case strings.HasSuffix(r.URL.Path, "/metadata"):
			_, _ = w.Write([]byte(`{"address":"0xtoken","name":"USD Coin","symbol":"USDC","decimals":"6"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewMoralisClient(srv.URL, "key", time.Second, nil)

	price, err := c.GetTokenPrice(context.Background(), "base", "0xtoken")
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.InDelta(t, 1.0002, price.UsdPrice, 1e-9)

	meta, err := c.GetTokenMetadata(context.Background(), "base", "0xtoken")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "USDC", meta.Symbol)
	assert.EqualValues(t, "6", meta.Decimals)
}

func TestMoralisDisabled(t *testing.T) {
	c := NewMoralisClient("", "", time.Second, nil)
	assert.False(t, c.Enabled())

	transfers, err := c.GetERC20Transfers(context.Background(), "eth", testWallet, 100)
	require.NoError(t, err)
	assert.Empty(t, transfers)

	price, err := c.GetTokenPrice(context.Background(), "eth", "0xtoken")
	require.NoError(t, err)
	assert.Nil(t, price)
}

func TestDEXScreenerBothResponseShapes(t *testing.T) {
	var wrapped atomic.Bool
	wrapped.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tokens/v1/base/0xa,0xb", r.URL.Path)
		pair := `{"chainId":"base","pairAddress":"0xpair","baseToken":{"address":"0xa","symbol":"AAA"},"quoteToken":{"symbol":"USDC"},"priceUsd":"1.5","liquidity":{"usd":1000}}`
		if wrapped.Load() {
			_, _ = w.Write([]byte(`{"schemaVersion":"1.0.0","pairs":[` + pair + `]}`))
			return
		}
		_, _ = w.Write([]byte(`[` + pair + `]`))
	}))
	defer srv.Close()

	c := NewDEXScreenerClient(srv.URL, time.Second, nil, 30)

	pairs, err := c.GetTokenPairsByAddresses(context.Background(), "base", []string{"0xa", "0xb"})
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "1.5", pairs[0].PriceUsd)

	wrapped.Store(false)
	pairs, err = c.GetTokenPairsByAddresses(context.Background(), "base", []string{"0xa", "0xb"})
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "AAA", pairs[0].BaseToken.Symbol)
}

func TestDEXScreenerLimits(t *testing.T) {
	c := NewDEXScreenerClient("http://127.0.0.1:1", time.Second, nil, 2)

	_, err := c.GetTokenPairsByAddresses(context.Background(), "base", nil)
	assert.Error(t, err)

	_, err = c.GetTokenPairsByAddresses(context.Background(), "base", []string{"0xa", "0xb", "0xc"})
	assert.Error(t, err)
}
