package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/pkg/metrics"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// Transport defaults for every endpoint attempt.
const (
	DefaultRPCTimeout = 10 * time.Second
	DefaultRetryCount = 2
	DefaultRetryDelay = 1 * time.Second
)

// ERC20 ABI minimal part: balanceOf plus the metadata getters
const erc20ABI = `[
{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"payable":false,"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"}
]`

var (
	parsedERC20ABI  abi.ABI
	parsedERC20Once sync.Once
)

func initParsedERC20ABI() {
	parsedERC20Once.Do(func() {
		var err error
		parsedERC20ABI, err = abi.JSON(strings.NewReader(erc20ABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse ERC20 ABI: %v", err))
		}
	})
}

// DialFunc opens a JSON-RPC connection to one endpoint.
type DialFunc func(ctx context.Context, rawURL string) (*rpc.Client, error)

// TransportOptions bound each endpoint attempt.
type TransportOptions struct {
	Timeout    time.Duration
	RetryCount int
	RetryDelay time.Duration
}

func (o TransportOptions) withDefaults() TransportOptions {
	if o.Timeout <= 0 {
		o.Timeout = DefaultRPCTimeout
	}
	if o.RetryCount < 0 {
		o.RetryCount = 0
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	return o
}

// EVMClient implements port.BlockchainClient for EVM-compatible chains.
// Calls go through an ordered fallback over the network's RPC endpoints.
type EVMClient struct {
	netDef entity.NetworkDefinition
	opts   TransportOptions
	dial   DialFunc
	logger *zap.Logger

	mu    sync.Mutex
	conns map[string]*rpc.Client // лениво, по URL
}

// NewEVMClient creates a client for the given network definition. No endpoint is dialed until first use.
func NewEVMClient(netDef entity.NetworkDefinition, opts TransportOptions, dial DialFunc, logger *zap.Logger) (*EVMClient, error) {
	initParsedERC20ABI()
	if len(netDef.RPCURLs) == 0 {
		return nil, fmt.Errorf("network %s has no RPC endpoints", netDef.Identifier)
	}
	if dial == nil {
		dial = rpc.DialContext
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EVMClient{
		netDef: netDef,
		opts:   opts.withDefaults(),
		dial:   dial,
		logger: logger.Named("evm_client").With(zap.String("network", netDef.Identifier)),
		conns:  make(map[string]*rpc.Client),
	}, nil
}

func (c *EVMClient) conn(ctx context.Context, rpcURL string) (*rpc.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.conns[rpcURL]; ok {
		return cl, nil
	}
	cl, err := c.dial(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	c.conns[rpcURL] = cl
	return cl, nil
}

// withFallback runs call against each endpoint in order. Every endpoint gets 1+RetryCount attempts,
// each bounded by Timeout, before the next endpoint is tried.
func (c *EVMClient) withFallback(ctx context.Context, call func(ctx context.Context, cl *rpc.Client) error) error {
	var lastErr error
	for idx, rpcURL := range c.netDef.RPCURLs {
		if idx > 0 {
			metrics.RPCFallbacks.WithLabelValues(c.netDef.Identifier).Inc()
			c.logger.Debug("Falling back to next RPC endpoint", zap.Int("endpoint_index", idx), zap.Error(lastErr))
		}

		cl, err := c.conn(ctx, rpcURL)
		if err != nil {
			lastErr = fmt.Errorf("failed to dial RPC endpoint #%d: %w", idx, err)
			continue
		}

		for attempt := 0; attempt <= c.opts.RetryCount; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(c.opts.RetryDelay):
				}
			}

			callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
			err = call(callCtx, cl)
			cancel()

			metrics.RPCCalls.WithLabelValues(c.netDef.Identifier, metrics.StatusLabel(err)).Inc()
			if err == nil {
				return nil
			}
			lastErr = err
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("all RPC endpoints failed for network %s: %w", c.netDef.Identifier, lastErr)
}

// GetBalances fetches multiple balances using one JSON-RPC batch request.
// Per-item failures are reported in BalanceResultItem.Error; the returned error covers transport failure only.
func (c *EVMClient) GetBalances(ctx context.Context, requests []entity.BalanceRequestItem) ([]entity.BalanceResultItem, error) {
	if len(requests) == 0 {
		return []entity.BalanceResultItem{}, nil
	}

	results := make([]entity.BalanceResultItem, len(requests))
	for i, reqItem := range requests {
		results[i] = entity.BalanceResultItem{
			RequestID:     reqItem.ID,
			WalletAddress: reqItem.WalletAddress,
			TokenAddress:  reqItem.TokenAddress,
			IsNative:      reqItem.Type == entity.NativeBalanceRequest,
		}
	}

	var batchElems []rpc.BatchElem
	err := c.withFallback(ctx, func(ctx context.Context, cl *rpc.Client) error {
		// fresh elements per attempt, results of a failed attempt must not leak
		batchElems = make([]rpc.BatchElem, len(requests))
		for i, reqItem := range requests {
			batchElems[i] = balanceBatchElem(reqItem)
		}
		return cl.BatchCallContext(ctx, batchElems)
	})
	if err != nil {
		return results, fmt.Errorf("RPC batch call failed: %w", err)
	}

	for i, elem := range batchElems {
		if elem.Error != nil {
			results[i].Error = fmt.Errorf("failed to fetch balance of %s (wallet %s): %w",
				requests[i].TokenAddress, requests[i].WalletAddress, elem.Error)
			continue
		}

		switch requests[i].Type {
		case entity.NativeBalanceRequest:
			res, ok := elem.Result.(*hexutil.Big)
			if !ok || res == nil {
				results[i].Error = errors.New("failed to decode native balance: unexpected result")
				continue
			}
			results[i].Balance = new(big.Int).Set((*big.Int)(res))
		case entity.TokenBalanceRequest:
			res, ok := elem.Result.(*hexutil.Bytes)
			if !ok || res == nil {
				results[i].Error = fmt.Errorf("failed to decode token balance for %s: unexpected result", requests[i].TokenAddress)
				continue
			}
			balance, err := unpackBalance(*res)
			if err != nil {
				results[i].Error = fmt.Errorf("balanceOf %s: %w", requests[i].TokenAddress, err)
				continue
			}
			results[i].Balance = balance
		default:
			results[i].Error = fmt.Errorf("unknown balance request type: %v", requests[i].Type)
		}
	}
	return results, nil
}

func balanceBatchElem(reqItem entity.BalanceRequestItem) rpc.BatchElem {
	wallet := common.HexToAddress(reqItem.WalletAddress)
	if reqItem.Type == entity.NativeBalanceRequest {
		return rpc.BatchElem{
			Method: "eth_getBalance",
			Args:   []interface{}{wallet, "latest"},
			Result: new(hexutil.Big),
		}
	}
	data, _ := parsedERC20ABI.Pack("balanceOf", wallet)
	return rpc.BatchElem{
		Method: "eth_call",
		Args:   []interface{}{callArgs(reqItem.TokenAddress, data), "latest"},
		Result: new(hexutil.Bytes),
	}
}

func callArgs(to string, data []byte) map[string]interface{} {
	return map[string]interface{}{
		"to":   common.HexToAddress(to),
		"data": hexutil.Bytes(data),
	}
}

func unpackBalance(raw []byte) (*big.Int, error) {
	if len(raw) == 0 {
		return big.NewInt(0), nil
	}
	unpacked, err := parsedERC20ABI.Unpack("balanceOf", raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack result %s: %w", hexutil.Encode(raw), err)
	}
	if len(unpacked) == 0 {
		return nil, errors.New("balanceOf returned no data")
	}
	balance, ok := unpacked[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type %T", unpacked[0])
	}
	return balance, nil
}

// GetTokenMetadata reads decimals, name and symbol in a single batch.
// Decimals are mandatory; name and symbol may come back as bytes32 on older tokens.
func (c *EVMClient) GetTokenMetadata(ctx context.Context, tokenAddress string) (entity.TokenMetadata, error) {
	methods := []string{"decimals", "name", "symbol"}
	var elems []rpc.BatchElem

	err := c.withFallback(ctx, func(ctx context.Context, cl *rpc.Client) error {
		elems = make([]rpc.BatchElem, len(methods))
		for i, m := range methods {
			data, _ := parsedERC20ABI.Pack(m)
			elems[i] = rpc.BatchElem{
				Method: "eth_call",
				Args:   []interface{}{callArgs(tokenAddress, data), "latest"},
				Result: new(hexutil.Bytes),
			}
		}
		return cl.BatchCallContext(ctx, elems)
	})
	if err != nil {
		return entity.TokenMetadata{}, fmt.Errorf("metadata batch for %s: %w", tokenAddress, err)
	}

	raw := make([][]byte, len(elems))
	for i, elem := range elems {
		if elem.Error != nil {
			return entity.TokenMetadata{}, fmt.Errorf("%s() on %s: %w", methods[i], tokenAddress, elem.Error)
		}
		raw[i] = *elem.Result.(*hexutil.Bytes)
	}

	decimalsOut, err := parsedERC20ABI.Unpack("decimals", raw[0])
	if err != nil || len(decimalsOut) == 0 {
		return entity.TokenMetadata{}, fmt.Errorf("failed to decode decimals() of %s: %w", tokenAddress, errOrEmpty(err))
	}
	decimals, ok := decimalsOut[0].(uint8)
	if !ok {
		return entity.TokenMetadata{}, fmt.Errorf("unexpected decimals() type %T", decimalsOut[0])
	}

	return entity.TokenMetadata{
		Address:  tokenAddress,
		Name:     decodeStringResult("name", raw[1]),
		Symbol:   decodeStringResult("symbol", raw[2]),
		Decimals: decimals,
	}, nil
}

func errOrEmpty(err error) error {
	if err != nil {
		return err
	}
	return errors.New("empty result")
}

// decodeStringResult handles both ABI strings and legacy bytes32 returns.
func decodeStringResult(method string, raw []byte) string {
	if out, err := parsedERC20ABI.Unpack(method, raw); err == nil && len(out) == 1 {
		if s, ok := out[0].(string); ok {
			return s
		}
	}
	if len(raw) == 32 {
		return string(bytes.TrimRight(raw, "\x00"))
	}
	return ""
}

// IsContract reports whether the address has deployed code.
func (c *EVMClient) IsContract(ctx context.Context, address string) (bool, error) {
	var code hexutil.Bytes
	err := c.withFallback(ctx, func(ctx context.Context, cl *rpc.Client) error {
		return cl.CallContext(ctx, &code, "eth_getCode", common.HexToAddress(address), "latest")
	})
	if err != nil {
		return false, fmt.Errorf("eth_getCode for %s: %w", address, err)
	}
	return len(code) > 0, nil
}

// Definition returns the network definition for this client.
func (c *EVMClient) Definition() entity.NetworkDefinition {
	return c.netDef
}

// Close closes every dialed endpoint.
func (c *EVMClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for u, cl := range c.conns {
		cl.Close()
		delete(c.conns, u)
	}
}
