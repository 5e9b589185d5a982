package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"portfolio_tracker/internal/entity"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// MaxExplorerTransactions caps the explorer list, newest first.
const MaxExplorerTransactions = 100

// EtherscanClient implements port.ExplorerClient for the Etherscan family (etherscan, basescan, arbiscan...).
type EtherscanClient struct {
	client  *fasthttp.Client
	apiKey  string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewEtherscanClient creates an explorer client. requestsPerSecond <= 0 disables rate limiting.
func NewEtherscanClient(apiKey string, requestsPerSecond float64, timeout time.Duration, logger *zap.Logger) *EtherscanClient {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EtherscanClient{
		client:  &fasthttp.Client{},
		apiKey:  apiKey,
		timeout: timeout,
		limiter: limiter,
		logger:  logger.Named("EtherscanClient"),
	}
}

// Enabled is false when no API key is configured.
func (c *EtherscanClient) Enabled() bool {
	return c.apiKey != ""
}

// GetTransactions returns up to MaxExplorerTransactions normal transactions of the wallet, newest first.
// "No transactions found" is an empty list, not an error.
func (c *EtherscanClient) GetTransactions(ctx context.Context, apiURL string, walletAddress string) ([]entity.EtherscanTransaction, error) {
	if !c.Enabled() || apiURL == "" {
		return []entity.EtherscanTransaction{}, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("explorer rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "txlist")
	q.Set("address", walletAddress)
	q.Set("startblock", "0")
	q.Set("endblock", "99999999")
	q.Set("sort", "desc")
	q.Set("apikey", c.apiKey)
	requestURL := apiURL + "?" + q.Encode()

	res, err := doGet(ctx, c.client, "etherscan", requestURL, nil, c.timeout)
	if err != nil {
		c.logger.Warn("Explorer request failed", zap.String("api", apiURL), zap.Int("statusCode", res.status), zap.Error(err))
		return nil, err
	}

	var envelope entity.EtherscanResponse
	if err := json.Unmarshal(res.body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode explorer response: %w", err)
	}
	if envelope.Status != "1" {
		if strings.Contains(strings.ToLower(envelope.Message), "no transactions") {
			return []entity.EtherscanTransaction{}, nil
		}
		var reason string
		_ = json.Unmarshal(envelope.Result, &reason)
		return nil, fmt.Errorf("explorer returned status %q: %s %s", envelope.Status, envelope.Message, reason)
	}

	var txs []entity.EtherscanTransaction
	if err := json.Unmarshal(envelope.Result, &txs); err != nil {
		return nil, fmt.Errorf("failed to decode explorer transactions: %w", err)
	}
	if len(txs) > MaxExplorerTransactions {
		txs = txs[:MaxExplorerTransactions]
	}
	c.logger.Debug("Explorer transactions fetched", zap.String("api", apiURL), zap.Int("count", len(txs)))
	return txs, nil
}
