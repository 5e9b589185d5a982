package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"portfolio_tracker/internal/entity"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// DefaultDEXScreenerURL is the public DEX Screener API root.
const DefaultDEXScreenerURL = "https://api.dexscreener.com"

// DEXScreenerClient implements port.DEXScreenerClient.
type DEXScreenerClient struct {
	client              *fasthttp.Client
	baseURL             string
	timeout             time.Duration
	logger              *zap.Logger
	maxTokensPerRequest int
}

// NewDEXScreenerClient creates a new DEX Screener client.
func NewDEXScreenerClient(baseURL string, timeout time.Duration, logger *zap.Logger, maxTokensPerRequest int) *DEXScreenerClient {
	if baseURL == "" {
		baseURL = DefaultDEXScreenerURL
	}
	if maxTokensPerRequest <= 0 {
		maxTokensPerRequest = 30
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DEXScreenerClient{
		client:              &fasthttp.Client{},
		baseURL:             strings.TrimRight(baseURL, "/"),
		timeout:             timeout,
		logger:              logger.Named("DEXScreenerClient"),
		maxTokensPerRequest: maxTokensPerRequest,
	}
}

// MaxTokensPerRequest is the batch limit of the tokens endpoint.
func (c *DEXScreenerClient) MaxTokensPerRequest() int {
	return c.maxTokensPerRequest
}

// GetTokenPairsByAddresses returns every pair DEX Screener knows for the given tokens on one chain.
func (c *DEXScreenerClient) GetTokenPairsByAddresses(ctx context.Context, dexscreenerChainID string, tokenAddresses []string) ([]entity.PairData, error) {
	if len(tokenAddresses) == 0 {
		return nil, errors.New("tokenAddresses cannot be empty")
	}
	if len(tokenAddresses) > c.maxTokensPerRequest {
		c.logger.Warn("Number of token addresses exceeds maxTokensPerRequest",
			zap.Int("requestedCount", len(tokenAddresses)),
			zap.Int("maxAllowed", c.maxTokensPerRequest))
		return nil, fmt.Errorf("number of token addresses (%d) exceeds max tokens per request (%d)", len(tokenAddresses), c.maxTokensPerRequest)
	}

	requestURL := fmt.Sprintf("%s/tokens/v1/%s/%s", c.baseURL, dexscreenerChainID, strings.Join(tokenAddresses, ","))
	c.logger.Debug("Requesting token pairs from DEX Screener", zap.String("url", requestURL))

	res, err := doGet(ctx, c.client, "dexscreener", requestURL, nil, c.timeout)
	if err != nil {
		c.logger.Error("DEX Screener API request failed",
			zap.String("url", requestURL),
			zap.Int("statusCode", res.status),
			zap.Error(err))
		return nil, err
	}

	// the endpoint has answered both with a wrapped object and with a bare array
	var wrapped entity.DEXTokenPair
	if err := json.Unmarshal(res.body, &wrapped); err == nil && wrapped.Pairs != nil {
		return wrapped.Pairs, nil
	}

	var directPairs []entity.PairData
	if err := json.Unmarshal(res.body, &directPairs); err != nil {
		c.logger.Error("Failed to unmarshal DEX Screener response",
			zap.String("dexscreenerChainID", dexscreenerChainID),
			zap.ByteString("responseBody", res.body),
			zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal DEX Screener response: %w", err)
	}

	if len(directPairs) == 0 {
		c.logger.Debug("DEXScreener returned an empty array of pairs", zap.String("dexscreenerChainID", dexscreenerChainID))
	}
	return directPairs, nil
}
