package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"portfolio_tracker/internal/entity"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// DefaultMoralisURL is the Moralis Web3 Data API root.
const DefaultMoralisURL = "https://api.moralis.io/api/v2"

// MoralisClient implements port.IndexerClient.
type MoralisClient struct {
	client  *fasthttp.Client
	baseURL string
	apiKey  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewMoralisClient creates an indexer client. An empty apiKey makes every call a no-op.
func NewMoralisClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *MoralisClient {
	if baseURL == "" {
		baseURL = DefaultMoralisURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MoralisClient{
		client:  &fasthttp.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		logger:  logger.Named("MoralisClient"),
	}
}

// Enabled is false when no API key is configured.
func (c *MoralisClient) Enabled() bool {
	return c.apiKey != ""
}

func (c *MoralisClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	requestURL := c.baseURL + path + "?" + query.Encode()
	res, err := doGet(ctx, c.client, "moralis", requestURL, map[string]string{"X-API-Key": c.apiKey}, c.timeout)
	if err != nil {
		c.logger.Warn("Moralis request failed", zap.String("path", path), zap.Int("statusCode", res.status), zap.Error(err))
		return err
	}
	if err := json.Unmarshal(res.body, out); err != nil {
		return fmt.Errorf("failed to decode moralis response for %s: %w", path, err)
	}
	return nil
}

// GetERC20Transfers returns the latest ERC-20 transfer events touching the wallet.
func (c *MoralisClient) GetERC20Transfers(ctx context.Context, chain string, walletAddress string, limit int) ([]entity.MoralisTransfer, error) {
	if !c.Enabled() || chain == "" {
		return []entity.MoralisTransfer{}, nil
	}
	q := url.Values{}
	q.Set("chain", chain)
	q.Set("limit", strconv.Itoa(limit))

	var page entity.MoralisTransfersResponse
	if err := c.get(ctx, "/"+walletAddress+"/erc20/transfers", q, &page); err != nil {
		return nil, err
	}
	return page.Result, nil
}

// GetTokenPrice returns the current USD price, or nil when the token is not priced.
func (c *MoralisClient) GetTokenPrice(ctx context.Context, chain string, tokenAddress string) (*entity.MoralisPrice, error) {
	if !c.Enabled() || chain == "" {
		return nil, nil
	}
	q := url.Values{}
	q.Set("chain", chain)

	var price entity.MoralisPrice
	if err := c.get(ctx, "/erc20/"+tokenAddress+"/price", q, &price); err != nil {
		return nil, err
	}
	if price.UsdPrice == 0 {
		return nil, nil
	}
	return &price, nil
}

// GetTokenMetadata returns the token metadata, or nil when the indexer is disabled.
func (c *MoralisClient) GetTokenMetadata(ctx context.Context, chain string, tokenAddress string) (*entity.MoralisTokenMetadata, error) {
	if !c.Enabled() || chain == "" {
		return nil, nil
	}
	q := url.Values{}
	q.Set("chain", chain)

	var meta entity.MoralisTokenMetadata
	if err := c.get(ctx, "/erc20/"+tokenAddress+"/metadata", q, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
