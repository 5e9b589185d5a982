package restapi

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"portfolio_tracker/internal/app/analytics"
	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// defaultStreamDecimals is used for flow-rate metrics when the request does not name the token decimals.
const defaultStreamDecimals = 18

// FailedWalletsSource reports the wallets whose last scheduled snapshot failed.
type FailedWalletsSource interface {
	GetFailedWallets() []string
}

// Services bundles what the handlers need. Scheduler may be nil.
type Services struct {
	Networks  port.NetworkDefinitionProvider
	Holdings  port.HoldingsService
	Prices    port.TokenPriceService
	History   port.HistoryService
	PNL       port.PNLService
	Snapshots port.SnapshotService
	Streams   port.StreamingService
	Holders   port.HolderService
	Scheduler FailedWalletsSource
}

// PortfolioHandler обрабатывает HTTP запросы, связанные с портфелями.
type PortfolioHandler struct {
	svc    Services
	logger port.Logger
	now    func() time.Time
}

// NewPortfolioHandler создает новый экземпляр PortfolioHandler.
func NewPortfolioHandler(svc Services, logger port.Logger) *PortfolioHandler {
	return &PortfolioHandler{svc: svc, logger: logger, now: time.Now}
}

// APIError is the body of every non-2xx response.
type APIError struct {
	Error string `json:"error"`
}

// ChainView is the public part of a network definition.
type ChainView struct {
	Identifier   string `json:"identifier"`
	Name         string `json:"name"`
	ChainID      uint64 `json:"chainId"`
	NativeSymbol string `json:"nativeSymbol"`
	Decimals     uint8  `json:"decimals"`
	HasExplorer  bool   `json:"hasExplorer"`
	HasIndexer   bool   `json:"hasIndexer"`
}

// WalletHoldingsResponse is returned by the holdings endpoints.
type WalletHoldingsResponse struct {
	Wallet   string                `json:"wallet"`
	Holdings []entity.TokenHolding `json:"holdings"`
	Value    entity.PortfolioValue `json:"value"`
}

// HistoryResponse is returned by the history endpoint.
type HistoryResponse struct {
	Wallet       string                     `json:"wallet"`
	Chain        string                     `json:"chain"`
	Count        int                        `json:"count"`
	Transactions []entity.TransactionRecord `json:"transactions"`
}

// RiskResponse is returned by the risk endpoint.
type RiskResponse struct {
	Wallet     string                 `json:"wallet"`
	Risk       entity.RiskAssessment  `json:"risk"`
	Categories entity.AssetCategories `json:"categories"`
}

// StreamsRequest is the body of POST /streams.
type StreamsRequest struct {
	Streams []entity.StreamData `json:"streams"`
}

// StreamsResponse carries the stored streams with their statistics.
type StreamsResponse struct {
	Wallet  string                 `json:"wallet"`
	Streams []entity.StreamData    `json:"streams"`
	Stats   entity.StreamingStats  `json:"stats"`
	Metrics []entity.StreamMetrics `json:"metrics"`
}

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, APIError{Error: msg})
}

// walletParam validates the :address path parameter.
func walletParam(c *gin.Context) (string, bool) {
	addr := c.Param("address")
	if !strings.HasPrefix(strings.ToLower(addr), "0x") || !common.IsHexAddress(addr) {
		abortWithError(c, http.StatusBadRequest, "invalid wallet address: "+addr)
		return "", false
	}
	return addr, true
}

// chainParam resolves the :chain path parameter. Unknown chains are a client error.
func (h *PortfolioHandler) chainParam(c *gin.Context) (entity.NetworkDefinition, bool) {
	key := c.Param("chain")
	netDef, ok := h.svc.Networks.GetNetworkDefinitionByName(key)
	if !ok {
		abortWithError(c, http.StatusBadRequest, (&entity.UnsupportedChainError{ChainKey: key}).Error())
		return entity.NetworkDefinition{}, false
	}
	return netDef, true
}

// chainsQuery parses ?chains=a,b. Empty means every chain.
func (h *PortfolioHandler) chainsQuery(c *gin.Context) ([]string, bool) {
	keys := utils.SplitCSV(c.Query("chains"))
	for _, k := range keys {
		if _, ok := h.svc.Networks.GetNetworkDefinitionByName(k); !ok {
			abortWithError(c, http.StatusBadRequest, (&entity.UnsupportedChainError{ChainKey: k}).Error())
			return nil, false
		}
	}
	return keys, true
}

// ListChainsHandler returns the supported chains in registry order.
func (h *PortfolioHandler) ListChainsHandler(c *gin.Context) {
	defs := h.svc.Networks.GetAllNetworkDefinitions()
	out := make([]ChainView, 0, len(defs))
	for _, d := range defs {
		out = append(out, ChainView{
			Identifier:   d.Identifier,
			Name:         d.Name,
			ChainID:      d.ChainID,
			NativeSymbol: d.NativeSymbol,
			Decimals:     d.Decimals,
			HasExplorer:  d.ExplorerAPIURL != "",
			HasIndexer:   d.IndexerChain != "",
		})
	}
	c.JSON(http.StatusOK, gin.H{"chains": out})
}

// GetFailedWalletsHandler lists the wallets whose last scheduled snapshot failed.
func (h *PortfolioHandler) GetFailedWalletsHandler(c *gin.Context) {
	failed := []string{}
	if h.svc.Scheduler != nil {
		failed = h.svc.Scheduler.GetFailedWallets()
	}
	c.JSON(http.StatusOK, gin.H{"failedWallets": failed})
}

// GetWalletHoldingsHandler returns priced holdings across ?chains= (all chains by default).
func (h *PortfolioHandler) GetWalletHoldingsHandler(c *gin.Context) {
	wallet, ok := walletParam(c)
	if !ok {
		return
	}
	chains, ok := h.chainsQuery(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	byChain := h.svc.Holdings.FetchAllChainsHoldings(ctx, wallet, chains, nil)

	keys := make([]string, 0, len(byChain))
	for k := range byChain {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var flat []entity.TokenHolding
	for _, k := range keys {
		flat = append(flat, byChain[k]...)
	}
	c.JSON(http.StatusOK, h.pricedResponse(c, wallet, flat))
}

// GetChainHoldingsHandler returns priced holdings on one chain, optionally limited to ?tokens=.
func (h *PortfolioHandler) GetChainHoldingsHandler(c *gin.Context) {
	wallet, ok := walletParam(c)
	if !ok {
		return
	}
	netDef, ok := h.chainParam(c)
	if !ok {
		return
	}
	tokens := utils.SplitCSV(c.Query("tokens"))
	for _, t := range tokens {
		if t != entity.NativeTokenAddress && !common.IsHexAddress(t) {
			abortWithError(c, http.StatusBadRequest, "invalid token address: "+t)
			return
		}
	}

	holdings := h.svc.Holdings.FetchWalletHoldings(c.Request.Context(), wallet, netDef.Identifier, tokens)
	c.JSON(http.StatusOK, h.pricedResponse(c, wallet, holdings))
}

func (h *PortfolioHandler) pricedResponse(c *gin.Context, wallet string, holdings []entity.TokenHolding) WalletHoldingsResponse {
	priced := h.svc.Holdings.PriceHoldings(c.Request.Context(), holdings)
	if priced == nil {
		priced = []entity.TokenHolding{}
	}
	return WalletHoldingsResponse{Wallet: wallet, Holdings: priced, Value: valueOf(priced)}
}

// valueOf sums the priced holdings per chain. Unpriced holdings are skipped.
func valueOf(holdings []entity.TokenHolding) entity.PortfolioValue {
	v := entity.PortfolioValue{ByChain: make(map[string]float64)}
	for _, h := range holdings {
		if h.BalanceUSD == nil {
			continue
		}
		v.Total += *h.BalanceUSD
		v.ByChain[h.ChainID] += *h.BalanceUSD
	}
	return v
}

// GetWalletHistoryHandler returns the merged transaction history (cached for 5 minutes).
func (h *PortfolioHandler) GetWalletHistoryHandler(c *gin.Context) {
	wallet, ok := walletParam(c)
	if !ok {
		return
	}
	netDef, ok := h.chainParam(c)
	if !ok {
		return
	}
	txs := h.svc.History.GetWalletHistory(c.Request.Context(), wallet, netDef.Identifier)
	if txs == nil {
		txs = []entity.TransactionRecord{}
	}
	c.JSON(http.StatusOK, HistoryResponse{Wallet: wallet, Chain: netDef.Identifier, Count: len(txs), Transactions: txs})
}

// GetWalletPNLHandler returns the cost-basis PNL of one chain (cached for 10 minutes).
func (h *PortfolioHandler) GetWalletPNLHandler(c *gin.Context) {
	wallet, ok := walletParam(c)
	if !ok {
		return
	}
	netDef, ok := h.chainParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.svc.PNL.GetWalletPNL(c.Request.Context(), wallet, netDef.Identifier))
}

// CaptureSnapshotHandler values the current holdings on ?chains= and stores a snapshot.
func (h *PortfolioHandler) CaptureSnapshotHandler(c *gin.Context) {
	wallet, ok := walletParam(c)
	if !ok {
		return
	}
	chains, ok := h.chainsQuery(c)
	if !ok {
		return
	}
	snap, err := h.svc.Snapshots.CaptureSnapshot(c.Request.Context(), wallet, chains)
	if err != nil {
		h.logger.Error("Failed to capture snapshot", "wallet", wallet, "error", err)
		abortWithError(c, http.StatusInternalServerError, "failed to store snapshot")
		return
	}
	c.JSON(http.StatusCreated, snap)
}

// GetSnapshotsHandler returns the stored snapshot series, oldest first.
func (h *PortfolioHandler) GetSnapshotsHandler(c *gin.Context) {
	wallet, ok := walletParam(c)
	if !ok {
		return
	}
	snaps, err := h.svc.Snapshots.GetPortfolioSnapshots(c.Request.Context(), wallet)
	if err != nil {
		h.logger.Error("Failed to read snapshots", "wallet", wallet, "error", err)
		abortWithError(c, http.StatusInternalServerError, "failed to read snapshots")
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": wallet, "snapshots": snaps})
}

// GetPortfolioMetricsHandler combines the snapshot series with closed trades on ?chains=.
func (h *PortfolioHandler) GetPortfolioMetricsHandler(c *gin.Context) {
	wallet, ok := walletParam(c)
	if !ok {
		return
	}
	chains, ok := h.chainsQuery(c)
	if !ok {
		return
	}
	m, err := h.svc.Snapshots.GetPortfolioMetrics(c.Request.Context(), wallet, chains)
	if err != nil {
		h.logger.Error("Failed to build portfolio metrics", "wallet", wallet, "error", err)
		abortWithError(c, http.StatusInternalServerError, "failed to read snapshots")
		return
	}
	c.JSON(http.StatusOK, m)
}

// GetPortfolioRiskHandler assesses the risk of the current holdings on ?chains=.
func (h *PortfolioHandler) GetPortfolioRiskHandler(c *gin.Context) {
	wallet, ok := walletParam(c)
	if !ok {
		return
	}
	chains, ok := h.chainsQuery(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var flat []entity.TokenHolding
	for _, hs := range h.svc.Holdings.FetchAllChainsHoldings(ctx, wallet, chains, nil) {
		flat = append(flat, hs...)
	}
	priced := h.svc.Holdings.PriceHoldings(ctx, flat)

	c.JSON(http.StatusOK, RiskResponse{
		Wallet:     wallet,
		Risk:       analytics.AssessPortfolioRisk(priced),
		Categories: analytics.CategorizeAssets(priced),
	})
}

// SaveStreamsHandler stores the streams reported for a wallet and returns their statistics.
func (h *PortfolioHandler) SaveStreamsHandler(c *gin.Context) {
	wallet, ok := walletParam(c)
	if !ok {
		return
	}
	var req StreamsRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Streams == nil {
		req.Streams = []entity.StreamData{}
	}
	if err := h.svc.Streams.SaveStreams(c.Request.Context(), wallet, req.Streams); err != nil {
		h.logger.Error("Failed to store streams", "wallet", wallet, "error", err)
		abortWithError(c, http.StatusInternalServerError, "failed to store streams")
		return
	}
	c.JSON(http.StatusCreated, h.streamsResponse(c, wallet, req.Streams))
}

// GetStreamsHandler returns the stored streams. Streams expire after 5 minutes.
func (h *PortfolioHandler) GetStreamsHandler(c *gin.Context) {
	wallet, ok := walletParam(c)
	if !ok {
		return
	}
	streams, found := h.svc.Streams.GetStreams(c.Request.Context(), wallet)
	if !found {
		abortWithError(c, http.StatusNotFound, "no streaming data for wallet")
		return
	}
	c.JSON(http.StatusOK, h.streamsResponse(c, wallet, streams))
}

func (h *PortfolioHandler) streamsResponse(c *gin.Context, wallet string, streams []entity.StreamData) StreamsResponse {
	decimals := int32(defaultStreamDecimals)
	if raw := c.Query("decimals"); raw != "" {
		if d, err := strconv.ParseInt(raw, 10, 32); err == nil && d >= 0 {
			decimals = int32(d)
		}
	}

	metrics := make([]entity.StreamMetrics, 0, len(streams))
	for _, s := range streams {
		m := analytics.CalculateFlowRateMetrics(s.FlowRate, decimals)
		m.TokenSymbol = s.TokenSymbol
		end := h.now().UnixMilli()
		if s.EndTime != nil && *s.EndTime < end {
			end = *s.EndTime
		}
		m.TotalFlowed = analytics.CalculateTotalFlowed(s.FlowRate, s.StartTime, end, decimals)
		metrics = append(metrics, m)
	}
	return StreamsResponse{
		Wallet:  wallet,
		Streams: streams,
		Stats:   analytics.CalculateStreamingStats(streams),
		Metrics: metrics,
	}
}

// isUnsupportedChain reports whether err is an unknown chain key.
func isUnsupportedChain(err error) bool {
	var uc *entity.UnsupportedChainError
	return errors.As(err, &uc)
}
