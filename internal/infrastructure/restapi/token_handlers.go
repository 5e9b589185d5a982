package restapi

import (
	"net/http"
	"strings"

	"portfolio_tracker/internal/app/analytics"
	"portfolio_tracker/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// ClassifyHoldersRequest is the body of POST /tokens/:chain/holders/classify.
// LaunchTime (ms) enables the launch-window sniper check.
type ClassifyHoldersRequest struct {
	Holders    []entity.HolderInfo `json:"holders"`
	LaunchTime int64               `json:"launchTime,omitempty"`
}

// ClassifyHoldersResponse carries the classified holders with their derived views.
type ClassifyHoldersResponse struct {
	Holders   []entity.HolderInfo                       `json:"holders"`
	Groups    map[entity.HolderType][]entity.HolderInfo `json:"groups"`
	Scores    map[string]int                            `json:"scores"`
	Anomalies []entity.AnomalyReport                    `json:"anomalies"`
	Snipers   []string                                  `json:"launchSnipers,omitempty"`
}

// TokenPriceResponse is returned by the price endpoint.
type TokenPriceResponse struct {
	Chain    string  `json:"chain"`
	Token    string  `json:"token"`
	PriceUSD float64 `json:"priceUSD"`
}

func tokenParam(c *gin.Context) (string, bool) {
	token := c.Param("token")
	if strings.EqualFold(token, entity.NativeTokenAddress) {
		return entity.NativeTokenAddress, true
	}
	if !common.IsHexAddress(token) {
		abortWithError(c, http.StatusBadRequest, "invalid token address: "+token)
		return "", false
	}
	return token, true
}

// ClassifyHoldersHandler classifies the posted holders and reports groups, scores and anomalies.
func (h *PortfolioHandler) ClassifyHoldersHandler(c *gin.Context) {
	netDef, ok := h.chainParam(c)
	if !ok {
		return
	}
	var req ClassifyHoldersRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	holders, err := h.svc.Holders.ClassifyHolders(c.Request.Context(), netDef.Identifier, req.Holders)
	if err != nil {
		if isUnsupportedChain(err) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		// без RPC клиента классифицируем по данным запроса
		h.logger.Warn("Holder classification without contract checks", "chain", netDef.Identifier, "error", err)
		holders = make([]entity.HolderInfo, len(req.Holders))
		for i, hi := range req.Holders {
			if hi.HolderType != entity.HolderDev {
				hi.HolderType = analytics.IdentifyHolderType(hi.BalanceFormatted, hi.TransactionCount, hi.IsContract)
			}
			holders[i] = hi
		}
	}
	if holders == nil {
		holders = []entity.HolderInfo{}
	}

	now := h.now()
	resp := ClassifyHoldersResponse{
		Holders:   holders,
		Groups:    analytics.GroupHoldersByType(holders),
		Scores:    make(map[string]int, len(holders)),
		Anomalies: []entity.AnomalyReport{},
	}
	for _, hi := range holders {
		resp.Scores[hi.Address] = analytics.CalculateWalletScore(hi)
		if report := analytics.DetectAnomalies(hi, now); report.IsSuspicious {
			resp.Anomalies = append(resp.Anomalies, report)
		}
		if req.LaunchTime > 0 && analytics.DetectSniperWallet(hi, req.LaunchTime) {
			resp.Snipers = append(resp.Snipers, hi.Address)
		}
	}
	c.JSON(http.StatusOK, resp)
}

// GetTokenPriceHandler returns the USD price of a token ("native" is priced via the wrapped token).
func (h *PortfolioHandler) GetTokenPriceHandler(c *gin.Context) {
	netDef, ok := h.chainParam(c)
	if !ok {
		return
	}
	token, ok := tokenParam(c)
	if !ok {
		return
	}
	price := h.svc.Prices.GetTokenPrice(c.Request.Context(), token, netDef.Identifier)
	if price == nil {
		abortWithError(c, http.StatusNotFound, "price not available")
		return
	}
	c.JSON(http.StatusOK, TokenPriceResponse{Chain: netDef.Identifier, Token: token, PriceUSD: *price})
}

// GetTokenMetadataHandler returns the name, symbol and decimals of a token.
func (h *PortfolioHandler) GetTokenMetadataHandler(c *gin.Context) {
	netDef, ok := h.chainParam(c)
	if !ok {
		return
	}
	token, ok := tokenParam(c)
	if !ok {
		return
	}
	if token == entity.NativeTokenAddress {
		c.JSON(http.StatusOK, entity.TokenMetadata{
			Address:  entity.NativeTokenAddress,
			Name:     netDef.NativeName,
			Symbol:   netDef.NativeSymbol,
			Decimals: netDef.Decimals,
		})
		return
	}
	meta := h.svc.Prices.GetTokenMetadata(c.Request.Context(), token, netDef.Identifier)
	if meta == nil {
		abortWithError(c, http.StatusNotFound, "metadata not available")
		return
	}
	c.JSON(http.StatusOK, meta)
}
