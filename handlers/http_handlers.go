package handlers

import (
	"math/big"
	"net/http"
	"strconv"

	"raffle/domain/entities"
	"raffle/domain/interfaces"
	"raffle/domain/services"
	"raffle/infrastructure/observability"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const (
	defaultWinnersLimit = 10
	maxWinnersLimit     = 100
)

// HTTPHandler exposes the lottery over JSON
type HTTPHandler struct {
	engine   interfaces.LotteryEngine
	receiver interfaces.RandomnessReceiver
	accounts *services.AccountService
	metrics  *observability.MetricsProvider
}

// NewHTTPHandler creates a new HTTPHandler. Fulfillments posted over HTTP go
// through receiver; metrics may be nil.
func NewHTTPHandler(engine interfaces.LotteryEngine, receiver interfaces.RandomnessReceiver, accounts *services.AccountService, metrics *observability.MetricsProvider) *HTTPHandler {
	return &HTTPHandler{
		engine:   engine,
		receiver: receiver,
		accounts: accounts,
		metrics:  metrics,
	}
}

// RegisterRoutes registers all the application routes
func (h *HTTPHandler) RegisterRoutes(router gin.IRouter) {
	router.GET("/healthz", h.Health)
	router.GET("/lottery", h.GetStatus)
	router.POST("/entries", h.Enter)
	router.GET("/players/:index", h.GetPlayer)
	router.GET("/upkeep", h.CheckUpkeep)
	router.POST("/upkeep", h.PerformUpkeep)
	router.POST("/oracle/fulfillments", h.FulfillRandomWords)
	router.GET("/winners", h.ListWinners)
	router.GET("/accounts/:address", h.GetAccount)
	router.PUT("/accounts/:address", h.SetAccountPreference)
}

// Health reports liveness
func (h *HTTPHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetStatus returns every read-only query in one snapshot
func (h *HTTPHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, toStatusResponse(h.engine.Status()))
}

// Enter adds a player to the open round
func (h *HTTPHandler) Enter(c *gin.Context) {
	var req EnterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	player, ok := parseAddress(req.Player)
	if !ok {
		respondBadRequest(c, "player must be a hex address")
		return
	}
	amount, ok := math.ParseBig256(req.Amount)
	if !ok {
		respondBadRequest(c, "amount must be a uint256 in decimal or 0x-prefixed hex")
		return
	}

	entry, err := h.engine.Enter(c.Request.Context(), player, amount)
	if err != nil {
		_, code := errorCode(err)
		h.metrics.RecordEntryRejected(code)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toEntryResponse(entry))
}

// GetPlayer returns the player at an entry position
func (h *HTTPHandler) GetPlayer(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respondBadRequest(c, "index must be an integer")
		return
	}

	player, err := h.engine.PlayerAt(index)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"index": index, "player": player.Hex()})
}

// CheckUpkeep reports whether a draw may be triggered
func (h *HTTPHandler) CheckUpkeep(c *gin.Context) {
	ready, performData := h.engine.CheckUpkeep(c.Request.Context())
	h.metrics.RecordUpkeepCheck(ready)

	resp := UpkeepResponse{
		UpkeepNeeded: ready,
		PerformData:  performData,
	}
	if diagnostic, err := entities.DecodeUpkeepDiagnostic(performData); err == nil {
		resp.Diagnostic = toDiagnosticResponse(diagnostic)
	}
	c.JSON(http.StatusOK, resp)
}

// PerformUpkeep triggers a draw. The engine re-checks readiness itself.
func (h *HTTPHandler) PerformUpkeep(c *gin.Context) {
	var req UpkeepRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, err.Error())
			return
		}
	}

	requestID, err := h.engine.PerformUpkeep(c.Request.Context(), req.PerformData)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"requestId": requestID.String()})
}

// FulfillRandomWords accepts an oracle callback
func (h *HTTPHandler) FulfillRandomWords(c *gin.Context) {
	var req FulfillmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	result, err := h.receiver.FulfillRandomWords(c.Request.Context(), (*big.Int)(req.RequestID), toWords(req.RandomWords))
	if err != nil {
		respondError(c, err)
		return
	}

	log.WithFields(log.Fields{
		"round":  result.RoundNumber,
		"winner": result.Winner.Hex(),
	}).Info("Applied fulfillment posted over HTTP")

	c.JSON(http.StatusOK, toDrawResponse(result))
}

// ListWinners returns the draw history, newest first
func (h *HTTPHandler) ListWinners(c *gin.Context) {
	limit := defaultWinnersLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxWinnersLimit {
			respondBadRequest(c, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	winners, err := h.engine.RecentWinners(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]WinnerResponse, 0, len(winners))
	for _, w := range winners {
		resp = append(resp, toWinnerResponse(w))
	}
	c.JSON(http.StatusOK, gin.H{"winners": resp})
}

// GetAccount returns a payout ledger account
func (h *HTTPHandler) GetAccount(c *gin.Context) {
	address, ok := parseAddress(c.Param("address"))
	if !ok {
		respondBadRequest(c, "address must be a hex address")
		return
	}

	account, err := h.accounts.GetAccount(c.Request.Context(), address)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAccountResponse(account))
}

// SetAccountPreference sets whether payouts to an account succeed
func (h *HTTPHandler) SetAccountPreference(c *gin.Context) {
	address, ok := parseAddress(c.Param("address"))
	if !ok {
		respondBadRequest(c, "address must be a hex address")
		return
	}

	var req AccountPreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	account, err := h.accounts.SetAcceptsPayments(c.Request.Context(), address, *req.AcceptsPayments)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAccountResponse(account))
}
