package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/promptcraft/server/internal/compute"
	"github.com/promptcraft/server/internal/events"
	"github.com/promptcraft/server/internal/ledger"
	"github.com/promptcraft/server/internal/model"
	"github.com/promptcraft/server/internal/score"
	"github.com/promptcraft/server/internal/service"
	"github.com/promptcraft/server/internal/session"
	"github.com/promptcraft/server/internal/treasury"
	"github.com/promptcraft/server/internal/ws"
)

// Handler holds HTTP/WS endpoint handlers.
type Handler struct {
	svc      *service.RoundService
	ledg     ledger.Ledger
	bus      *events.Bus
	upgrader websocket.Upgrader
}

// NewHandler creates the handler set.
func NewHandler(svc *service.RoundService, ledg ledger.Ledger, bus *events.Bus) *Handler {
	return &Handler{
		svc:  svc,
		ledg: ledg,
		bus:  bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers all public routes on the Gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/v1/health", h.Health)

	api := r.Group("/api/v1")
	{
		api.POST("/rounds", h.StartRound)
		api.GET("/rounds/:id", h.GetRound)
		api.POST("/rounds/:id/regenerate", h.Regenerate)
		api.POST("/rounds/:id/evaluate", h.Evaluate)
		api.GET("/rewards/:identity", h.RewardStatus)
	}

	// WebSocket stream of round state transitions
	r.GET("/ws/rounds/:id", h.RoundStream)
}

// ─────────────────────────────────────────────
// POST /api/v1/rounds
// ─────────────────────────────────────────────

// StartRound creates a round and blocks until its content is generated.
func (h *Handler) StartRound(c *gin.Context) {
	var req model.StartRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	round, err := h.svc.StartRound(c.Request.Context(), req.Identity, req.ContentType)
	if err != nil {
		h.respondError(c, round, err)
		return
	}
	c.JSON(http.StatusCreated, toResponse(round))
}

// ─────────────────────────────────────────────
// GET /api/v1/rounds/:id
// ─────────────────────────────────────────────

// GetRound returns the current round view.
func (h *Handler) GetRound(c *gin.Context) {
	round, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, nil, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(round))
}

// ─────────────────────────────────────────────
// POST /api/v1/rounds/:id/regenerate
// ─────────────────────────────────────────────

// Regenerate replaces the round's content, dropping any unscored
// evaluation state.
func (h *Handler) Regenerate(c *gin.Context) {
	round, err := h.svc.Regenerate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, round, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(round))
}

// ─────────────────────────────────────────────
// POST /api/v1/rounds/:id/evaluate
// ─────────────────────────────────────────────

// Evaluate scores the submitted prompt and runs the payout path on a
// qualifying score.
func (h *Handler) Evaluate(c *gin.Context) {
	var req model.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	round, err := h.svc.Evaluate(c.Request.Context(), c.Param("id"), req.Prompt)
	if err != nil {
		h.respondError(c, round, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(round))
}

// ─────────────────────────────────────────────
// GET /api/v1/rewards/:identity
// ─────────────────────────────────────────────

// RewardStatus reports whether an identity has already been paid out.
func (h *Handler) RewardStatus(c *gin.Context) {
	identity := c.Param("identity")

	rec, err := h.ledg.Get(c.Request.Context(), identity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check reward status"})
		return
	}

	resp := model.RewardStatusResponse{Identity: identity}
	if rec != nil {
		resp.Rewarded = true
		resp.TransactionID = rec.TransactionID
		resp.RewardedAt = &rec.CreatedAt
	}
	c.JSON(http.StatusOK, resp)
}

// ─────────────────────────────────────────────
// GET /ws/rounds/:id
// ─────────────────────────────────────────────

// RoundStream upgrades the connection and streams state transitions of
// one round.
func (h *Handler) RoundStream(c *gin.Context) {
	roundID := c.Param("id")
	if _, err := h.svc.Get(c.Request.Context(), roundID); err != nil {
		h.respondError(c, nil, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[handler] websocket upgrade error: %v", err)
		return
	}

	client := ws.NewClient(roundID, conn, h.bus)
	client.Run(c.Request.Context())
}

// ─────────────────────────────────────────────
// GET /api/v1/health
// ─────────────────────────────────────────────

// Health returns basic server health info.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

// toResponse builds the outbound view of a round.
func toResponse(round *model.Round) model.RoundResponse {
	resp := model.RoundResponse{
		RoundID:     round.ID,
		State:       round.State,
		ContentType: round.ContentType,
		Content:     round.Content,
		JudgeText:   round.JudgeText,
		RewardTxID:  round.RewardTxID,
	}
	if round.Scored {
		s := round.Score
		resp.Score = &s
	}
	return resp
}

// respondError maps the error taxonomy onto HTTP statuses. When the round
// survived the failure (scored but unpaid, unparseable verdict) its view
// rides along so the client keeps the evaluation result.
func (h *Handler) respondError(c *gin.Context, round *model.Round, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrAlreadyRewarded):
		status = http.StatusConflict
	case errors.Is(err, score.ErrParse):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, compute.ErrPollTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, compute.ErrSubmission),
		errors.Is(err, compute.ErrPollTransport),
		errors.Is(err, treasury.ErrTransfer):
		status = http.StatusBadGateway
	}

	body := gin.H{"error": err.Error()}
	if round != nil {
		body["round"] = toResponse(round)
	}
	c.JSON(status, body)
}
