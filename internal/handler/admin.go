package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/promptcraft/server/internal/ledger"
	"github.com/promptcraft/server/internal/store"
)

// AdminHandler exposes reward and audit listings behind the admin token.
type AdminHandler struct {
	ledg  ledger.Ledger
	store *store.Store
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(ledg ledger.Ledger, st *store.Store) *AdminHandler {
	return &AdminHandler{ledg: ledg, store: st}
}

// RegisterRoutes registers admin routes on the given group.
func (h *AdminHandler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("/rewards", h.ListRewards)
	g.GET("/rounds", h.ListRounds)
}

// ─────────────────────────────────────────────
// GET /api/v1/admin/rewards
// ─────────────────────────────────────────────

// ListRewards returns the most recent reward records.
func (h *AdminHandler) ListRewards(c *gin.Context) {
	limit := queryLimit(c, 100)

	recs, err := h.ledg.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rewards"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rewards": recs, "count": len(recs)})
}

// ─────────────────────────────────────────────
// GET /api/v1/admin/rounds
// ─────────────────────────────────────────────

// ListRounds returns the most recent round audit rows.
func (h *AdminHandler) ListRounds(c *gin.Context) {
	limit := queryLimit(c, 100)

	rows, err := h.store.RecentRounds(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rounds"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rounds": rows, "count": len(rows)})
}

// queryLimit parses ?limit= with an upper bound of 1000.
func queryLimit(c *gin.Context, fallback int) int {
	limit := fallback
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 1000 {
		limit = 1000
	}
	return limit
}
