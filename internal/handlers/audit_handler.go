package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"reconciliation-console/internal/models"
)

type AuditReader interface {
	Recent(ctx context.Context, sessionID string, limit int) ([]models.MatchAuditLog, error)
	FailuresSince(ctx context.Context, t time.Time) (int64, error)
}

type AuditHandler struct {
	audit AuditReader
	now   func() time.Time
}

func NewAuditHandler(audit AuditReader) *AuditHandler {
	return &AuditHandler{audit: audit, now: time.Now}
}

// SessionLog lists the current session's recorded actions.
func (h *AuditHandler) SessionLog(c *gin.Context) {
	limit := 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}

	logs, err := h.audit.Recent(c.Request.Context(), current(c).ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": logs, "count": len(logs)})
}

func (h *AuditHandler) Health(c *gin.Context) {
	failures, err := h.audit.FailuresSince(c.Request.Context(), h.now().Add(-time.Hour))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "audit store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "failures_last_hour": failures})
}
