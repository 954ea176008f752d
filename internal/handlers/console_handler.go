package handler

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"reconciliation-console/internal/export"
	"reconciliation-console/internal/services/reconciliation"
	"reconciliation-console/internal/session"
	"reconciliation-console/internal/view"
)

const (
	SessionCookie = "recon_console_session"
	sessionKey    = "console_session"
)

type ConsoleHandler struct {
	store        *session.Store
	renderer     *view.Renderer
	logger       *slog.Logger
	secureCookie bool
}

func NewConsoleHandler(store *session.Store, renderer *view.Renderer, logger *slog.Logger, secureCookie bool) *ConsoleHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsoleHandler{
		store:        store,
		renderer:     renderer,
		logger:       logger.With("component", "handler"),
		secureCookie: secureCookie,
	}
}

// Session binds the request to the operator's page, starting a new
// session when the cookie is missing or stale. Only the page entry point
// uses it.
func (h *ConsoleHandler) Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(SessionCookie)
		sess, created := h.store.Get(id)
		if created {
			c.SetSameSite(http.SameSiteStrictMode)
			c.SetCookie(SessionCookie, sess.ID, 0, "/", "", h.secureCookie, true)
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// RequireSession binds the request to an existing session. Without one,
// page actions are sent back to the entry point and API calls get 404.
func (h *ConsoleHandler) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(SessionCookie)
		sess, ok := h.store.Lookup(id)
		if !ok {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no console session"})
				return
			}
			c.Redirect(http.StatusSeeOther, "/")
			c.Abort()
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func current(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

// Index renders the page, loading data on the first visit.
func (h *ConsoleHandler) Index(c *gin.Context) {
	sess := current(c)
	if !sess.Page.Loaded() && !sess.Page.Loading() {
		// failures are already queued as a notification
		_ = sess.Page.Load(c.Request.Context())
	}
	h.render(c, sess)
}

func (h *ConsoleHandler) Refresh(c *gin.Context) {
	sess := current(c)
	_ = sess.Page.Load(c.Request.Context())
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *ConsoleHandler) SelectTransaction(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := current(c).Page.SelectTransaction(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "transaction not found"})
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *ConsoleHandler) SelectInvoice(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := current(c).Page.SelectInvoice(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "invoice not found"})
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *ConsoleHandler) ConfirmMatch(c *gin.Context) {
	err := current(c).Page.ConfirmMatch(c.Request.Context())
	switch {
	case err == nil,
		errors.Is(err, reconciliation.ErrIncompleteSelection),
		errors.Is(err, reconciliation.ErrBusy):
	default:
		h.logger.Debug("confirm match ended with error", "error", err)
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *ConsoleHandler) CancelMatch(c *gin.Context) {
	current(c).Page.CancelMatch()
	c.Redirect(http.StatusSeeOther, "/")
}

// UndoPrompt asks the operator to confirm before anything is sent.
func (h *ConsoleHandler) UndoPrompt(c *gin.Context) {
	id, ok := parseID(c, "transactionId")
	if !ok {
		return
	}

	var buf bytes.Buffer
	err := h.renderer.RenderUndoPrompt(&buf, view.UndoPrompt{
		TransactionID: id,
		Question:      reconciliation.UndoConfirmation,
	})
	if err != nil {
		h.logger.Error("render undo prompt", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (h *ConsoleHandler) UndoMatch(c *gin.Context) {
	id, ok := parseID(c, "transactionId")
	if !ok {
		return
	}
	answer := reconciliation.Answer(c.PostForm("confirm") == "yes")
	if err := current(c).Page.UndoMatch(c.Request.Context(), id, answer); err != nil &&
		!errors.Is(err, reconciliation.ErrDeclined) {
		h.logger.Debug("undo ended with error", "transaction_id", id, "error", err)
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// Search applies both filters; each is evaluated against the full lists.
func (h *ConsoleHandler) Search(c *gin.Context) {
	sess := current(c)
	sess.Page.FilterTransactions(c.Query("transactions"))
	sess.Page.FilterInvoices(c.Query("invoices"))
	h.render(c, sess)
}

func (h *ConsoleHandler) ExportTransactions(c *gin.Context) {
	snap := current(c).Page.Snapshot()

	var buf bytes.Buffer
	if err := export.WriteTransactions(&buf, snap.Transactions); err != nil {
		h.logger.Error("export transactions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="unmatched-transactions.xlsx"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

func (h *ConsoleHandler) ExportInvoices(c *gin.Context) {
	snap := current(c).Page.Snapshot()

	var buf bytes.Buffer
	if err := export.WriteInvoices(&buf, snap.Invoices); err != nil {
		h.logger.Error("export invoices", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="unpaid-invoices.xlsx"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

// State returns the session snapshot and drains pending notifications.
func (h *ConsoleHandler) State(c *gin.Context) {
	sess := current(c)
	c.JSON(http.StatusOK, gin.H{
		"session":       sess.ID,
		"state":         sess.Page.Snapshot(),
		"notifications": sess.Flash.Drain(),
	})
}

func (h *ConsoleHandler) render(c *gin.Context, sess *session.Session) {
	page := view.Page{
		Snapshot:      sess.Page.Snapshot(),
		Notifications: sess.Flash.Drain(),
	}

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, page); err != nil {
		h.logger.Error("render page", "session", sess.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "render failed"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
		return 0, false
	}
	return id, true
}
