package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reconciliation-console/internal/models"
	"reconciliation-console/internal/services/reconciliation"
	"reconciliation-console/internal/session"
	"reconciliation-console/internal/view"
)

type stubAPI struct {
	mu         sync.Mutex
	loads      int
	matches    [][2]int64
	reprocess  []int64
	matchError error
}

func (s *stubAPI) UnmatchedTransactions(context.Context) ([]models.Transaction, error) {
	s.mu.Lock()
	s.loads++
	s.mu.Unlock()
	ref := "REF1"
	return []models.Transaction{
		{ID: 7, Date: models.NewDate(2024, 3, 1), Amount: decimal.RequireFromString("-150.00"), Description: "Wire in", ReferenceNumber: &ref},
		{ID: 8, Date: models.NewDate(2024, 3, 2), Amount: decimal.RequireFromString("89.99"), Description: "ACME card payment"},
		{ID: 9, Date: models.NewDate(2024, 2, 28), Amount: decimal.RequireFromString("1200.00"), Description: "Globex transfer"},
	}, nil
}

func (s *stubAPI) UnpaidInvoices(context.Context) ([]models.Invoice, error) {
	return []models.Invoice{
		{ID: 42, CustomerName: "Acme Corp", CustomerEmail: "billing@acme.test", AmountDue: decimal.RequireFromString("150.00")},
		{ID: 104, CustomerName: "Initech", CustomerEmail: "pay@initech.test", AmountDue: decimal.RequireFromString("1200.00")},
	}, nil
}

func (s *stubAPI) MatchLogs(context.Context) ([]models.MatchLogEntry, error) {
	return nil, nil
}

func (s *stubAPI) Stats(context.Context) (models.Stats, error) {
	return models.Stats{Transactions: models.TransactionStats{Unmatched: 3}}, nil
}

func (s *stubAPI) Match(_ context.Context, transactionID, invoiceID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches = append(s.matches, [2]int64{transactionID, invoiceID})
	return s.matchError
}

func (s *stubAPI) Reprocess(_ context.Context, transactionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reprocess = append(s.reprocess, transactionID)
	return nil
}

type stubAudit struct {
	sessionID string
	failures  int64
	err       error
}

func (a *stubAudit) Recent(_ context.Context, sessionID string, limit int) ([]models.MatchAuditLog, error) {
	a.sessionID = sessionID
	return []models.MatchAuditLog{{SessionID: sessionID, Action: models.AuditActionMatch}}, nil
}

func (a *stubAudit) FailuresSince(context.Context, time.Time) (int64, error) {
	return a.failures, a.err
}

type consoleClient struct {
	t      *testing.T
	router *gin.Engine
	store  *session.Store
	cookie *http.Cookie
}

func newConsole(t *testing.T, api *stubAPI, audit *stubAudit) *consoleClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	renderer, err := view.NewRenderer()
	require.NoError(t, err)

	store := session.NewStore(func(id string, flash *reconciliation.Flash) *reconciliation.Page {
		return reconciliation.NewPage(api, reconciliation.WithSessionID(id), reconciliation.WithNotifier(flash))
	}, time.Hour, nil)
	t.Cleanup(store.Stop)

	console := NewConsoleHandler(store, renderer, nil, false)
	r := gin.New()
	r.GET("/api/health", NewAuditHandler(audit).Health)
	r.GET("/", console.Session(), console.Index)
	ui := r.Group("/", console.RequireSession())
	ui.POST("/refresh", console.Refresh)
	ui.GET("/search", console.Search)
	ui.POST("/transactions/:id/select", console.SelectTransaction)
	ui.POST("/invoices/:id/select", console.SelectInvoice)
	ui.POST("/match/confirm", console.ConfirmMatch)
	ui.POST("/match/cancel", console.CancelMatch)
	ui.GET("/matches/:transactionId/undo", console.UndoPrompt)
	ui.POST("/matches/:transactionId/undo", console.UndoMatch)
	ui.GET("/export/transactions.xlsx", console.ExportTransactions)
	ui.GET("/export/invoices.xlsx", console.ExportInvoices)
	ui.GET("/api/console/state", console.State)
	ui.GET("/api/console/audit", NewAuditHandler(audit).SessionLog)

	return &consoleClient{t: t, router: r, store: store}
}

func (c *consoleClient) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	c.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		if ck.Name == SessionCookie {
			c.cookie = ck
		}
	}
	return w
}

type stateResponse struct {
	Session       string                        `json:"session"`
	State         reconciliation.Snapshot       `json:"state"`
	Notifications []reconciliation.Notification `json:"notifications"`
}

func (c *consoleClient) state() stateResponse {
	c.t.Helper()
	w := c.do(http.MethodGet, "/api/console/state", nil)
	require.Equal(c.t, http.StatusOK, w.Code)

	var resp stateResponse
	require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestConsole_IndexLoadsOnFirstVisit(t *testing.T) {
	api := &stubAPI{}
	c := newConsole(t, api, &stubAudit{})

	w := c.do(http.MethodGet, "/", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Wire in")
	assert.Contains(t, w.Body.String(), "Initech")
	require.NotNil(t, c.cookie)
	assert.True(t, c.cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, c.cookie.SameSite)

	c.do(http.MethodGet, "/", nil)
	assert.Equal(t, 1, api.loads, "second visit reuses the loaded session")

	w = c.do(http.MethodPost, "/refresh", url.Values{})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, 2, api.loads)
}

func TestConsole_SelectAndConfirmMatch(t *testing.T) {
	api := &stubAPI{}
	c := newConsole(t, api, &stubAudit{})
	c.do(http.MethodGet, "/", nil)

	w := c.do(http.MethodPost, "/transactions/7/select", url.Values{})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, reconciliation.OneSelected.String(), c.state().State.State)

	c.do(http.MethodPost, "/invoices/42/select", url.Values{})
	page := c.do(http.MethodGet, "/", nil)
	assert.Contains(t, page.Body.String(), `id="matchModal"`)
	assert.Contains(t, page.Body.String(), `id="modalTransactionAmount">$150.00`)

	w = c.do(http.MethodPost, "/match/confirm", url.Values{})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, [][2]int64{{7, 42}}, api.matches)

	st := c.state()
	assert.Equal(t, reconciliation.Idle.String(), st.State.State)
	assert.Nil(t, st.State.Prompt)
	require.Len(t, st.Notifications, 1)
	assert.Equal(t, "Transaction matched successfully!", st.Notifications[0].Message)
	assert.Empty(t, c.state().Notifications, "notifications are drained once shown")
}

func TestConsole_ConfirmWithoutSelectionSendsNothing(t *testing.T) {
	api := &stubAPI{}
	c := newConsole(t, api, &stubAudit{})
	c.do(http.MethodGet, "/", nil)
	c.do(http.MethodPost, "/transactions/7/select", url.Values{})

	w := c.do(http.MethodPost, "/match/confirm", url.Values{})

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Empty(t, api.matches)
	assert.Empty(t, c.state().Notifications)
}

func TestConsole_CancelClearsSelection(t *testing.T) {
	c := newConsole(t, &stubAPI{}, &stubAudit{})
	c.do(http.MethodGet, "/", nil)
	c.do(http.MethodPost, "/transactions/7/select", url.Values{})
	c.do(http.MethodPost, "/invoices/104/select", url.Values{})

	c.do(http.MethodPost, "/match/cancel", url.Values{})

	st := c.state().State
	assert.Equal(t, reconciliation.Idle.String(), st.State)
	assert.Nil(t, st.SelectedTransactionID)
	assert.Nil(t, st.SelectedInvoiceID)
}

func TestConsole_SelectRejectsBadIDs(t *testing.T) {
	c := newConsole(t, &stubAPI{}, &stubAudit{})
	c.do(http.MethodGet, "/", nil)

	w := c.do(http.MethodPost, "/transactions/abc/select", url.Values{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(http.MethodPost, "/transactions/999/select", url.Values{})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = c.do(http.MethodPost, "/invoices/999/select", url.Values{})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, reconciliation.Idle.String(), c.state().State.State)
}

func TestConsole_Undo(t *testing.T) {
	api := &stubAPI{}
	c := newConsole(t, api, &stubAudit{})
	c.do(http.MethodGet, "/", nil)

	prompt := c.do(http.MethodGet, "/matches/7/undo", nil)
	require.Equal(t, http.StatusOK, prompt.Code)
	assert.Contains(t, prompt.Body.String(), "This will mark the invoice as unpaid again.")
	assert.Empty(t, api.reprocess, "showing the prompt sends nothing")

	w := c.do(http.MethodPost, "/matches/7/undo", url.Values{"confirm": {"no"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Empty(t, api.reprocess)

	c.do(http.MethodPost, "/matches/7/undo", url.Values{"confirm": {"yes"}})
	assert.Equal(t, []int64{7}, api.reprocess)

	st := c.state()
	require.Len(t, st.Notifications, 1)
	assert.Equal(t, "Match undone successfully!", st.Notifications[0].Message)
}

func TestConsole_Search(t *testing.T) {
	c := newConsole(t, &stubAPI{}, &stubAudit{})
	c.do(http.MethodGet, "/", nil)

	w := c.do(http.MethodGet, "/search?transactions=acme&invoices=initech", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "ACME card payment")
	assert.NotContains(t, body, "Globex transfer")
	assert.Contains(t, body, "Initech")
	assert.NotContains(t, body, "Acme Corp")

	st := c.state().State
	assert.Len(t, st.Transactions, 1)
	assert.Equal(t, 3, st.TotalTransactions)
}

func TestConsole_Export(t *testing.T) {
	c := newConsole(t, &stubAPI{}, &stubAudit{})
	c.do(http.MethodGet, "/", nil)

	for _, path := range []string{"/export/transactions.xlsx", "/export/invoices.xlsx"} {
		w := c.do(http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
		assert.True(t, strings.HasPrefix(w.Body.String(), "PK"), "xlsx is a zip archive")
	}
}

func TestAudit_HealthAndSessionLog(t *testing.T) {
	audit := &stubAudit{failures: 2}
	c := newConsole(t, &stubAPI{}, audit)

	w := c.do(http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","failures_last_hour":2}`, w.Body.String())
	assert.Nil(t, c.cookie, "health checks do not start sessions")

	c.do(http.MethodGet, "/", nil)
	w = c.do(http.MethodGet, "/api/console/audit?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, c.cookie.Value, audit.sessionID)
	assert.Contains(t, w.Body.String(), `"count":1`)

	audit.err = assert.AnError
	w = c.do(http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestConsole_ActionsWithoutSessionDoNotCreateOne(t *testing.T) {
	api := &stubAPI{}
	c := newConsole(t, api, &stubAudit{})

	w := c.do(http.MethodPost, "/match/confirm", url.Values{})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = c.do(http.MethodPost, "/transactions/7/select", url.Values{})
	assert.Equal(t, http.StatusSeeOther, w.Code)

	w = c.do(http.MethodGet, "/api/console/state", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c.cookie = &http.Cookie{Name: SessionCookie, Value: "forged"}
	w = c.do(http.MethodGet, "/export/transactions.xlsx", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)

	assert.Zero(t, c.store.Len())
	assert.Zero(t, api.loads)
	assert.Equal(t, "forged", c.cookie.Value, "no session cookie was issued")

	// a stale cookie on the entry point is replaced with a fresh session
	c.do(http.MethodGet, "/", nil)
	assert.Equal(t, 1, c.store.Len())
	assert.NotEqual(t, "forged", c.cookie.Value)
}

func TestConsole_ReloadRendersIdenticalPage(t *testing.T) {
	api := &stubAPI{}
	c := newConsole(t, api, &stubAudit{})

	first := c.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, first.Code)

	c.do(http.MethodPost, "/refresh", url.Values{})
	second := c.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, 2, api.loads)
	assert.Equal(t, first.Body.String(), second.Body.String())
}
