// Package apiclient is a typed client for the reconciliation HTTP API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"reconciliation-console/internal/config"
	"reconciliation-console/internal/csrf"
	"reconciliation-console/internal/models"
)

const (
	PathUnmatched = "/api/bank/unmatched/"
	PathUnpaid    = "/api/invoices/unpaid/"
	PathLogs      = "/api/reconciliation/logs/"
	PathStats     = "/api/reconciliation/stats/"
	PathMatch     = "/api/bank/match/"
	PathReprocess = "/api/reconciliation/reprocess/"

	maxErrorBody = 64 << 10
)

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	timeout    time.Duration
	validate   *validator.Validate
	logger     *slog.Logger

	csrfPage   string
	csrfCookie string

	tokenMu sync.Mutex
	token   string
}

func New(cfg config.APIConfig, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", cfg.BaseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	cookie := cfg.CSRFCookie
	if cookie == "" {
		cookie = csrf.DefaultCookie
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		timeout:    timeout,
		validate:   validator.New(),
		logger:     logger.With("component", "apiclient"),
		csrfPage:   cfg.CSRFPage,
		csrfCookie: cookie,
		token:      cfg.CSRFToken,
	}, nil
}

func (c *Client) UnmatchedTransactions(ctx context.Context) ([]models.Transaction, error) {
	return decodeList(ctx, c, "load unmatched transactions", "transaction", PathUnmatched, transactionWire.model)
}

func (c *Client) UnpaidInvoices(ctx context.Context) ([]models.Invoice, error) {
	return decodeList(ctx, c, "load unpaid invoices", "invoice", PathUnpaid, invoiceWire.model)
}

func (c *Client) MatchLogs(ctx context.Context) ([]models.MatchLogEntry, error) {
	return decodeList(ctx, c, "load match logs", "log entry", PathLogs, matchLogWire.model)
}

// decodeList fetches a JSON array, validates each element's wire shape and
// converts it. Any bad element fails the whole list.
func decodeList[W any, M any](ctx context.Context, c *Client, op, kind, path string, convert func(W) (M, error)) ([]M, error) {
	var wire []W
	if err := c.getList(ctx, op, path, &wire); err != nil {
		return nil, err
	}
	out := make([]M, 0, len(wire))
	for i := range wire {
		if err := c.validate.Struct(wire[i]); err != nil {
			return nil, malformed(op, fmt.Errorf("%s %d: %w", kind, i, err))
		}
		m, err := convert(wire[i])
		if err != nil {
			return nil, malformed(op, fmt.Errorf("%s %d: %w", kind, i, err))
		}
		out = append(out, m)
	}
	return out, nil
}

func (c *Client) Stats(ctx context.Context) (models.Stats, error) {
	const op = "load stats"
	var out models.Stats

	body, status, err := c.do(ctx, op, http.MethodGet, PathStats, nil)
	if err != nil {
		return out, err
	}
	if err := decodeStrict(body, &out); err != nil {
		return out, malformedStatus(op, status, err)
	}
	return out, nil
}

// Match records a manual match between a transaction and an invoice.
func (c *Client) Match(ctx context.Context, transactionID, invoiceID int64) error {
	payload := map[string]int64{
		"transaction_id": transactionID,
		"invoice_id":     invoiceID,
	}
	_, _, err := c.do(ctx, "match transaction", http.MethodPost, PathMatch, payload)
	return err
}

// Reprocess reverts a transaction to unmatched, undoing its match.
func (c *Client) Reprocess(ctx context.Context, transactionID int64) error {
	payload := map[string]int64{"transaction_id": transactionID}
	_, _, err := c.do(ctx, "undo match", http.MethodPost, PathReprocess, payload)
	return err
}

func (c *Client) getList(ctx context.Context, op, path string, out any) error {
	body, status, err := c.do(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if !bytes.HasPrefix(bytes.TrimSpace(body), []byte("[")) {
		return malformedStatus(op, status, fmt.Errorf("expected a JSON array"))
	}
	if err := decodeStrict(body, out); err != nil {
		return malformedStatus(op, status, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload any) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
		if tok := c.csrfToken(ctx); tok != "" {
			req.Header.Set(csrf.HeaderName, tok)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &NetworkError{Op: op, Status: resp.StatusCode, Err: err}
	}

	c.logger.Debug("api call",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, errorFromBody(op, resp.StatusCode, body)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) resolve(path string) string {
	return c.baseURL.String() + path
}

// csrfToken resolves the token once and caches it for later requests.
func (c *Client) csrfToken(ctx context.Context) string {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" {
		return c.token
	}

	if c.csrfPage != "" {
		if tok, ok := c.tokenFromPage(ctx); ok {
			c.token = tok
			return tok
		}
	}
	if tok, ok := csrf.FromCookies(c.httpClient.Jar, c.baseURL, c.csrfCookie); ok {
		c.token = tok
		return tok
	}

	c.logger.Warn("no csrf token found, sending request without it",
		"page", c.csrfPage,
		"cookie", c.csrfCookie,
	)
	return ""
}

func (c *Client) tokenFromPage(ctx context.Context) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(c.csrfPage), nil)
	if err != nil {
		return "", false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("csrf page fetch failed", "error", err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false
	}
	// the response may also have set the csrf cookie; the caller checks it next
	return csrf.FromHTML(io.LimitReader(resp.Body, 1<<20))
}

func errorFromBody(op string, status int, body []byte) error {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Error) != "" {
		return &ServerError{Op: op, Status: status, Message: strings.TrimSpace(payload.Error)}
	}
	return &NetworkError{Op: op, Status: status}
}

func decodeStrict(body []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(out); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after JSON value")
	}
	return nil
}

func malformed(op string, err error) error {
	return malformedStatus(op, http.StatusOK, err)
}

func malformedStatus(op string, status int, err error) error {
	return &ServerError{
		Op:      op,
		Status:  status,
		Message: fmt.Sprintf("%s: %v", ErrMalformedResponse, err),
		Err:     fmt.Errorf("%w: %v", ErrMalformedResponse, err),
	}
}
