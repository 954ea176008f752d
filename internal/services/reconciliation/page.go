// Package reconciliation holds the manual reconciliation page controller.
//
// A Page owns one operator's view of the reconciliation API: the four
// loaded lists, the transaction/invoice selection, the search filters,
// the loading indicator and pending notifications. Handlers drive it; the
// view package renders its Snapshot.
package reconciliation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"reconciliation-console/internal/models"
	"reconciliation-console/internal/services/matching"
)

var (
	// ErrIncompleteSelection is returned by ConfirmMatch when either slot is
	// empty. It is never shown to the operator.
	ErrIncompleteSelection = errors.New("both a transaction and an invoice must be selected")
	// ErrBusy is returned when a match or undo is already in flight.
	ErrBusy     = errors.New("another action is in progress")
	ErrNotFound = errors.New("record not found")
	ErrDeclined = errors.New("action declined")
	ErrClosed   = errors.New("page closed")
)

const (
	RecentMatchLimit = 10

	msgLoadFailed    = "Failed to load data. Please refresh the page."
	msgMatched       = "Transaction matched successfully!"
	msgMatchFailed   = "Failed to match"
	msgUndone        = "Match undone successfully!"
	msgUndoFailed    = "Failed to undo match"
	UndoConfirmation = "Are you sure you want to undo this match? This will mark the invoice as unpaid again."
)

// API is the subset of the reconciliation API the page depends on.
type API interface {
	UnmatchedTransactions(ctx context.Context) ([]models.Transaction, error)
	UnpaidInvoices(ctx context.Context) ([]models.Invoice, error)
	MatchLogs(ctx context.Context) ([]models.MatchLogEntry, error)
	Stats(ctx context.Context) (models.Stats, error)
	Match(ctx context.Context, transactionID, invoiceID int64) error
	Reprocess(ctx context.Context, transactionID int64) error
}

// Auditor records operator actions for later inspection.
type Auditor interface {
	Record(ctx context.Context, entry *models.MatchAuditLog) error
}

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, question string) bool
}

type ConfirmFunc func(ctx context.Context, question string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, question string) bool { return f(ctx, question) }

// Answer is a Confirmer that always gives the same reply, for callers that
// already collected the operator's answer.
type Answer bool

func (a Answer) Confirm(context.Context, string) bool { return bool(a) }

type State int

const (
	Idle State = iota
	OneSelected
	BothSelected
)

func (s State) String() string {
	switch s {
	case OneSelected:
		return "one_selected"
	case BothSelected:
		return "both_selected"
	default:
		return "idle"
	}
}

type Page struct {
	api       API
	notifier  Notifier
	auditor   Auditor
	logger    *slog.Logger
	sessionID string
	now       func() time.Time

	busy atomic.Bool

	mu            sync.Mutex
	transactions  []models.Transaction
	invoices      []models.Invoice
	recentMatches []models.MatchLogEntry
	stats         models.Stats
	loadedAt      time.Time
	loaded        bool

	selectedTx  *models.Transaction
	selectedInv *models.Invoice
	promptOpen  bool

	txFilter  string
	invFilter string

	loading int
	closed  bool
}

type Option func(*Page)

func WithNotifier(n Notifier) Option { return func(p *Page) { p.notifier = n } }

func WithAuditor(a Auditor) Option { return func(p *Page) { p.auditor = a } }

func WithLogger(l *slog.Logger) Option { return func(p *Page) { p.logger = l } }

func WithSessionID(id string) Option { return func(p *Page) { p.sessionID = id } }

func WithClock(now func() time.Time) Option { return func(p *Page) { p.now = now } }

func NewPage(api API, opts ...Option) *Page {
	p := &Page{
		api: api,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.notifier == nil {
		p.notifier = NewFlash(DefaultToastTTL, p.now)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "page", "session", p.sessionID)
	return p
}

func (p *Page) SessionID() string { return p.sessionID }

// Close ends the page's lifecycle. Later loads and actions fail with ErrClosed.
func (p *Page) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.selectedTx, p.selectedInv = nil, nil
	p.promptOpen = false
}

func (p *Page) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// beginLoading raises the loading indicator; the returned func lowers it.
func (p *Page) beginLoading() func() {
	p.mu.Lock()
	p.loading++
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			p.loading--
			p.mu.Unlock()
		})
	}
}

func (p *Page) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading > 0
}

func (p *Page) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// Snapshot is a consistent, render-ready copy of the page state.
type Snapshot struct {
	Transactions      []models.Transaction   `json:"transactions"`
	Invoices          []models.Invoice       `json:"invoices"`
	RecentMatches     []models.MatchLogEntry `json:"recent_matches"`
	Stats             models.Stats           `json:"stats"`
	TotalTransactions int                    `json:"total_transactions"`
	TotalInvoices     int                    `json:"total_invoices"`
	TransactionFilter string                 `json:"transaction_filter"`
	InvoiceFilter     string                 `json:"invoice_filter"`

	SelectedTransactionID *int64             `json:"selected_transaction_id"`
	SelectedInvoiceID     *int64             `json:"selected_invoice_id"`
	State                 string             `json:"state"`
	Prompt                *matching.Proposal `json:"prompt,omitempty"`

	Loading  bool      `json:"loading"`
	Loaded   bool      `json:"loaded"`
	LoadedAt time.Time `json:"loaded_at"`
}

func (p *Page) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := Snapshot{
		Transactions:      FilterTransactions(p.transactions, p.txFilter),
		Invoices:          FilterInvoices(p.invoices, p.invFilter),
		RecentMatches:     append([]models.MatchLogEntry(nil), p.recentMatches...),
		Stats:             p.stats,
		TotalTransactions: len(p.transactions),
		TotalInvoices:     len(p.invoices),
		TransactionFilter: p.txFilter,
		InvoiceFilter:     p.invFilter,
		State:             p.stateLocked().String(),
		Loading:           p.loading > 0,
		Loaded:            p.loaded,
		LoadedAt:          p.loadedAt,
	}
	if p.selectedTx != nil {
		id := p.selectedTx.ID
		snap.SelectedTransactionID = &id
	}
	if p.selectedInv != nil {
		id := p.selectedInv.ID
		snap.SelectedInvoiceID = &id
	}
	if prop, ok := p.promptLocked(); ok {
		snap.Prompt = &prop
	}
	return snap
}
