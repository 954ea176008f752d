package reconciliation

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"reconciliation-console/internal/models"
)

type matchCall struct {
	TransactionID int64
	InvoiceID     int64
}

// fakeAPI serves canned lists. Mutations remove matched rows so reloads
// observe the new server state.
type fakeAPI struct {
	mu           sync.Mutex
	transactions []models.Transaction
	invoices     []models.Invoice
	logs         []models.MatchLogEntry
	stats        models.Stats
	statsErr     error
	txErr        error
	matchErr     error
	reprocessErr error
	matchCalls   []matchCall
	reprocessIDs []int64
	matchGate    chan struct{}
	matchEntered chan struct{}
	undoGate     chan struct{}
	undoEntered  chan struct{}
	loadCount    atomic.Int32
}

func (f *fakeAPI) UnmatchedTransactions(context.Context) ([]models.Transaction, error) {
	f.loadCount.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.txErr != nil {
		return nil, f.txErr
	}
	return append([]models.Transaction(nil), f.transactions...), nil
}

func (f *fakeAPI) UnpaidInvoices(context.Context) ([]models.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Invoice(nil), f.invoices...), nil
}

func (f *fakeAPI) MatchLogs(context.Context) ([]models.MatchLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.MatchLogEntry(nil), f.logs...), nil
}

func (f *fakeAPI) Stats(context.Context) (models.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats, f.statsErr
}

func (f *fakeAPI) Match(ctx context.Context, transactionID, invoiceID int64) error {
	if f.matchEntered != nil {
		f.matchEntered <- struct{}{}
	}
	if f.matchGate != nil {
		<-f.matchGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.matchCalls = append(f.matchCalls, matchCall{transactionID, invoiceID})
	if f.matchErr != nil {
		return f.matchErr
	}
	f.transactions = removeTransaction(f.transactions, transactionID)
	f.invoices = removeInvoice(f.invoices, invoiceID)
	f.stats.Reconciliation.ManualMatches++
	return nil
}

func (f *fakeAPI) Reprocess(ctx context.Context, transactionID int64) error {
	if f.undoEntered != nil {
		f.undoEntered <- struct{}{}
	}
	if f.undoGate != nil {
		<-f.undoGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.reprocessIDs = append(f.reprocessIDs, transactionID)
	return f.reprocessErr
}

func (f *fakeAPI) matchCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.matchCalls)
}

func (f *fakeAPI) reprocessCalls() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.reprocessIDs...)
}

func removeTransaction(list []models.Transaction, id int64) []models.Transaction {
	out := list[:0:0]
	for _, tx := range list {
		if tx.ID != id {
			out = append(out, tx)
		}
	}
	return out
}

func removeInvoice(list []models.Invoice, id int64) []models.Invoice {
	out := list[:0:0]
	for _, inv := range list {
		if inv.ID != id {
			out = append(out, inv)
		}
	}
	return out
}

type recordingAuditor struct {
	mu      sync.Mutex
	entries []models.MatchAuditLog
}

func (a *recordingAuditor) Record(_ context.Context, entry *models.MatchAuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *entry)
	return nil
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleAPI() *fakeAPI {
	return &fakeAPI{
		transactions: []models.Transaction{
			{ID: 7, Date: models.NewDate(2024, 3, 1), Amount: dec("-150.00"), Description: "Wire in", ReferenceNumber: strPtr("REF1")},
			{ID: 8, Date: models.NewDate(2024, 3, 2), Amount: dec("89.99"), Description: "ACME card payment"},
			{ID: 9, Date: models.NewDate(2024, 2, 28), Amount: dec("1200.00"), Description: "Globex transfer", ReferenceNumber: strPtr("GLX-77")},
		},
		invoices: []models.Invoice{
			{ID: 42, CustomerName: "Acme Corp", CustomerEmail: "billing@acme.test", AmountDue: dec("150.00")},
			{ID: 43, CustomerName: "Globex", CustomerEmail: "ap@globex.test", AmountDue: dec("140.00"), ReferenceNumber: strPtr("INV-43")},
			{ID: 104, CustomerName: "Initech", CustomerEmail: "pay@initech.test", AmountDue: dec("1200.00")},
		},
		stats: models.Stats{
			Transactions:   models.TransactionStats{Total: 10, Matched: 7, Unmatched: 3, MatchRate: 70},
			Invoices:       models.InvoiceStats{Total: 5, Paid: 2, Unpaid: 3},
			Reconciliation: models.MatchStats{ManualMatches: 4},
		},
	}
}
