package reconciliation

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"reconciliation-console/internal/models"
)

type pageData struct {
	transactions  []models.Transaction
	invoices      []models.Invoice
	recentMatches []models.MatchLogEntry
	stats         models.Stats
}

// Load fetches all four resources concurrently and replaces the page's
// lists only when every fetch succeeded.
func (p *Page) Load(ctx context.Context) error {
	if p.isClosed() {
		return ErrClosed
	}

	done := p.beginLoading()
	defer done()

	data, err := fetchAll(ctx, p.api)
	if err != nil {
		p.logger.Error("load failed", "error", err)
		p.notify(Error, msgLoadFailed)
		p.audit(ctx, models.AuditActionLoad, nil, nil, err, nil)
		return fmt.Errorf("load page data: %w", err)
	}

	p.commit(data)
	p.logger.Debug("page loaded",
		"transactions", len(data.transactions),
		"invoices", len(data.invoices),
		"recent_matches", len(data.recentMatches),
	)
	return nil
}

func fetchAll(ctx context.Context, api API) (*pageData, error) {
	var data pageData
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		txs, err := api.UnmatchedTransactions(gctx)
		data.transactions = txs
		return err
	})
	g.Go(func() error {
		invs, err := api.UnpaidInvoices(gctx)
		data.invoices = invs
		return err
	})
	g.Go(func() error {
		logs, err := api.MatchLogs(gctx)
		data.recentMatches = RecentManualMatches(logs, RecentMatchLimit)
		return err
	})
	g.Go(func() error {
		stats, err := api.Stats(gctx)
		data.stats = stats
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &data, nil
}

// RecentManualMatches keeps manual entries that still reference an
// invoice, in server order, up to limit.
func RecentManualMatches(logs []models.MatchLogEntry, limit int) []models.MatchLogEntry {
	out := make([]models.MatchLogEntry, 0, limit)
	for _, entry := range logs {
		if len(out) == limit {
			break
		}
		if entry.IsManualMatch() {
			out = append(out, entry)
		}
	}
	return out
}

func (p *Page) commit(data *pageData) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.transactions = nonNil(data.transactions)
	p.invoices = nonNil(data.invoices)
	p.recentMatches = data.recentMatches
	p.stats = data.stats
	p.loaded = true
	p.loadedAt = p.now()

	// keep selections that survived the reload, pointed at the fresh rows
	if p.selectedTx != nil {
		p.selectedTx = findTransaction(p.transactions, p.selectedTx.ID)
	}
	if p.selectedInv != nil {
		p.selectedInv = findInvoice(p.invoices, p.selectedInv.ID)
	}
	if p.selectedTx == nil || p.selectedInv == nil {
		p.promptOpen = false
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
