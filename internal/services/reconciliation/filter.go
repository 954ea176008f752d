package reconciliation

import (
	"strconv"
	"strings"

	"reconciliation-console/internal/models"
)

// FilterTransactions updates the transaction search term. The underlying
// list and the selection are left alone.
func (p *Page) FilterTransactions(term string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.txFilter = term
}

func (p *Page) FilterInvoices(term string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invFilter = term
}

// FilterTransactions returns the transactions whose description, reference,
// amount or date contain term, ignoring case. An empty term returns a copy
// of the full list.
func FilterTransactions(list []models.Transaction, term string) []models.Transaction {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.Transaction, 0, len(list))
	for _, tx := range list {
		if term == "" ||
			contains(tx.Description, term) ||
			contains(tx.Reference(), term) ||
			contains(tx.Amount.StringFixed(2), term) ||
			contains(tx.Date.String(), term) {
			out = append(out, tx)
		}
	}
	return out
}

// FilterInvoices matches on customer name or email, reference, amount due
// and id.
func FilterInvoices(list []models.Invoice, term string) []models.Invoice {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.Invoice, 0, len(list))
	for _, inv := range list {
		if term == "" ||
			contains(inv.CustomerName, term) ||
			contains(inv.CustomerEmail, term) ||
			contains(inv.Reference(), term) ||
			contains(inv.AmountDue.StringFixed(2), term) ||
			contains(strconv.FormatInt(inv.ID, 10), term) {
			out = append(out, inv)
		}
	}
	return out
}

func contains(field, lowerTerm string) bool {
	return field != "" && strings.Contains(strings.ToLower(field), lowerTerm)
}
