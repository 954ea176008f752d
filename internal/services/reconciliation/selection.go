package reconciliation

import (
	"reconciliation-console/internal/models"
	"reconciliation-console/internal/services/matching"
)

// SelectTransaction replaces the selected transaction. When an invoice is
// already selected the match prompt opens.
func (p *Page) SelectTransaction(id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	tx := findTransaction(p.transactions, id)
	if tx == nil {
		return ErrNotFound
	}
	p.selectedTx = tx
	p.promptOpen = p.selectedInv != nil
	return nil
}

// SelectInvoice replaces the selected invoice. When a transaction is
// already selected the match prompt opens.
func (p *Page) SelectInvoice(id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	inv := findInvoice(p.invoices, id)
	if inv == nil {
		return ErrNotFound
	}
	p.selectedInv = inv
	p.promptOpen = p.selectedTx != nil
	return nil
}

// CancelMatch dismisses the prompt and clears both selections.
func (p *Page) CancelMatch() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearSelectionLocked()
}

func (p *Page) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stateLocked()
}

// Prompt returns the pending match proposal while the prompt is open.
func (p *Page) Prompt() (matching.Proposal, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.promptLocked()
}

func (p *Page) SelectedTransaction() (models.Transaction, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.selectedTx == nil {
		return models.Transaction{}, false
	}
	return *p.selectedTx, true
}

func (p *Page) SelectedInvoice() (models.Invoice, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.selectedInv == nil {
		return models.Invoice{}, false
	}
	return *p.selectedInv, true
}

func (p *Page) stateLocked() State {
	switch {
	case p.selectedTx != nil && p.selectedInv != nil:
		return BothSelected
	case p.selectedTx != nil || p.selectedInv != nil:
		return OneSelected
	default:
		return Idle
	}
}

func (p *Page) promptLocked() (matching.Proposal, bool) {
	if !p.promptOpen || p.selectedTx == nil || p.selectedInv == nil {
		return matching.Proposal{}, false
	}
	return matching.Propose(*p.selectedTx, *p.selectedInv), true
}

func (p *Page) clearSelectionLocked() {
	p.selectedTx = nil
	p.selectedInv = nil
	p.promptOpen = false
}

func findTransaction(list []models.Transaction, id int64) *models.Transaction {
	for i := range list {
		if list[i].ID == id {
			tx := list[i]
			return &tx
		}
	}
	return nil
}

func findInvoice(list []models.Invoice, id int64) *models.Invoice {
	for i := range list {
		if list[i].ID == id {
			inv := list[i]
			return &inv
		}
	}
	return nil
}
