package reconciliation

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"reconciliation-console/internal/apiclient"
	"reconciliation-console/internal/models"
	"reconciliation-console/internal/services/matching"
)

// ConfirmMatch submits the selected pair. It is a silent no-op returning
// ErrIncompleteSelection unless both slots are populated.
func (p *Page) ConfirmMatch(ctx context.Context) error {
	if p.isClosed() {
		return ErrClosed
	}
	if !p.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer p.busy.Store(false)

	p.mu.Lock()
	if p.selectedTx == nil || p.selectedInv == nil {
		p.mu.Unlock()
		return ErrIncompleteSelection
	}
	proposal := matching.Propose(*p.selectedTx, *p.selectedInv)
	tx, inv := *p.selectedTx, *p.selectedInv
	p.mu.Unlock()

	done := p.beginLoading()
	defer done()

	details := map[string]any{
		"transaction_amount": tx.Amount.StringFixed(2),
		"invoice_amount":     inv.AmountDue.StringFixed(2),
		"amount_mismatch":    proposal.AmountMismatch,
	}

	if err := p.api.Match(ctx, tx.ID, inv.ID); err != nil {
		p.logger.Error("match failed", "transaction_id", tx.ID, "invoice_id", inv.ID, "error", err)
		p.notify(Error, failureMessage(msgMatchFailed, err))
		p.audit(ctx, models.AuditActionMatch, &tx.ID, &inv.ID, err, details)
		return fmt.Errorf("match transaction %d to invoice %d: %w", tx.ID, inv.ID, err)
	}

	p.mu.Lock()
	p.clearSelectionLocked()
	p.mu.Unlock()

	p.logger.Info("transaction matched", "transaction_id", tx.ID, "invoice_id", inv.ID)
	p.notify(Success, msgMatched)
	p.audit(ctx, models.AuditActionMatch, &tx.ID, &inv.ID, nil, details)

	return p.Load(ctx)
}

// UndoMatch asks for confirmation and then sends the transaction back for
// reprocessing. It does not depend on the current selection.
func (p *Page) UndoMatch(ctx context.Context, transactionID int64, confirm Confirmer) error {
	if p.isClosed() {
		return ErrClosed
	}
	if confirm == nil || !confirm.Confirm(ctx, UndoConfirmation) {
		p.logger.Debug("undo declined", "transaction_id", transactionID)
		p.auditOutcome(ctx, models.AuditActionUndo, &transactionID, nil, models.AuditOutcomeDeclined, nil, nil)
		return ErrDeclined
	}
	if !p.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer p.busy.Store(false)

	done := p.beginLoading()
	defer done()

	if err := p.api.Reprocess(ctx, transactionID); err != nil {
		p.logger.Error("undo failed", "transaction_id", transactionID, "error", err)
		p.notify(Error, failureMessage(msgUndoFailed, err))
		p.audit(ctx, models.AuditActionUndo, &transactionID, nil, err, nil)
		return fmt.Errorf("undo match for transaction %d: %w", transactionID, err)
	}

	p.mu.Lock()
	p.clearSelectionLocked()
	p.mu.Unlock()

	p.logger.Info("match undone", "transaction_id", transactionID)
	p.notify(Success, msgUndone)
	p.audit(ctx, models.AuditActionUndo, &transactionID, nil, nil, nil)

	return p.Load(ctx)
}

// failureMessage prefers the server's own message over a generic one.
func failureMessage(prefix string, err error) string {
	if msg, ok := apiclient.Message(err); ok {
		return prefix + ": " + msg
	}
	return prefix + ": the request could not be completed"
}

func (p *Page) notify(kind Kind, msg string) {
	p.notifier.Notify(Notification{Kind: kind, Message: msg, CreatedAt: p.now()})
}

func (p *Page) audit(ctx context.Context, action string, txID, invID *int64, err error, details map[string]any) {
	outcome := models.AuditOutcomeSuccess
	if err != nil {
		outcome = models.AuditOutcomeFailure
	}
	p.auditOutcome(ctx, action, txID, invID, outcome, err, details)
}

func (p *Page) auditOutcome(ctx context.Context, action string, txID, invID *int64, outcome string, err error, details map[string]any) {
	if p.auditor == nil {
		return
	}

	entry := &models.MatchAuditLog{
		SessionID:     p.sessionID,
		Action:        action,
		TransactionID: txID,
		InvoiceID:     invID,
		Outcome:       outcome,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	if len(details) > 0 {
		if raw, jerr := json.Marshal(details); jerr == nil {
			entry.Details = datatypes.JSON(raw)
		}
	}

	// the audit row outlives a cancelled request
	if rerr := p.auditor.Record(context.WithoutCancel(ctx), entry); rerr != nil {
		p.logger.Warn("audit record failed", "action", action, "error", rerr)
	}
}
