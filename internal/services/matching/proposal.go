package matching

import (
	"github.com/shopspring/decimal"

	"reconciliation-console/internal/models"
)

// Tolerance is the largest gap between a transaction amount and an
// invoice amount that still counts as equal.
var Tolerance = decimal.New(1, -2)

// Proposal is what the operator confirms: both records and whether their
// amounts disagree.
type Proposal struct {
	Transaction       models.Transaction `json:"transaction"`
	Invoice           models.Invoice     `json:"invoice"`
	TransactionAmount decimal.Decimal    `json:"transaction_amount"`
	InvoiceAmount     decimal.Decimal    `json:"invoice_amount"`
	Difference        decimal.Decimal    `json:"difference"`
	AmountMismatch    bool               `json:"amount_mismatch"`
}

func Propose(tx models.Transaction, inv models.Invoice) Proposal {
	txAmount := tx.Amount.Abs()
	diff := txAmount.Sub(inv.AmountDue).Abs()

	return Proposal{
		Transaction:       tx,
		Invoice:           inv,
		TransactionAmount: txAmount,
		InvoiceAmount:     inv.AmountDue,
		Difference:        diff,
		AmountMismatch:    diff.GreaterThan(Tolerance),
	}
}

// AmountMismatch reports |abs(tx.Amount) - inv.AmountDue| > 0.01.
func AmountMismatch(tx models.Transaction, inv models.Invoice) bool {
	return Propose(tx, inv).AmountMismatch
}
