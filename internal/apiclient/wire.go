package apiclient

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"reconciliation-console/internal/models"
)

// Wire shapes use pointers so that an absent or null field is told apart
// from a zero value. Validation runs on these before conversion.

type transactionWire struct {
	ID              *int64           `json:"id" validate:"required"`
	Date            *models.Date     `json:"date" validate:"required"`
	Amount          *decimal.Decimal `json:"amount" validate:"required"`
	Description     *string          `json:"description" validate:"required"`
	ReferenceNumber *string          `json:"reference_number"`
}

func (w transactionWire) model() (models.Transaction, error) {
	if w.Date.IsZero() {
		return models.Transaction{}, errors.New("empty date")
	}
	return models.Transaction{
		ID:              *w.ID,
		Date:            *w.Date,
		Amount:          *w.Amount,
		Description:     *w.Description,
		ReferenceNumber: w.ReferenceNumber,
	}, nil
}

type invoiceWire struct {
	ID              *int64           `json:"id" validate:"required"`
	CustomerName    *string          `json:"customer_name" validate:"required"`
	CustomerEmail   *string          `json:"customer_email"`
	AmountDue       *decimal.Decimal `json:"amount_due" validate:"required"`
	ReferenceNumber *string          `json:"reference_number"`
}

func (w invoiceWire) model() (models.Invoice, error) {
	if w.AmountDue.IsNegative() {
		return models.Invoice{}, errors.New("negative amount_due")
	}
	inv := models.Invoice{
		ID:              *w.ID,
		CustomerName:    *w.CustomerName,
		AmountDue:       *w.AmountDue,
		ReferenceNumber: w.ReferenceNumber,
	}
	if w.CustomerEmail != nil {
		inv.CustomerEmail = *w.CustomerEmail
	}
	return inv, nil
}

type matchLogWire struct {
	ID                     int64            `json:"id"`
	Timestamp              *time.Time       `json:"timestamp" validate:"required"`
	TransactionID          *int64           `json:"transaction_id" validate:"required"`
	TransactionAmount      *decimal.Decimal `json:"transaction_amount" validate:"required"`
	TransactionDescription string           `json:"transaction_description"`
	TransactionReference   *string          `json:"transaction_reference"`
	InvoiceID              *int64           `json:"invoice_id"`
	InvoiceCustomer        *string          `json:"invoice_customer"`
	MatchedBy              string           `json:"matched_by" validate:"required,oneof=manual auto"`
	MatchReason            *string          `json:"match_reason"`
	ConfidenceScore        float64          `json:"confidence_score"`
}

func (w matchLogWire) model() (models.MatchLogEntry, error) {
	return models.MatchLogEntry{
		ID:                     w.ID,
		Timestamp:              *w.Timestamp,
		TransactionID:          *w.TransactionID,
		TransactionAmount:      *w.TransactionAmount,
		TransactionDescription: w.TransactionDescription,
		TransactionReference:   w.TransactionReference,
		InvoiceID:              w.InvoiceID,
		InvoiceCustomer:        w.InvoiceCustomer,
		MatchedBy:              w.MatchedBy,
		MatchReason:            w.MatchReason,
		ConfidenceScore:        w.ConfidenceScore,
	}, nil
}
