package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MatchedByManual = "manual"
	MatchedByAuto   = "auto"
)

type MatchLogEntry struct {
	ID                     int64           `json:"id"`
	Timestamp              time.Time       `json:"timestamp"`
	TransactionID          int64           `json:"transaction_id"`
	TransactionAmount      decimal.Decimal `json:"transaction_amount"`
	TransactionDescription string          `json:"transaction_description"`
	TransactionReference   *string         `json:"transaction_reference"`
	InvoiceID              *int64          `json:"invoice_id"`
	InvoiceCustomer        *string         `json:"invoice_customer"`
	MatchedBy              string          `json:"matched_by"`
	MatchReason            *string         `json:"match_reason"`
	ConfidenceScore        float64         `json:"confidence_score"`
}

// IsManualMatch reports whether the entry records an operator match that
// still points at an invoice.
func (e MatchLogEntry) IsManualMatch() bool {
	return e.MatchedBy == MatchedByManual && e.InvoiceID != nil
}

type TransactionStats struct {
	Total     int     `json:"total"`
	Matched   int     `json:"matched"`
	Unmatched int     `json:"unmatched"`
	MatchRate float64 `json:"match_rate"`
}

type InvoiceStats struct {
	Total       int     `json:"total"`
	Paid        int     `json:"paid"`
	Unpaid      int     `json:"unpaid"`
	PaymentRate float64 `json:"payment_rate"`
}

type MatchStats struct {
	AutoMatches           int `json:"auto_matches"`
	ManualMatches         int `json:"manual_matches"`
	HighConfidenceMatches int `json:"high_confidence_matches"`
	TotalLogs             int `json:"total_logs"`
}

type Stats struct {
	Transactions   TransactionStats `json:"transactions"`
	Invoices       InvoiceStats     `json:"invoices"`
	Reconciliation MatchStats       `json:"reconciliation"`
}
