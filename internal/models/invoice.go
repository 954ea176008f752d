package models

import "github.com/shopspring/decimal"

type Invoice struct {
	ID              int64           `json:"id"`
	CustomerName    string          `json:"customer_name"`
	CustomerEmail   string          `json:"customer_email"`
	AmountDue       decimal.Decimal `json:"amount_due"`
	ReferenceNumber *string         `json:"reference_number"`
}

func (i Invoice) Reference() string {
	if i.ReferenceNumber == nil {
		return ""
	}
	return *i.ReferenceNumber
}
