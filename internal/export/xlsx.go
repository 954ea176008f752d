// Package export writes the console's current views as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"reconciliation-console/internal/models"
)

const (
	TransactionsSheet = "Unmatched Transactions"
	InvoicesSheet     = "Unpaid Invoices"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func WriteTransactions(w io.Writer, txs []models.Transaction) error {
	rows := make([][]any, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, []any{
			tx.ID,
			tx.Date.String(),
			tx.Amount.StringFixed(2),
			tx.Description,
			tx.Reference(),
		})
	}
	return write(w, TransactionsSheet, []any{"ID", "Date", "Amount", "Description", "Reference"}, rows)
}

func WriteInvoices(w io.Writer, invs []models.Invoice) error {
	rows := make([][]any, 0, len(invs))
	for _, inv := range invs {
		rows = append(rows, []any{
			inv.ID,
			inv.CustomerName,
			inv.CustomerEmail,
			inv.AmountDue.StringFixed(2),
			inv.Reference(),
		})
	}
	return write(w, InvoicesSheet, []any{"ID", "Customer", "Email", "Amount Due", "Reference"}, rows)
}

func write(w io.Writer, sheet string, header []any, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
