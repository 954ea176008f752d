// Package view renders the manual reconciliation page from a page snapshot.
// All record fields pass through html/template escaping.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"reconciliation-console/internal/services/reconciliation"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page is everything one render needs.
type Page struct {
	reconciliation.Snapshot
	Notifications []reconciliation.Notification
}

// UndoPrompt is the yes/no confirmation shown before an undo.
type UndoPrompt struct {
	TransactionID int64
	Question      string
}

type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("page").Funcs(template.FuncMap{
		"amount":      FormatAmount,
		"amountClass": AmountClass,
		"date":        FormatDate,
		"datetime":    FormatDateTime,
		"truncate":    Truncate,
		"orDefault":   OrDefault,
		"dash":        Dash,
		"isSelected":  isSelected,
		"toastClass":  toastClass,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

func (r *Renderer) Render(w io.Writer, page Page) error {
	return r.tmpl.ExecuteTemplate(w, "page.html", page)
}

func (r *Renderer) RenderUndoPrompt(w io.Writer, prompt UndoPrompt) error {
	return r.tmpl.ExecuteTemplate(w, "undo.html", prompt)
}

func isSelected(selected *int64, id int64) bool {
	return selected != nil && *selected == id
}

func toastClass(kind reconciliation.Kind) string {
	switch kind {
	case reconciliation.Error:
		return "danger"
	case reconciliation.Success:
		return "success"
	default:
		return "info"
	}
}
