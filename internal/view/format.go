package view

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"reconciliation-console/internal/models"
)

const descriptionLimit = 40

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatAmount renders the absolute value as "$1,234.56". Only the integer
// part goes through the grouping printer, so no digits pass through a float.
func FormatAmount(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return "$" + fixed
	}
	return "$" + printer.Sprint(number.Decimal(n)) + "." + frac
}

// AmountClass is "negative" for debits and "positive" otherwise.
func AmountClass(d decimal.Decimal) string {
	if d.IsNegative() {
		return "negative"
	}
	return "positive"
}

func FormatDate(d models.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.Format("Jan 2, 2006")
}

func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("Jan 2, 03:04 PM")
}

func Truncate(s string) string {
	if utf8.RuneCountInString(s) <= descriptionLimit {
		return s
	}
	r := []rune(s)
	return string(r[:descriptionLimit-1]) + "…"
}

// OrDefault dereferences s, falling back when it is nil or empty.
func OrDefault(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

func Dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
