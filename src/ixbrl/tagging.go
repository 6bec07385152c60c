package ixbrl

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// xmlEscaper covers the characters that must not appear raw in element text
// or attribute values.
var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

func escape(s string) string {
	return xmlEscaper.Replace(s)
}

// tagMoney renders a monetary fact as an ix:nonFraction element. The
// displayed figure is always the absolute magnitude; a negative value is
// indicated by the sign attribute alone.
func tagMoney(sb *strings.Builder, concept, contextRef string, value decimal.Decimal) {
	text, decimals := formatMoney(value.Abs())
	sb.WriteString(`<ix:nonFraction name="`)
	sb.WriteString(escape(concept))
	sb.WriteString(`" contextRef="`)
	sb.WriteString(escape(contextRef))
	sb.WriteString(`" unitRef="` + unitCurrency + `" decimals="`)
	sb.WriteString(decimals)
	sb.WriteString(`" format="ixt:numdotdecimal"`)
	if value.IsNegative() {
		sb.WriteString(` sign="-"`)
	}
	sb.WriteString(">")
	sb.WriteString(text)
	sb.WriteString("</ix:nonFraction>")
}

// tagText renders a narrative fact as an ix:nonNumeric element. The text is
// escaped here; callers pass plain text.
func tagText(sb *strings.Builder, concept, contextRef, text string) {
	sb.WriteString(`<ix:nonNumeric name="`)
	sb.WriteString(escape(concept))
	sb.WriteString(`" contextRef="`)
	sb.WriteString(escape(contextRef))
	sb.WriteString(`">`)
	sb.WriteString(escape(text))
	sb.WriteString("</ix:nonNumeric>")
}

// tagDate renders a date fact with the day-month-year display form the
// transformation registry can normalise back to ISO.
func tagDate(sb *strings.Builder, concept, contextRef string, date time.Time) {
	sb.WriteString(`<ix:nonNumeric name="`)
	sb.WriteString(escape(concept))
	sb.WriteString(`" contextRef="`)
	sb.WriteString(escape(contextRef))
	sb.WriteString(`" format="ixt:datedaymonthyearen">`)
	sb.WriteString(formatDateLong(date))
	sb.WriteString("</ix:nonNumeric>")
}

// formatMoney renders an absolute amount with thousands separators. Whole
// amounts drop the fraction and report decimals="0"; anything else keeps two
// places and reports decimals="2".
func formatMoney(abs decimal.Decimal) (string, string) {
	if abs.Equal(abs.Truncate(0)) {
		return groupThousands(abs.Truncate(0).String()), "0"
	}
	fixed := abs.StringFixed(2)
	dot := strings.LastIndexByte(fixed, '.')
	return groupThousands(fixed[:dot]) + fixed[dot:], "2"
}

// groupThousands inserts comma separators into a non-negative integer string.
func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var sb strings.Builder
	head := n % 3
	if head > 0 {
		sb.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(digits[i : i+3])
	}
	return sb.String()
}

func formatDateLong(t time.Time) string {
	return t.Format("2 January 2006")
}

func formatDateISO(t time.Time) string {
	return t.Format("2006-01-02")
}
