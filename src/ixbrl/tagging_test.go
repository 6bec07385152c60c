package ixbrl

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTagMoney_SignOnlyForNegatives(t *testing.T) {
	var sb strings.Builder
	tagMoney(&sb, "core:OperatingProfitLoss", "cy-duration", decimal.NewFromInt(-4500))
	out := sb.String()
	assert.Contains(t, out, `sign="-"`)
	assert.Contains(t, out, ">4,500<")
	assert.NotContains(t, out, "-4,500")

	sb.Reset()
	tagMoney(&sb, "core:OperatingProfitLoss", "cy-duration", decimal.NewFromInt(4500))
	assert.NotContains(t, sb.String(), "sign=")
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in       string
		want     string
		decimals string
	}{
		{"0", "0", "0"},
		{"999", "999", "0"},
		{"1000", "1,000", "0"},
		{"1234567", "1,234,567", "0"},
		{"1234.5", "1,234.50", "2"},
		{"0.01", "0.01", "2"},
		{"1000000.999", "1,000,001.00", "2"},
	}
	for _, tt := range tests {
		got, decimals := formatMoney(decimal.RequireFromString(tt.in))
		assert.Equal(t, tt.want, got, "input %s", tt.in)
		assert.Equal(t, tt.decimals, decimals, "input %s", tt.in)
	}
}

func TestTagDate_LongFormWithTransformation(t *testing.T) {
	var sb strings.Builder
	tagDate(&sb, "bus:BalanceSheetDate", "cy-instant", time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))
	out := sb.String()
	assert.Contains(t, out, `format="ixt:datedaymonthyearen"`)
	assert.Contains(t, out, ">31 December 2024<")
}

func TestTagText_EscapesContent(t *testing.T) {
	var sb strings.Builder
	tagText(&sb, "bus:DescriptionPrincipalActivities", "cy-duration", `A & B <Ltd>`)
	assert.Contains(t, sb.String(), ">A &amp; B &lt;Ltd&gt;<")
}
