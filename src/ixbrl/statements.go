// backend/src/ixbrl/statements.go
package ixbrl

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/regfolio/backend/src/models"
	"github.com/username/regfolio/backend/src/security/validation"
)

// balanceTolerance is one minor currency unit. Columns whose sides differ by
// more than this are rejected before any tagging happens.
var balanceTolerance = decimal.New(1, -2)

// ImbalanceError reports a balance-sheet column whose net assets do not equal
// shareholders' funds.
type ImbalanceError struct {
	Column      string          // "current" or "prior"
	Discrepancy decimal.Decimal // net assets less shareholders' funds, signed
}

func (e *ImbalanceError) Error() string {
	return fmt.Sprintf("%s balance sheet does not balance: net assets differ from shareholders' funds by %s", e.Column, e.Discrepancy.String())
}

// CheckBalance verifies the accounting identity on every supplied column.
func CheckBalance(bs models.BalanceSheet) error {
	if err := checkColumn("current", bs.Current); err != nil {
		return err
	}
	if bs.Prior != nil {
		return checkColumn("prior", *bs.Prior)
	}
	return nil
}

func checkColumn(column string, f models.BalanceSheetFigures) error {
	diff := f.TotalNetAssets().Sub(f.ShareholdersFunds())
	if diff.Abs().GreaterThan(balanceTolerance) {
		return &ImbalanceError{Column: column, Discrepancy: diff}
	}
	return nil
}

// lineItem is one statement row: its printed label, the taxonomy concept it
// is tagged with, and the column value.
type lineItem struct {
	label   string
	concept string
	value   decimal.Decimal
}

func balanceSheetItems(f models.BalanceSheetFigures) []lineItem {
	return []lineItem{
		{"Fixed assets", "core:FixedAssets", f.FixedAssets},
		{"Current assets", "core:CurrentAssets", f.CurrentAssets},
		{"Creditors: amounts falling due within one year", "core:CreditorsDueWithinOneYear", f.CreditorsWithinOneYear},
		{"Net current assets", "core:NetCurrentAssetsLiabilities", f.NetCurrentAssets()},
		{"Creditors: amounts falling due after more than one year", "core:CreditorsDueAfterOneYear", f.CreditorsAfterOneYear},
		{"Provisions for liabilities", "core:ProvisionsForLiabilities", f.Provisions},
		{"Total net assets", "core:TotalNetAssetsLiabilities", f.TotalNetAssets()},
		{"Called up share capital", "core:CalledUpShareCapital", f.ShareCapital},
		{"Other reserves", "core:OtherReserves", f.OtherReserves},
		{"Profit and loss reserve", "core:RetainedEarnings", f.ProfitLossReserve},
		{"Shareholders' funds", "core:Equity", f.ShareholdersFunds()},
	}
}

func profitAndLossItems(f models.ProfitAndLossFigures) []lineItem {
	return []lineItem{
		{"Turnover", "core:TurnoverRevenue", f.Turnover},
		{"Cost of sales", "core:CostSales", f.CostOfSales},
		{"Gross profit", "core:GrossProfitLoss", f.GrossProfit()},
		{"Other operating income", "core:OtherOperatingIncome", f.OtherOperatingIncome},
		{"Administrative expenses", "core:AdministrativeExpenses", f.AdministrativeCosts},
		{"Operating profit", "core:OperatingProfitLoss", f.OperatingProfit()},
		{"Interest receivable and similar income", "core:InterestReceivable", f.InterestReceivable},
		{"Interest payable and similar expenses", "core:InterestPayable", f.InterestPayable},
		{"Profit before taxation", "core:ProfitLossBeforeTax", f.ProfitBeforeTax()},
		{"Tax on profit", "core:TaxOnProfit", f.TaxOnProfit},
		{"Profit for the financial period", "core:ProfitLossForPeriod", f.ProfitAfterTax()},
	}
}

func cashFlowItems(f models.CashFlowFigures) []lineItem {
	return []lineItem{
		{"Net cash from operating activities", "core:CashFlowsFromOperatingActivities", f.OperatingActivities},
		{"Net cash from investing activities", "core:CashFlowsFromInvestingActivities", f.InvestingActivities},
		{"Net cash from financing activities", "core:CashFlowsFromFinancingActivities", f.FinancingActivities},
		{"Net increase or decrease in cash and cash equivalents", "core:IncreaseDecreaseInCashCashEquivalents", f.NetChange()},
	}
}

func (g *generator) openTable(caption string) {
	g.sb.WriteString("<table>\n")
	g.columnHeads(caption)
	g.sb.WriteString("<tbody>\n")
}

func (g *generator) closeTable() {
	g.sb.WriteString("</tbody></table>\n")
}

// writeRows renders one row per item. Both slices come from the same items
// function, so they are aligned; prior may be nil when there is no
// comparative column.
func (g *generator) writeRows(current, prior []lineItem, currentCtx, priorCtx string) {
	for i, item := range current {
		g.sb.WriteString("<tr><td>")
		g.sb.WriteString(escape(item.label))
		g.sb.WriteString("</td><td>")
		tagMoney(&g.sb, item.concept, currentCtx, item.value)
		g.sb.WriteString("</td>")
		if g.hasPrior {
			g.sb.WriteString("<td>")
			if prior != nil {
				tagMoney(&g.sb, item.concept, priorCtx, prior[i].value)
			}
			g.sb.WriteString("</td>")
		}
		g.sb.WriteString("</tr>\n")
	}
}

func (g *generator) writeProfitAndLoss() {
	pl := g.set.ProfitAndLoss
	g.sb.WriteString("<h2>Profit and loss account</h2>\n<p>For the period ended ")
	g.sb.WriteString(formatDateLong(g.fc.PeriodEnd))
	g.sb.WriteString("</p>\n")
	g.openTable("")

	current := profitAndLossItems(pl.Current)
	var prior []lineItem
	if p := pl.Prior; g.hasPrior && p != nil {
		prior = profitAndLossItems(*p)
	}
	g.writeRows(current, prior, ctxCurrentDuration, ctxPriorDuration)
	g.closeTable()
}

func (g *generator) writeBalanceSheet() {
	bs := g.set.BalanceSheet
	g.sb.WriteString("<h2>Balance sheet</h2>\n<p>As at ")
	tagDate(&g.sb, "bus:BalanceSheetDate", ctxCurrentInstant, g.fc.BalanceSheetDate)
	g.sb.WriteString("</p>\n")
	g.openTable("")

	current := balanceSheetItems(bs.Current)
	var prior []lineItem
	if p := bs.Prior; g.hasPrior && p != nil {
		prior = balanceSheetItems(*p)
	}
	g.writeRows(current, prior, ctxCurrentInstant, ctxPriorInstant)
	g.closeTable()
}

func (g *generator) writeCashFlow() {
	cf := g.set.CashFlow
	g.sb.WriteString("<h2>Statement of cash flows</h2>\n")
	g.openTable("")

	current := cashFlowItems(cf.Current)
	var prior []lineItem
	if p := cf.Prior; g.hasPrior && p != nil {
		prior = cashFlowItems(*p)
	}
	g.writeRows(current, prior, ctxCurrentDuration, ctxPriorDuration)

	// Opening cash is the position at the start of the period, which has no
	// declared context, so it is shown untagged.
	g.sb.WriteString("<tr><td>Cash and cash equivalents at start of period</td><td>")
	g.sb.WriteString(displayMoney(cf.Current.OpeningCash))
	g.sb.WriteString("</td>")
	if g.hasPrior {
		g.sb.WriteString("<td>")
		if cf.Prior != nil {
			g.sb.WriteString(displayMoney(cf.Prior.OpeningCash))
		}
		g.sb.WriteString("</td>")
	}
	g.sb.WriteString("</tr>\n")

	g.sb.WriteString("<tr><td>Cash and cash equivalents at end of period</td><td>")
	tagMoney(&g.sb, "core:CashCashEquivalents", ctxCurrentInstant, cf.Current.ClosingCash())
	g.sb.WriteString("</td>")
	if g.hasPrior {
		g.sb.WriteString("<td>")
		if cf.Prior != nil {
			tagMoney(&g.sb, "core:CashCashEquivalents", ctxPriorInstant, cf.Prior.ClosingCash())
		}
		g.sb.WriteString("</td>")
	}
	g.sb.WriteString("</tr>\n")
	g.closeTable()
}

func (g *generator) writeStrategicReport() {
	sr := g.set.StrategicReport
	g.sb.WriteString("<h2>Strategic report</h2>\n<h3>Principal activities</h3>\n<p>")
	tagText(&g.sb, "bus:DescriptionPrincipalActivities", ctxCurrentDuration, validation.SanitizeNarrative(sr.PrincipalActivities))
	g.sb.WriteString("</p>\n")

	if sr.BusinessReview != "" {
		g.sb.WriteString("<h3>Business review</h3>\n<p>")
		g.sb.WriteString(escape(validation.SanitizeNarrative(sr.BusinessReview)))
		g.sb.WriteString("</p>\n")
	}
	if sr.PrincipalRisks != "" {
		g.sb.WriteString("<h3>Principal risks and uncertainties</h3>\n<p>")
		g.sb.WriteString(escape(validation.SanitizeNarrative(sr.PrincipalRisks)))
		g.sb.WriteString("</p>\n")
	}

	g.sb.WriteString("<p>Approved by ")
	tagText(&g.sb, "core:DirectorSigningFinancialStatements", ctxCurrentDuration, validation.SanitizeNarrative(sr.ApprovedBy))
	if approved, err := time.Parse("2006-01-02", sr.ApprovalDate); err == nil {
		g.sb.WriteString(" on ")
		tagDate(&g.sb, "bus:DateSigningDirectorsReport", ctxCurrentDuration, approved)
	}
	g.sb.WriteString("</p>\n")
}

func (g *generator) writeAccountingPolicies() {
	ap := g.set.AccountingPolicies
	g.sb.WriteString("<h2>Notes to the financial statements</h2>\n<h3>Accounting policies</h3>\n<p>")
	tagText(&g.sb, "core:BasisPreparationFinancialStatements", ctxCurrentDuration, validation.SanitizeNarrative(ap.BasisOfPreparation))
	g.sb.WriteString("</p>\n")

	if ap.TurnoverPolicy != "" {
		g.sb.WriteString("<h4>Turnover</h4>\n<p>")
		tagText(&g.sb, "core:TurnoverPolicy", ctxCurrentDuration, validation.SanitizeNarrative(ap.TurnoverPolicy))
		g.sb.WriteString("</p>\n")
	}
	if ap.DepreciationPolicy != "" {
		g.sb.WriteString("<h4>Tangible fixed assets</h4>\n<p>")
		tagText(&g.sb, "core:TangibleFixedAssetsPolicy", ctxCurrentDuration, validation.SanitizeNarrative(ap.DepreciationPolicy))
		g.sb.WriteString("</p>\n")
	}
}

// displayMoney formats an untagged amount with the same grouping the tagged
// facts use, with a leading minus for negatives.
func displayMoney(d decimal.Decimal) string {
	text, _ := formatMoney(d.Abs())
	if d.IsNegative() {
		return "-" + text
	}
	return text
}
