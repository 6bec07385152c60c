package models

import "github.com/shopspring/decimal"

// BalanceSheetFigures are the tagged line items for one balance-sheet column.
// Liabilities are entered as positive amounts owed.
type BalanceSheetFigures struct {
	FixedAssets            decimal.Decimal `json:"fixed_assets"`
	CurrentAssets          decimal.Decimal `json:"current_assets"`
	CreditorsWithinOneYear decimal.Decimal `json:"creditors_within_one_year"`
	CreditorsAfterOneYear  decimal.Decimal `json:"creditors_after_one_year"`
	Provisions             decimal.Decimal `json:"provisions"`
	ShareCapital           decimal.Decimal `json:"share_capital"`
	OtherReserves          decimal.Decimal `json:"other_reserves"`
	ProfitLossReserve      decimal.Decimal `json:"profit_loss_reserve"`
}

// NetCurrentAssets is current assets less creditors falling due within one year.
func (f BalanceSheetFigures) NetCurrentAssets() decimal.Decimal {
	return f.CurrentAssets.Sub(f.CreditorsWithinOneYear)
}

// TotalNetAssets is total assets less all liabilities and provisions.
func (f BalanceSheetFigures) TotalNetAssets() decimal.Decimal {
	return f.FixedAssets.Add(f.NetCurrentAssets()).Sub(f.CreditorsAfterOneYear).Sub(f.Provisions)
}

// ShareholdersFunds is the equity side of the balance sheet.
func (f BalanceSheetFigures) ShareholdersFunds() decimal.Decimal {
	return f.ShareCapital.Add(f.OtherReserves).Add(f.ProfitLossReserve)
}

// BalanceSheet holds the current column and an optional comparative column.
type BalanceSheet struct {
	Current BalanceSheetFigures  `json:"current"`
	Prior   *BalanceSheetFigures `json:"prior,omitempty"`
}

// ProfitAndLossFigures are the tagged line items for one income-statement column.
// Costs are entered as positive amounts.
type ProfitAndLossFigures struct {
	Turnover             decimal.Decimal `json:"turnover"`
	CostOfSales          decimal.Decimal `json:"cost_of_sales"`
	AdministrativeCosts  decimal.Decimal `json:"administrative_costs"`
	OtherOperatingIncome decimal.Decimal `json:"other_operating_income"`
	InterestReceivable   decimal.Decimal `json:"interest_receivable"`
	InterestPayable      decimal.Decimal `json:"interest_payable"`
	TaxOnProfit          decimal.Decimal `json:"tax_on_profit"`
}

// GrossProfit is turnover less cost of sales.
func (f ProfitAndLossFigures) GrossProfit() decimal.Decimal {
	return f.Turnover.Sub(f.CostOfSales)
}

// OperatingProfit is gross profit plus other operating income less administrative costs.
func (f ProfitAndLossFigures) OperatingProfit() decimal.Decimal {
	return f.GrossProfit().Add(f.OtherOperatingIncome).Sub(f.AdministrativeCosts)
}

// ProfitBeforeTax adds net interest to operating profit.
func (f ProfitAndLossFigures) ProfitBeforeTax() decimal.Decimal {
	return f.OperatingProfit().Add(f.InterestReceivable).Sub(f.InterestPayable)
}

// ProfitAfterTax is the result for the financial period.
func (f ProfitAndLossFigures) ProfitAfterTax() decimal.Decimal {
	return f.ProfitBeforeTax().Sub(f.TaxOnProfit)
}

// ProfitAndLoss holds the current column and an optional comparative column.
type ProfitAndLoss struct {
	Current ProfitAndLossFigures  `json:"current"`
	Prior   *ProfitAndLossFigures `json:"prior,omitempty"`
}

// CashFlowFigures are the tagged line items for one cash-flow column.
// Outflows are negative.
type CashFlowFigures struct {
	OperatingActivities decimal.Decimal `json:"operating_activities"`
	InvestingActivities decimal.Decimal `json:"investing_activities"`
	FinancingActivities decimal.Decimal `json:"financing_activities"`
	OpeningCash         decimal.Decimal `json:"opening_cash"`
}

// NetChange is the total movement in cash for the period.
func (f CashFlowFigures) NetChange() decimal.Decimal {
	return f.OperatingActivities.Add(f.InvestingActivities).Add(f.FinancingActivities)
}

// ClosingCash is opening cash plus the net movement.
func (f CashFlowFigures) ClosingCash() decimal.Decimal {
	return f.OpeningCash.Add(f.NetChange())
}

// CashFlow holds the current column and an optional comparative column.
type CashFlow struct {
	Current CashFlowFigures  `json:"current"`
	Prior   *CashFlowFigures `json:"prior,omitempty"`
}

// StrategicReport carries the directors' narrative sections. Text is
// sanitized before it is embedded in the tagged document.
type StrategicReport struct {
	PrincipalActivities string `json:"principal_activities"`
	BusinessReview      string `json:"business_review,omitempty"`
	PrincipalRisks      string `json:"principal_risks,omitempty"`
	ApprovedBy          string `json:"approved_by"`
	ApprovalDate        string `json:"approval_date"` // YYYY-MM-DD
}

// AccountingPolicies carries the policy notes disclosed alongside the
// statements. Text is sanitized before it is embedded in the tagged document.
type AccountingPolicies struct {
	BasisOfPreparation string `json:"basis_of_preparation"`
	TurnoverPolicy     string `json:"turnover_policy,omitempty"`
	DepreciationPolicy string `json:"depreciation_policy,omitempty"`
}

// FinancialStatementSet is the full statement bundle for one accounts filing.
// Balance sheet and profit and loss are always present; the rest are optional.
type FinancialStatementSet struct {
	BalanceSheet       BalanceSheet        `json:"balance_sheet"`
	ProfitAndLoss      ProfitAndLoss       `json:"profit_and_loss"`
	CashFlow           *CashFlow           `json:"cash_flow,omitempty"`
	StrategicReport    *StrategicReport    `json:"strategic_report,omitempty"`
	AccountingPolicies *AccountingPolicies `json:"accounting_policies,omitempty"`
}

// AccountsData is the request payload for an annual accounts filing.
type AccountsData struct {
	Context    FilingContext         `json:"context"`
	Statements FinancialStatementSet `json:"statements"`
}
