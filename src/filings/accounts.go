// backend/src/filings/accounts.go
package filings

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/username/regfolio/backend/src/ixbrl"
	"github.com/username/regfolio/backend/src/models"
)

// Message class for the tax-authority gateway.
const (
	ClassCompanyTaxReturn = "HMRC-CT-CT600"

	ctNamespace = "http://www.govtalk.gov.uk/taxation/CT/5"
)

var utrRe = regexp.MustCompile(`^[0-9]{10}$`)

// balanceSheetDateWindow is how far the balance-sheet date may sit from the
// period end.
const balanceSheetDateWindow = 7 * 24 * time.Hour

// ValidateAccounts checks the filing context and statement set, including the
// accounting identity, before any document is generated.
func ValidateAccounts(data models.AccountsData) error {
	v := &models.ValidationError{}
	fc := data.Context

	if !companyNumberRe.MatchString(fc.CompanyNumber) {
		v.Add("context.company_number", "must be an 8 character registered company number")
	}
	if strings.TrimSpace(fc.CompanyName) == "" {
		v.Add("context.company_name", "is required")
	}
	if !utrRe.MatchString(fc.TaxReference) {
		v.Add("context.tax_reference", "must be a 10 digit unique taxpayer reference")
	}

	if fc.PeriodStart.IsZero() || fc.PeriodEnd.IsZero() {
		v.Add("context.period", "period start and end are required")
	} else if !fc.PeriodStart.Before(fc.PeriodEnd) {
		v.Add("context.period", "period start must be before period end")
	} else {
		gap := fc.BalanceSheetDate.Sub(fc.PeriodEnd)
		if gap < 0 {
			gap = -gap
		}
		if gap > balanceSheetDateWindow {
			v.Add("context.balance_sheet_date", "must be within 7 days of the period end")
		}
	}

	supported := false
	for _, c := range models.SupportedCurrencies {
		if fc.Currency == c {
			supported = true
			break
		}
	}
	if !supported {
		v.Add("context.currency", "must be one of "+strings.Join(models.SupportedCurrencies, ", "))
	}
	if !fc.EntitySize.Valid() {
		v.Add("context.entity_size", `must be "micro", "small", "medium" or "large"`)
	}

	if (data.Statements.BalanceSheet.Prior != nil) != fc.HasPriorPeriod() {
		v.Add("context.prior_period", "comparative figures and comparative period dates must be supplied together")
	}
	if fc.HasPriorPeriod() {
		if !fc.PriorPeriodStart.Before(fc.PriorPeriodEnd) {
			v.Add("context.prior_period", "prior period start must be before prior period end")
		} else if fc.PriorPeriodEnd.After(fc.PeriodStart) {
			v.Add("context.prior_period", "prior period must end before the current period starts")
		}
	}

	if sr := data.Statements.StrategicReport; sr != nil {
		if strings.TrimSpace(sr.PrincipalActivities) == "" {
			v.Add("strategic_report.principal_activities", "is required")
		}
		if strings.TrimSpace(sr.ApprovedBy) == "" {
			v.Add("strategic_report.approved_by", "is required")
		}
		if sr.ApprovalDate == "" {
			v.Add("strategic_report.approval_date", "is required")
		} else if _, err := time.Parse(isoDateLayout, sr.ApprovalDate); err != nil {
			v.Add("strategic_report.approval_date", "must be a YYYY-MM-DD date")
		}
	}

	if ap := data.Statements.AccountingPolicies; ap != nil {
		if strings.TrimSpace(ap.BasisOfPreparation) == "" {
			v.Add("accounting_policies.basis_of_preparation", "is required")
		}
	}

	if err := ixbrl.CheckBalance(data.Statements.BalanceSheet); err != nil {
		var imb *ixbrl.ImbalanceError
		if errors.As(err, &imb) {
			v.Add("statements.balance_sheet."+imb.Column,
				fmt.Sprintf("net assets differ from shareholders' funds by %s", imb.Discrepancy))
		} else {
			v.Add("statements.balance_sheet", err.Error())
		}
	}

	return v.OrNil()
}

// BuildAccountsBody maps the filing onto the company tax return schema with
// the packaged accounts attached. The integrity mark element is always
// present; pass the empty string for the provisional render and the computed
// mark for the final one. Everything else is identical between the two.
func BuildAccountsBody(data models.AccountsData, packagedAccounts, irmark string) (string, error) {
	fc := data.Context

	doc := etree.NewDocument()
	env := doc.CreateElement("IRenvelope")
	env.CreateAttr("xmlns", ctNamespace)

	header := env.CreateElement("IRheader")
	key := header.CreateElement("Keys").CreateElement("Key")
	key.CreateAttr("Type", "UTR")
	key.SetText(fc.TaxReference)
	header.CreateElement("PeriodEnd").SetText(fc.PeriodEnd.Format(isoDateLayout))
	header.CreateElement("DefaultCurrency").SetText(fc.Currency)
	mark := header.CreateElement("IRmark")
	mark.CreateAttr("Type", "generic")
	mark.SetText(irmark)
	header.CreateElement("Sender").SetText("Company")

	ret := env.CreateElement("CompanyTaxReturn")
	ret.CreateAttr("ReturnType", "new")

	info := ret.CreateElement("CompanyInformation")
	info.CreateElement("CompanyName").SetText(fc.CompanyName)
	info.CreateElement("RegistrationNumber").SetText(fc.CompanyNumber)
	info.CreateElement("Reference").SetText(fc.TaxReference)
	covered := info.CreateElement("PeriodCovered")
	covered.CreateElement("From").SetText(fc.PeriodStart.Format(isoDateLayout))
	covered.CreateElement("To").SetText(fc.PeriodEnd.Format(isoDateLayout))

	attached := ret.CreateElement("AttachedFiles")
	accounts := attached.CreateElement("Accounts")
	accounts.CreateAttr("Format", "inline-xbrl")
	accounts.CreateElement("EncodedDocument").SetText(packagedAccounts)

	doc.WriteSettings = etree.WriteSettings{CanonicalEndTags: true, CanonicalText: true, CanonicalAttrVal: true}
	return doc.WriteToString()
}
