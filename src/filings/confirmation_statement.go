// backend/src/filings/confirmation_statement.go
package filings

import (
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/username/regfolio/backend/src/models"
)

// Message classes and form identifiers for the registrar gateway.
const (
	ClassConfirmationStatement = "ConfirmationStatement"
	formConfirmationStatement  = "CS01"

	formHeaderNamespace = "http://xmlgw.companieshouse.gov.uk/Header"
	formNamespace       = "http://xmlgw.companieshouse.gov.uk"
)

var (
	companyNumberRe = regexp.MustCompile(`^(?:[0-9]{8}|[A-Z]{2}[0-9]{6})$`)
	sicCodeRe       = regexp.MustCompile(`^[0-9]{5}$`)
	isoDateLayout   = "2006-01-02"
)

// ValidateConfirmationStatement checks the payload before any XML is built or
// credit charged. Every problem is collected so the caller sees them all.
func ValidateConfirmationStatement(data models.ConfirmationStatementData) error {
	v := &models.ValidationError{}

	if !companyNumberRe.MatchString(data.CompanyNumber) {
		v.Add("company_number", "must be an 8 character registered company number")
	}
	if strings.TrimSpace(data.CompanyName) == "" {
		v.Add("company_name", "is required")
	}
	if strings.TrimSpace(data.CompanyAuthCode) == "" {
		v.Add("company_auth_code", "is required")
	}

	if data.MadeUpDate == "" {
		v.Add("made_up_date", "is required")
	} else if madeUp, err := time.Parse(isoDateLayout, data.MadeUpDate); err != nil {
		v.Add("made_up_date", "must be a YYYY-MM-DD date")
	} else if madeUp.After(time.Now()) {
		v.Add("made_up_date", "must not be in the future")
	}

	if _, err := mail.ParseAddress(data.ContactEmail); err != nil {
		v.Add("contact_email", "must be a valid email address")
	}

	if len(data.SICCodes) == 0 {
		v.Add("sic_codes", "at least one SIC code is required")
	}
	for i, code := range data.SICCodes {
		if !sicCodeRe.MatchString(code) {
			v.Add(fmt.Sprintf("sic_codes[%d]", i), "must be a 5 digit SIC code")
		}
	}

	if len(data.Officers) == 0 {
		v.Add("officers", "at least one officer is required")
	}
	for i, o := range data.Officers {
		field := fmt.Sprintf("officers[%d]", i)
		if o.Type != "director" && o.Type != "secretary" {
			v.Add(field+".type", `must be "director" or "secretary"`)
		}
		if strings.TrimSpace(o.FirstName) == "" {
			v.Add(field+".first_name", "is required")
		}
		if strings.TrimSpace(o.LastName) == "" {
			v.Add(field+".last_name", "is required")
		}
	}

	if len(data.ShareClasses) == 0 {
		v.Add("share_classes", "at least one share class is required")
	}
	classNames := make(map[string]bool, len(data.ShareClasses))
	for i, sc := range data.ShareClasses {
		field := fmt.Sprintf("share_classes[%d]", i)
		if strings.TrimSpace(sc.ClassName) == "" {
			v.Add(field+".class_name", "is required")
		}
		if sc.SharesIssued <= 0 {
			v.Add(field+".shares_issued", "must be positive")
		}
		classNames[sc.ClassName] = true
	}

	if len(data.Shareholders) == 0 {
		v.Add("shareholders", "at least one shareholder is required")
	}
	for i, sh := range data.Shareholders {
		field := fmt.Sprintf("shareholders[%d]", i)
		if strings.TrimSpace(sh.Name) == "" {
			v.Add(field+".name", "is required")
		}
		if sh.Shares <= 0 {
			v.Add(field+".shares", "must be positive")
		}
		if !classNames[sh.ShareClass] {
			v.Add(field+".share_class", "does not match a declared share class")
		}
	}

	for i, psc := range data.PSCs {
		field := fmt.Sprintf("pscs[%d]", i)
		if strings.TrimSpace(psc.Name) == "" {
			v.Add(field+".name", "is required")
		}
		if psc.NotificationDate != "" {
			if _, err := time.Parse(isoDateLayout, psc.NotificationDate); err != nil {
				v.Add(field+".notification_date", "must be a YYYY-MM-DD date")
			}
		}
		if len(psc.NaturesOfControl) == 0 {
			v.Add(field+".natures_of_control", "at least one nature of control is required")
		}
	}

	if data.TradedOnMarket && strings.TrimSpace(data.MarketName) == "" {
		v.Add("market_name", "is required when the company trades on a market")
	}
	if !data.TradedOnMarket && data.MarketName != "" {
		v.Add("market_name", "must be empty when the company does not trade on a market")
	}

	if data.RegistersHeldAt != "" && data.RegistersHeldAt != "registered-office" && data.RegistersHeldAt != "sail" {
		v.Add("registers_held_at", `must be "registered-office" or "sail"`)
	}

	return v.OrNil()
}

// BuildConfirmationStatementBody maps the validated payload onto the registrar
// form schema. Pure: the same data and submission id always produce the same
// fragment.
func BuildConfirmationStatementBody(data models.ConfirmationStatementData, submissionID string) (string, error) {
	doc := etree.NewDocument()
	sub := doc.CreateElement("FormSubmission")
	sub.CreateAttr("xmlns", formHeaderNamespace)

	header := sub.CreateElement("FormHeader")
	header.CreateElement("CompanyNumber").SetText(data.CompanyNumber)
	header.CreateElement("CompanyAuthenticationCode").SetText(data.CompanyAuthCode)
	header.CreateElement("CompanyName").SetText(data.CompanyName)
	header.CreateElement("Language").SetText("EN")
	header.CreateElement("FormIdentifier").SetText(formConfirmationStatement)
	header.CreateElement("SubmissionNumber").SetText(submissionID)

	sub.CreateElement("DateSigned").SetText(data.MadeUpDate)

	form := sub.CreateElement("Form")
	cs := form.CreateElement("ConfirmationStatement")
	cs.CreateAttr("xmlns", formNamespace)
	cs.CreateElement("MadeUpDate").SetText(data.MadeUpDate)

	if data.TradedOnMarket {
		cs.CreateElement("TradingOnMarket").SetText("true")
		cs.CreateElement("MarketName").SetText(data.MarketName)
	} else {
		cs.CreateElement("TradingOnMarket").SetText("false")
	}

	codes := cs.CreateElement("SICCodes")
	for _, code := range data.SICCodes {
		codes.CreateElement("SICCode").SetText(code)
	}

	if data.StatementOfCapital {
		capital := cs.CreateElement("StatementOfCapital").CreateElement("Capital")
		for _, sc := range data.ShareClasses {
			class := capital.CreateElement("ShareClass")
			class.CreateElement("ShareClassName").SetText(sc.ClassName)
			class.CreateElement("NumShares").SetText(strconv.FormatInt(sc.SharesIssued, 10))
			class.CreateElement("AggregateNominalValue").SetText(sc.AggregateNominalValue)
		}
	}

	holdings := cs.CreateElement("Shareholdings")
	for _, sh := range data.Shareholders {
		holding := holdings.CreateElement("Shareholding")
		holding.CreateElement("ShareClass").SetText(sh.ShareClass)
		holding.CreateElement("NumberHeld").SetText(strconv.FormatInt(sh.Shares, 10))
		holding.CreateElement("Shareholder").CreateElement("Name").SetText(sh.Name)
	}

	officers := cs.CreateElement("Officers")
	for _, o := range data.Officers {
		officer := officers.CreateElement("Officer")
		officer.CreateElement("Type").SetText(o.Type)
		if o.Title != "" {
			officer.CreateElement("Title").SetText(o.Title)
		}
		officer.CreateElement("Forename").SetText(o.FirstName)
		officer.CreateElement("Surname").SetText(o.LastName)
		if o.DateOfBirth != "" {
			officer.CreateElement("DOB").SetText(o.DateOfBirth)
		}
		if o.Nationality != "" {
			officer.CreateElement("Nationality").SetText(o.Nationality)
		}
		if o.Occupation != "" {
			officer.CreateElement("Occupation").SetText(o.Occupation)
		}
		if o.Address != "" {
			officer.CreateElement("Address").SetText(o.Address)
		}
	}

	if len(data.PSCs) > 0 {
		pscs := cs.CreateElement("PersonsOfSignificantControl")
		for _, p := range data.PSCs {
			psc := pscs.CreateElement("PSC")
			psc.CreateElement("Name").SetText(p.Name)
			if p.NotificationDate != "" {
				psc.CreateElement("NotificationDate").SetText(p.NotificationDate)
			}
			natures := psc.CreateElement("NaturesOfControl")
			for _, nature := range p.NaturesOfControl {
				natures.CreateElement("NatureOfControl").SetText(nature)
			}
		}
	}

	if data.RegistersHeldAt != "" {
		cs.CreateElement("RegistersHeldAt").SetText(data.RegistersHeldAt)
	}
	cs.CreateElement("ContactEmail").SetText(data.ContactEmail)

	doc.WriteSettings = etree.WriteSettings{CanonicalEndTags: true, CanonicalText: true, CanonicalAttrVal: true}
	return doc.WriteToString()
}
