// backend/src/ixbrl/document.go
package ixbrl

import (
	"fmt"
	"strings"

	"github.com/username/regfolio/backend/src/models"
)

// Context and unit identifiers. Contexts are declared once in the document
// header and referenced by every tagged fact.
const (
	ctxCurrentDuration = "cy-duration"
	ctxCurrentInstant  = "cy-instant"
	ctxPriorDuration   = "py-duration"
	ctxPriorInstant    = "py-instant"
	unitCurrency       = "currency"
	unitPure           = "pure"
)

const companyRegisterScheme = "http://www.companieshouse.gov.uk/"

// Document is one generated inline-XBRL report ready for packaging.
type Document struct {
	Name    string // archive entry name
	Title   string
	Content string // full XHTML document
}

// Generate produces the tagged accounts document for one filing. The
// balance-sheet identity is enforced before any tagging happens; a set that
// does not balance is rejected with the discrepancy.
func Generate(fc models.FilingContext, set models.FinancialStatementSet) (*Document, error) {
	if err := CheckBalance(set.BalanceSheet); err != nil {
		return nil, err
	}
	schemaRef, regimeNote, err := reportingRegime(fc.EntitySize)
	if err != nil {
		return nil, err
	}

	g := &generator{
		fc:       fc,
		set:      set,
		hasPrior: fc.HasPriorPeriod(),
	}
	content := g.render(schemaRef, regimeNote)

	return &Document{
		Name:    fmt.Sprintf("%s-accounts-%s.html", fc.CompanyNumber, formatDateISO(fc.PeriodEnd)),
		Title:   fmt.Sprintf("%s — Annual accounts for the period ended %s", fc.CompanyName, formatDateLong(fc.PeriodEnd)),
		Content: content,
	}, nil
}

// reportingRegime maps the entity size classification onto the taxonomy
// schema and the preparation note shown in the document. The classification
// set is closed.
func reportingRegime(size models.EntitySize) (string, string, error) {
	switch size {
	case models.EntitySizeMicro:
		return "https://xbrl.frc.org.uk/FRS-105/2023-01-01/FRS-105-2023-01-01.xsd",
			"These financial statements have been prepared in accordance with FRS 105, the Financial Reporting Standard applicable to the Micro-entities Regime.", nil
	case models.EntitySizeSmall:
		return "https://xbrl.frc.org.uk/FRS-102/2023-01-01/FRS-102-2023-01-01.xsd",
			"These financial statements have been prepared in accordance with Section 1A of FRS 102, the Financial Reporting Standard applicable in the UK and Republic of Ireland.", nil
	case models.EntitySizeMedium:
		return "https://xbrl.frc.org.uk/FRS-102/2023-01-01/FRS-102-2023-01-01.xsd",
			"These financial statements have been prepared in accordance with FRS 102, the Financial Reporting Standard applicable in the UK and Republic of Ireland.", nil
	case models.EntitySizeLarge:
		return "https://xbrl.frc.org.uk/IFRS/2023-01-01/IFRS-2023-01-01.xsd",
			"These financial statements have been prepared in accordance with UK-adopted international accounting standards.", nil
	default:
		return "", "", fmt.Errorf("unrecognised entity size %q", string(size))
	}
}

type generator struct {
	fc       models.FilingContext
	set      models.FinancialStatementSet
	hasPrior bool
	sb       strings.Builder
}

func (g *generator) render(schemaRef, regimeNote string) string {
	g.writeOpening()
	g.writeHeader(schemaRef)
	g.writeTitle(regimeNote)
	if g.set.StrategicReport != nil {
		g.writeStrategicReport()
	}
	g.writeProfitAndLoss()
	g.writeBalanceSheet()
	if g.set.CashFlow != nil {
		g.writeCashFlow()
	}
	if g.set.AccountingPolicies != nil {
		g.writeAccountingPolicies()
	}
	g.writeClosing()
	return g.sb.String()
}

func (g *generator) writeOpening() {
	g.sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	g.sb.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml"` +
		` xmlns:ix="http://www.xbrl.org/2013/inlineXBRL"` +
		` xmlns:ixt="http://www.xbrl.org/inlineXBRL/transformation/2015-02-26"` +
		` xmlns:xbrli="http://www.xbrl.org/2003/instance"` +
		` xmlns:link="http://www.xbrl.org/2003/linkbase"` +
		` xmlns:xlink="http://www.w3.org/1999/xlink"` +
		` xmlns:iso4217="http://www.xbrl.org/2003/iso4217"` +
		` xmlns:core="http://xbrl.frc.org.uk/fr/2023-01-01/core"` +
		` xmlns:bus="http://xbrl.frc.org.uk/cd/2023-01-01/business">` + "\n")
	g.sb.WriteString("<head><title>")
	g.sb.WriteString(escape(g.fc.CompanyName))
	g.sb.WriteString(" — Annual Accounts</title></head>\n<body>\n")
}

// writeHeader declares every context and unit once. Facts throughout the
// document refer back to these ids.
func (g *generator) writeHeader(schemaRef string) {
	g.sb.WriteString(`<div style="display:none"><ix:header><ix:references>`)
	g.sb.WriteString(`<link:schemaRef xlink:type="simple" xlink:href="`)
	g.sb.WriteString(escape(schemaRef))
	g.sb.WriteString(`"/></ix:references><ix:resources>`)

	g.writeDurationContext(ctxCurrentDuration, formatDateISO(g.fc.PeriodStart), formatDateISO(g.fc.PeriodEnd))
	g.writeInstantContext(ctxCurrentInstant, formatDateISO(g.fc.BalanceSheetDate))
	if g.hasPrior {
		g.writeDurationContext(ctxPriorDuration, formatDateISO(g.fc.PriorPeriodStart), formatDateISO(g.fc.PriorPeriodEnd))
		g.writeInstantContext(ctxPriorInstant, formatDateISO(g.fc.PriorPeriodEnd))
	}

	g.sb.WriteString(`<xbrli:unit id="` + unitCurrency + `"><xbrli:measure>iso4217:`)
	g.sb.WriteString(escape(g.fc.Currency))
	g.sb.WriteString(`</xbrli:measure></xbrli:unit>`)
	g.sb.WriteString(`<xbrli:unit id="` + unitPure + `"><xbrli:measure>xbrli:pure</xbrli:measure></xbrli:unit>`)
	g.sb.WriteString(`</ix:resources></ix:header></div>` + "\n")
}

func (g *generator) writeDurationContext(id, start, end string) {
	g.sb.WriteString(`<xbrli:context id="` + id + `">`)
	g.writeContextEntity()
	g.sb.WriteString(`<xbrli:period><xbrli:startDate>` + start + `</xbrli:startDate><xbrli:endDate>` + end + `</xbrli:endDate></xbrli:period></xbrli:context>`)
}

func (g *generator) writeInstantContext(id, instant string) {
	g.sb.WriteString(`<xbrli:context id="` + id + `">`)
	g.writeContextEntity()
	g.sb.WriteString(`<xbrli:period><xbrli:instant>` + instant + `</xbrli:instant></xbrli:period></xbrli:context>`)
}

func (g *generator) writeContextEntity() {
	g.sb.WriteString(`<xbrli:entity><xbrli:identifier scheme="` + companyRegisterScheme + `">`)
	g.sb.WriteString(escape(g.fc.CompanyNumber))
	g.sb.WriteString(`</xbrli:identifier></xbrli:entity>`)
}

func (g *generator) writeTitle(regimeNote string) {
	g.sb.WriteString("<h1>")
	tagText(&g.sb, "bus:EntityCurrentLegalOrRegisteredName", ctxCurrentDuration, g.fc.CompanyName)
	g.sb.WriteString("</h1>\n<p>Registered number: ")
	tagText(&g.sb, "bus:UKCompaniesHouseRegisteredNumber", ctxCurrentDuration, g.fc.CompanyNumber)
	g.sb.WriteString("</p>\n<p>Annual report and financial statements for the period ")
	tagDate(&g.sb, "bus:StartDateForPeriodCoveredByReport", ctxCurrentDuration, g.fc.PeriodStart)
	g.sb.WriteString(" to ")
	tagDate(&g.sb, "bus:EndDateForPeriodCoveredByReport", ctxCurrentDuration, g.fc.PeriodEnd)
	g.sb.WriteString("</p>\n<p>")
	g.sb.WriteString(escape(regimeNote))
	g.sb.WriteString("</p>\n")
}

func (g *generator) writeClosing() {
	g.sb.WriteString("</body>\n</html>\n")
}

// columnHeads renders the two-column (or one-column) table head shared by
// the statement sections.
func (g *generator) columnHeads(label string) {
	g.sb.WriteString("<thead><tr><th>" + escape(label) + "</th><th>")
	g.sb.WriteString(formatDateISO(g.fc.PeriodEnd)[:4])
	g.sb.WriteString("</th>")
	if g.hasPrior {
		g.sb.WriteString("<th>")
		g.sb.WriteString(formatDateISO(g.fc.PriorPeriodEnd)[:4])
		g.sb.WriteString("</th>")
	}
	g.sb.WriteString("</tr></thead>\n")
}
