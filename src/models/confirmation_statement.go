package models

// Officer is a company officer listed on a confirmation statement.
type Officer struct {
	Type        string `json:"type"` // "director" or "secretary"
	Title       string `json:"title,omitempty"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth,omitempty"` // YYYY-MM-DD, directors only
	Nationality string `json:"nationality,omitempty"`
	Occupation  string `json:"occupation,omitempty"`
	Address     string `json:"address,omitempty"`
}

// PersonOfSignificantControl is a PSC register entry.
type PersonOfSignificantControl struct {
	Name             string   `json:"name"`
	NotificationDate string   `json:"notification_date"` // YYYY-MM-DD
	NaturesOfControl []string `json:"natures_of_control"`
}

// ShareClass describes one class of issued shares.
type ShareClass struct {
	ClassName             string `json:"class_name"`
	SharesIssued          int64  `json:"shares_issued"`
	AggregateNominalValue string `json:"aggregate_nominal_value"` // decimal string in company currency
}

// Shareholder is a member holding shares at the made-up date.
type Shareholder struct {
	Name       string `json:"name"`
	ShareClass string `json:"share_class"`
	Shares     int64  `json:"shares"`
}

// ConfirmationStatementData is everything the registrar needs for a
// confirmation statement submission.
type ConfirmationStatementData struct {
	CompanyNumber      string                       `json:"company_number"`
	CompanyName        string                       `json:"company_name"`
	CompanyAuthCode    string                       `json:"company_auth_code"` // company authentication code held by the presenter
	MadeUpDate         string                       `json:"made_up_date"`      // YYYY-MM-DD
	SICCodes           []string                     `json:"sic_codes"`
	Officers           []Officer                    `json:"officers"`
	PSCs               []PersonOfSignificantControl `json:"pscs,omitempty"`
	ShareClasses       []ShareClass                 `json:"share_classes"`
	Shareholders       []Shareholder                `json:"shareholders"`
	RegistersHeldAt    string                       `json:"registers_held_at,omitempty"` // "registered-office" or "sail"
	TradedOnMarket     bool                         `json:"traded_on_market"`
	MarketName         string                       `json:"market_name,omitempty"`
	ContactEmail       string                       `json:"contact_email"`
	StatementOfCapital bool                         `json:"statement_of_capital"` // include full capital statement rather than no-change confirmation
}
