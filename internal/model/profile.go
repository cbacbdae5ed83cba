package model

// Profile is the full nested record for one investigation subject. Every
// section and slice is non-nil once the profile has been built from the
// schema default (see profile.Default and profile.Normalize).
type Profile struct {
	Identity      Identity      `json:"identity"`
	Professional  Professional  `json:"professional"`
	Locations     Locations     `json:"locations"`
	Contact       Contact       `json:"contact"`
	Digital       Digital       `json:"digital"`
	Breaches      Breaches      `json:"breaches"`
	Network       Network       `json:"network"`
	PublicRecords PublicRecords `json:"public_records"`
	Behavioral    Behavioral    `json:"behavioral"`
	Notes         Notes         `json:"notes"`
}

// Identity holds who the subject is.
type Identity struct {
	FullName    string  `json:"full_name"`
	DateOfBirth string  `json:"date_of_birth"`
	Age         string  `json:"age"`
	Gender      string  `json:"gender"`
	Nationality string  `json:"nationality"`
	Aliases     []Alias `json:"aliases"`
}

// Alias is an alternate name the subject is known by.
type Alias struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"` // "nickname", "maiden", "handle", ...
	AIExtracted bool   `json:"_aiExtracted,omitempty"`
}

// Professional holds employment and education data.
type Professional struct {
	CurrentTitle        string       `json:"current_title"`
	CurrentOrganization string       `json:"current_organization"`
	Industry            string       `json:"industry"`
	Education           []Education  `json:"education"`
	EmploymentHistory   []Employment `json:"employment_history"`
}

// Education is a single school or degree entry.
type Education struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	Year        string `json:"year,omitempty"`
	AIExtracted bool   `json:"_aiExtracted,omitempty"`
}

// Employment is a single past or present position.
type Employment struct {
	Organization string `json:"organization"`
	Title        string `json:"title,omitempty"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
	AIExtracted  bool   `json:"_aiExtracted,omitempty"`
}

// Locations holds known addresses.
type Locations struct {
	Addresses []Address `json:"addresses"`
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Address is a physical address with optional geocode data.
type Address struct {
	Type              string       `json:"type,omitempty"` // "home", "work", "previous"
	Street            string       `json:"street"`
	City              string       `json:"city"`
	State             string       `json:"state"`
	PostalCode        string       `json:"postal_code"`
	Country           string       `json:"country"`
	Current           bool         `json:"current,omitempty"`
	Coordinates       *Coordinates `json:"coordinates,omitempty"`
	GeocodeConfidence *float64     `json:"geocode_confidence,omitempty"`
	FormattedAddress  string       `json:"formatted_address,omitempty"`
	AIExtracted       bool         `json:"_aiExtracted,omitempty"`
}

// Contact holds phone numbers and email addresses.
type Contact struct {
	PhoneNumbers []Phone `json:"phone_numbers"`
	Emails       []Email `json:"emails"`
}

// Phone is a phone number.
type Phone struct {
	Number      string `json:"number"`
	Type        string `json:"type,omitempty"`
	Carrier     string `json:"carrier,omitempty"`
	AIExtracted bool   `json:"_aiExtracted,omitempty"`
}

// EmailCheckStatus records whether an email has been breach-checked.
type EmailCheckStatus string

// EmailStatusChecked marks an email already run through the breach provider.
const EmailStatusChecked EmailCheckStatus = "checked"

// EmailEnrichment is stamped on an email after a breach check.
type EmailEnrichment struct {
	LastChecked   string           `json:"last_checked"`
	BreachesFound int              `json:"breaches_found"`
	Status        EmailCheckStatus `json:"status"`
}

// Email is an email address with optional enrichment metadata.
type Email struct {
	Address     string           `json:"address"`
	Type        string           `json:"type,omitempty"`
	Verified    bool             `json:"verified,omitempty"`
	Enrichment  *EmailEnrichment `json:"enrichment,omitempty"`
	AIExtracted bool             `json:"_aiExtracted,omitempty"`
}

// Checked reports whether the email was already breach-checked.
func (e Email) Checked() bool {
	return e.Enrichment != nil && e.Enrichment.Status == EmailStatusChecked
}

// Digital holds online presence data.
type Digital struct {
	SocialAccounts []SocialAccount `json:"social_accounts"`
	BrokerListings []BrokerListing `json:"broker_listings"`
}

// SocialAccount is a profile on a social platform.
type SocialAccount struct {
	Platform     string `json:"platform"`
	Handle       string `json:"handle,omitempty"`
	URL          string `json:"url,omitempty"`
	Visibility   string `json:"visibility,omitempty"` // "public", "private", "unknown"
	Followers    *int   `json:"followers,omitempty"`
	Verified     bool   `json:"verified,omitempty"`
	VerifiedDate string `json:"verified_date,omitempty"`
	Notes        string `json:"notes,omitempty"`
	AIExtracted  bool   `json:"_aiExtracted,omitempty"`
}

// BrokerListingStatus tracks review state of a data-broker listing.
type BrokerListingStatus string

// Broker listing states.
const (
	BrokerPendingCheck BrokerListingStatus = "pending_check"
	BrokerFound        BrokerListingStatus = "found"
	BrokerNotFound     BrokerListingStatus = "not_found"
	BrokerOptedOut     BrokerListingStatus = "opted_out"
)

// BrokerListing is a data-broker site that may list the subject.
type BrokerListing struct {
	Broker      string              `json:"broker"`
	URL         string              `json:"url"`
	Status      BrokerListingStatus `json:"status"`
	Source      string              `json:"source,omitempty"`
	Notes       string              `json:"notes,omitempty"`
	AIExtracted bool                `json:"_aiExtracted,omitempty"`
}

// Breaches holds breach exposure records.
type Breaches struct {
	Records []BreachRecord `json:"records"`
}

// Network holds relationships.
type Network struct {
	FamilyMembers []Relation `json:"family_members"`
	Associates    []Relation `json:"associates"`
}

// Relation is a person connected to the subject.
type Relation struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship,omitempty"`
	Notes        string `json:"notes,omitempty"`
	AIExtracted  bool   `json:"_aiExtracted,omitempty"`
}

// PublicRecords holds records from public registries.
type PublicRecords struct {
	CorporateFilings []CorporateFiling `json:"corporate_filings"`
	CourtRecords     []CourtRecord     `json:"court_records"`
	PropertyRecords  []PropertyRecord  `json:"property_records"`
}

// CorporateFiling is a registered company linked to the subject.
type CorporateFiling struct {
	EntityName        string `json:"entity_name"`
	Jurisdiction      string `json:"jurisdiction,omitempty"`
	CompanyNumber     string `json:"company_number,omitempty"`
	Status            string `json:"status,omitempty"`
	IncorporationDate string `json:"incorporation_date,omitempty"`
	RegisteredAddress string `json:"registered_address,omitempty"`
	Role              string `json:"role,omitempty"`
	URL               string `json:"url,omitempty"`
	Source            string `json:"source,omitempty"`
	AIExtracted       bool   `json:"_aiExtracted,omitempty"`
}

// CourtRecord is a court case involving the subject.
type CourtRecord struct {
	CaseNumber  string `json:"case_number,omitempty"`
	Court       string `json:"court,omitempty"`
	Type        string `json:"type,omitempty"`
	Date        string `json:"date,omitempty"`
	Description string `json:"description,omitempty"`
	AIExtracted bool   `json:"_aiExtracted,omitempty"`
}

// PropertyRecord is real property owned or associated with the subject.
type PropertyRecord struct {
	Address     string `json:"address"`
	Type        string `json:"type,omitempty"`
	Value       string `json:"value,omitempty"`
	Date        string `json:"date,omitempty"`
	AIExtracted bool   `json:"_aiExtracted,omitempty"`
}

// Behavioral holds observed patterns.
type Behavioral struct {
	Routines       []Routine       `json:"routines"`
	TravelPatterns []TravelPattern `json:"travel_patterns"`
}

// Routine is a recurring activity.
type Routine struct {
	Description string `json:"description"`
	Frequency   string `json:"frequency,omitempty"`
	Location    string `json:"location,omitempty"`
	AIExtracted bool   `json:"_aiExtracted,omitempty"`
}

// TravelPattern is a recurring trip or destination.
type TravelPattern struct {
	Destination string `json:"destination"`
	Frequency   string `json:"frequency,omitempty"`
	Purpose     string `json:"purpose,omitempty"`
	AIExtracted bool   `json:"_aiExtracted,omitempty"`
}

// Notes holds free-form analyst notes.
type Notes struct {
	General string `json:"general"`
}

// MarkAIExtracted tags the record as inserted by automated extraction.
func (a *Alias) MarkAIExtracted() { a.AIExtracted = true }

// MarkAIExtracted tags the record as inserted by automated extraction.
func (e *Education) MarkAIExtracted() { e.AIExtracted = true }

// MarkAIExtracted tags the record as inserted by automated extraction.
func (e *Employment) MarkAIExtracted() { e.AIExtracted = true }

// MarkAIExtracted tags the record as inserted by automated extraction.
func (a *Address) MarkAIExtracted() { a.AIExtracted = true }

// MarkAIExtracted tags the record as inserted by automated extraction.
func (p *Phone) MarkAIExtracted() { p.AIExtracted = true }

// MarkAIExtracted tags the record as inserted by automated extraction.
func (e *Email) MarkAIExtracted() { e.AIExtracted = true }

// MarkAIExtracted tags the record as inserted by automated extraction.
func (s *SocialAccount) MarkAIExtracted() { s.AIExtracted = true }

// MarkAIExtracted tags the record as inserted by automated extraction.
func (b *BrokerListing) MarkAIExtracted() { b.AIExtracted = true }

// MarkAIExtracted tags the record as inserted by automated extraction.
func (b *BreachRecord) MarkAIExtracted() { b.AIExtracted = true }

// MarkAIExtracted tags the record as inserted by automated extraction.
func (r *Relation) MarkAIExtracted() { r.AIExtracted = true }

// MarkAIExtracted tags the record as inserted by automated extraction.
func (c *CorporateFiling) MarkAIExtracted() { c.AIExtracted = true }

// MarkAIExtracted tags the record as inserted by automated extraction.
func (c *CourtRecord) MarkAIExtracted() { c.AIExtracted = true }

// MarkAIExtracted tags the record as inserted by automated extraction.
func (p *PropertyRecord) MarkAIExtracted() { p.AIExtracted = true }

// MarkAIExtracted tags the record as inserted by automated extraction.
func (r *Routine) MarkAIExtracted() { r.AIExtracted = true }

// MarkAIExtracted tags the record as inserted by automated extraction.
func (t *TravelPattern) MarkAIExtracted() { t.AIExtracted = true }
