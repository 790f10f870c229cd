package model

import (
	"strings"
	"time"
)

// CheckStatus is the verdict status written back for a lead.
type CheckStatus string

const (
	StatusDuplicate CheckStatus = "duplicate"
	StatusUnique    CheckStatus = "unique"
)

// Reason is the machine-readable reason code behind a verdict.
type Reason string

const (
	ReasonContactDuplicate Reason = "contact_duplicate"
	ReasonDealExists       Reason = "deal_exists"
	ReasonAlohaCampExists  Reason = "alohacamp_exists"
	ReasonNewLead          Reason = "new_lead"
)

// MatchType identifies which strategy produced a match.
type MatchType string

const (
	MatchEmail     MatchType = "email"
	MatchPhone     MatchType = "phone"
	MatchName      MatchType = "name"
	MatchDeal      MatchType = "deal"
	MatchDirectory MatchType = "directory"
)

// Category tags a candidate with the external object type it came from.
type Category string

const (
	CategoryContact   Category = "contact"
	CategoryDeal      Category = "deal"
	CategoryDirectory Category = "directory"
)

// Lead is a prospective contact/property record awaiting duplicate
// resolution. It is read-only input to the cascade; the store owns it.
type Lead struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Company      string `json:"company"`
	PropertyName string `json:"property_name"`
	City         string `json:"city"`
	Country      string `json:"country"`
	// ZerobounceStatus is the email validation verdict set at import
	// time. Only leads with status "valid" are eligible for checking.
	ZerobounceStatus string `json:"zerobounce_status,omitempty"`
}

// Candidate is a record returned by a remote search, proposed as a
// possible match for a lead. Adapters translate heterogeneous upstream
// response shapes into this one canonical form at the boundary.
type Candidate struct {
	ID           string   `json:"id"`
	Category     Category `json:"category"`
	Email        string   `json:"email,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	FirstName    string   `json:"first_name,omitempty"`
	LastName     string   `json:"last_name,omitempty"`
	Company      string   `json:"company,omitempty"`
	PropertyName string   `json:"property_name,omitempty"`
}

// DisplayName joins the candidate's name parts for write-back.
func (c Candidate) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// MatchResult is the outcome of one category's cascade. When Found is
// false every other field is zero.
type MatchResult struct {
	Found     bool       `json:"found"`
	Candidate *Candidate `json:"candidate,omitempty"`
	MatchType MatchType  `json:"match_type,omitempty"`
	// Score is set only for fuzzy-derived matches; exact matches carry none.
	Score *int `json:"score,omitempty"`
}

// NoMatch is the empty result a category yields when nothing clears
// its threshold.
func NoMatch() MatchResult {
	return MatchResult{}
}

// Decision is the aggregate verdict for one lead, the only output the
// batch driver persists.
type Decision struct {
	Status    CheckStatus `json:"status"`
	Reason    Reason      `json:"reason"`
	NeedsDeal bool        `json:"needs_deal"`
	CheckedAt time.Time   `json:"checked_at"`

	// Contact linkage, present when the contact category matched.
	ContactID        string    `json:"contact_id,omitempty"`
	ContactEmail     string    `json:"contact_email,omitempty"`
	ContactPhone     string    `json:"contact_phone,omitempty"`
	ContactName      string    `json:"contact_name,omitempty"`
	ContactMatchType MatchType `json:"contact_match_type,omitempty"`

	// Deal linkage, present when the deal category matched.
	DealID    string `json:"deal_id,omitempty"`
	DealName  string `json:"deal_name,omitempty"`
	DealScore *int   `json:"deal_score,omitempty"`

	// Directory linkage. DirectoryExists is always written, true or
	// false, so consumers can tell "checked, not found" from "not checked".
	DirectoryExists  bool   `json:"alohacamp_exists"`
	DirectoryMatchID string `json:"alohacamp_match_id,omitempty"`
	DirectoryName    string `json:"alohacamp_match_name,omitempty"`
	DirectoryScore   *int   `json:"alohacamp_score,omitempty"`
}

// RunSummary records the outcome of one batch run.
type RunSummary struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Attempted  int       `json:"attempted"`
	Updated    int       `json:"updated"`
	Errors     int       `json:"errors"`
}
