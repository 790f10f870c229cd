package match

import (
	"time"

	"github.com/alohacamp/leadcheck/internal/model"
)

// Decide combines the three category results into one verdict. Priority
// order: contact, deal, directory, else unique. Linkage fields are
// carried for every category that matched, regardless of which one
// determined the reason.
func Decide(contact, deal, directory model.MatchResult, checkedAt time.Time) model.Decision {
	d := model.Decision{CheckedAt: checkedAt}

	switch {
	case contact.Found:
		d.Status = model.StatusDuplicate
		d.Reason = model.ReasonContactDuplicate
		// A duplicate contact still needs an associated deal.
		d.NeedsDeal = true
	case deal.Found:
		d.Status = model.StatusDuplicate
		d.Reason = model.ReasonDealExists
		d.NeedsDeal = false
	case directory.Found:
		d.Status = model.StatusDuplicate
		d.Reason = model.ReasonAlohaCampExists
		d.NeedsDeal = false
	default:
		d.Status = model.StatusUnique
		d.Reason = model.ReasonNewLead
		d.NeedsDeal = true
	}

	if contact.Found {
		d.ContactID = contact.Candidate.ID
		d.ContactEmail = contact.Candidate.Email
		d.ContactPhone = contact.Candidate.Phone
		d.ContactName = contact.Candidate.DisplayName()
		d.ContactMatchType = contact.MatchType
	}

	if deal.Found {
		d.DealID = deal.Candidate.ID
		d.DealName = deal.Candidate.PropertyName
		d.DealScore = deal.Score
	}

	// Always recorded, so "checked, not found" is distinguishable from
	// "not checked" downstream.
	d.DirectoryExists = directory.Found
	if directory.Found {
		d.DirectoryMatchID = directory.Candidate.ID
		d.DirectoryName = directory.Candidate.PropertyName
		d.DirectoryScore = directory.Score
	}

	return d
}
