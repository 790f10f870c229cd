package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alohacamp/leadcheck/internal/model"
)

func intPtr(i int) *int { return &i }

func found(cand model.Candidate, mt model.MatchType, score *int) model.MatchResult {
	return model.MatchResult{Found: true, Candidate: &cand, MatchType: mt, Score: score}
}

func TestDecide_ContactDuplicate(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	contact := found(model.Candidate{
		ID: "c1", Category: model.CategoryContact,
		Email: "a@x.com", Phone: "+48601234567", FirstName: "Anna", LastName: "Kowalska",
	}, model.MatchEmail, nil)

	d := Decide(contact, model.NoMatch(), model.NoMatch(), now)

	assert.Equal(t, model.StatusDuplicate, d.Status)
	assert.Equal(t, model.ReasonContactDuplicate, d.Reason)
	assert.True(t, d.NeedsDeal)
	assert.Equal(t, now, d.CheckedAt)
	assert.Equal(t, "c1", d.ContactID)
	assert.Equal(t, "a@x.com", d.ContactEmail)
	assert.Equal(t, "Anna Kowalska", d.ContactName)
	assert.Equal(t, model.MatchEmail, d.ContactMatchType)
	assert.False(t, d.DirectoryExists)
}

func TestDecide_PriorityContactOverDealAndDirectory(t *testing.T) {
	contact := found(model.Candidate{ID: "c1", Category: model.CategoryContact}, model.MatchPhone, nil)
	deal := found(model.Candidate{ID: "d1", Category: model.CategoryDeal, PropertyName: "Seaside Villas"}, model.MatchDeal, intPtr(82))
	dir := found(model.Candidate{ID: "r1", Category: model.CategoryDirectory, PropertyName: "Seaside Villa"}, model.MatchDirectory, intPtr(95))

	d := Decide(contact, deal, dir, time.Now())

	assert.Equal(t, model.ReasonContactDuplicate, d.Reason)
	assert.True(t, d.NeedsDeal)

	// Every found linkage is still reported.
	assert.Equal(t, "d1", d.DealID)
	assert.Equal(t, 82, *d.DealScore)
	assert.True(t, d.DirectoryExists)
	assert.Equal(t, "r1", d.DirectoryMatchID)
	assert.Equal(t, 95, *d.DirectoryScore)
}

func TestDecide_DealExists(t *testing.T) {
	deal := found(model.Candidate{ID: "d1", Category: model.CategoryDeal, PropertyName: "Seaside Villas"}, model.MatchDeal, intPtr(82))

	d := Decide(model.NoMatch(), deal, model.NoMatch(), time.Now())

	assert.Equal(t, model.StatusDuplicate, d.Status)
	assert.Equal(t, model.ReasonDealExists, d.Reason)
	assert.False(t, d.NeedsDeal)
	assert.Equal(t, "Seaside Villas", d.DealName)
	assert.Equal(t, 82, *d.DealScore)
	assert.Empty(t, d.ContactID)
}

func TestDecide_DirectoryExists(t *testing.T) {
	dir := found(model.Candidate{ID: "r1", Category: model.CategoryDirectory, PropertyName: "Villa Seaside"}, model.MatchDirectory, intPtr(88))

	d := Decide(model.NoMatch(), model.NoMatch(), dir, time.Now())

	assert.Equal(t, model.StatusDuplicate, d.Status)
	assert.Equal(t, model.ReasonAlohaCampExists, d.Reason)
	assert.False(t, d.NeedsDeal)
	assert.True(t, d.DirectoryExists)
	assert.Equal(t, "Villa Seaside", d.DirectoryName)
}

func TestDecide_Unique(t *testing.T) {
	d := Decide(model.NoMatch(), model.NoMatch(), model.NoMatch(), time.Now())

	assert.Equal(t, model.StatusUnique, d.Status)
	assert.Equal(t, model.ReasonNewLead, d.Reason)
	assert.True(t, d.NeedsDeal)
	assert.False(t, d.DirectoryExists)
	assert.Empty(t, d.ContactID)
	assert.Empty(t, d.DealID)
	assert.Nil(t, d.DealScore)
}
