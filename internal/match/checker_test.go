package match

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alohacamp/leadcheck/internal/model"
)

// fakeCRM implements hubspot.Client with per-operation stubs. Nil stubs
// return no candidates.
type fakeCRM struct {
	byEmail func(email string) ([]model.Candidate, error)
	byPhone func(phone string) ([]model.Candidate, error)
	byName  func(first, last string) ([]model.Candidate, error)
	deals   func(name string) ([]model.Candidate, error)

	emailCalls, phoneCalls, nameCalls, dealCalls int
}

func (f *fakeCRM) SearchContactsByEmail(_ context.Context, email string) ([]model.Candidate, error) {
	f.emailCalls++
	if f.byEmail == nil {
		return nil, nil
	}
	return f.byEmail(email)
}

func (f *fakeCRM) SearchContactsByPhone(_ context.Context, phone string) ([]model.Candidate, error) {
	f.phoneCalls++
	if f.byPhone == nil {
		return nil, nil
	}
	return f.byPhone(phone)
}

func (f *fakeCRM) SearchContactsByName(_ context.Context, first, last string) ([]model.Candidate, error) {
	f.nameCalls++
	if f.byName == nil {
		return nil, nil
	}
	return f.byName(first, last)
}

func (f *fakeCRM) SearchDealsByName(_ context.Context, name string) ([]model.Candidate, error) {
	f.dealCalls++
	if f.deals == nil {
		return nil, nil
	}
	return f.deals(name)
}

// fakeDirectory implements airtable.Client.
type fakeDirectory struct {
	search func(name string) ([]model.Candidate, error)
	calls  int
}

func (f *fakeDirectory) SearchProperties(_ context.Context, name string) ([]model.Candidate, error) {
	f.calls++
	if f.search == nil {
		return nil, nil
	}
	return f.search(name)
}

func newChecker(crm *fakeCRM, dir *fakeDirectory) *Checker {
	if dir == nil {
		return NewChecker(crm, nil, DefaultThresholds(), time.Second)
	}
	return NewChecker(crm, dir, DefaultThresholds(), time.Second)
}

func contact(id, first, last string) model.Candidate {
	return model.Candidate{ID: id, Category: model.CategoryContact, FirstName: first, LastName: last}
}

func TestCheckContact_EmailMatch(t *testing.T) {
	crm := &fakeCRM{
		byEmail: func(email string) ([]model.Candidate, error) {
			assert.Equal(t, "a@x.com", email)
			return []model.Candidate{contact("1", "Anna", "Kowalska"), contact("2", "Other", "Person")}, nil
		},
	}
	c := newChecker(crm, nil)

	res := c.CheckContact(context.Background(), model.Lead{ID: 10, Email: "a@x.com"})

	require.True(t, res.Found)
	assert.Equal(t, "1", res.Candidate.ID)
	assert.Equal(t, model.MatchEmail, res.MatchType)
	assert.Nil(t, res.Score, "exact match carries no score")
	// Email short-circuits the cascade.
	assert.Equal(t, 0, crm.phoneCalls)
	assert.Equal(t, 0, crm.nameCalls)
}

func TestCheckContact_PhoneFallback(t *testing.T) {
	crm := &fakeCRM{
		byPhone: func(phone string) ([]model.Candidate, error) {
			assert.Equal(t, "+48601234567", phone)
			return []model.Candidate{contact("7", "Anna", "Kowalska")}, nil
		},
	}
	c := newChecker(crm, nil)

	res := c.CheckContact(context.Background(), model.Lead{Email: "a@x.com", Phone: "601 234 567", Country: "PL"})

	require.True(t, res.Found)
	assert.Equal(t, model.MatchPhone, res.MatchType)
	assert.Equal(t, 1, crm.emailCalls)
}

func TestCheckContact_BadPhoneSkipsPhoneLookup(t *testing.T) {
	crm := &fakeCRM{}
	c := newChecker(crm, nil)

	res := c.CheckContact(context.Background(), model.Lead{Email: "a@x.com", Phone: "garbage"})

	assert.False(t, res.Found)
	assert.Equal(t, 0, crm.phoneCalls)
}

func TestCheckContact_FuzzyNameOrThreshold(t *testing.T) {
	// First-name ratio 79 (3 edits over 14 runes), last-name ratio 81
	// (3 edits over 16 runes): the threshold is OR-joined, so 81 wins.
	leadFirst := "abcdefghijklmn"
	leadLast := "abcdefghijklmnop"
	cand := contact("42", "abcdefghijkxyz", "abcdefghijklmxyz")

	crm := &fakeCRM{
		byName: func(first, last string) ([]model.Candidate, error) {
			return []model.Candidate{cand}, nil
		},
	}
	c := newChecker(crm, nil)

	res := c.CheckContact(context.Background(), model.Lead{FirstName: leadFirst, LastName: leadLast})

	require.True(t, res.Found)
	assert.Equal(t, model.MatchName, res.MatchType)
	assert.Equal(t, "42", res.Candidate.ID)
	require.NotNil(t, res.Score)
	assert.Equal(t, 81, *res.Score)
}

func TestCheckContact_FuzzyNameBelowThreshold(t *testing.T) {
	crm := &fakeCRM{
		byName: func(first, last string) ([]model.Candidate, error) {
			return []model.Candidate{contact("42", "John", "Smith")}, nil
		},
	}
	c := newChecker(crm, nil)

	res := c.CheckContact(context.Background(), model.Lead{FirstName: "Anna", LastName: "Kowalska"})

	assert.False(t, res.Found)
	assert.Nil(t, res.Candidate)
}

func TestCheckContact_FirstAcceptableCandidateWins(t *testing.T) {
	crm := &fakeCRM{
		byName: func(first, last string) ([]model.Candidate, error) {
			return []model.Candidate{
				contact("1", "Nomatch", "Nomatch"),
				contact("2", "Anna", "Kowalska"),
				contact("3", "Anna", "Kowalska"),
			}, nil
		},
	}
	c := newChecker(crm, nil)

	res := c.CheckContact(context.Background(), model.Lead{FirstName: "Anna", LastName: "Kowalska"})

	require.True(t, res.Found)
	assert.Equal(t, "2", res.Candidate.ID)
}

func TestCheckContact_AdapterErrorFallsThrough(t *testing.T) {
	crm := &fakeCRM{
		byEmail: func(string) ([]model.Candidate, error) {
			return nil, errors.New("boom")
		},
		byPhone: func(string) ([]model.Candidate, error) {
			return []model.Candidate{contact("9", "", "")}, nil
		},
	}
	c := newChecker(crm, nil)

	res := c.CheckContact(context.Background(), model.Lead{Email: "a@x.com", Phone: "+48601234567"})

	require.True(t, res.Found)
	assert.Equal(t, model.MatchPhone, res.MatchType)
}

func TestCheckDeal_BestScoreAboveThreshold(t *testing.T) {
	crm := &fakeCRM{
		deals: func(name string) ([]model.Candidate, error) {
			return []model.Candidate{
				{ID: "d1", Category: model.CategoryDeal, PropertyName: "Mountain Lodge"},
				{ID: "d2", Category: model.CategoryDeal, PropertyName: "Seaside Villas"},
			}, nil
		},
	}
	c := newChecker(crm, nil)

	res := c.CheckDeal(context.Background(), model.Lead{PropertyName: "Seaside Villa"})

	require.True(t, res.Found)
	assert.Equal(t, "d2", res.Candidate.ID)
	assert.Equal(t, model.MatchDeal, res.MatchType)
	require.NotNil(t, res.Score)
	assert.GreaterOrEqual(t, *res.Score, 70)
}

func TestCheckDeal_ThresholdBoundary(t *testing.T) {
	// 3 edits over 10 runes scores exactly 70; 4 over 13 scores 69.
	t.Run("exactly 70 is found", func(t *testing.T) {
		crm := &fakeCRM{deals: func(string) ([]model.Candidate, error) {
			return []model.Candidate{{ID: "d1", Category: model.CategoryDeal, PropertyName: "abcdefgxyz"}}, nil
		}}
		res := newChecker(crm, nil).CheckDeal(context.Background(), model.Lead{PropertyName: "abcdefghij"})
		require.True(t, res.Found)
		assert.Equal(t, 70, *res.Score)
	})

	t.Run("exactly 69 is not found", func(t *testing.T) {
		crm := &fakeCRM{deals: func(string) ([]model.Candidate, error) {
			return []model.Candidate{{ID: "d1", Category: model.CategoryDeal, PropertyName: "abcdefghiwxyz"}}, nil
		}}
		res := newChecker(crm, nil).CheckDeal(context.Background(), model.Lead{PropertyName: "abcdefghijklm"})
		assert.False(t, res.Found)
	})
}

func TestCheckDeal_TieKeepsFirstSeen(t *testing.T) {
	crm := &fakeCRM{
		deals: func(string) ([]model.Candidate, error) {
			return []model.Candidate{
				{ID: "first", Category: model.CategoryDeal, PropertyName: "Seaside Villa"},
				{ID: "second", Category: model.CategoryDeal, PropertyName: "Seaside Villa"},
			}, nil
		},
	}
	c := newChecker(crm, nil)

	res := c.CheckDeal(context.Background(), model.Lead{PropertyName: "Seaside Villa"})

	require.True(t, res.Found)
	assert.Equal(t, "first", res.Candidate.ID)
}

func TestCheckDeal_NoPropertyName(t *testing.T) {
	crm := &fakeCRM{}
	c := newChecker(crm, nil)

	res := c.CheckDeal(context.Background(), model.Lead{Email: "a@x.com"})

	assert.False(t, res.Found)
	assert.Equal(t, 0, crm.dealCalls)
}

func TestCheckDirectory_Unconfigured(t *testing.T) {
	c := NewChecker(&fakeCRM{}, nil, DefaultThresholds(), time.Second)

	res := c.CheckDirectory(context.Background(), model.Lead{PropertyName: "Seaside Villa"})

	assert.False(t, res.Found)
}

func TestCheckDirectory_Match(t *testing.T) {
	dir := &fakeDirectory{
		search: func(name string) ([]model.Candidate, error) {
			return []model.Candidate{{ID: "recA", Category: model.CategoryDirectory, PropertyName: "Seaside Villas"}}, nil
		},
	}
	c := newChecker(&fakeCRM{}, dir)

	res := c.CheckDirectory(context.Background(), model.Lead{PropertyName: "Seaside Villa"})

	require.True(t, res.Found)
	assert.Equal(t, model.MatchDirectory, res.MatchType)
	assert.Equal(t, "recA", res.Candidate.ID)
}

func TestCheckDirectory_ErrorSwallowedOnce(t *testing.T) {
	dir := &fakeDirectory{
		search: func(string) ([]model.Candidate, error) {
			return nil, errors.New("401 unauthorized")
		},
	}
	c := newChecker(&fakeCRM{}, dir)

	res := c.CheckDirectory(context.Background(), model.Lead{PropertyName: "Seaside Villa"})
	assert.False(t, res.Found)

	// Second failure is silent but still yields not-found.
	res = c.CheckDirectory(context.Background(), model.Lead{PropertyName: "Other Camp"})
	assert.False(t, res.Found)
	assert.Equal(t, 2, dir.calls)
}

func TestCheck_FullVerdict(t *testing.T) {
	crm := &fakeCRM{
		byEmail: func(string) ([]model.Candidate, error) {
			return []model.Candidate{contact("c1", "Anna", "Kowalska")}, nil
		},
		deals: func(string) ([]model.Candidate, error) {
			return []model.Candidate{{ID: "d1", Category: model.CategoryDeal, PropertyName: "Seaside Villas"}}, nil
		},
	}
	c := newChecker(crm, nil)

	d := c.Check(context.Background(), model.Lead{Email: "a@x.com", PropertyName: "Seaside Villa"})

	// Contact drives the reason, but the deal linkage is still carried.
	assert.Equal(t, model.StatusDuplicate, d.Status)
	assert.Equal(t, model.ReasonContactDuplicate, d.Reason)
	assert.True(t, d.NeedsDeal)
	assert.Equal(t, "c1", d.ContactID)
	assert.Equal(t, "d1", d.DealID)
	assert.False(t, d.DirectoryExists)
}
