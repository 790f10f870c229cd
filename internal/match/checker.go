// Package match implements the duplicate-resolution cascade: per-category
// strategy lists over the external search adapters, fuzzy scoring with
// thresholds, and aggregation into a single verdict.
package match

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/alohacamp/leadcheck/internal/fuzz"
	"github.com/alohacamp/leadcheck/internal/model"
	"github.com/alohacamp/leadcheck/internal/normalize"
	"github.com/alohacamp/leadcheck/pkg/airtable"
	"github.com/alohacamp/leadcheck/pkg/hubspot"
)

// Checker resolves whether a lead already exists in the CRM or the
// property directory.
type Checker struct {
	crm       hubspot.Client
	directory airtable.Client // nil when the directory is unconfigured
	th        Thresholds
	timeout   time.Duration

	// dirWarned suppresses repeated directory-failure warnings; the
	// directory is optional and a broken token would otherwise log once
	// per lead.
	dirWarned atomic.Bool
}

// NewChecker creates a Checker. directory may be nil, in which case the
// directory category always reports not-found without any remote call.
func NewChecker(crm hubspot.Client, directory airtable.Client, th Thresholds, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Checker{
		crm:       crm,
		directory: directory,
		th:        th,
		timeout:   timeout,
	}
}

// Check runs all three categories for a lead and aggregates the verdict.
func (c *Checker) Check(ctx context.Context, lead model.Lead) model.Decision {
	contact := c.CheckContact(ctx, lead)
	deal := c.CheckDeal(ctx, lead)
	directory := c.CheckDirectory(ctx, lead)
	return Decide(contact, deal, directory, time.Now().UTC())
}

// CheckContact runs the contact category: exact email, then exact E.164
// phone, then fuzzy name containment, stopping at the first match.
func (c *Checker) CheckContact(ctx context.Context, lead model.Lead) model.MatchResult {
	log := zap.L().With(zap.Int64("lead_id", lead.ID), zap.String("category", string(model.CategoryContact)))

	strategies := []Strategy{
		{Type: model.MatchEmail, Run: func(ctx context.Context) (model.MatchResult, error) {
			if lead.Email == "" {
				return model.NoMatch(), nil
			}
			results, err := c.searchWithTimeout(ctx, func(ctx context.Context) ([]model.Candidate, error) {
				return c.crm.SearchContactsByEmail(ctx, lead.Email)
			})
			if err != nil {
				return model.NoMatch(), err
			}
			return firstExact(results, model.MatchEmail), nil
		}},
		{Type: model.MatchPhone, Run: func(ctx context.Context) (model.MatchResult, error) {
			e164, ok := normalize.Phone(lead.Phone, lead.Country)
			if !ok {
				return model.NoMatch(), nil
			}
			results, err := c.searchWithTimeout(ctx, func(ctx context.Context) ([]model.Candidate, error) {
				return c.crm.SearchContactsByPhone(ctx, e164)
			})
			if err != nil {
				return model.NoMatch(), err
			}
			return firstExact(results, model.MatchPhone), nil
		}},
		{Type: model.MatchName, Run: func(ctx context.Context) (model.MatchResult, error) {
			return c.fuzzyNameMatch(ctx, lead)
		}},
	}

	return runCascade(ctx, log, strategies)
}

// fuzzyNameMatch queries contacts by name-token containment and accepts
// the first candidate, in upstream order, whose first-name or last-name
// ratio clears the threshold.
func (c *Checker) fuzzyNameMatch(ctx context.Context, lead model.Lead) (model.MatchResult, error) {
	if lead.FirstName == "" && lead.LastName == "" {
		return model.NoMatch(), nil
	}

	results, err := c.searchWithTimeout(ctx, func(ctx context.Context) ([]model.Candidate, error) {
		return c.crm.SearchContactsByName(ctx, lead.FirstName, lead.LastName)
	})
	if err != nil {
		return model.NoMatch(), err
	}

	leadFirst := normalize.Text(lead.FirstName)
	leadLast := normalize.Text(lead.LastName)

	for i := range results {
		candFirst := normalize.Text(results[i].FirstName)
		candLast := normalize.Text(results[i].LastName)

		firstScore, lastScore := 0, 0
		if leadFirst != "" && candFirst != "" {
			firstScore = fuzz.Ratio(leadFirst, candFirst)
		}
		if leadLast != "" && candLast != "" {
			lastScore = fuzz.Ratio(leadLast, candLast)
		}

		if firstScore >= c.th.Name || lastScore >= c.th.Name {
			score := max(firstScore, lastScore)
			return model.MatchResult{
				Found:     true,
				Candidate: &results[i],
				MatchType: model.MatchName,
				Score:     &score,
			}, nil
		}
	}
	return model.NoMatch(), nil
}

// CheckDeal runs the deal category: token-containment search on the
// property name, then a best-score fuzzy selection.
func (c *Checker) CheckDeal(ctx context.Context, lead model.Lead) model.MatchResult {
	log := zap.L().With(zap.Int64("lead_id", lead.ID), zap.String("category", string(model.CategoryDeal)))

	strategies := []Strategy{
		{Type: model.MatchDeal, Run: func(ctx context.Context) (model.MatchResult, error) {
			if lead.PropertyName == "" {
				return model.NoMatch(), nil
			}
			results, err := c.searchWithTimeout(ctx, func(ctx context.Context) ([]model.Candidate, error) {
				return c.crm.SearchDealsByName(ctx, lead.PropertyName)
			})
			if err != nil {
				return model.NoMatch(), err
			}
			return c.bestPropertyMatch(lead.PropertyName, results, model.MatchDeal), nil
		}},
	}

	return runCascade(ctx, log, strategies)
}

// CheckDirectory runs the optional directory category. When no directory
// client is configured it reports not-found without any remote call.
// Directory lookup failures are swallowed: the first one logs a warning,
// later ones are silent.
func (c *Checker) CheckDirectory(ctx context.Context, lead model.Lead) model.MatchResult {
	if c.directory == nil {
		return model.NoMatch()
	}

	log := zap.L().With(zap.Int64("lead_id", lead.ID), zap.String("category", string(model.CategoryDirectory)))

	strategies := []Strategy{
		{Type: model.MatchDirectory, Run: func(ctx context.Context) (model.MatchResult, error) {
			if lead.PropertyName == "" {
				return model.NoMatch(), nil
			}
			results, err := c.searchWithTimeout(ctx, func(ctx context.Context) ([]model.Candidate, error) {
				return c.directory.SearchProperties(ctx, lead.PropertyName)
			})
			if err != nil {
				if !c.dirWarned.Swap(true) {
					log.Warn("match: directory checking disabled after error", zap.Error(err))
				}
				return model.NoMatch(), nil
			}
			return c.bestPropertyMatch(lead.PropertyName, results, model.MatchDirectory), nil
		}},
	}

	return runCascade(ctx, log, strategies)
}

// bestPropertyMatch scores every candidate's property name against the
// lead's and accepts the best one if it clears the property threshold.
func (c *Checker) bestPropertyMatch(propertyName string, candidates []model.Candidate, mt model.MatchType) model.MatchResult {
	leadNorm := normalize.Text(propertyName)

	best, bestScore := bestCandidate(candidates, func(cand model.Candidate) int {
		return fuzz.PropertyScore(leadNorm, normalize.Text(cand.PropertyName))
	})

	if best == nil || bestScore < c.th.Property {
		return model.NoMatch()
	}
	return model.MatchResult{
		Found:     true,
		Candidate: best,
		MatchType: mt,
		Score:     &bestScore,
	}
}

// searchWithTimeout applies the per-call adapter timeout.
func (c *Checker) searchWithTimeout(ctx context.Context, search func(ctx context.Context) ([]model.Candidate, error)) ([]model.Candidate, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return search(callCtx)
}

// firstExact takes the first candidate of an exact-lookup result set.
func firstExact(results []model.Candidate, mt model.MatchType) model.MatchResult {
	if len(results) == 0 {
		return model.NoMatch()
	}
	return model.MatchResult{
		Found:     true,
		Candidate: &results[0],
		MatchType: mt,
	}
}
