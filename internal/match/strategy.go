package match

import (
	"context"

	"go.uber.org/zap"

	"github.com/alohacamp/leadcheck/internal/model"
)

// Strategy is one lookup attempt within a category cascade. Run returns
// a zero MatchResult to fall through to the next strategy.
type Strategy struct {
	Type model.MatchType
	Run  func(ctx context.Context) (model.MatchResult, error)
}

// runCascade evaluates strategies in order and stops at the first match.
// A strategy error counts as "no candidates": it is logged as a warning
// and the cascade falls through rather than aborting the lead.
func runCascade(ctx context.Context, log *zap.Logger, strategies []Strategy) model.MatchResult {
	for _, s := range strategies {
		res, err := s.Run(ctx)
		if err != nil {
			log.Warn("match: strategy failed, falling through",
				zap.String("strategy", string(s.Type)),
				zap.Error(err),
			)
			continue
		}
		if res.Found {
			return res
		}
	}
	return model.NoMatch()
}

// bestCandidate returns the candidate with the strictly highest score
// and that score. Equal maxima keep the earlier candidate, in the order
// the upstream search returned them.
func bestCandidate(candidates []model.Candidate, score func(model.Candidate) int) (*model.Candidate, int) {
	var best *model.Candidate
	bestScore := 0
	for i := range candidates {
		if s := score(candidates[i]); s > bestScore {
			bestScore = s
			best = &candidates[i]
		}
	}
	return best, bestScore
}
