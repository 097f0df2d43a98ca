package scoring

import (
	"context"

	"PhiTrade/internal/domain/models"
	domsvc "PhiTrade/internal/domain/service"
	"PhiTrade/pkg/config"
)

// HTTPActionScorer delegates action ranking to the external model service.
// Failures surface as ScorerUnavailableError; the caller never gets a
// guessed score map.
type HTTPActionScorer struct{ base *HTTPServiceBase }

func NewHTTPActionScorer(cfg *config.Config) *HTTPActionScorer {
	return &HTTPActionScorer{base: NewHTTPServiceBase(cfg)}
}

type scoreRequest struct {
	Symbol   string             `json:"symbol"`
	Features map[string]float64 `json:"features"`
}

type scoreResponse struct {
	Scores map[string]float64 `json:"scores"`
}

func (s *HTTPActionScorer) Score(ctx context.Context, symbol string, features map[string]float64) (map[models.Action]float64, error) {
	var resp scoreResponse
	err := s.base.PostJSONWithRetry(ctx, "/actions/score", scoreRequest{Symbol: symbol, Features: features}, &resp, 3)
	if err != nil {
		return nil, &models.ScorerUnavailableError{Scorer: "action", Err: err}
	}
	out := make(map[models.Action]float64, len(resp.Scores))
	for name, score := range resp.Scores {
		out[models.Action(name)] = score
	}
	return out, nil
}

var _ domsvc.ActionScorer = (*HTTPActionScorer)(nil)
