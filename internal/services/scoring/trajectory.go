package scoring

import (
	"context"
	"time"

	"PhiTrade/internal/domain/models"
	domsvc "PhiTrade/internal/domain/service"
	"PhiTrade/pkg/config"
)

// HTTPTrajectorySource fetches gradient-stability points from the external
// optimizer service. The detector consumes these verbatim.
type HTTPTrajectorySource struct{ base *HTTPServiceBase }

func NewHTTPTrajectorySource(cfg *config.Config) *HTTPTrajectorySource {
	return &HTTPTrajectorySource{base: NewHTTPServiceBase(cfg)}
}

type trajectoryRequest struct {
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	Volatility float64 `json:"volatility"`
	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
}

type trajectoryResponse struct {
	Iteration int64   `json:"iteration"`
	Sn        float64 `json:"s_n"`
}

func (s *HTTPTrajectorySource) Next(ctx context.Context, symbol string, state models.MarketState) (models.StabilityTrajectoryPoint, error) {
	var resp trajectoryResponse
	req := trajectoryRequest{
		Symbol:     symbol,
		Price:      state.Price,
		Volatility: state.Volatility,
		RSI:        state.RSI,
		MACD:       state.MACD,
	}
	err := s.base.PostJSONWithRetry(ctx, "/trajectory/next", req, &resp, 3)
	if err != nil {
		return models.StabilityTrajectoryPoint{}, &models.ScorerUnavailableError{Scorer: "trajectory", Err: err}
	}
	return models.StabilityTrajectoryPoint{
		Iteration: resp.Iteration,
		Sn:        resp.Sn,
		LyapunovV: resp.Sn * resp.Sn,
		Timestamp: time.Now(),
	}, nil
}

var _ domsvc.TrajectorySource = (*HTTPTrajectorySource)(nil)
