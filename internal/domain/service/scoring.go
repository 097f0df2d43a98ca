package service

import (
	"context"

	"PhiTrade/internal/domain/models"
)

// ActionScorer ranks the bounded action set for a normalized feature vector.
// It is an injected dependency; the core neither trains nor defines it.
type ActionScorer interface {
	Score(ctx context.Context, symbol string, features map[string]float64) (map[models.Action]float64, error)
}

// TrajectorySource supplies gradient-stability trajectory points from the
// external optimizer. The detector does not compute S_n itself.
type TrajectorySource interface {
	Next(ctx context.Context, symbol string, state models.MarketState) (models.StabilityTrajectoryPoint, error)
}
