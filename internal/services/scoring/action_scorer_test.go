package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PhiTrade/internal/domain/models"
	"PhiTrade/pkg/config"
)

func scoringConfig(url string) *config.Config {
	cfg := &config.Config{}
	cfg.Scoring.ServiceURL = url
	cfg.Scoring.Timeout = 2 * time.Second
	return cfg
}

func TestHTTPActionScorer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/actions/score", r.URL.Path)
		var req scoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "AAPL", req.Symbol)
		assert.Contains(t, req.Features, "rsi")

		json.NewEncoder(w).Encode(scoreResponse{Scores: map[string]float64{
			"BUY": 0.8, "SELL": 0.1, "HOLD": 0.1,
		}})
	}))
	defer srv.Close()

	scorer := NewHTTPActionScorer(scoringConfig(srv.URL))
	scores, err := scorer.Score(context.Background(), "AAPL", map[string]float64{"rsi": 0.55})

	require.NoError(t, err)
	assert.Equal(t, 0.8, scores[models.ActionBuy])
	assert.Len(t, scores, 3)
}

func TestHTTPActionScorerUnavailable(t *testing.T) {
	scorer := NewHTTPActionScorer(scoringConfig("http://127.0.0.1:1"))

	_, err := scorer.Score(context.Background(), "AAPL", nil)

	var unavailable *models.ScorerUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "action", unavailable.Scorer)
}

func TestHTTPTrajectorySource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/trajectory/next", r.URL.Path)
		json.NewEncoder(w).Encode(trajectoryResponse{Iteration: 7, Sn: 1e-7})
	}))
	defer srv.Close()

	source := NewHTTPTrajectorySource(scoringConfig(srv.URL))
	pt, err := source.Next(context.Background(), "AAPL", models.MarketState{Price: 125.50})

	require.NoError(t, err)
	assert.Equal(t, int64(7), pt.Iteration)
	assert.Equal(t, 1e-7, pt.Sn)
	assert.Equal(t, 1e-14, pt.LyapunovV)
}
