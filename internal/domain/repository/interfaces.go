package repository

import (
	"context"
	"time"

	"PhiTrade/internal/domain/models"
)

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type Publisher interface {
	Publish(ctx context.Context, t *models.Tick) error
	PublishBatch(ctx context.Context, ticks []*models.Tick) error
	PublishDecision(ctx context.Context, d *models.TradingDecision) error
	Close() error
}

type TickStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, t *models.Tick) error
	StoreBatch(ctx context.Context, ticks []*models.Tick) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Tick, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// PriceStore serves ordered price history to the decision pipeline.
type PriceStore interface {
	History(ctx context.Context, symbol string, n int) ([]models.PricePoint, error)
}

// DecisionStore persists decision audit records.
type DecisionStore interface {
	StoreDecision(ctx context.Context, d *models.TradingDecision) error
	Decisions(ctx context.Context, symbol string, limit int) ([]*models.TradingDecision, error)
}

type Metrics interface {
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordDecision(action string)
	RecordEquilibrium(symbol string, strict bool)
	RecordVaR(method, symbol string, value float64)
}
