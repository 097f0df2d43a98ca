package repository

import (
	"context"

	"PhiTrade/internal/domain/models"
	domrepo "PhiTrade/internal/domain/repository"
	pkgkafka "PhiTrade/pkg/kafka"
)

// KafkaPublisher fans ticks and decision records out to Kafka.
type KafkaPublisher struct {
	producer      *pkgkafka.Producer
	tickTopic     string
	decisionTopic string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, tickTopic, decisionTopic string) domrepo.Publisher {
	return &KafkaPublisher{producer: producer, tickTopic: tickTopic, decisionTopic: decisionTopic}
}

func tickPayload(t *models.Tick) map[string]interface{} {
	return map[string]interface{}{
		"symbol": t.Symbol,
		"t":      t.Timestamp,
		"c":      t.Price,
		"v":      t.Volume,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, t *models.Tick) error {
	return p.producer.Publish(ctx, p.tickTopic, []byte(t.Symbol), tickPayload(t))
}

func (p *KafkaPublisher) PublishBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(ticks))
	for i, t := range ticks {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(t.Symbol),
			Value: tickPayload(t),
		}
	}
	return p.producer.PublishBatch(ctx, p.tickTopic, msgs)
}

// PublishDecision emits the audit record downstream consumers subscribe to.
func (p *KafkaPublisher) PublishDecision(ctx context.Context, d *models.TradingDecision) error {
	return p.producer.Publish(ctx, p.decisionTopic, []byte(d.Symbol), map[string]interface{}{
		"symbol":         d.Symbol,
		"action":         string(d.Action),
		"quantity":       d.Quantity,
		"price":          d.Price,
		"confidence":     d.Confidence,
		"is_equilibrium": d.Equilibrium.IsEquilibrium,
		"s_n":            d.Equilibrium.Sn,
		"var":            d.Risk.Recommended,
		"ts":             d.Timestamp.Unix(),
	})
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
