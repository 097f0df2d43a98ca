package usecase

import (
	"context"

	"PhiTrade/internal/domain/models"
	domrepo "PhiTrade/internal/domain/repository"
	"PhiTrade/pkg/logger"
	"PhiTrade/pkg/queue"
)

// DecisionAuditJob drains queued decisions into ClickHouse and Kafka off
// the hot path, so a slow sink never stalls the evaluation loop.
type DecisionAuditJob struct {
	store domrepo.DecisionStore
	pub   domrepo.Publisher
	log   *logger.Logger
}

func NewDecisionAuditJob(store domrepo.DecisionStore, pub domrepo.Publisher, log *logger.Logger) *DecisionAuditJob {
	return &DecisionAuditJob{store: store, pub: pub, log: log}
}

func (j *DecisionAuditJob) Name() string { return "decision_audit" }

func (j *DecisionAuditJob) Type() string { return decisionAuditType }

func (j *DecisionAuditJob) Handle(ctx context.Context, payload interface{}) error {
	d, err := queue.ParsePayload[models.TradingDecision](payload)
	if err != nil {
		return err
	}

	if err := j.store.StoreDecision(ctx, d); err != nil {
		return err
	}
	if j.pub != nil {
		if err := j.pub.PublishDecision(ctx, d); err != nil {
			// storage succeeded; downstream fanout is best effort
			j.log.Warn("decision publish failed",
				logger.String("symbol", d.Symbol),
				logger.Error(err))
		}
	}
	return nil
}

var _ queue.Job = (*DecisionAuditJob)(nil)
