package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"PhiTrade/internal/domain/models"
	domrepo "PhiTrade/internal/domain/repository"
	pkgch "PhiTrade/pkg/clickhouse"
	applogger "PhiTrade/pkg/logger"
)

const decisionsDDL = `
CREATE TABLE IF NOT EXISTS phitrade_decisions (
    ts DateTime64(3),
    symbol LowCardinality(String),
    action LowCardinality(String),
    quantity Int64,
    price Float64,
    confidence Float64,
    is_equilibrium UInt8,
    s_n Float64,
    var Float64,
    var_recommendation String,
    reasoning String
) ENGINE = MergeTree()
ORDER BY (symbol, ts)
`

// ClickHouseDecisionStore persists the decision audit trail.
type ClickHouseDecisionStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewClickHouseDecisionStore(ch *pkgch.Client, l *applogger.Logger) *ClickHouseDecisionStore {
	return &ClickHouseDecisionStore{db: ch.DB(), table: "phitrade_decisions", l: l}
}

func (s *ClickHouseDecisionStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, decisionsDDL); err != nil {
		return fmt.Errorf("init decisions schema: %w", err)
	}
	return nil
}

func (s *ClickHouseDecisionStore) StoreDecision(ctx context.Context, d *models.TradingDecision) error {
	start := time.Now()
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, action, quantity, price, confidence, is_equilibrium, s_n, var, var_recommendation, reasoning) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)

	strict := uint8(0)
	if d.Equilibrium.IsEquilibrium {
		strict = 1
	}
	_, err := s.db.ExecContext(ctx, q,
		d.Timestamp,
		d.Symbol,
		string(d.Action),
		d.Quantity,
		d.Price,
		d.Confidence,
		strict,
		d.Equilibrium.Sn,
		d.Risk.Recommended,
		d.Risk.Recommendation,
		strings.Join(d.ReasoningTrace, "\n"),
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse store_decision error",
				applogger.String("symbol", d.Symbol),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("store decision: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse store_decision ok",
			applogger.String("symbol", d.Symbol),
			applogger.String("action", string(d.Action)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *ClickHouseDecisionStore) Decisions(ctx context.Context, symbol string, limit int) ([]*models.TradingDecision, error) {
	var (
		q    string
		rows *sql.Rows
		err  error
	)
	const cols = "ts, symbol, action, quantity, price, confidence, is_equilibrium, s_n, var, var_recommendation, reasoning"
	if symbol == "" {
		q = fmt.Sprintf("SELECT %s FROM %s ORDER BY ts DESC LIMIT ?", cols, s.table)
		rows, err = s.db.QueryContext(ctx, q, limit)
	} else {
		q = fmt.Sprintf("SELECT %s FROM %s WHERE symbol = ? ORDER BY ts DESC LIMIT ?", cols, s.table)
		rows, err = s.db.QueryContext(ctx, q, symbol, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []*models.TradingDecision
	for rows.Next() {
		var (
			d         models.TradingDecision
			action    string
			strict    uint8
			reasoning string
		)
		if err := rows.Scan(&d.Timestamp, &d.Symbol, &action, &d.Quantity, &d.Price, &d.Confidence, &strict, &d.Equilibrium.Sn, &d.Risk.Recommended, &d.Risk.Recommendation, &reasoning); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Action = models.Action(action)
		d.Equilibrium.IsEquilibrium = strict == 1
		if reasoning != "" {
			d.ReasoningTrace = strings.Split(reasoning, "\n")
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

var _ domrepo.DecisionStore = (*ClickHouseDecisionStore)(nil)
