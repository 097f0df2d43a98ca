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

const ticksDDL = `
CREATE TABLE IF NOT EXISTS phitrade_ticks (
    ts DateTime64(3),
    symbol LowCardinality(String),
    price Float64,
    volume Float64,
    source LowCardinality(String),
    event_id String
) ENGINE = MergeTree()
ORDER BY (symbol, ts)
TTL toDateTime(ts) + INTERVAL 30 DAY
`

// ClickHouseTickStore persists raw ticks and serves ordered price history.
type ClickHouseTickStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewClickHouseTickStore(ch *pkgch.Client, l *applogger.Logger) *ClickHouseTickStore {
	return &ClickHouseTickStore{db: ch.DB(), table: "phitrade_ticks", l: l}
}

func (s *ClickHouseTickStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, ticksDDL); err != nil {
		return fmt.Errorf("init ticks schema: %w", err)
	}
	return nil
}

func (s *ClickHouseTickStore) Store(ctx context.Context, t *models.Tick) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, volume, source, event_id) VALUES (?, ?, ?, ?, ?, ?)", s.table)
	eventID := fmt.Sprintf("%s-%d", t.Symbol, t.Timestamp)
	_, err := s.db.ExecContext(ctx, q,
		time.Unix(t.Timestamp, 0),
		t.Symbol,
		t.Price,
		t.Volume,
		"feed",
		eventID,
	)
	return err
}

func (s *ClickHouseTickStore) StoreBatch(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	// VALUES multi-row chunks keep round-trips down; 2000 rows per batch.
	const chunkSize = 2000
	for start := 0; start < len(ticks); start += chunkSize {
		end := start + chunkSize
		if end > len(ticks) {
			end = len(ticks)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*6)
		for _, t := range ticks[start:end] {
			if t == nil || t.Symbol == "" || t.Timestamp == 0 {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?)")
			args = append(args,
				time.Unix(t.Timestamp, 0),
				t.Symbol,
				t.Price,
				t.Volume,
				"feed",
				fmt.Sprintf("%s-%d", t.Symbol, t.Timestamp),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, symbol, price, volume, source, event_id) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseTickStore) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Tick, error) {
	q := fmt.Sprintf("SELECT symbol, ts, price, volume FROM %s WHERE symbol = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ticks []*models.Tick
	for rows.Next() {
		var t models.Tick
		var ts time.Time
		if err := rows.Scan(&t.Symbol, &ts, &t.Price, &t.Volume); err != nil {
			return nil, err
		}
		t.Timestamp = ts.Unix()
		ticks = append(ticks, &t)
	}
	return ticks, rows.Err()
}

// History returns the latest n prices in ascending chronological order, the
// shape the return computation expects.
func (s *ClickHouseTickStore) History(ctx context.Context, symbol string, n int) ([]models.PricePoint, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT ts, price FROM (
            SELECT ts, price FROM %s
            WHERE symbol = ?
            ORDER BY ts DESC
            LIMIT ?
        ) ORDER BY ts ASC
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, n)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse history query error",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("price history: %w", err)
	}
	defer rows.Close()

	out := make([]models.PricePoint, 0, n)
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Timestamp, &p.Price); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse history ok",
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *ClickHouseTickStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseTickStore) Close() error {
	return nil // pool owned by pkg client
}

var (
	_ domrepo.TickStore  = (*ClickHouseTickStore)(nil)
	_ domrepo.PriceStore = (*ClickHouseTickStore)(nil)
)
