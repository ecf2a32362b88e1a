package stats

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yourorg/reviewgen/pkg/types"
)

// createdAtLayout is fixed width so timestamps compare correctly as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

type SQLite struct {
	db *sql.DB
}

func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One writer avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.Init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) Init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS generation_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			store_id TEXT NOT NULL,
			language TEXT NOT NULL,
			rating INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			latency_ms INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_store_outcome ON generation_events(store_id, outcome);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init stats db: %w", err)
		}
	}
	return nil
}

func (s *SQLite) Record(ctx context.Context, ev Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generation_events (store_id, language, rating, outcome, latency_ms, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ev.StoreID, ev.Language, ev.Rating, ev.Outcome, ev.Latency.Milliseconds(), eventTime(ev).UTC().Format(createdAtLayout))
	return err
}

func (s *SQLite) Summary(ctx context.Context) (types.StatsSummary, error) {
	return s.query(ctx,
		`SELECT store_id, outcome, COUNT(*) FROM generation_events GROUP BY store_id, outcome`)
}

func (s *SQLite) SummarySince(ctx context.Context, since time.Time) (types.StatsSummary, error) {
	return s.query(ctx,
		`SELECT store_id, outcome, COUNT(*) FROM generation_events WHERE created_at >= ? GROUP BY store_id, outcome`,
		since.UTC().Format(createdAtLayout))
}

func (s *SQLite) query(ctx context.Context, q string, args ...any) (types.StatsSummary, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return types.StatsSummary{}, err
	}
	defer rows.Close()

	counts := make(map[[2]string]int64)
	for rows.Next() {
		var store, outcome string
		var n int64
		if err := rows.Scan(&store, &outcome, &n); err != nil {
			return types.StatsSummary{}, err
		}
		counts[[2]string{store, outcome}] = n
	}
	if err := rows.Err(); err != nil {
		return types.StatsSummary{}, err
	}
	return summarize(counts), nil
}

// AverageLatency returns the mean latency of successful generations.
func (s *SQLite) AverageLatency(ctx context.Context) (time.Duration, error) {
	var ms sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT AVG(latency_ms) FROM generation_events WHERE outcome = ?`, OutcomeOK).Scan(&ms)
	if err != nil || !ms.Valid {
		return 0, err
	}
	return time.Duration(ms.Float64 * float64(time.Millisecond)), nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
