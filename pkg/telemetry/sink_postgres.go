package telemetry

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createEventsTable = `
CREATE TABLE IF NOT EXISTS stage_events (
	id           BIGSERIAL PRIMARY KEY,
	execution_id TEXT        NOT NULL,
	stage        TEXT        NOT NULL,
	summary      TEXT        NOT NULL,
	occurred_at  TIMESTAMPTZ NOT NULL
)`

const insertEvent = `
INSERT INTO stage_events (execution_id, stage, summary, occurred_at)
VALUES ($1, $2, $3, $4)`

// maxConsecutiveFailures disables the sink: a dead database must not
// keep adding per-event latency to every scan.
const maxConsecutiveFailures = 5

// PostgresSink persists stage events for offline analysis. Insert
// failures accumulate; the sink disables itself after too many in a
// row and the pipeline continues without it.
type PostgresSink struct {
	pool     *pgxpool.Pool
	failures atomic.Int32
	disabled atomic.Bool
}

// NewPostgresSink connects to Postgres and ensures the events table.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if _, err := pool.Exec(ctx, createEventsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ensure table: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Emit(ev Event) {
	if s.disabled.Load() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := s.pool.Exec(ctx, insertEvent, ev.ExecutionID, ev.Stage, ev.Summary, ev.Timestamp)
	if err != nil {
		n := s.failures.Add(1)
		log.Printf("[WARN] telemetry postgres sink: insert failed (%d consecutive): %v", n, err)
		if n >= maxConsecutiveFailures {
			s.disabled.Store(true)
			log.Printf("[WARN] telemetry postgres sink disabled after %d consecutive failures", n)
		}
		return
	}
	s.failures.Store(0)
}

// Close releases the connection pool.
func (s *PostgresSink) Close() {
	s.pool.Close()
}
