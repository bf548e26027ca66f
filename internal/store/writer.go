// Package store is the optional Postgres rollup sink. The flat-file
// reports under the result root are the system's primary persistence
// and are always written; when a DSN is configured this sink
// additionally upserts each completed day's check histograms and the
// flagged-prefix timeline into three tables, giving operators
// SQL-queryable cross-day history.
package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/irraudit/bgpcrunch/internal/metrics"
	"github.com/irraudit/bgpcrunch/internal/report"
)

type Writer struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewWriter(pool *pgxpool.Pool, logger *zap.Logger) *Writer {
	return &Writer{pool: pool, logger: logger}
}

// UpsertRouteDaily replaces one day's route-check histogram for an
// address family within a single transaction.
func (w *Writer) UpsertRouteDaily(ctx context.Context, day, afi string, counts report.RouteCounts) error {
	start := time.Now()

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for code, count := range counts {
		if err := upsertCount(ctx, tx, "route_check_daily", day, afi, code, int64(count)); err != nil {
			return fmt.Errorf("upsert route_check_daily: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	metrics.DBWriteDuration.WithLabelValues("route_check_daily").Observe(time.Since(start).Seconds())
	return nil
}

// UpsertPathDaily replaces one day's path-check hop-code histogram for
// an address family within a single transaction. Codes are iterated in
// sorted order for deterministic statement sequences.
func (w *Writer) UpsertPathDaily(ctx context.Context, day, afi string, stats report.PathStats) error {
	start := time.Now()

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, code := range SortedCodes(stats.CodeCounts) {
		if err := upsertCount(ctx, tx, "path_check_daily", day, afi, code, int64(stats.CodeCounts[code])); err != nil {
			return fmt.Errorf("upsert path_check_daily: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	metrics.DBWriteDuration.WithLabelValues("path_check_daily").Observe(time.Since(start).Seconds())
	return nil
}

// UpsertTimeline writes the flagged-prefix transitions within a single
// transaction. Each (day, afi, prefix) row carries the latest observed
// state for that prefix on that day.
func (w *Writer) UpsertTimeline(ctx context.Context, afi string, tl report.Timeline) error {
	start := time.Now()

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var rows int64
	for _, entries := range tl {
		for _, e := range entries {
			tag, err := tx.Exec(ctx, `
				INSERT INTO route_violation_timeline (day, afi, prefix, as_path, status, candidate_origins)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (day, afi, prefix) DO UPDATE SET
					as_path           = EXCLUDED.as_path,
					status            = EXCLUDED.status,
					candidate_origins = EXCLUDED.candidate_origins`,
				e.Day, afi, e.Prefix, e.AsPath, e.Status, e.Origins)
			if err != nil {
				return fmt.Errorf("upsert route_violation_timeline: %w", err)
			}
			rows += tag.RowsAffected()
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	metrics.DBWriteDuration.WithLabelValues("route_violation_timeline").Observe(time.Since(start).Seconds())
	w.logger.Debug("timeline rollup written", zap.String("afi", afi), zap.Int64("rows", rows))
	return nil
}

func upsertCount(ctx context.Context, tx pgx.Tx, table, day, afi string, code int, count int64) error {
	_, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (day, afi, code, count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (day, afi, code) DO UPDATE SET count = EXCLUDED.count`,
		pgx.Identifier{table}.Sanitize()),
		day, afi, code, count)
	return err
}

// SortedCodes returns the histogram's keys in ascending order.
func SortedCodes(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
