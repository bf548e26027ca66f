// Package maintenance runs the periodic housekeeping against the
// optional Postgres rollup sink: trimming rows older than the
// configured retention window from the three rollup tables. The
// tables are day-keyed upserts rather than a high-volume event stream
// (one row per prefix per day, not one row per BGP update), so a
// timezone-aware retention DELETE suffices; there is no
// partition-count problem to manage.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// rollupTables are the three tables the rollup sink upserts into, all
// carrying a "day" column.
var rollupTables = []string{"route_check_daily", "path_check_daily", "route_violation_timeline"}

type RetentionManager struct {
	pool          *pgxpool.Pool
	retentionDays int
	timezone      string
	logger        *zap.Logger
}

func NewRetentionManager(pool *pgxpool.Pool, retentionDays int, timezone string, logger *zap.Logger) *RetentionManager {
	return &RetentionManager{
		pool:          pool,
		retentionDays: retentionDays,
		timezone:      timezone,
		logger:        logger,
	}
}

// Run deletes rows older than the configured retention window from
// every rollup table, in the given timezone.
func (rm *RetentionManager) Run(ctx context.Context) error {
	loc, err := time.LoadLocation(rm.timezone)
	if err != nil {
		return fmt.Errorf("maintenance: loading timezone %s: %w", rm.timezone, err)
	}
	cutoff := time.Now().In(loc).AddDate(0, 0, -rm.retentionDays)
	cutoffDate := time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, loc)

	for _, table := range rollupTables {
		if err := rm.dropOlderThan(ctx, table, cutoffDate); err != nil {
			return fmt.Errorf("maintenance: trimming %s: %w", table, err)
		}
	}
	return nil
}

func (rm *RetentionManager) dropOlderThan(ctx context.Context, table string, cutoff time.Time) error {
	safeName := pgx.Identifier{table}.Sanitize()
	tag, err := rm.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE day < $1", safeName), cutoff)
	if err != nil {
		return err
	}
	rm.logger.Info("trimmed rollup rows past retention",
		zap.String("table", table),
		zap.Int64("rows_deleted", tag.RowsAffected()),
		zap.Time("cutoff", cutoff))
	return nil
}
