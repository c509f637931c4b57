package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"duel-tracker/internal/clock"
	"duel-tracker/internal/domain"
)

type SnapshotRepository struct {
	db     *sql.DB
	logger zerolog.Logger
	now    clock.Clock
}

func NewSnapshotRepository(db *sql.DB, logger zerolog.Logger, now clock.Clock) *SnapshotRepository {
	return &SnapshotRepository{db: db, logger: logger, now: now}
}

// TryMarkRun claims the maintenance slot for a month. Returns false without
// error when that month has already run, which is what makes the monthly
// reset safe against short tick intervals and process restarts.
func (r *SnapshotRepository) TryMarkRun(ctx context.Context, month string) (bool, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO maintenance_runs (month, ran_at) VALUES (?, ?)`, month, r.now())
	if err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
			return false, nil
		}
		return false, domain.StorageError(fmt.Sprintf("marking maintenance run for %s", month), err)
	}
	return true, nil
}

// RecordTop stores the month's leaderboard snapshot in one transaction.
func (r *SnapshotRepository) RecordTop(ctx context.Context, month string, players []domain.Player) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StorageError("beginning snapshot transaction", err)
	}
	defer tx.Rollback()

	for _, p := range players {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO monthly_top (month, player_id, rating) VALUES (?, ?, ?)`,
			month, p.ID, p.Rating)
		if err != nil {
			return domain.StorageError(fmt.Sprintf("snapshotting player %s", p.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.StorageError("committing snapshot", err)
	}

	r.logger.Info().Str("month", month).Int("players", len(players)).Msg("monthly snapshot recorded")
	return nil
}

func (r *SnapshotRepository) TopForMonth(ctx context.Context, month string) ([]domain.MonthlyTop, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT month, player_id, rating FROM monthly_top WHERE month = ? ORDER BY rating DESC, player_id ASC`,
		month)
	if err != nil {
		return nil, domain.StorageError(fmt.Sprintf("loading snapshot for %s", month), err)
	}
	defer rows.Close()

	var entries []domain.MonthlyTop
	for rows.Next() {
		var e domain.MonthlyTop
		if err := rows.Scan(&e.Month, &e.PlayerID, &e.Rating); err != nil {
			return nil, domain.StorageError("scanning snapshot row", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("iterating snapshot rows", err)
	}
	return entries, nil
}
