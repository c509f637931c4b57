package repository

import (
	"context"
	"database/sql"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"duel-tracker/internal/clock"
	"duel-tracker/internal/domain"
)

type RatingHistoryRepository struct {
	db     *sql.DB
	logger zerolog.Logger
	now    clock.Clock
}

func NewRatingHistoryRepository(db *sql.DB, logger zerolog.Logger, now clock.Clock) *RatingHistoryRepository {
	return &RatingHistoryRepository{db: db, logger: logger, now: now}
}

// Record appends rating changes in one transaction, generating ids for
// entries that lack one.
func (r *RatingHistoryRepository) Record(ctx context.Context, changes []domain.RatingChange) error {
	if len(changes) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StorageError("beginning rating history transaction", err)
	}
	defer tx.Rollback()

	for _, change := range changes {
		id := change.ID
		if id == "" {
			id, err = gonanoid.New()
			if err != nil {
				return fmt.Errorf("failed to generate nanoid: %w", err)
			}
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO rating_history (id, duel_id, player_id, rating_before, rating_after, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, change.DuelID, change.PlayerID, change.Before, change.After, r.now())
		if err != nil {
			return domain.StorageError(fmt.Sprintf("recording rating change for %s", change.PlayerID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.StorageError("committing rating history", err)
	}
	return nil
}

func (r *RatingHistoryRepository) ForPlayer(ctx context.Context, id string, limit int) ([]domain.RatingChange, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, duel_id, player_id, rating_before, rating_after, created_at
		 FROM rating_history
		 WHERE player_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		id, limit)
	if err != nil {
		return nil, domain.StorageError(fmt.Sprintf("loading rating history for %s", id), err)
	}
	defer rows.Close()

	var changes []domain.RatingChange
	for rows.Next() {
		var c domain.RatingChange
		if err := rows.Scan(&c.ID, &c.DuelID, &c.PlayerID, &c.Before, &c.After, &c.CreatedAt); err != nil {
			return nil, domain.StorageError("scanning rating history row", err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("iterating rating history rows", err)
	}
	return changes, nil
}
