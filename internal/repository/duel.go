package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"duel-tracker/internal/domain"
)

type DuelRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewDuelRepository(db *sql.DB, logger zerolog.Logger) *DuelRepository {
	return &DuelRepository{db: db, logger: logger}
}

// LastBetween returns the timestamp of the most recent duel between the
// unordered pair, or nil when they have never met.
func (r *DuelRepository) LastBetween(ctx context.Context, a, b string) (*time.Time, error) {
	var ts time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT timestamp FROM duels
		 WHERE (user_a = ? AND user_b = ?) OR (user_a = ? AND user_b = ?)
		 ORDER BY id DESC LIMIT 1`,
		a, b, b, a).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.StorageError("loading last duel between pair", err)
	}
	return &ts, nil
}

// Record appends the duel and returns the generated id.
func (r *DuelRepository) Record(ctx context.Context, d *domain.Duel) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO duels (user_a, user_b, winner, loser, is_draw, team_size_a, team_size_b, margin, flagged, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		d.UserA, d.UserB, d.Winner, d.Loser, d.IsDraw, d.TeamSizeA, d.TeamSizeB, d.Margin, d.Timestamp)
	if err != nil {
		return 0, domain.StorageError("recording duel", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, domain.StorageError("reading duel id", err)
	}

	r.logger.Info().
		Int64("duel_id", id).
		Str("user_a", d.UserA).
		Str("user_b", d.UserB).
		Bool("is_draw", d.IsDraw).
		Msg("duel recorded")
	return id, nil
}

// SetFlag marks or clears the review flag. Unknown ids return ErrNotFound.
func (r *DuelRepository) SetFlag(ctx context.Context, id int64, flagged bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE duels SET flagged = ? WHERE id = ?`, flagged, id)
	if err != nil {
		return domain.StorageError(fmt.Sprintf("flagging duel %d", id), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("duel %d: %w", id, domain.ErrNotFound)
	}

	r.logger.Info().Int64("duel_id", id).Bool("flagged", flagged).Msg("duel flag updated")
	return nil
}

// HistoryFor lists a player's duels, most recent first.
func (r *DuelRepository) HistoryFor(ctx context.Context, id string, limit int) ([]domain.Duel, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_a, user_b, winner, loser, is_draw, team_size_a, team_size_b, margin, flagged, timestamp
		 FROM duels
		 WHERE user_a = ? OR user_b = ?
		 ORDER BY timestamp DESC, id DESC LIMIT ?`,
		id, id, limit)
	if err != nil {
		return nil, domain.StorageError(fmt.Sprintf("loading history for %s", id), err)
	}
	defer rows.Close()

	var duels []domain.Duel
	for rows.Next() {
		var d domain.Duel
		if err := rows.Scan(&d.ID, &d.UserA, &d.UserB, &d.Winner, &d.Loser, &d.IsDraw,
			&d.TeamSizeA, &d.TeamSizeB, &d.Margin, &d.Flagged, &d.Timestamp); err != nil {
			return nil, domain.StorageError("scanning duel row", err)
		}
		duels = append(duels, d)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("iterating duel rows", err)
	}
	return duels, nil
}
