package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"duel-tracker/internal/clock"
	"duel-tracker/internal/constants"
	"duel-tracker/internal/domain"
)

type PlayerRepository struct {
	db     *sql.DB
	logger zerolog.Logger
	now    clock.Clock
}

func NewPlayerRepository(db *sql.DB, logger zerolog.Logger, now clock.Clock) *PlayerRepository {
	return &PlayerRepository{db: db, logger: logger, now: now}
}

// GetOrCreate loads a player, inserting a fresh record at the base rating on
// first reference. Existing records get inactivity decay applied before they
// are returned: one rating step per full week since last_active, floored at
// the minimum rating, persisted with last_active moved to now so a re-read
// within the same burst decays nothing further.
func (r *PlayerRepository) GetOrCreate(ctx context.Context, id string) (*domain.Player, error) {
	p := domain.Player{ID: id}
	err := r.db.QueryRowContext(ctx,
		`SELECT rating, matches, streak, last_active FROM players WHERE player_id = ?`, id).
		Scan(&p.Rating, &p.Matches, &p.Streak, &p.LastActive)
	if errors.Is(err, sql.ErrNoRows) {
		return r.create(ctx, id)
	}
	if err != nil {
		return nil, domain.StorageError(fmt.Sprintf("loading player %s", id), err)
	}
	return r.applyDecay(ctx, &p)
}

func (r *PlayerRepository) create(ctx context.Context, id string) (*domain.Player, error) {
	now := r.now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO players (player_id, rating, matches, streak, last_active) VALUES (?, ?, 0, 0, ?)`,
		id, constants.BaseRating, now)
	if err != nil {
		return nil, domain.StorageError(fmt.Sprintf("creating player %s", id), err)
	}

	r.logger.Info().Str("player_id", id).Int("rating", constants.BaseRating).Msg("player created")
	return &domain.Player{ID: id, Rating: constants.BaseRating, LastActive: now}, nil
}

func (r *PlayerRepository) applyDecay(ctx context.Context, p *domain.Player) (*domain.Player, error) {
	now := r.now()
	weeks := int(now.Sub(p.LastActive).Hours() / (24 * 7))
	if weeks <= 0 {
		return p, nil
	}

	decayed := p.Rating - weeks*constants.InactivityDecayPerWeek
	if decayed < constants.MinRatingFloor {
		decayed = constants.MinRatingFloor
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE players SET rating = ?, last_active = ? WHERE player_id = ?`,
		decayed, now, p.ID)
	if err != nil {
		return nil, domain.StorageError(fmt.Sprintf("decaying player %s", p.ID), err)
	}

	r.logger.Info().
		Str("player_id", p.ID).
		Int("weeks_inactive", weeks).
		Int("rating_before", p.Rating).
		Int("rating_after", decayed).
		Msg("inactivity decay applied")

	p.Rating = decayed
	p.LastActive = now
	return p, nil
}

// Save overwrites the mutable fields and stamps last_active.
func (r *PlayerRepository) Save(ctx context.Context, id string, rating, matches, streak int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE players SET rating = ?, matches = ?, streak = ?, last_active = ? WHERE player_id = ?`,
		rating, matches, streak, r.now(), id)
	if err != nil {
		return domain.StorageError(fmt.Sprintf("saving player %s", id), err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("player %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *PlayerRepository) Leaderboard(ctx context.Context, n int) ([]domain.Player, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT player_id, rating, matches, streak, last_active FROM players ORDER BY rating DESC, player_id ASC LIMIT ?`, n)
	if err != nil {
		return nil, domain.StorageError("loading leaderboard", err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		var p domain.Player
		if err := rows.Scan(&p.ID, &p.Rating, &p.Matches, &p.Streak, &p.LastActive); err != nil {
			return nil, domain.StorageError("scanning leaderboard row", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("iterating leaderboard rows", err)
	}
	return players, nil
}

// ApplySoftReset multiplies every rating by the soft-reset factor, rounding
// half away from zero (SQLite ROUND semantics, as the monthly reset always
// has).
func (r *PlayerRepository) ApplySoftReset(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE players SET rating = CAST(ROUND(rating * ?) AS INTEGER)`, constants.SoftResetFactor)
	if err != nil {
		return 0, domain.StorageError("applying soft reset", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
