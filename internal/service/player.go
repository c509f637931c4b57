package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"duel-tracker/internal/constants"
	"duel-tracker/internal/domain"
	"duel-tracker/internal/rating"
	"duel-tracker/internal/repository"
)

type PlayerService struct {
	players *repository.PlayerRepository
	duels   *repository.DuelRepository
	history *repository.RatingHistoryRepository
	locks   *Locker
	logger  zerolog.Logger
}

func NewPlayerService(
	players *repository.PlayerRepository,
	duels *repository.DuelRepository,
	history *repository.RatingHistoryRepository,
	locks *Locker,
	logger zerolog.Logger,
) *PlayerService {
	return &PlayerService{
		players: players,
		duels:   duels,
		history: history,
		locks:   locks,
		logger:  logger,
	}
}

type PlayerStanding struct {
	PlayerID string `json:"player_id"`
	Rating   int    `json:"rating"`
	Matches  int    `json:"matches"`
	Streak   int    `json:"streak"`
	Tier     string `json:"tier"`
}

func standing(p *domain.Player) *PlayerStanding {
	return &PlayerStanding{
		PlayerID: p.ID,
		Rating:   p.Rating,
		Matches:  p.Matches,
		Streak:   p.Streak,
		Tier:     rating.TierFor(p.Rating),
	}
}

// Rating looks a player up, creating them at the base rating on first
// reference and applying inactivity decay on the way out.
func (s *PlayerService) Rating(ctx context.Context, id string) (*PlayerStanding, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: player id required", domain.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	unlock := s.locks.LockPlayers(id)
	defer unlock()

	p, err := s.players.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	return standing(p), nil
}

// AdjustRating adds delta to the current rating, clamped at zero.
func (s *PlayerService) AdjustRating(ctx context.Context, id string, delta int) (*PlayerStanding, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: player id required", domain.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	unlock := s.locks.LockPlayers(id)
	defer unlock()

	p, err := s.players.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}

	newRating := p.Rating + delta
	if newRating < 0 {
		newRating = 0
	}
	if err := s.players.Save(ctx, id, newRating, p.Matches, p.Streak); err != nil {
		return nil, err
	}

	s.logger.Info().Str("player_id", id).Int("delta", delta).Int("rating", newRating).Msg("rating adjusted")
	p.Rating = newRating
	return standing(p), nil
}

func (s *PlayerService) SetRating(ctx context.Context, id string, value int) (*PlayerStanding, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: player id required", domain.ErrValidation)
	}
	if value < 0 {
		return nil, fmt.Errorf("%w: rating must be >= 0, got %d", domain.ErrValidation, value)
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	unlock := s.locks.LockPlayers(id)
	defer unlock()

	p, err := s.players.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.players.Save(ctx, id, value, p.Matches, p.Streak); err != nil {
		return nil, err
	}

	s.logger.Info().Str("player_id", id).Int("rating", value).Msg("rating set")
	p.Rating = value
	return standing(p), nil
}

// ResetRating returns a player to base rating with zeroed matches and streak.
func (s *PlayerService) ResetRating(ctx context.Context, id string) (*PlayerStanding, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: player id required", domain.ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	unlock := s.locks.LockPlayers(id)
	defer unlock()

	p, err := s.players.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.players.Save(ctx, id, constants.BaseRating, 0, 0); err != nil {
		return nil, err
	}

	s.logger.Info().Str("player_id", id).Msg("rating reset")
	p.Rating = constants.BaseRating
	p.Matches = 0
	p.Streak = 0
	return standing(p), nil
}

func (s *PlayerService) Leaderboard(ctx context.Context, n int) ([]PlayerStanding, error) {
	if n <= 0 {
		n = constants.DefaultLeaderboardN
	}
	if n > constants.MaxLeaderboardN {
		n = constants.MaxLeaderboardN
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	players, err := s.players.Leaderboard(ctx, n)
	if err != nil {
		return nil, err
	}

	standings := make([]PlayerStanding, len(players))
	for i := range players {
		standings[i] = *standing(&players[i])
	}
	return standings, nil
}

func (s *PlayerService) History(ctx context.Context, id string, limit int) ([]domain.Duel, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: player id required", domain.ErrValidation)
	}
	if limit <= 0 {
		limit = constants.DefaultHistoryLimit
	}
	if limit > constants.MaxHistoryLimit {
		limit = constants.MaxHistoryLimit
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.duels.HistoryFor(ctx, id, limit)
}

func (s *PlayerService) RatingHistory(ctx context.Context, id string, limit int) ([]domain.RatingChange, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: player id required", domain.ErrValidation)
	}
	if limit <= 0 {
		limit = constants.DefaultHistoryLimit
	}
	if limit > constants.MaxHistoryLimit {
		limit = constants.MaxHistoryLimit
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.history.ForPlayer(ctx, id, limit)
}

func (s *PlayerService) FlagDuel(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.duels.SetFlag(ctx, id, true)
}

func (s *PlayerService) UnflagDuel(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.duels.SetFlag(ctx, id, false)
}
