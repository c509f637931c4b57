package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"duel-tracker/internal/clock"
	"duel-tracker/internal/constants"
	"duel-tracker/internal/domain"
	"duel-tracker/internal/rating"
	"duel-tracker/internal/repository"
)

type DuelService struct {
	players *repository.PlayerRepository
	duels   *repository.DuelRepository
	history *repository.RatingHistoryRepository
	locks   *Locker
	logger  zerolog.Logger
	now     clock.Clock
}

func NewDuelService(
	players *repository.PlayerRepository,
	duels *repository.DuelRepository,
	history *repository.RatingHistoryRepository,
	locks *Locker,
	logger zerolog.Logger,
	now clock.Clock,
) *DuelService {
	return &DuelService{
		players: players,
		duels:   duels,
		history: history,
		locks:   locks,
		logger:  logger,
		now:     now,
	}
}

type SideResult struct {
	PlayerID string `json:"player_id"`
	Before   int    `json:"rating_before"`
	After    int    `json:"rating_after"`
	Streak   int    `json:"streak"`
	Tier     string `json:"tier"`
}

type DuelResult struct {
	DuelID     int64      `json:"duel_id"`
	IsDraw     bool       `json:"is_draw"`
	Challenger SideResult `json:"challenger"`
	Opponent   SideResult `json:"opponent"`
}

// Resolve settles one duel end to end: rematch guard, K derivation, rating
// update, persistence, ledger append. Only the first opponent is rated; the
// rest of the list affects the stored team size and the solo-vs-team K
// adjustments, nothing else.
func (s *DuelService) Resolve(ctx context.Context, challenger string, opponents []string, outcomeStr string, margin int) (*DuelResult, error) {
	if challenger == "" {
		return nil, fmt.Errorf("%w: challenger id required", domain.ErrValidation)
	}
	if len(opponents) == 0 {
		return nil, fmt.Errorf("%w: at least one opponent required", domain.ErrValidation)
	}
	if margin < 1 {
		return nil, fmt.Errorf("%w: margin must be >= 1, got %d", domain.ErrValidation, margin)
	}
	outcome, err := domain.ParseOutcome(outcomeStr)
	if err != nil {
		return nil, err
	}

	opponent := opponents[0]
	if opponent == challenger {
		return nil, fmt.Errorf("%w: challenger cannot duel themselves", domain.ErrValidation)
	}
	isSoloVsTeam := len(opponents) > 1

	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	unlock := s.locks.LockPlayers(challenger, opponent)
	defer unlock()

	// Rematch guard runs before any write so a rejection leaves no trace.
	last, err := s.duels.LastBetween(ctx, challenger, opponent)
	if err != nil {
		return nil, err
	}
	if last != nil && s.now().Sub(*last) < constants.RematchWindow {
		return nil, fmt.Errorf("%w: last duel between %s and %s at %s",
			domain.ErrRematchTooSoon, challenger, opponent, last.Format(time.RFC3339))
	}

	var chal, opp *domain.Player
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.players.GetOrCreate(gctx, challenger)
		chal = p
		return err
	})
	g.Go(func() error {
		p, err := s.players.GetOrCreate(gctx, opponent)
		opp = p
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	actualC, actualO := outcome.Scores()
	expectedC := rating.ExpectedScore(chal.Rating, opp.Rating)
	expectedO := rating.ExpectedScore(opp.Rating, chal.Rating)

	// The K adjustments below are cumulative on the same variable, in this
	// order: provisional base, solo-vs-team, upset bonus, margin.
	kC := rating.BaseK(chal.Matches)
	kO := rating.BaseK(opp.Matches)

	if isSoloVsTeam {
		if actualC == 1 {
			kC += constants.SoloVsTeamBonus
		} else if actualO == 1 {
			kO = constants.TeamLossK
		}
	}

	streakC, streakO := nextStreaks(chal.Streak, opp.Streak, actualC, actualO)

	if actualC == 1 && chal.Rating < opp.Rating {
		kC += constants.UpsetBonus
	}
	if actualO == 1 && opp.Rating < chal.Rating {
		kO += constants.UpsetBonus
	}

	kC += margin
	kO += margin

	newC := clampRating(rating.UpdatedRating(chal.Rating, actualC, expectedC, kC))
	newO := clampRating(rating.UpdatedRating(opp.Rating, actualO, expectedO, kO))

	if err := s.players.Save(ctx, challenger, newC, chal.Matches+1, streakC); err != nil {
		return nil, err
	}
	if err := s.players.Save(ctx, opponent, newO, opp.Matches+1, streakO); err != nil {
		return nil, err
	}

	duel := &domain.Duel{
		UserA:     challenger,
		UserB:     opponent,
		Winner:    pickWinner(challenger, opponent, actualC),
		Loser:     pickLoser(challenger, opponent, actualC),
		IsDraw:    actualC == actualO,
		TeamSizeA: 1,
		TeamSizeB: len(opponents),
		Margin:    margin,
		Timestamp: s.now(),
	}
	duelID, err := s.duels.Record(ctx, duel)
	if err != nil {
		return nil, err
	}

	s.recordRatingChanges(ctx, duelID, chal, newC, opp, newO)

	s.logger.Info().
		Int64("duel_id", duelID).
		Str("challenger", challenger).
		Str("opponent", opponent).
		Str("outcome", string(outcome)).
		Int("k_challenger", kC).
		Int("k_opponent", kO).
		Int("rating_challenger", newC).
		Int("rating_opponent", newO).
		Msg("duel resolved")

	return &DuelResult{
		DuelID: duelID,
		IsDraw: duel.IsDraw,
		Challenger: SideResult{
			PlayerID: challenger,
			Before:   chal.Rating,
			After:    newC,
			Streak:   streakC,
			Tier:     rating.TierFor(newC),
		},
		Opponent: SideResult{
			PlayerID: opponent,
			Before:   opp.Rating,
			After:    newO,
			Streak:   streakO,
			Tier:     rating.TierFor(newO),
		},
	}, nil
}

// ForceResolve logs a duel administratively: no rematch guard and no
// solo-vs-team classification, but the provisional K, upset bonus, and
// margin boost still apply. Streaks only ever increment here, matching the
// manual-entry behavior the ladder has always had.
func (s *DuelService) ForceResolve(ctx context.Context, winner, loser, outcomeStr string, margin int) (*DuelResult, error) {
	if winner == "" || loser == "" {
		return nil, fmt.Errorf("%w: winner and loser ids required", domain.ErrValidation)
	}
	if winner == loser {
		return nil, fmt.Errorf("%w: winner and loser must differ", domain.ErrValidation)
	}
	if margin < 1 {
		return nil, fmt.Errorf("%w: margin must be >= 1, got %d", domain.ErrValidation, margin)
	}
	outcome, err := domain.ParseOutcome(outcomeStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	unlock := s.locks.LockPlayers(winner, loser)
	defer unlock()

	var w, l *domain.Player
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.players.GetOrCreate(gctx, winner)
		w = p
		return err
	})
	g.Go(func() error {
		p, err := s.players.GetOrCreate(gctx, loser)
		l = p
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	actualW, actualL := outcome.Scores()
	expectedW := rating.ExpectedScore(w.Rating, l.Rating)
	expectedL := rating.ExpectedScore(l.Rating, w.Rating)

	kW := rating.BaseK(w.Matches)
	kL := rating.BaseK(l.Matches)

	if actualW == 1 && w.Rating < l.Rating {
		kW += constants.UpsetBonus
	}
	if actualL == 1 && l.Rating < w.Rating {
		kL += constants.UpsetBonus
	}

	kW += margin
	kL += margin

	newW := clampRating(rating.UpdatedRating(w.Rating, actualW, expectedW, kW))
	newL := clampRating(rating.UpdatedRating(l.Rating, actualL, expectedL, kL))

	streakW := w.Streak
	if actualW == 1 {
		streakW++
	}
	streakL := l.Streak
	if actualL == 1 {
		streakL++
	}

	if err := s.players.Save(ctx, winner, newW, w.Matches+1, streakW); err != nil {
		return nil, err
	}
	if err := s.players.Save(ctx, loser, newL, l.Matches+1, streakL); err != nil {
		return nil, err
	}

	duel := &domain.Duel{
		UserA:     winner,
		UserB:     loser,
		Winner:    pickWinner(winner, loser, actualW),
		Loser:     pickLoser(winner, loser, actualW),
		IsDraw:    actualW == actualL,
		TeamSizeA: 1,
		TeamSizeB: 1,
		Margin:    margin,
		Timestamp: s.now(),
	}
	duelID, err := s.duels.Record(ctx, duel)
	if err != nil {
		return nil, err
	}

	s.recordRatingChanges(ctx, duelID, w, newW, l, newL)

	s.logger.Info().
		Int64("duel_id", duelID).
		Str("winner", winner).
		Str("loser", loser).
		Str("outcome", string(outcome)).
		Msg("duel force-resolved")

	return &DuelResult{
		DuelID: duelID,
		IsDraw: duel.IsDraw,
		Challenger: SideResult{
			PlayerID: winner,
			Before:   w.Rating,
			After:    newW,
			Streak:   streakW,
			Tier:     rating.TierFor(newW),
		},
		Opponent: SideResult{
			PlayerID: loser,
			Before:   l.Rating,
			After:    newL,
			Streak:   streakL,
			Tier:     rating.TierFor(newL),
		},
	}, nil
}

// Rating history is an audit trail; losing an entry is not worth failing a
// resolved duel over.
func (s *DuelService) recordRatingChanges(ctx context.Context, duelID int64, a *domain.Player, newA int, b *domain.Player, newB int) {
	err := s.history.Record(ctx, []domain.RatingChange{
		{DuelID: duelID, PlayerID: a.ID, Before: a.Rating, After: newA},
		{DuelID: duelID, PlayerID: b.ID, Before: b.Rating, After: newB},
	})
	if err != nil {
		s.logger.Warn().Err(err).Int64("duel_id", duelID).Msg("failed to record rating history")
	}
}

// A winner's streak continues only while it was non-negative; coming off a
// loss streak restarts at 1. The other side, and both sides of a draw,
// reset to 0.
func nextStreaks(sc, so int, actualC, actualO float64) (int, int) {
	switch {
	case actualC == 1:
		if sc >= 0 {
			sc++
		} else {
			sc = 1
		}
		so = 0
	case actualO == 1:
		if so >= 0 {
			so++
		} else {
			so = 1
		}
		sc = 0
	default:
		sc, so = 0, 0
	}
	return sc, so
}

func clampRating(r int) int {
	if r < 0 {
		return 0
	}
	return r
}

func pickWinner(first, second string, actualFirst float64) string {
	if actualFirst == 1 {
		return first
	}
	return second
}

func pickLoser(first, second string, actualFirst float64) string {
	if actualFirst == 1 {
		return second
	}
	return first
}
