package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duel-tracker/internal/domain"
	"duel-tracker/internal/rating"
)

func TestResolveFreshPlayersEvenWin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.duels.Resolve(ctx, "alice", []string{"bob"}, "win", 1)
	require.NoError(t, err)

	assert.Equal(t, 1520, res.Challenger.After)
	assert.Equal(t, 1480, res.Opponent.After)
	assert.Equal(t, 1500, res.Challenger.Before)
	assert.Equal(t, 1500, res.Opponent.Before)
	assert.Equal(t, 1, res.Challenger.Streak)
	assert.Equal(t, 0, res.Opponent.Streak)
	assert.False(t, res.IsDraw)
	assert.Equal(t, "Novice", res.Challenger.Tier)

	alice, err := f.players.GetOrCreate(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1520, alice.Rating)
	assert.Equal(t, 1, alice.Matches)
	assert.Equal(t, 1, alice.Streak)

	bob, err := f.players.GetOrCreate(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1480, bob.Rating)
	assert.Equal(t, 1, bob.Matches)
	assert.Equal(t, 0, bob.Streak)

	history, err := f.duelRepo.HistoryFor(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "alice", history[0].Winner)
	assert.Equal(t, "bob", history[0].Loser)
	assert.Equal(t, res.DuelID, history[0].ID)
}

func TestResolveDraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPlayer(t, "alice", 1500, 0, 3)
	f.seedPlayer(t, "bob", 1500, 0, 2)

	res, err := f.duels.Resolve(ctx, "alice", []string{"bob"}, "draw", 1)
	require.NoError(t, err)

	assert.True(t, res.IsDraw)
	assert.Equal(t, 1500, res.Challenger.After)
	assert.Equal(t, 1500, res.Opponent.After)
	assert.Equal(t, 0, res.Challenger.Streak)
	assert.Equal(t, 0, res.Opponent.Streak)
}

func TestResolveRematchGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.duels.Resolve(ctx, "alice", []string{"bob"}, "win", 1)
	require.NoError(t, err)

	f.clk.Advance(3599 * time.Second)

	_, err = f.duels.Resolve(ctx, "bob", []string{"alice"}, "win", 1)
	assert.ErrorIs(t, err, domain.ErrRematchTooSoon)

	// rejection left both players untouched
	alice, err := f.players.GetOrCreate(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1520, alice.Rating)
	assert.Equal(t, 1, alice.Matches)
	assert.Equal(t, 1, alice.Streak)

	bob, err := f.players.GetOrCreate(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1480, bob.Rating)
	assert.Equal(t, 1, bob.Matches)

	f.clk.Advance(time.Second)

	_, err = f.duels.Resolve(ctx, "bob", []string{"alice"}, "win", 1)
	assert.NoError(t, err, "window is strictly under one hour")
}

func TestResolveSoloVsTeamWinBonus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.duels.Resolve(ctx, "alice", []string{"bob", "carol"}, "win", 1)
	require.NoError(t, err)

	// K = 40 provisional + 50 solo-vs-team + 1 margin = 91
	assert.Equal(t, rating.UpdatedRating(1500, 1, 0.5, 91), res.Challenger.After)
	// only the first opponent is rated
	assert.Equal(t, rating.UpdatedRating(1500, 0, 0.5, 41), res.Opponent.After)

	history, err := f.duelRepo.HistoryFor(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].TeamSizeA)
	assert.Equal(t, 2, history[0].TeamSizeB)

	// the extra opponent never entered the ledger or the player table
	carolHistory, err := f.duelRepo.HistoryFor(ctx, "carol", 10)
	require.NoError(t, err)
	assert.Empty(t, carolHistory)
}

func TestResolveSoloVsTeamLossOverridesK(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// a veteran opponent would normally move at K=20
	f.seedPlayer(t, "bob", 1500, 30, 0)

	res, err := f.duels.Resolve(ctx, "alice", []string{"bob", "carol"}, "lose", 1)
	require.NoError(t, err)

	// team side K is overridden to 40, not added to: 40 + 1 margin = 41
	assert.Equal(t, rating.UpdatedRating(1500, 1, 0.5, 41), res.Opponent.After)
	assert.Equal(t, 1520, res.Opponent.After)
	assert.Equal(t, rating.UpdatedRating(1500, 0, 0.5, 41), res.Challenger.After)
}

func TestResolveUpsetBonus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPlayer(t, "alice", 1400, 0, 0)
	f.seedPlayer(t, "bob", 1600, 0, 0)

	res, err := f.duels.Resolve(ctx, "alice", []string{"bob"}, "win", 1)
	require.NoError(t, err)

	// winner below opponent gets +10: K = 40 + 10 + 1
	expected := rating.ExpectedScore(1400, 1600)
	assert.Equal(t, rating.UpdatedRating(1400, 1, expected, 51), res.Challenger.After)
	assert.Equal(t, rating.UpdatedRating(1600, 0, 1-expected, 41), res.Opponent.After)
	assert.Greater(t, res.Challenger.After-1400, 1600-res.Opponent.After,
		"upset winner moves further than the favorite falls")
}

func TestResolveMarginBoostsBothSides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.duels.Resolve(ctx, "alice", []string{"bob"}, "win", 10)
	require.NoError(t, err)

	// K = 40 + 10 margin = 50 for both sides
	assert.Equal(t, 1525, res.Challenger.After)
	assert.Equal(t, 1475, res.Opponent.After)
}

func TestResolveStreakRestartsAfterNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPlayer(t, "alice", 1500, 0, -3)

	res, err := f.duels.Resolve(ctx, "alice", []string{"bob"}, "win", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Challenger.Streak, "negative streak restarts at 1")
}

func TestResolveValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		challenger string
		opponents  []string
		outcome    string
		margin     int
	}{
		{"empty opponents", "alice", nil, "win", 1},
		{"zero margin", "alice", []string{"bob"}, "win", 0},
		{"negative margin", "alice", []string{"bob"}, "win", -2},
		{"bad outcome", "alice", []string{"bob"}, "crushed", 1},
		{"self duel", "alice", []string{"alice"}, "win", 1},
		{"missing challenger", "", []string{"bob"}, "win", 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := f.duels.Resolve(ctx, test.challenger, test.opponents, test.outcome, test.margin)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	// no side effects from any rejected call
	history, err := f.duelRepo.HistoryFor(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestForceResolveSkipsRematchGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.duels.Resolve(ctx, "alice", []string{"bob"}, "win", 1)
	require.NoError(t, err)

	res, err := f.duels.ForceResolve(ctx, "alice", "bob", "win", 1)
	require.NoError(t, err)
	assert.Equal(t, 1520, res.Challenger.Before)
	assert.Equal(t, 2, res.Challenger.Streak)

	alice, err := f.players.GetOrCreate(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, alice.Matches)
}

func TestForceResolveLeavesLoserStreak(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPlayer(t, "bob", 1500, 0, 3)

	_, err := f.duels.ForceResolve(ctx, "alice", "bob", "win", 1)
	require.NoError(t, err)

	bob, err := f.players.GetOrCreate(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 3, bob.Streak, "manual entry does not reset the loser's streak")
}
