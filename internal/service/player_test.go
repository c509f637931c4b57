package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"duel-tracker/internal/constants"
	"duel-tracker/internal/domain"
)

func TestRatingCreatesLazily(t *testing.T) {
	f := newFixture(t)

	p, err := f.playerSvc.Rating(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, constants.BaseRating, p.Rating)
	assert.Equal(t, "Novice", p.Tier)
}

func TestAdjustRatingClampsAtZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.playerSvc.AdjustRating(ctx, "alice", -2000)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Rating)

	p, err = f.playerSvc.AdjustRating(ctx, "alice", 150)
	require.NoError(t, err)
	assert.Equal(t, 150, p.Rating)
}

func TestSetRating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.playerSvc.SetRating(ctx, "alice", 2250)
	require.NoError(t, err)
	assert.Equal(t, 2250, p.Rating)
	assert.Equal(t, "Grand Master", p.Tier)

	_, err = f.playerSvc.SetRating(ctx, "alice", -1)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestResetRating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPlayer(t, "alice", 2000, 42, 5)

	p, err := f.playerSvc.ResetRating(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, constants.BaseRating, p.Rating)
	assert.Equal(t, 0, p.Matches)
	assert.Equal(t, 0, p.Streak)
}

func TestLeaderboardDefaultsAndTiers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedPlayer(t, "alice", 2300, 50, 0)
	f.seedPlayer(t, "bob", 1850, 50, 0)
	f.seedPlayer(t, "carol", 1500, 2, 0)

	standings, err := f.playerSvc.Leaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, standings, 3)
	assert.Equal(t, "alice", standings[0].PlayerID)
	assert.Equal(t, "Grand Master", standings[0].Tier)
	assert.Equal(t, "Pro", standings[1].Tier)
	assert.Equal(t, "Novice", standings[2].Tier)
}

func TestFlagUnknownDuel(t *testing.T) {
	f := newFixture(t)

	err := f.playerSvc.FlagDuel(context.Background(), 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRatingHistoryRecordedPerDuel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.duels.Resolve(ctx, "alice", []string{"bob"}, "win", 1)
	require.NoError(t, err)

	changes, err := f.playerSvc.RatingHistory(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, 1500, changes[0].Before)
	assert.Equal(t, 1520, changes[0].After)
}
