package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"duel-tracker/internal/clock"
	"duel-tracker/internal/config"
	"duel-tracker/internal/database"
	"duel-tracker/internal/repository"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.t = f.t.Add(d)
}

type fixture struct {
	db        *sql.DB
	clk       *fakeClock
	players   *repository.PlayerRepository
	duelRepo  *repository.DuelRepository
	snapshots *repository.SnapshotRepository
	duels     *DuelService
	playerSvc *PlayerService
	maint     *MaintenanceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db, zerolog.Nop()))

	clk := &fakeClock{t: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}
	now := clock.Clock(clk.Now)
	log := zerolog.Nop()

	players := repository.NewPlayerRepository(db, log, now)
	duelRepo := repository.NewDuelRepository(db, log)
	histRepo := repository.NewRatingHistoryRepository(db, log, now)
	snapRepo := repository.NewSnapshotRepository(db, log, now)
	locks := NewLocker()

	cfg := &config.Config{MonthlyResetHour: 0}

	return &fixture{
		db:        db,
		clk:       clk,
		players:   players,
		duelRepo:  duelRepo,
		snapshots: snapRepo,
		duels:     NewDuelService(players, duelRepo, histRepo, locks, log, now),
		playerSvc: NewPlayerService(players, duelRepo, histRepo, locks, log),
		maint:     NewMaintenanceService(players, snapRepo, locks, cfg, log, now),
	}
}

// seedPlayer creates a player and pins its mutable fields.
func (f *fixture) seedPlayer(t *testing.T, id string, rating, matches, streak int) {
	t.Helper()
	ctx := context.Background()
	_, err := f.players.GetOrCreate(ctx, id)
	require.NoError(t, err)
	require.NoError(t, f.players.Save(ctx, id, rating, matches, streak))
}
