package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"duel-tracker/internal/clock"
	"duel-tracker/internal/config"
	"duel-tracker/internal/constants"
	"duel-tracker/internal/repository"
)

type MaintenanceService struct {
	players   *repository.PlayerRepository
	snapshots *repository.SnapshotRepository
	locks     *Locker
	logger    zerolog.Logger
	now       clock.Clock
	resetHour int
}

func NewMaintenanceService(
	players *repository.PlayerRepository,
	snapshots *repository.SnapshotRepository,
	locks *Locker,
	cfg *config.Config,
	logger zerolog.Logger,
	now clock.Clock,
) *MaintenanceService {
	return &MaintenanceService{
		players:   players,
		snapshots: snapshots,
		locks:     locks,
		logger:    logger,
		now:       now,
		resetHour: cfg.MonthlyResetHour,
	}
}

// RunMonthly snapshots the top players and applies the 0.8 soft reset.
// Scheduled runs (force=false) only fire on the first of the month at the
// configured hour; a forced run skips the date check. Either way the
// per-month guard makes repeat invocations within the same month no-ops,
// and the whole pass holds the global lock so it cannot interleave with an
// in-flight duel.
func (s *MaintenanceService) RunMonthly(ctx context.Context, force bool) (bool, error) {
	now := s.now()
	if !force && !(now.Day() == 1 && now.Hour() == s.resetHour) {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	unlock := s.locks.LockAll()
	defer unlock()

	month := now.Format("2006-01")
	claimed, err := s.snapshots.TryMarkRun(ctx, month)
	if err != nil {
		return false, err
	}
	if !claimed {
		s.logger.Debug().Str("month", month).Msg("monthly maintenance already ran")
		return false, nil
	}

	top, err := s.players.Leaderboard(ctx, constants.TopSnapshotN)
	if err != nil {
		return false, err
	}
	if err := s.snapshots.RecordTop(ctx, month, top); err != nil {
		return false, err
	}

	affected, err := s.players.ApplySoftReset(ctx)
	if err != nil {
		return false, err
	}

	s.logger.Info().
		Str("month", month).
		Int("snapshotted", len(top)).
		Int64("reset_players", affected).
		Msg("monthly maintenance applied")
	return true, nil
}

// MaintenanceWorker re-checks the monthly trigger on a fixed tick.
type MaintenanceWorker struct {
	svc      *MaintenanceService
	interval time.Duration
	logger   zerolog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

func NewMaintenanceWorker(svc *MaintenanceService, cfg *config.Config, logger zerolog.Logger) *MaintenanceWorker {
	return &MaintenanceWorker{
		svc:      svc,
		interval: cfg.MaintenanceTick,
		logger:   logger,
	}
}

// Start launches the tick loop. The context only covers the startup window,
// so the loop's lifetime hangs off stopCh instead; Stop ends it.
func (w *MaintenanceWorker) Start(_ context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	w.logger.Info().Dur("interval", w.interval).Msg("maintenance worker started")

	go w.run(stopCh, doneCh)
	return nil
}

func (w *MaintenanceWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)
	<-doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info().Msg("maintenance worker stopped")
	return nil
}

func (w *MaintenanceWorker) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if _, err := w.svc.RunMonthly(context.Background(), false); err != nil {
				w.logger.Error().Err(err).Msg("monthly maintenance failed")
			}
		}
	}
}
