package fx

import (
	"go.uber.org/fx"

	"duel-tracker/internal/clock"
	"duel-tracker/internal/config"
	"duel-tracker/internal/database"
	"duel-tracker/internal/handler"
	"duel-tracker/internal/logger"
	"duel-tracker/internal/repository"
	"duel-tracker/internal/service"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	fx.Provide(clock.System),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewDuelRepository),
	fx.Provide(repository.NewSnapshotRepository),
	fx.Provide(repository.NewRatingHistoryRepository),
	// svc
	fx.Provide(service.NewLocker),
	fx.Provide(service.NewDuelService),
	fx.Provide(service.NewPlayerService),
	fx.Provide(service.NewMaintenanceService),
	fx.Provide(service.NewMaintenanceWorker),
	// boundary
	fx.Provide(handler.New),
)
