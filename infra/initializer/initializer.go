// Package initializer constructs the process-scoped dependencies: logger,
// database connections, event bus, and the store/repository adapters. Every
// handle is explicitly built and injected; nothing global survives shutdown.
package initializer

import (
	"fmt"
	"log/slog"

	"github.com/amirasaad/ledger/infra"
	infraeventbus "github.com/amirasaad/ledger/infra/eventbus"
	infraeventstore "github.com/amirasaad/ledger/infra/eventstore"
	infrareadmodel "github.com/amirasaad/ledger/infra/readmodel"
	"github.com/amirasaad/ledger/pkg/app"
	"github.com/amirasaad/ledger/pkg/config"
	"github.com/amirasaad/ledger/pkg/eventbus"
)

// InitializeDependencies builds all dependencies from the loaded config.
func InitializeDependencies(cfg *config.App) (*app.Deps, error) {
	logger := setupLogger(cfg.Log)

	eventDB, err := infra.NewDBConnection(cfg.EventStoreDB, cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("event store connection: %w", err)
	}
	if err := infraeventstore.Migrate(eventDB); err != nil {
		return nil, fmt.Errorf("event store migration: %w", err)
	}

	readDB, err := infra.NewDBConnection(cfg.ReadModelDB, cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("read model connection: %w", err)
	}
	if err := infrareadmodel.Migrate(readDB); err != nil {
		return nil, fmt.Errorf("read model migration: %w", err)
	}

	bus, err := newEventBus(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("event bus: %w", err)
	}

	return &app.Deps{
		EventStore: infraeventstore.New(eventDB),
		ReadModel:  infrareadmodel.NewRepositories(readDB),
		EventBus:   bus,
		Logger:     logger,
	}, nil
}

func newEventBus(cfg *config.App, logger *slog.Logger) (eventbus.Bus, error) {
	switch cfg.Bus.Driver {
	case "memory":
		return infraeventbus.NewWithMemory(logger), nil
	case "redis":
		return infraeventbus.NewWithRedis(cfg.Redis, logger)
	default:
		return nil, fmt.Errorf("unknown bus driver %q", cfg.Bus.Driver)
	}
}
