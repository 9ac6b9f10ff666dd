// Package app assembles the services from injected dependencies.
package app

import (
	"context"
	"log/slog"

	"github.com/amirasaad/ledger/pkg/config"
	"github.com/amirasaad/ledger/pkg/eventbus"
	"github.com/amirasaad/ledger/pkg/eventstore"
	"github.com/amirasaad/ledger/pkg/readmodel"
	"github.com/amirasaad/ledger/pkg/service/ledger"
	"github.com/amirasaad/ledger/pkg/service/projection"
	"github.com/amirasaad/ledger/pkg/service/query"
)

// Deps contains the process-scoped dependencies built by the initializer.
type Deps struct {
	EventStore eventstore.Store
	ReadModel  readmodel.Repositories
	EventBus   eventbus.Bus
	Logger     *slog.Logger
}

// App bundles the three core services behind one construction point.
type App struct {
	Deps          *Deps
	Config        *config.App
	LedgerService *ledger.Service
	Projector     *projection.Projector
	QueryService  *query.Service
}

// New builds the command processor, projector, and query engine over the
// given dependencies.
func New(deps *Deps, cfg *config.App) *App {
	return &App{
		Deps:          deps,
		Config:        cfg,
		LedgerService: ledger.New(deps.EventStore, deps.EventBus, deps.Logger),
		Projector:     projection.New(deps.EventStore, deps.ReadModel, deps.Logger),
		QueryService:  query.New(deps.EventStore, deps.ReadModel, deps.Logger),
	}
}

// StartProjector runs the catch-up replay (per config) and registers the
// live subscriptions. It must complete before the HTTP surface starts
// serving so the read model is as fresh as the log allows.
func (a *App) StartProjector(ctx context.Context) error {
	return a.Projector.Run(ctx, a.Deps.EventBus, a.Config.Projector.CatchUp)
}
