package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"okrhub/internal/config"
	"okrhub/internal/db"
	"okrhub/internal/docstore"
	"okrhub/internal/domain"
	"okrhub/internal/events"
	"okrhub/internal/metrics"
	"okrhub/internal/middleware"
	"okrhub/internal/migrate"
	"okrhub/internal/services"
	"okrhub/internal/workitems"
)

// Options tune how the runtime is assembled.
type Options struct {
	Workspace string
	Logger    *zap.SugaredLogger
	// Registry receives the middleware collectors. A fresh one is created when nil.
	Registry  *prometheus.Registry
	Navigator workitems.Navigator
}

// App is the wired runtime shared by the CLI and the HTTP server.
type App struct {
	Config     *config.Config
	DB         *sql.DB
	Store      docstore.Store
	Objectives services.Objectives
	Areas      services.Areas
	TimeFrames services.TimeFrames
	WorkItems  workitems.Service
	// Catalog is the local work item collection, also used when the source is http
	// so that imports have somewhere to land.
	Catalog    workitems.StoreSource
	Events     events.Writer
	Registry   *prometheus.Registry
	Metrics    *metrics.Metrics
	Middleware *middleware.Middleware
	Logger     *zap.SugaredLogger
}

// ResolveConfig loads the workspace config, falling back to defaults when the
// workspace has none. A non-empty projectOverride replaces the project name.
func ResolveConfig(workspace, projectOverride string) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default(projectOverride)
	}
	if projectOverride != "" {
		cfg.Project.Name = projectOverride
	}
	return cfg, nil
}

// Open migrates the workspace database and wires every service around it.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace, InMemory: cfg.Store.Driver == config.StoreMemory})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	var store docstore.Store
	switch cfg.Store.Driver {
	case config.StoreMemory:
		store = docstore.NewMemoryStore()
	default:
		store = docstore.SQLiteStore{DB: conn}
	}

	catalog := workitems.NewStoreSource(store)
	var source workitems.Source = catalog
	if cfg.WorkItems.Source == config.WorkItemsFromHTTP {
		source = workitems.HTTPSource{BaseURL: cfg.WorkItems.BaseURL, Token: cfg.WorkItems.Token}
	}
	nav := opts.Navigator
	if nav == nil {
		nav = workitems.LogNavigator{Logger: log}
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	mt := metrics.New(reg)

	a := &App{
		Config:     cfg,
		DB:         conn,
		Store:      store,
		Objectives: services.NewObjectives(store),
		Areas:      services.NewAreas(store),
		TimeFrames: services.NewTimeFrames(store),
		WorkItems:  workitems.Service{Source: source, Navigator: nav, BaseURL: cfg.Project.URL},
		Catalog:    catalog,
		Events:     events.Writer{DB: conn},
		Registry:   reg,
		Metrics:    mt,
		Logger:     log,
	}
	a.Middleware = middleware.New(middleware.Services{
		Objectives: a.Objectives,
		Areas:      a.Areas,
		TimeFrames: a.TimeFrames,
		WorkItems:  a.WorkItems,
		Project:    services.ProjectMetadata{Name: cfg.Project.Name},
	},
		middleware.WithLogger(log.Named("middleware")),
		middleware.WithMetrics(mt),
		middleware.WithCompensation(cfg.Bootstrap.Compensate),
		middleware.WithTimeFrameName(cfg.Bootstrap.TimeFrameName),
	)
	return a, nil
}

func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// Execute runs intent through the middleware with the action log attached.
// Every dispatched action is also handed to extra when it is not nil.
func (a *App) Execute(ctx context.Context, actorID string, state middleware.State, intent middleware.Intent, extra middleware.DispatchFunc) middleware.Outcome {
	if actorID == "" {
		actorID = "local-user"
	}
	logSink := a.Events.Sink(ctx, actorID, func(err error) {
		a.Logger.Warnw("append action log", "error", err)
	})
	return a.Middleware.Execute(ctx, middleware.Fanout(logSink, extra), state, intent)
}

// DisplayedTimeFrame returns the current time frame id of the stored set, or
// "" before the first set exists.
func (a *App) DisplayedTimeFrame(ctx context.Context) (string, error) {
	set, ok, err := a.CurrentSet(ctx)
	if err != nil || !ok {
		return "", err
	}
	return set.CurrentTimeFrameID, nil
}

// CurrentSet returns the first stored time frame set.
func (a *App) CurrentSet(ctx context.Context) (set domain.TimeFrameSet, ok bool, err error) {
	sets, err := a.TimeFrames.GetAll(ctx)
	if err != nil {
		if docstore.IsCollectionMissing(err) {
			return domain.TimeFrameSet{}, false, nil
		}
		return domain.TimeFrameSet{}, false, err
	}
	if len(sets) == 0 {
		return domain.TimeFrameSet{}, false, nil
	}
	return sets[0], true, nil
}
