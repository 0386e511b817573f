// Package app composes the trap host: settings store, registry, scene,
// trigger engine, archetype handlers, participant websocket hub and MCP tools
// behind one HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/trapmacros/internal/core/dice"
	"github.com/louisbranch/trapmacros/internal/platform/timeouts"
	mcpservice "github.com/louisbranch/trapmacros/internal/services/mcp/service"
	"github.com/louisbranch/trapmacros/internal/services/traps/api"
	"github.com/louisbranch/trapmacros/internal/services/traps/chat"
	"github.com/louisbranch/trapmacros/internal/services/traps/domain/archetype"
	"github.com/louisbranch/trapmacros/internal/services/traps/engine"
	"github.com/louisbranch/trapmacros/internal/services/traps/handlers"
	"github.com/louisbranch/trapmacros/internal/services/traps/registry"
	"github.com/louisbranch/trapmacros/internal/services/traps/ruleset"
	"github.com/louisbranch/trapmacros/internal/services/traps/scene"
	"github.com/louisbranch/trapmacros/internal/services/traps/scheduler"
	"github.com/louisbranch/trapmacros/internal/services/traps/session"
	"github.com/louisbranch/trapmacros/internal/services/traps/settings"
	boltstore "github.com/louisbranch/trapmacros/internal/services/traps/settings/bbolt"
	sqlitestore "github.com/louisbranch/trapmacros/internal/services/traps/settings/sqlite"
	"golang.org/x/sync/errgroup"
)

// Settings backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreBolt   = "bbolt"
)

const defaultQueueBacklog = 64

// Config holds host settings.
type Config struct {
	HTTPAddr         string
	Store            string
	StorePath        string
	ScenePath        string
	ScriptsDir       string
	Ruleset          string
	Locale           string
	TokenSecret      string
	OriginPatterns   []string
	DiceSeed         int64
	QueueBacklog     int
	SeedDefaultTraps bool

	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// App is a composed host.
type App struct {
	cfg        Config
	store      settings.Store
	closeStore func() error
	registry   *registry.Registry
	scene      *scene.Memory
	scheduler  *scheduler.Scheduler
	bus        *handlers.Bus
	queue      *session.Queue
	hub        *session.Hub
	api        *api.Service
	mcp        *mcpservice.Server
	httpServer *http.Server
}

// New builds the host. The returned App owns the settings store and must be
// closed.
func New(ctx context.Context, cfg Config) (*App, error) {
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = timeouts.Shutdown
	}
	if cfg.QueueBacklog <= 0 {
		cfg.QueueBacklog = defaultQueueBacklog
	}
	if cfg.DiceSeed == 0 {
		cfg.DiceSeed = time.Now().UnixNano()
	}

	store, closeStore, err := openStore(ctx, cfg.Store, cfg.StorePath)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, store: store, closeStore: closeStore}
	if err := a.compose(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) compose(ctx context.Context) error {
	cfg := a.cfg

	a.registry = registry.New(a.store)
	a.registry.Load(ctx)
	if cfg.SeedDefaultTraps && a.registry.Len() == 0 {
		if err := seedDefaults(ctx, a.registry); err != nil {
			return err
		}
	}

	sc, err := scene.LoadFile(cfg.ScenePath)
	if err != nil {
		return err
	}
	a.scene = sc

	var verifier session.Verifier
	var auth *session.Authenticator
	if strings.TrimSpace(cfg.TokenSecret) != "" {
		auth, err = session.NewAuthenticator([]byte(cfg.TokenSecret))
		if err != nil {
			return err
		}
		verifier = auth
	} else {
		log.Printf("no token secret configured; websocket and MCP endpoints are disabled")
	}

	narrator := chat.NewNarrator(cfg.Locale)
	flags := settings.Flags{Store: a.store}
	a.hub = session.NewHub(verifier, session.HubOptions{OriginPatterns: cfg.OriginPatterns, Locale: narrator.Locale()})
	a.scene.Watch(a.hub.TokenChanged)

	a.scheduler = scheduler.New()
	a.bus = handlers.NewBus()
	a.bus.Subscribe(archetype.IcePit, handlers.IcePit{
		Log: a.hub, Cues: a.hub, Flags: flags, Narrator: narrator, Scene: a.scene,
	})
	a.bus.Subscribe(archetype.PressureDart, handlers.PressureDart{
		Log: a.hub, Cues: a.hub, Flags: flags, Narrator: narrator, Scene: a.scene, Scheduler: a.scheduler,
	})
	scripts, err := handlers.LoadScripts(cfg.ScriptsDir, a.hub)
	if err != nil {
		return err
	}
	known := archetype.Names()
	for _, script := range scripts {
		known = append(known, script.Archetype)
		if a.bus.Subscribed(script.Archetype) {
			log.Printf("%s script runs alongside the built-in handler", script.Archetype)
		}
		a.bus.Subscribe(script.Archetype, script)
		log.Printf("loaded %s script handler", script.Archetype)
	}
	a.bus.SubscribeAll(a.hub)

	strategy := ruleset.NewRegistry().Resolve(cfg.Ruleset)
	log.Printf("using %s ruleset", strategy.ID())

	eng := engine.New(engine.Deps{
		Registry:   a.registry,
		Tokens:     a.scene,
		Actors:     a.scene,
		Roller:     dice.NewSeededRoller(cfg.DiceSeed),
		Log:        a.hub,
		Narrator:   narrator,
		Flags:      flags,
		Ruleset:    strategy,
		Events:     a.bus,
		Archetypes: known,
	})

	a.queue = session.NewQueue(cfg.QueueBacklog)
	a.api = api.New(api.Deps{
		Registry: a.registry,
		Engine:   eng,
		Queue:    a.queue,
		Tokens:   a.scene,
		Flags:    flags,
		Log:      a.hub,
		Narrator: narrator,
	})
	a.hub.Bind(a.api)
	a.mcp = mcpservice.New(a.api, verifier)

	a.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return nil
}

// API returns the registry handle.
func (a *App) API() *api.Service {
	return a.api
}

// Handler routes the host endpoints.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", a.hub)
	mux.Handle("/mcp", a.mcp.Handler())
	mux.HandleFunc("/up", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Run serves HTTP and the host queue until ctx ends.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.queue.Run(gctx)
	})
	g.Go(func() error {
		log.Printf("trap host listening on %s", a.cfg.HTTPAddr)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// Close cancels pending reset notices, drains archetype handlers and closes
// the settings store.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.scheduler != nil {
		if n := a.scheduler.Pending(); n > 0 {
			log.Printf("cancel %d pending reset notices", n)
		}
		a.scheduler.Close()
	}
	if a.bus != nil {
		drained := make(chan struct{})
		go func() {
			a.bus.Drain()
			close(drained)
		}()
		select {
		case <-drained:
		case <-time.After(timeouts.HandlerDrain):
			log.Printf("archetype handlers still running after %s", timeouts.HandlerDrain)
		}
	}
	if a.closeStore != nil {
		if err := a.closeStore(); err != nil {
			return fmt.Errorf("close settings store: %w", err)
		}
	}
	return nil
}

// Run builds the host, serves until ctx ends and releases resources.
func Run(ctx context.Context, cfg Config) error {
	a, err := New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init trap host: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("close trap host: %v", err)
		}
	}()
	return a.Run(ctx)
}

func openStore(ctx context.Context, backend, path string) (settings.Store, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", StoreMemory:
		return settings.NewMemory(), nil, nil
	case StoreSQLite:
		store, err := sqlitestore.Open(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite settings: %w", err)
		}
		return store, store.Close, nil
	case StoreBolt:
		store, err := boltstore.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open bbolt settings: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown settings store %q", backend)
	}
}

// seedDefaults registers one trap of each built-in archetype.
func seedDefaults(ctx context.Context, reg *registry.Registry) error {
	for _, tag := range archetype.Names() {
		def, err := archetype.Create(tag, archetype.Options{})
		if err != nil {
			return err
		}
		if err := reg.Register(ctx, def); err != nil {
			return fmt.Errorf("seed %s: %w", tag, err)
		}
	}
	return nil
}
