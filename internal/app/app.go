// Package app assembles the daemon: store, event bus, task tracker,
// provider registry and the controllers, wired in dependency order and
// torn down in reverse.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/medleyd/medley/internal/config"
	"github.com/medleyd/medley/internal/events"
	"github.com/medleyd/medley/internal/library"
	"github.com/medleyd/medley/internal/logger"
	"github.com/medleyd/medley/internal/metadata"
	"github.com/medleyd/medley/internal/music"
	"github.com/medleyd/medley/internal/provider"
	"github.com/medleyd/medley/internal/providers/filesystem"
	"github.com/medleyd/medley/internal/providers/musicbrainz"
	"github.com/medleyd/medley/internal/tasks"
)

type App struct {
	Config   *config.Config
	Logger   *logger.Logger
	Bus      *events.Bus
	Tracker  *tasks.Tracker
	Store    *library.DB
	Registry *provider.Registry
	Music    *music.Controller
	Metadata *metadata.Controller
}

// New builds the application graph. Nothing is started yet; Start loads
// manifests and providers.
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	bus := events.NewBus()

	store, err := library.Open(cfg.DBPath, bus, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open library: %w", err)
	}

	tracker := tasks.NewTracker(log)

	registry := provider.NewRegistry(bus, provider.Deps{Store: store, Log: log}, log)
	registry.RegisterFactory("filesystem", filesystem.New)
	registry.RegisterFactory("musicbrainz", musicbrainz.New)

	mc := music.NewController(store, registry, bus, tracker, log)
	md := metadata.NewController(store, registry, tracker, log)
	mc.SetMetadataScanner(md)
	registry.SetSyncCanceler(mc)

	// a freshly loaded music provider gets an initial sync
	registry.SetOnLoaded(func(p provider.Provider) {
		if _, ok := p.(provider.MusicProvider); ok {
			mc.StartSync(nil, []string{p.InstanceID()})
		}
	})

	return &App{
		Config:   cfg,
		Logger:   log,
		Bus:      bus,
		Tracker:  tracker,
		Store:    store,
		Registry: registry,
		Music:    mc,
		Metadata: md,
	}, nil
}

// Start loads manifests (built-in plus an optional manifest directory) and
// instantiates the configured providers. Manifests with load_by_default
// that have no explicit config are loaded with defaults.
func (a *App) Start(ctx context.Context) error {
	if err := a.Registry.LoadManifests(provider.BuiltinManifests()); err != nil {
		return err
	}
	if dir := a.Config.ManifestDir; dir != "" {
		if _, err := os.Stat(dir); err == nil {
			if err := a.Registry.LoadManifests(os.DirFS(dir)); err != nil {
				return err
			}
		}
	}

	configs := a.Config.Providers
	configured := make(map[string]bool, len(configs))
	for _, pc := range configs {
		configured[pc.Domain] = true
	}
	for _, m := range a.Registry.Manifests() {
		if m.LoadByDefault && !configured[m.Domain] {
			configs = append(configs, config.ProviderConfig{
				Domain:  m.Domain,
				Enabled: true,
			})
		}
	}

	a.Registry.LoadAll(ctx, configs)
	return nil
}

// Shutdown tears the application down in reverse order: signal, stop
// background work, unload providers, close storage.
func (a *App) Shutdown(ctx context.Context) {
	a.Bus.Publish(events.Shutdown, "", nil)
	a.Bus.Close()
	a.Tracker.Shutdown()
	a.Registry.Close(ctx)
	if err := a.Store.Close(); err != nil {
		a.Logger.Error("failed to close library", "error", err)
	}
}
