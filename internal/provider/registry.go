package provider

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/medleyd/medley/internal/config"
	"github.com/medleyd/medley/internal/domain"
	"github.com/medleyd/medley/internal/events"
	"github.com/medleyd/medley/internal/library"
	"github.com/medleyd/medley/internal/logger"
)

// Deps carries the shared services a provider implementation may need.
type Deps struct {
	Store *library.DB
	Log   *logger.Logger
}

// Factory constructs a provider instance for one manifest domain.
type Factory func(manifest *Manifest, cfg config.ProviderConfig, deps Deps) (Provider, error)

// SyncCanceler cancels and awaits the in-flight sync jobs of one provider
// instance. Implemented by the music controller; injected to avoid a
// package cycle.
type SyncCanceler interface {
	CancelProviderSyncs(instanceID string)
}

type statusSetter interface {
	MarkAvailable()
	MarkFailed(error)
}

// Registry owns manifests, provider factories and the set of running
// provider instances.
type Registry struct {
	log  *logger.Logger
	bus  *events.Bus
	deps Deps

	factories map[string]Factory
	manifests map[string]*Manifest

	mu        sync.RWMutex
	providers map[string]Provider

	syncCanceler SyncCanceler
	onLoaded     func(Provider)
}

func NewRegistry(bus *events.Bus, deps Deps, log *logger.Logger) *Registry {
	return &Registry{
		log:       log.WithComponent("registry"),
		bus:       bus,
		deps:      deps,
		factories: make(map[string]Factory),
		manifests: make(map[string]*Manifest),
		providers: make(map[string]Provider),
	}
}

// RegisterFactory binds a manifest domain to its constructor.
func (r *Registry) RegisterFactory(domain string, f Factory) {
	r.factories[domain] = f
}

// SetSyncCanceler wires the sync engine in once it exists.
func (r *Registry) SetSyncCanceler(c SyncCanceler) {
	r.syncCanceler = c
}

// SetOnLoaded registers a hook invoked after a provider instance finishes a
// successful setup.
func (r *Registry) SetOnLoaded(fn func(Provider)) {
	r.onLoaded = fn
}

// LoadManifests parses every <domain>/manifest.json below the root of fsys.
// A descriptor that fails to parse is logged and skipped; it never aborts
// startup.
func (r *Registry) LoadManifests(fsys fs.FS) error {
	files, err := scanManifests(fsys)
	if err != nil {
		return fmt.Errorf("failed to scan manifests: %w", err)
	}
	for path, data := range files {
		m, err := parseManifest(data)
		if err != nil {
			r.log.Warn("skipping invalid manifest", "path", path, "error", err)
			continue
		}
		r.manifests[m.Domain] = m
		r.log.Debug("loaded manifest", "domain", m.Domain, "type", m.Type)
	}
	return nil
}

// Manifests returns the parsed manifests sorted by domain.
func (r *Registry) Manifests() []*Manifest {
	out := make([]*Manifest, 0, len(r.manifests))
	for _, m := range r.manifests {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out
}

// ManifestFor returns the manifest of a domain, if loaded.
func (r *Registry) ManifestFor(domain string) (*Manifest, bool) {
	m, ok := r.manifests[domain]
	return m, ok
}

// Instantiate constructs, registers and sets up one provider instance.
// A setup failure leaves the instance registered but unavailable, with the
// error recorded, and is returned to the caller.
func (r *Registry) Instantiate(ctx context.Context, cfg config.ProviderConfig) (Provider, error) {
	manifest, ok := r.manifests[cfg.Domain]
	if !ok {
		return nil, fmt.Errorf("%w: no manifest for domain %s", domain.ErrSetupFailed, cfg.Domain)
	}
	factory, ok := r.factories[cfg.Domain]
	if !ok {
		return nil, fmt.Errorf("%w: no implementation for domain %s", domain.ErrSetupFailed, cfg.Domain)
	}

	if cfg.InstanceID == "" {
		if manifest.MultiInstance {
			cfg.InstanceID = fmt.Sprintf("%s--%s", cfg.Domain, uuid.NewString()[:8])
		} else {
			cfg.InstanceID = cfg.Domain
		}
	}

	r.mu.Lock()
	if _, exists := r.providers[cfg.InstanceID]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: instance %s is already loaded",
			domain.ErrSetupFailed, cfg.InstanceID)
	}
	if !manifest.MultiInstance {
		for _, p := range r.providers {
			if p.Domain() == cfg.Domain {
				r.mu.Unlock()
				return nil, fmt.Errorf("%w: provider %s does not support multiple instances",
					domain.ErrSetupFailed, cfg.Domain)
			}
		}
	}
	r.mu.Unlock()

	p, err := factory(manifest, cfg, r.deps)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSetupFailed, err)
	}

	r.mu.Lock()
	r.providers[p.InstanceID()] = p
	r.mu.Unlock()

	setupErr := p.Setup(ctx)
	if s, ok := p.(statusSetter); ok {
		if setupErr != nil {
			s.MarkFailed(setupErr)
		} else {
			s.MarkAvailable()
		}
	}
	r.bus.Publish(events.ProvidersUpdated, p.InstanceID(), InfoOf(p))

	if setupErr != nil {
		r.log.Error("provider setup failed",
			"domain", cfg.Domain, "instance_id", p.InstanceID(), "error", setupErr)
		return p, fmt.Errorf("setup of %s failed: %w", p.InstanceID(), setupErr)
	}

	r.log.Info("loaded provider", "domain", cfg.Domain, "instance_id", p.InstanceID())
	if r.onLoaded != nil {
		r.onLoaded(p)
	}
	return p, nil
}

// LoadAll instantiates every enabled provider config. Configs whose manifest
// declares depends_on are deferred to a second pass so their dependency is
// already loaded. Resolution is one level only.
func (r *Registry) LoadAll(ctx context.Context, configs []config.ProviderConfig) {
	var deferred []config.ProviderConfig
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		if m, ok := r.manifests[cfg.Domain]; ok && m.DependsOn != "" {
			deferred = append(deferred, cfg)
			continue
		}
		if _, err := r.Instantiate(ctx, cfg); err != nil {
			r.log.Error("failed to load provider", "domain", cfg.Domain, "error", err)
		}
	}
	for _, cfg := range deferred {
		if _, err := r.Instantiate(ctx, cfg); err != nil {
			r.log.Error("failed to load provider", "domain", cfg.Domain, "error", err)
		}
	}
}

// Unload cancels the instance's sync jobs, closes it and removes it from
// the registry. A providers-updated event is always published, even when
// the instance was unknown or close failed.
func (r *Registry) Unload(ctx context.Context, instanceID string) error {
	defer r.bus.Publish(events.ProvidersUpdated, instanceID, nil)

	r.mu.Lock()
	p, ok := r.providers[instanceID]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	if r.syncCanceler != nil {
		r.syncCanceler.CancelProviderSyncs(instanceID)
	}

	var closeErr error
	if err := p.Close(ctx); err != nil {
		closeErr = fmt.Errorf("failed to close %s: %w", instanceID, err)
		r.log.Error("provider close failed", "instance_id", instanceID, "error", err)
	}

	r.mu.Lock()
	delete(r.providers, instanceID)
	r.mu.Unlock()

	r.log.Info("unloaded provider", "instance_id", instanceID)
	return closeErr
}

// Get resolves a provider by instance id, falling back to domain lookup.
func (r *Registry) Get(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.providers[id]; ok {
		return p, true
	}
	for _, p := range r.providers {
		if p.Domain() == id {
			return p, true
		}
	}
	return nil, false
}

// Providers returns every registered instance sorted by instance id,
// including instances whose setup failed.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstanceID() < out[j].InstanceID() })
	return out
}

// MusicProviders returns the available music providers.
func (r *Registry) MusicProviders() []MusicProvider {
	var out []MusicProvider
	for _, p := range r.Providers() {
		if mp, ok := p.(MusicProvider); ok && p.Available() {
			out = append(out, mp)
		}
	}
	return out
}

// MetadataProviders returns the available metadata providers.
func (r *Registry) MetadataProviders() []MetadataProvider {
	var out []MetadataProvider
	for _, p := range r.Providers() {
		if mp, ok := p.(MetadataProvider); ok && p.Available() {
			out = append(out, mp)
		}
	}
	return out
}

// Close unloads every registered provider.
func (r *Registry) Close(ctx context.Context) {
	for _, p := range r.Providers() {
		if err := r.Unload(ctx, p.InstanceID()); err != nil {
			r.log.Error("failed to unload provider", "instance_id", p.InstanceID(), "error", err)
		}
	}
}
