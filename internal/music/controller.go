// Package music implements the catalog orchestration layer: per-provider
// library sync, cross-provider search with caching, browse and item access.
package music

import (
	"sync"

	"github.com/medleyd/medley/internal/domain"
	"github.com/medleyd/medley/internal/events"
	"github.com/medleyd/medley/internal/library"
	"github.com/medleyd/medley/internal/logger"
	"github.com/medleyd/medley/internal/provider"
	"github.com/medleyd/medley/internal/tasks"
)

// MetadataScanner triggers a metadata-enrichment pass. Implemented by the
// metadata controller; injected to avoid a package cycle.
type MetadataScanner interface {
	StartScan()
}

// SyncTask is the record of one in-flight synchronization job. Never
// persisted; it exists only while the job runs.
type SyncTask struct {
	ProviderDomain   string             `json:"provider_domain"`
	ProviderInstance string             `json:"provider_instance"`
	MediaTypes       []domain.MediaType `json:"media_types"`

	task *tasks.Task
}

// Cancel requests cancellation of the underlying job.
func (s *SyncTask) Cancel() { s.task.Cancel() }

// Wait blocks until the job has finished.
func (s *SyncTask) Wait() error { return s.task.Wait() }

func (s *SyncTask) covers(mediaTypes []domain.MediaType) bool {
	for _, want := range mediaTypes {
		for _, have := range s.MediaTypes {
			if want == have {
				return true
			}
		}
	}
	return false
}

// Controller orchestrates providers against the library store.
type Controller struct {
	log      *logger.Logger
	store    *library.DB
	registry *provider.Registry
	bus      *events.Bus
	tracker  *tasks.Tracker

	metadataScanner MetadataScanner

	// mu guards syncTasks and makes the launch dedup check atomic with
	// the launch itself.
	mu        sync.Mutex
	syncTasks []*SyncTask
}

func NewController(store *library.DB, registry *provider.Registry, bus *events.Bus,
	tracker *tasks.Tracker, log *logger.Logger) *Controller {
	return &Controller{
		log:      log.WithComponent("music"),
		store:    store,
		registry: registry,
		bus:      bus,
		tracker:  tracker,
	}
}

// SetMetadataScanner wires the metadata controller in once it exists.
func (c *Controller) SetMetadataScanner(ms MetadataScanner) {
	c.metadataScanner = ms
}

// Store exposes the underlying library database.
func (c *Controller) Store() *library.DB { return c.store }

// SyncTasks returns a snapshot of the in-flight sync jobs.
func (c *Controller) SyncTasks() []SyncTask {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SyncTask, 0, len(c.syncTasks))
	for _, st := range c.syncTasks {
		out = append(out, SyncTask{
			ProviderDomain:   st.ProviderDomain,
			ProviderInstance: st.ProviderInstance,
			MediaTypes:       st.MediaTypes,
		})
	}
	return out
}
