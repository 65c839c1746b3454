package music

import (
	"context"
	"fmt"

	"github.com/medleyd/medley/internal/domain"
	"github.com/medleyd/medley/internal/events"
	"github.com/medleyd/medley/internal/provider"
)

// librarySyncer is implemented by providers that run their own sync
// strategy (the filesystem provider's checksum walk). Providers without it
// get the generic listing-based sync.
type librarySyncer interface {
	SyncLibrary(ctx context.Context, mediaTypes []domain.MediaType) error
}

var featureForType = map[domain.MediaType]domain.Feature{
	domain.MediaTypeArtist:   domain.FeatureLibraryArtists,
	domain.MediaTypeAlbum:    domain.FeatureLibraryAlbums,
	domain.MediaTypeTrack:    domain.FeatureLibraryTracks,
	domain.MediaTypePlaylist: domain.FeatureLibraryPlaylists,
	domain.MediaTypeRadio:    domain.FeatureLibraryRadios,
}

// StartSync launches a sync job for the requested media types on every
// selected provider. An empty media-type set means all types; an empty
// instance list means every available music provider. A provider that
// already has an in-flight job covering any requested type is skipped.
// A metadata-enrichment pass is triggered afterwards without blocking.
func (c *Controller) StartSync(mediaTypes []domain.MediaType, providerInstances []string) {
	if len(mediaTypes) == 0 {
		mediaTypes = domain.AllMediaTypes()
	}

	for _, prov := range c.registry.MusicProviders() {
		if len(providerInstances) > 0 && !contains(providerInstances, prov.InstanceID()) {
			continue
		}

		// limit the requested types to what the provider declares
		var types []domain.MediaType
		for _, mt := range mediaTypes {
			if domain.HasFeature(prov.SupportedFeatures(), featureForType[mt]) {
				types = append(types, mt)
			}
		}
		if len(types) == 0 {
			continue
		}

		c.launchSync(prov, types)
	}

	if c.metadataScanner != nil {
		c.metadataScanner.StartScan()
	}
}

// launchSync holds the lock across the dedup check and the launch so two
// concurrent StartSync calls cannot race a duplicate job in.
func (c *Controller) launchSync(prov provider.MusicProvider, mediaTypes []domain.MediaType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, st := range c.syncTasks {
		if st.ProviderInstance == prov.InstanceID() && st.covers(mediaTypes) {
			c.log.Debug("sync already in progress, skipping",
				"instance_id", prov.InstanceID(), "media_types", mediaTypes)
			return
		}
	}

	st := &SyncTask{
		ProviderDomain:   prov.Domain(),
		ProviderInstance: prov.InstanceID(),
		MediaTypes:       mediaTypes,
	}
	name := fmt.Sprintf("sync %s", prov.InstanceID())
	st.task = c.tracker.Spawn(name, func(ctx context.Context) error {
		return c.runProviderSync(ctx, prov, mediaTypes)
	})
	c.syncTasks = append(c.syncTasks, st)
	c.bus.Publish(events.SyncTasksUpdated, prov.InstanceID(), c.snapshotLocked())

	// completion hook fires whether the job succeeded, failed or was
	// cancelled
	go func() {
		<-st.task.Done()
		c.removeSyncTask(st)
	}()
}

func (c *Controller) removeSyncTask(st *SyncTask) {
	c.mu.Lock()
	for i, cur := range c.syncTasks {
		if cur == st {
			c.syncTasks = append(c.syncTasks[:i], c.syncTasks[i+1:]...)
			break
		}
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	c.bus.Publish(events.SyncTasksUpdated, st.ProviderInstance, snapshot)
}

func (c *Controller) snapshotLocked() []SyncTask {
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

// CancelProviderSyncs cancels every in-flight sync job of the given
// provider instance and blocks until each has finished. Called before a
// provider is closed so a job never writes through a closed handle.
func (c *Controller) CancelProviderSyncs(instanceID string) {
	c.mu.Lock()
	var matching []*SyncTask
	for _, st := range c.syncTasks {
		if st.ProviderInstance == instanceID {
			matching = append(matching, st)
		}
	}
	c.mu.Unlock()

	for _, st := range matching {
		st.Cancel()
	}
	for _, st := range matching {
		_ = st.Wait()
	}
}

// runProviderSync executes one sync job. Providers with their own strategy
// run it; everyone else gets the generic listing walk with stale-mapping
// cleanup per media type.
func (c *Controller) runProviderSync(ctx context.Context, prov provider.MusicProvider,
	mediaTypes []domain.MediaType) error {
	c.log.Info("library sync started",
		"instance_id", prov.InstanceID(), "media_types", mediaTypes)

	if ls, ok := prov.(librarySyncer); ok {
		return ls.SyncLibrary(ctx, mediaTypes)
	}

	for _, mt := range mediaTypes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.syncMediaType(ctx, prov, mt); err != nil {
			c.log.Error("media type sync failed",
				"instance_id", prov.InstanceID(), "media_type", mt, "error", err)
		}
	}
	return nil
}

// syncMediaType upserts every item the provider lists for one media type,
// then removes mappings for items the provider no longer reports.
func (c *Controller) syncMediaType(ctx context.Context, prov provider.MusicProvider,
	mt domain.MediaType) error {
	instance := prov.InstanceID()
	seen := make(map[string]struct{})

	upsert := func(provItemID string, fn func() error) {
		if provItemID != "" {
			seen[provItemID] = struct{}{}
		}
		if err := fn(); err != nil {
			c.log.Error("failed to sync item",
				"instance_id", instance, "media_type", mt,
				"provider_item_id", provItemID, "error", err)
		}
	}

	switch mt {
	case domain.MediaTypeArtist:
		items, err := prov.LibraryArtists(ctx)
		if err != nil {
			return err
		}
		for i := range items {
			item := &items[i]
			item.InLibrary = true
			pm, _ := item.ProviderMappings.MappingFor(instance)
			upsert(pm.ItemID, func() error {
				_, err := c.store.UpsertArtist(item, false)
				return err
			})
		}
	case domain.MediaTypeAlbum:
		items, err := prov.LibraryAlbums(ctx)
		if err != nil {
			return err
		}
		for i := range items {
			item := &items[i]
			item.InLibrary = true
			pm, _ := item.ProviderMappings.MappingFor(instance)
			upsert(pm.ItemID, func() error {
				_, err := c.store.UpsertAlbum(item, false)
				return err
			})
		}
	case domain.MediaTypeTrack:
		items, err := prov.LibraryTracks(ctx)
		if err != nil {
			return err
		}
		for i := range items {
			item := &items[i]
			item.InLibrary = true
			pm, _ := item.ProviderMappings.MappingFor(instance)
			upsert(pm.ItemID, func() error {
				_, err := c.store.UpsertTrack(item, false)
				return err
			})
		}
	case domain.MediaTypePlaylist:
		items, err := prov.LibraryPlaylists(ctx)
		if err != nil {
			return err
		}
		for i := range items {
			item := &items[i]
			item.InLibrary = true
			pm, _ := item.ProviderMappings.MappingFor(instance)
			upsert(pm.ItemID, func() error {
				_, err := c.store.UpsertPlaylist(item, false)
				return err
			})
		}
	case domain.MediaTypeRadio:
		items, err := prov.LibraryRadios(ctx)
		if err != nil {
			return err
		}
		for i := range items {
			item := &items[i]
			item.InLibrary = true
			pm, _ := item.ProviderMappings.MappingFor(instance)
			upsert(pm.ItemID, func() error {
				_, err := c.store.UpsertRadio(item, false)
				return err
			})
		}
	}

	// drop mappings the provider no longer reports
	rows, err := c.store.MappingsByProvider(mt, instance)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if _, ok := seen[row.ProviderItemID]; ok {
			continue
		}
		if err := c.store.RemoveProviderMapping(mt, row.ItemID, instance); err != nil {
			c.log.Error("failed to remove stale mapping",
				"instance_id", instance, "media_type", mt, "item_id", row.ItemID, "error", err)
		}
	}
	return nil
}

// CleanupProvider removes every trace of a provider instance from the
// library: all of its mappings (orphaned items are deleted) and its cache
// entries. Types are processed bottom-up so tracks go before albums before
// artists.
func (c *Controller) CleanupProvider(instanceID string) error {
	order := []domain.MediaType{
		domain.MediaTypeRadio,
		domain.MediaTypePlaylist,
		domain.MediaTypeTrack,
		domain.MediaTypeAlbum,
		domain.MediaTypeArtist,
	}
	for _, mt := range order {
		ids, err := c.store.ItemIDsByProvider(mt, instanceID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := c.store.RemoveProviderMapping(mt, id, instanceID); err != nil {
				c.log.Error("cleanup failed for item",
					"instance_id", instanceID, "media_type", mt, "item_id", id, "error", err)
			}
		}
	}
	return c.store.ClearCachePrefix(instanceID + ".")
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
