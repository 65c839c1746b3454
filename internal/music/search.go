package music

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/medleyd/medley/internal/constants"
	"github.com/medleyd/medley/internal/domain"
	"github.com/medleyd/medley/internal/provider"
)

// Search fans the query out concurrently to every available provider that
// declares the search capability and merges the per-provider results.
// No dedup is performed across providers.
func (c *Controller) Search(ctx context.Context, query string,
	mediaTypes []domain.MediaType, limit int) (*domain.SearchResult, error) {
	if len(mediaTypes) == 0 {
		mediaTypes = domain.AllMediaTypes()
	}
	if limit <= 0 {
		limit = 25
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		merged  domain.SearchResult
		lastErr error
	)
	for _, prov := range c.registry.MusicProviders() {
		if !domain.HasFeature(prov.SupportedFeatures(), domain.FeatureSearch) {
			continue
		}
		wg.Add(1)
		go func(prov provider.MusicProvider) {
			defer wg.Done()
			result, err := c.SearchProvider(ctx, prov, query, mediaTypes, limit)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.log.Error("provider search failed",
					"instance_id", prov.InstanceID(), "query", query, "error", err)
				lastErr = err
				return
			}
			merged.Merge(result)
		}(prov)
	}
	wg.Wait()

	if merged.Count() == 0 && lastErr != nil {
		return nil, lastErr
	}
	return &merged, nil
}

// searchCacheKey builds the cache key for one provider search.
func searchCacheKey(instanceID, query string, mediaTypes []domain.MediaType, limit int) string {
	codes := make([]string, len(mediaTypes))
	for i, mt := range mediaTypes {
		codes[i] = string(mt)
	}
	return fmt.Sprintf("%s.search.%s.%d%s",
		instanceID, domain.SearchQuery(query), limit, strings.Join(codes, ""))
}

// SearchProvider runs a search on one provider, serving repeated queries
// from the cache. A fresh result is persisted in the background with a
// seven-day expiration.
func (c *Controller) SearchProvider(ctx context.Context, prov provider.MusicProvider,
	query string, mediaTypes []domain.MediaType, limit int) (*domain.SearchResult, error) {
	key := searchCacheKey(prov.InstanceID(), query, mediaTypes, limit)

	if data, err := c.store.GetCache(key); err == nil && data != nil {
		var cached domain.SearchResult
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
		// cache entry is garbage, fall through to a fresh search
	}

	result, err := prov.Search(ctx, domain.SearchQuery(query), mediaTypes, limit)
	if err != nil {
		return nil, err
	}

	c.tracker.Spawn("cache search "+key, func(ctx context.Context) error {
		data, err := json.Marshal(result)
		if err != nil {
			return err
		}
		return c.store.SetCache(key, data, constants.SearchCacheTTL)
	})
	return result, nil
}

// Browse returns one level of a provider's browse tree. An empty path lists
// the browsable providers as root folders; otherwise the path has the form
// instance_id://sub/path.
func (c *Controller) Browse(ctx context.Context, path string) (*domain.BrowseFolder, error) {
	if path == "" {
		root := &domain.BrowseFolder{ItemID: "root", Name: "Root"}
		for _, prov := range c.registry.MusicProviders() {
			if !domain.HasFeature(prov.SupportedFeatures(), domain.FeatureBrowse) {
				continue
			}
			root.Folders = append(root.Folders, domain.BrowseFolder{
				ItemID:   prov.InstanceID() + "://",
				Provider: prov.Domain(),
				Path:     prov.InstanceID() + "://",
				Name:     prov.Name(),
			})
		}
		return root, nil
	}

	instanceID, sub, ok := strings.Cut(path, "://")
	if !ok {
		return nil, fmt.Errorf("invalid browse path %q", path)
	}
	p, ok := c.registry.Get(instanceID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderUnavailable, instanceID)
	}
	mp, ok := p.(provider.MusicProvider)
	if !ok || !domain.HasFeature(p.SupportedFeatures(), domain.FeatureBrowse) {
		return nil, fmt.Errorf("%w: %s does not support browse",
			domain.ErrProviderUnavailable, instanceID)
	}
	return mp.Browse(ctx, sub)
}
