package filesystem

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/medleyd/medley/internal/domain"
)

// parsePlaylistEntries reads the track paths out of an m3u or pls file.
// Entries are returned relative to the provider root when possible.
func (p *Provider) parsePlaylistEntries(rel string) ([]string, error) {
	full, err := p.abs(rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	isPLS := strings.ToLower(filepath.Ext(rel)) == ".pls"
	var entries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if isPLS {
			// FileN=path lines carry the entries
			if !strings.HasPrefix(strings.ToLower(line), "file") {
				continue
			}
			if _, value, ok := strings.Cut(line, "="); ok {
				line = strings.TrimSpace(value)
			} else {
				continue
			}
		} else if strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, p.normalizeEntry(rel, line))
	}
	return entries, scanner.Err()
}

// normalizeEntry resolves a playlist line to a provider item id (a path
// relative to the root). Absolute paths outside the root are kept verbatim.
func (p *Provider) normalizeEntry(playlistRel, entry string) string {
	entry = filepath.FromSlash(entry)
	if !filepath.IsAbs(entry) {
		entry = filepath.Join(filepath.Dir(filepath.Join(p.root, playlistRel)), entry)
	}
	if strings.HasPrefix(entry, p.root+string(filepath.Separator)) {
		return p.rel(entry)
	}
	return filepath.ToSlash(entry)
}

// PlaylistTracks resolves a playlist's entries against the store. Entries
// pointing at files that were never synced are skipped.
func (p *Provider) PlaylistTracks(ctx context.Context, playlistID string) ([]domain.Track, error) {
	entries, err := p.parsePlaylistEntries(playlistID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrMediaNotFound, playlistID)
	}
	var tracks []domain.Track
	for _, entry := range entries {
		itemID, err := p.store.ItemIDByProviderID(domain.MediaTypeTrack, entry, p.InstanceID())
		if err != nil {
			p.Logger().Debug("playlist entry not in library", "entry", entry)
			continue
		}
		track, err := p.store.GetTrack(itemID)
		if err != nil {
			continue
		}
		tracks = append(tracks, *track)
	}
	return tracks, nil
}

// CreatePlaylist writes a new empty m3u file and registers it.
func (p *Provider) CreatePlaylist(ctx context.Context, name string) (*domain.Playlist, error) {
	rel := name + ".m3u"
	full, err := p.abs(rel)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(full); err == nil {
		return nil, fmt.Errorf("playlist %s already exists", name)
	}
	if err := os.WriteFile(full, []byte("#EXTM3U\n"), 0o644); err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}
	if err := p.processPlaylistFile(rel, false); err != nil {
		return nil, err
	}
	itemID, err := p.store.ItemIDByProviderID(domain.MediaTypePlaylist, rel, p.InstanceID())
	if err != nil {
		return nil, err
	}
	return p.store.GetPlaylist(itemID)
}

// AddPlaylistTracks appends entries to an m3u playlist.
func (p *Provider) AddPlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	full, err := p.editablePlaylistPath(playlistID)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(full, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open playlist: %w", err)
	}
	defer f.Close()
	for _, id := range trackIDs {
		if _, err := fmt.Fprintln(f, id); err != nil {
			return err
		}
	}
	return nil
}

// RemovePlaylistTracks rewrites an m3u playlist without the given entries.
func (p *Provider) RemovePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	full, err := p.editablePlaylistPath(playlistID)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return fmt.Errorf("failed to read playlist: %w", err)
	}

	remove := make(map[string]struct{}, len(trackIDs))
	for _, id := range trackIDs {
		remove[id] = struct{}{}
	}

	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			if _, drop := remove[p.normalizeEntry(playlistID, trimmed)]; drop {
				continue
			}
		}
		out = append(out, line)
	}
	return os.WriteFile(full, []byte(strings.Join(out, "\n")), 0o644)
}

func (p *Provider) editablePlaylistPath(playlistID string) (string, error) {
	ext := strings.ToLower(filepath.Ext(playlistID))
	if ext != ".m3u" && ext != ".m3u8" {
		return "", fmt.Errorf("playlist %s is not editable", playlistID)
	}
	full, err := p.abs(playlistID)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(full); err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrMediaNotFound, playlistID)
	}
	return full, nil
}
