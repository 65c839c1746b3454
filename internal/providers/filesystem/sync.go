package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/medleyd/medley/internal/constants"
	"github.com/medleyd/medley/internal/domain"
	"github.com/medleyd/medley/internal/library"
)

// checksumState is the persisted path-to-checksum map of one instance,
// gated by the schema version so a destructive migration forces a full
// rescan.
type checksumState struct {
	Version   int               `json:"version"`
	Checksums map[string]string `json:"checksums"`
}

func (p *Provider) stateKey() string {
	return p.InstanceID() + ".checksums"
}

func (p *Provider) loadChecksums() map[string]string {
	data, err := p.store.GetCache(p.stateKey())
	if err != nil || data == nil {
		return map[string]string{}
	}
	var state checksumState
	if err := json.Unmarshal(data, &state); err != nil || state.Version != library.SchemaVersion {
		return map[string]string{}
	}
	if state.Checksums == nil {
		return map[string]string{}
	}
	return state.Checksums
}

func (p *Provider) saveChecksums(checksums map[string]string) {
	data, err := json.Marshal(checksumState{
		Version:   library.SchemaVersion,
		Checksums: checksums,
	})
	if err != nil {
		return
	}
	if err := p.store.SetCache(p.stateKey(), data, 0); err != nil {
		p.Logger().Debug("failed to persist checksums", "error", err)
	}
}

// SyncLibrary walks the directory tree and reconciles it with the store.
// Unchanged files (same checksum as the previous walk) are skipped; the
// checksum map is persisted every hundred processed items so an interrupted
// sync resumes near where it left off. Files present in the previous walk
// but missing now have this instance's mapping removed.
func (p *Provider) SyncLibrary(ctx context.Context, mediaTypes []domain.MediaType) error {
	wantTracks := false
	wantPlaylists := false
	for _, mt := range mediaTypes {
		switch mt {
		case domain.MediaTypeArtist, domain.MediaTypeAlbum, domain.MediaTypeTrack:
			wantTracks = true
		case domain.MediaTypePlaylist:
			wantPlaylists = true
		}
	}
	if !wantTracks && !wantPlaylists {
		return nil
	}

	prev := p.loadChecksums()
	cur := make(map[string]string, len(prev))
	processed := 0

	walkErr := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			p.Logger().Debug("walk error", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != p.root {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		isAudio := audioExtensions[ext]
		isPlaylist := playlistExtensions[ext]
		if (!isAudio || !wantTracks) && (!isPlaylist || !wantPlaylists) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			p.Logger().Debug("cannot stat file", "path", path, "error", err)
			return nil
		}
		rel := p.rel(path)
		sum := fmt.Sprintf("%d.%d", info.ModTime().Unix(), info.Size())
		cur[rel] = sum

		if prev[rel] == sum {
			return nil
		}
		// a path we knew before is a local edit: overwrite stored fields
		_, known := prev[rel]

		var procErr error
		if isAudio {
			procErr = p.processAudioFile(rel, known)
		} else {
			procErr = p.processPlaylistFile(rel, known)
		}
		if procErr != nil {
			p.Logger().Error("failed to process file", "path", rel, "error", procErr)
		}

		processed++
		if processed%constants.ChecksumSaveInterval == 0 {
			p.saveChecksums(cur)
		}
		return nil
	})

	if walkErr != nil {
		// persist progress so a cancelled sync resumes where it stopped
		p.saveChecksums(cur)
		return walkErr
	}

	for rel := range prev {
		if _, ok := cur[rel]; !ok {
			p.removeDeleted(rel)
		}
	}

	p.saveChecksums(cur)
	p.Logger().Info("filesystem sync finished",
		"files", len(cur), "processed", processed)
	return nil
}

// processAudioFile parses one audio file and upserts its artists, album and
// track.
func (p *Provider) processAudioFile(rel string, overwrite bool) error {
	full, err := p.abs(rel)
	if err != nil {
		return err
	}
	tags := parseTags(full)

	artistNames := tags.Artists
	if len(artistNames) == 0 {
		artistNames = []string{"Unknown Artist"}
	}

	var artistRefs domain.ItemRefs
	for _, name := range artistNames {
		artist := &domain.Artist{
			Name:      name,
			InLibrary: true,
			ProviderMappings: domain.MappingSet{{
				ItemID:           "artist/" + name,
				ProviderDomain:   p.Domain(),
				ProviderInstance: p.InstanceID(),
				Available:        true,
			}},
		}
		saved, err := p.store.UpsertArtist(artist, false)
		if err != nil {
			return fmt.Errorf("failed to store artist %s: %w", name, err)
		}
		artistRefs = append(artistRefs, domain.ItemRef{ItemID: saved.ItemID, Name: saved.Name})
	}

	var albumRefs domain.ItemRefs
	if tags.Album != "" {
		albumArtist := tags.AlbumArtist
		if albumArtist == "" {
			albumArtist = artistNames[0]
		}
		album := &domain.Album{
			Name:       tags.Album,
			SortArtist: domain.SortName(albumArtist),
			Year:       tags.Year,
			InLibrary:  true,
			Artists:    artistRefs,
			Metadata:   domain.MetadataJSON{Genres: tags.Genres},
			ProviderMappings: domain.MappingSet{{
				ItemID:           "album/" + albumArtist + "/" + tags.Album,
				ProviderDomain:   p.Domain(),
				ProviderInstance: p.InstanceID(),
				Available:        true,
			}},
		}
		saved, err := p.store.UpsertAlbum(album, overwrite)
		if err != nil {
			return fmt.Errorf("failed to store album %s: %w", tags.Album, err)
		}
		albumRefs = domain.ItemRefs{{ItemID: saved.ItemID, Name: saved.Name}}
	}

	track := p.transientTrack(rel, tags)
	track.Artists = artistRefs
	track.Albums = albumRefs
	if _, err := p.store.UpsertTrack(track, overwrite); err != nil {
		return fmt.Errorf("failed to store track %s: %w", rel, err)
	}
	return nil
}

// transientTrack builds a track from parsed tags without touching the
// store. Artist and album refs carry names only until the sync resolves
// them.
func (p *Provider) transientTrack(rel string, tags *fileTags) *domain.Track {
	track := &domain.Track{
		Name:          tags.Title,
		Duration:      tags.Duration,
		InLibrary:     true,
		ISRC:          tags.ISRC,
		MusicBrainzID: tags.MusicBrainzID,
		DiscNumber:    tags.DiscNumber,
		TrackNumber:   tags.TrackNumber,
		Metadata:      domain.MetadataJSON{Genres: tags.Genres},
		ProviderMappings: domain.MappingSet{{
			ItemID:           rel,
			ProviderDomain:   p.Domain(),
			ProviderInstance: p.InstanceID(),
			SampleRate:       tags.SampleRate,
			BitDepth:         tags.BitDepth,
			Available:        true,
		}},
	}
	if tags.Album != "" {
		track.SortAlbum = domain.SortName(tags.Album)
	}
	if len(tags.Artists) > 0 {
		track.SortArtist = domain.SortName(tags.Artists[0])
		for _, name := range tags.Artists {
			track.Artists = append(track.Artists, domain.ItemRef{Name: name})
		}
	}
	return track
}

// processPlaylistFile upserts one playlist file. Its tracks are resolved on
// demand, not at sync time.
func (p *Provider) processPlaylistFile(rel string, overwrite bool) error {
	name := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	ext := strings.ToLower(filepath.Ext(rel))
	playlist := &domain.Playlist{
		Name:       name,
		Owner:      p.InstanceID(),
		IsEditable: ext == ".m3u" || ext == ".m3u8",
		InLibrary:  true,
		ProviderMappings: domain.MappingSet{{
			ItemID:           rel,
			ProviderDomain:   p.Domain(),
			ProviderInstance: p.InstanceID(),
			Available:        true,
		}},
	}
	_, err := p.store.UpsertPlaylist(playlist, overwrite)
	return err
}

// removeDeleted drops this instance's mapping for a path that vanished
// from the tree.
func (p *Provider) removeDeleted(rel string) {
	mt := domain.MediaTypeTrack
	if playlistExtensions[strings.ToLower(filepath.Ext(rel))] {
		mt = domain.MediaTypePlaylist
	}
	itemID, err := p.store.ItemIDByProviderID(mt, rel, p.InstanceID())
	if err != nil {
		if !errors.Is(err, domain.ErrMediaNotFound) {
			p.Logger().Debug("lookup of deleted path failed", "path", rel, "error", err)
		}
		return
	}
	if err := p.store.RemoveProviderMapping(mt, itemID, p.InstanceID()); err != nil {
		p.Logger().Error("failed to remove deleted item", "path", rel, "error", err)
	}
}
