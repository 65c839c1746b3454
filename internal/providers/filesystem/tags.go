package filesystem

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"
)

// fileTags is the metadata read from one audio file.
type fileTags struct {
	Title         string
	Artists       []string
	Album         string
	AlbumArtist   string
	Genres        []string
	Year          int
	TrackNumber   int
	DiscNumber    int
	Duration      int
	MusicBrainzID string
	ISRC          string
	SampleRate    int
	BitDepth      int
	HasCover      bool
}

// parseTags reads the embedded tags of an audio file. A file whose tags
// cannot be read falls back to tags derived from its name, so one corrupt
// file never aborts a sync.
func parseTags(path string) *fileTags {
	var (
		tags *fileTags
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		tags, err = parseMP3Tags(path)
	case ".flac":
		tags, err = parseFLACTags(path)
	default:
		err = errUnsupportedFormat
	}
	if err != nil || tags.Title == "" {
		return tagsFromFilename(path)
	}
	return tags
}

var errUnsupportedFormat = errors.New("unsupported audio format")

// tagsFromFilename derives tags from an "Artist - Title.ext" style name.
func tagsFromFilename(path string) *fileTags {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if artist, title, ok := strings.Cut(base, " - "); ok {
		return &fileTags{
			Title:   strings.TrimSpace(title),
			Artists: []string{strings.TrimSpace(artist)},
		}
	}
	return &fileTags{Title: base}
}

func parseMP3Tags(path string) (*fileTags, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, err
	}
	defer tag.Close()

	tags := &fileTags{
		Title: strings.TrimSpace(tag.Title()),
		Album: strings.TrimSpace(tag.Album()),
	}
	if artist := strings.TrimSpace(tag.Artist()); artist != "" {
		tags.Artists = splitTagValues(artist)
	}
	if genre := strings.TrimSpace(tag.Genre()); genre != "" {
		tags.Genres = splitTagValues(genre)
	}
	if year := strings.TrimSpace(tag.Year()); year != "" {
		tags.Year, _ = strconv.Atoi(year)
	}
	if f := tag.GetTextFrame(tag.CommonID("Band/Orchestra/Accompaniment")); f.Text != "" {
		tags.AlbumArtist = strings.TrimSpace(f.Text)
	}
	if f := tag.GetTextFrame(tag.CommonID("Track number/Position in set")); f.Text != "" {
		tags.TrackNumber = parsePosition(f.Text)
	}
	if f := tag.GetTextFrame(tag.CommonID("Part of a set")); f.Text != "" {
		tags.DiscNumber = parsePosition(f.Text)
	}
	if f := tag.GetTextFrame(tag.CommonID("ISRC")); f.Text != "" {
		tags.ISRC = strings.TrimSpace(f.Text)
	}
	for _, frame := range tag.GetFrames(tag.CommonID("User defined text information frame")) {
		udf, ok := frame.(id3v2.UserDefinedTextFrame)
		if !ok {
			continue
		}
		if strings.EqualFold(udf.Description, "MUSICBRAINZ_TRACKID") {
			tags.MusicBrainzID = strings.TrimSpace(udf.Value)
		}
	}
	tags.HasCover = len(tag.GetFrames(tag.CommonID("Attached picture"))) > 0
	return tags, nil
}

func parseFLACTags(path string) (*fileTags, error) {
	f, err := flac.ParseFile(path)
	if err != nil {
		return nil, err
	}

	tags := &fileTags{}
	if info, err := f.GetStreamInfo(); err == nil {
		tags.SampleRate = info.SampleRate
		tags.BitDepth = info.BitDepth
		if info.SampleRate > 0 {
			tags.Duration = int(info.SampleCount / int64(info.SampleRate))
		}
	}

	for _, block := range f.Meta {
		switch block.Type {
		case flac.VorbisComment:
			cmt, err := flacvorbis.ParseFromMetaDataBlock(*block)
			if err != nil {
				continue
			}
			first := func(field string) string {
				values, err := cmt.Get(field)
				if err != nil || len(values) == 0 {
					return ""
				}
				return strings.TrimSpace(values[0])
			}
			tags.Title = first(flacvorbis.FIELD_TITLE)
			tags.Album = first(flacvorbis.FIELD_ALBUM)
			tags.ISRC = first(flacvorbis.FIELD_ISRC)
			if artists, err := cmt.Get(flacvorbis.FIELD_ARTIST); err == nil {
				for _, a := range artists {
					if a = strings.TrimSpace(a); a != "" {
						tags.Artists = append(tags.Artists, a)
					}
				}
			}
			if genres, err := cmt.Get(flacvorbis.FIELD_GENRE); err == nil {
				for _, g := range genres {
					if g = strings.TrimSpace(g); g != "" {
						tags.Genres = append(tags.Genres, g)
					}
				}
			}
			if date := first(flacvorbis.FIELD_DATE); len(date) >= 4 {
				tags.Year, _ = strconv.Atoi(date[:4])
			}
			if num := first(flacvorbis.FIELD_TRACKNUMBER); num != "" {
				tags.TrackNumber = parsePosition(num)
			}
			if v, err := cmt.Get("ALBUMARTIST"); err == nil && len(v) > 0 {
				tags.AlbumArtist = strings.TrimSpace(v[0])
			}
			if v, err := cmt.Get("DISCNUMBER"); err == nil && len(v) > 0 {
				tags.DiscNumber = parsePosition(v[0])
			}
			if v, err := cmt.Get("MUSICBRAINZ_TRACKID"); err == nil && len(v) > 0 {
				tags.MusicBrainzID = strings.TrimSpace(v[0])
			}
		case flac.Picture:
			if pic, err := flacpicture.ParseFromMetaDataBlock(*block); err == nil {
				tags.HasCover = tags.HasCover || len(pic.ImageData) > 0
			}
		}
	}
	return tags, nil
}

// splitTagValues splits a multi-value tag on the common separators.
func splitTagValues(value string) []string {
	seps := []string{"\x00", ";", "/"}
	parts := []string{value}
	for _, sep := range seps {
		if strings.Contains(value, sep) {
			parts = strings.Split(value, sep)
			break
		}
	}
	var out []string
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parsePosition parses "3" or "3/12" into 3.
func parsePosition(value string) int {
	head, _, _ := strings.Cut(strings.TrimSpace(value), "/")
	n, _ := strconv.Atoi(head)
	return n
}
