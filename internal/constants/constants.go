// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort       = "8095"
	DefaultDBPath     = "medley.db"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultHTTPListen = ""
)

// Cache expirations
const (
	// SearchCacheTTL is how long cross-provider search results stay cached.
	SearchCacheTTL = 7 * 24 * time.Hour
	// MetadataCacheTTL is how long metadata-provider lookups stay cached.
	MetadataCacheTTL = 30 * 24 * time.Hour
)

// Sync tuning
const (
	// ChecksumSaveInterval is how many processed items a filesystem sync
	// walks between persisting its checksum map, so an interrupted sync
	// resumes near where it left off.
	ChecksumSaveInterval = 100
)

// MusicBrainz
const (
	MusicBrainzBaseURL     = "https://musicbrainz.org/ws/2"
	MusicBrainzUserAgent   = "medley/1.0 (https://github.com/medleyd/medley)"
	MusicBrainzRateLimit   = 1 * time.Second
	MusicBrainzHTTPTimeout = 10 * time.Second
)
