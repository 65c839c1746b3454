package provider

import (
	"testing"

	"github.com/medleyd/medley/internal/events"
	"github.com/medleyd/medley/internal/logger"
)

func TestParseManifest(t *testing.T) {
	m, err := parseManifest([]byte(`{
		"type": "music",
		"domain": "filesystem",
		"name": "Filesystem",
		"multi_instance": true,
		"config_entries": [{"key": "path", "type": "string", "label": "Path", "required": true}]
	}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if m.Domain != "filesystem" || !m.MultiInstance {
		t.Errorf("manifest = %+v", m)
	}
	if len(m.ConfigEntries) != 1 || m.ConfigEntries[0].Key != "path" {
		t.Errorf("config entries = %+v", m.ConfigEntries)
	}

	if _, err := parseManifest([]byte(`{"type": "music"}`)); err == nil {
		t.Error("missing domain should fail")
	}
	if _, err := parseManifest([]byte(`{"type": "widget", "domain": "x"}`)); err == nil {
		t.Error("unknown type should fail")
	}
}

func TestBuiltinManifests(t *testing.T) {
	r := NewRegistry(events.NewBus(), Deps{Log: logger.Default()}, logger.Default())
	if err := r.LoadManifests(BuiltinManifests()); err != nil {
		t.Fatalf("failed to load builtin manifests: %v", err)
	}

	fs, ok := r.ManifestFor("filesystem")
	if !ok {
		t.Fatal("filesystem manifest missing")
	}
	if !fs.MultiInstance {
		t.Error("filesystem must allow multiple instances")
	}

	mb, ok := r.ManifestFor("musicbrainz")
	if !ok {
		t.Fatal("musicbrainz manifest missing")
	}
	if !mb.LoadByDefault {
		t.Error("musicbrainz should load by default")
	}
}
