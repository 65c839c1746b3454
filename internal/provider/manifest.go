// Package provider defines the provider contract, manifest parsing and the
// registry that owns running provider instances.
package provider

import (
	"encoding/json"
	"fmt"
	"io/fs"

	"github.com/medleyd/medley/internal/domain"
)

// ConfigEntry describes one configuration field a provider requires.
type ConfigEntry struct {
	Key      string `json:"key"`
	Type     string `json:"type"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Default  string `json:"default,omitempty"`
}

// Manifest is the static descriptor of a provider domain. It is parsed once
// at startup and never mutated afterwards.
type Manifest struct {
	Type          domain.ProviderType `json:"type"`
	Domain        string              `json:"domain"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	Codeowners    []string            `json:"codeowners"`
	ConfigEntries []ConfigEntry       `json:"config_entries"`
	Requirements  []string            `json:"requirements"`
	Documentation string              `json:"documentation,omitempty"`
	InitClass     string              `json:"init_class,omitempty"`
	MultiInstance bool                `json:"multi_instance"`
	Builtin       bool                `json:"builtin"`
	LoadByDefault bool                `json:"load_by_default"`
	DependsOn     string              `json:"depends_on,omitempty"`
}

func parseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Domain == "" {
		return nil, fmt.Errorf("manifest is missing a domain")
	}
	switch m.Type {
	case domain.ProviderTypeMusic, domain.ProviderTypeMetadata,
		domain.ProviderTypePlayer, domain.ProviderTypePlugin:
	default:
		return nil, fmt.Errorf("manifest %s has unknown type %q", m.Domain, m.Type)
	}
	return &m, nil
}

// scanManifests looks for <domain>/manifest.json files one level below the
// root of fsys.
func scanManifests(fsys fs.FS) (map[string][]byte, error) {
	matches, err := fs.Glob(fsys, "*/manifest.json")
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(matches))
	for _, path := range matches {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, err
		}
		out[path] = data
	}
	return out, nil
}
