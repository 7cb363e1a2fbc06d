package urlfilter

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Configuration carries the host runtime's identification and verbosity
// preference into an Engine. It is always threaded explicitly rather than
// read from package-level state.
type Configuration struct {
	// EngineName identifies the host runtime embedding this engine. It is
	// echoed in diagnostics, never interpreted.
	EngineName string `yaml:"engine_name,omitempty"`

	// Version is the host runtime's version, advisory only.
	Version string `yaml:"version,omitempty"`

	// Verbose is stored on the Engine and returned by Engine.Config. The
	// engine emits no diagnostic log output of its own, so the flag changes
	// no behaviour inside this package.
	Verbose bool `yaml:"verbose,omitempty"`
}

// FilterListSource describes where one filter list's rule text comes from.
// Exactly one of Path or URL is expected to be set; URL is recorded for
// provenance only; this module never fetches it.
type FilterListSource struct {
	Name string `yaml:"name"`
	Path string `yaml:"path,omitempty"`
	URL  string `yaml:"url,omitempty"`

	// IgnoreCosmetic skips cosmetic rules (##, #@#, ...) while scanning
	// this list, matching filterlist.FileRuleList's ignoreCosmetic flag.
	IgnoreCosmetic bool `yaml:"ignore_cosmetic,omitempty"`
}

// Manifest is a YAML document naming the filter lists an Engine should be
// built from, plus the engine Configuration to run it with. It lets a host
// check a manifest file into source control instead of hardcoding -f flags.
type Manifest struct {
	Engine Configuration      `yaml:"engine"`
	Lists  []FilterListSource `yaml:"lists"`
}

// LoadManifest reads and parses a YAML manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err = yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	return &m, nil
}

// SaveManifest writes m to path as YAML.
func SaveManifest(m *Manifest, path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}

	if err = os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}

	return nil
}
