package model

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/fsutil"
)

// Schema is the metadata document written once per training run and read by
// inference and evaluation to validate feature ordering before trusting an
// artifact.
type Schema struct {
	Version string `json:"version"`

	// Target names the single regression target of the legacy pipeline.
	Target string `json:"target,omitempty"`

	// Labels names the targets of the two-head pipeline.
	Labels []string `json:"labels,omitempty"`

	// Features is the exact order models were fitted with.
	Features []string `json:"features"`

	// Notes records free-text policy decisions (DNF handling and so on).
	Notes string `json:"notes,omitempty"`
}

// SaveSchema writes a schema artifact to the given path.
func SaveSchema(path string, s *Schema) error {
	if err := fsutil.WriteJSONAtomic(path, s, 0644); err != nil {
		return fmt.Errorf("saving schema %s: %w", s.Version, err)
	}

	return nil
}

// LoadSchema reads a schema artifact.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}

		return nil, fmt.Errorf("reading schema: %w", err)
	}

	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing schema %s: %w", path, err)
	}

	if len(s.Features) == 0 {
		return nil, fmt.Errorf("schema %s has no features", path)
	}

	return &s, nil
}
