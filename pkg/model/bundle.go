package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/fsutil"
)

// ErrArtifactMissing marks a model or schema file that does not exist on
// disk. Callers branch on it with errors.Is; it is never silently defaulted
// except for the documented per-user to global bundle fallback.
var ErrArtifactMissing = errors.New("model artifact missing")

// Artifact file names under the artifacts directory. The layout mirrors the
// training pipeline's output: the legacy model and its schema at the top
// level, the global two-head bundle next to them, and per-user bundles in
// users/.
const (
	legacyModelFile  = "gbm_v1.json"
	legacySchemaFile = "feature_schema.json"
	bundleV2File     = "bundle_v2.json"
	schemaV2File     = "feature_schema_v2.json"
	userBundleDir    = "users"
)

// Bundle is a versioned, immutable set of trained models sharing one feature
// order. The recorded Features list is the serialized contract: inference
// must assemble vectors in exactly this order.
type Bundle struct {
	Version    string              `json:"version"`
	TimeModel  *LinearRegressor    `json:"time_model"`
	DNFModel   *LogisticClassifier `json:"dnf_model"`
	Plus2Model *LogisticClassifier `json:"plus2_model"`
	Features   []string            `json:"features"`
}

// LegacyModel is the single-score pipeline artifact.
type LegacyModel struct {
	Version  string           `json:"version"`
	Model    *LinearRegressor `json:"model"`
	Features []string         `json:"features"`
}

// BundlePath returns the artifact path for a bundle version.
func BundlePath(artifactsDir string, v Version) string {
	if v.IsGlobal() {
		return filepath.Join(artifactsDir, bundleV2File)
	}

	return filepath.Join(artifactsDir, userBundleDir, v.String()+".json")
}

// LegacyModelPath returns the single-score model artifact path.
func LegacyModelPath(artifactsDir string) string {
	return filepath.Join(artifactsDir, legacyModelFile)
}

// LegacySchemaPath returns the single-score schema artifact path.
func LegacySchemaPath(artifactsDir string) string {
	return filepath.Join(artifactsDir, legacySchemaFile)
}

// SchemaV2Path returns the two-head schema artifact path.
func SchemaV2Path(artifactsDir string) string {
	return filepath.Join(artifactsDir, schemaV2File)
}

// SaveBundle writes a bundle artifact, creating the users/ directory for
// per-user versions. Writes are atomic; a concurrent reader sees either the
// old bundle or the new one, never a torn file.
func SaveBundle(artifactsDir string, b *Bundle) error {
	path := BundlePath(artifactsDir, mustVersion(b.Version))

	if err := fsutil.EnsureDir(filepath.Dir(path), 0755); err != nil {
		return err
	}

	if err := fsutil.WriteJSONAtomic(path, b, 0644); err != nil {
		return fmt.Errorf("saving bundle %s: %w", b.Version, err)
	}

	return nil
}

// LoadBundle reads a bundle artifact from the given path.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}

		return nil, fmt.Errorf("reading bundle: %w", err)
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parsing bundle %s: %w", path, err)
	}

	if b.TimeModel == nil || b.DNFModel == nil || b.Plus2Model == nil || len(b.Features) == 0 {
		return nil, fmt.Errorf("bundle %s is incomplete", path)
	}

	return &b, nil
}

// SaveLegacyModel writes the single-score model artifact.
func SaveLegacyModel(artifactsDir string, m *LegacyModel) error {
	if err := fsutil.EnsureDir(artifactsDir, 0755); err != nil {
		return err
	}

	if err := fsutil.WriteJSONAtomic(LegacyModelPath(artifactsDir), m, 0644); err != nil {
		return fmt.Errorf("saving legacy model: %w", err)
	}

	return nil
}

// LoadLegacyModel reads the single-score model artifact.
func LoadLegacyModel(artifactsDir string) (*LegacyModel, error) {
	path := LegacyModelPath(artifactsDir)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}

		return nil, fmt.Errorf("reading legacy model: %w", err)
	}

	var m LegacyModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing legacy model %s: %w", path, err)
	}

	if m.Model == nil {
		return nil, fmt.Errorf("legacy model %s is incomplete", path)
	}

	return &m, nil
}

// mustVersion parses a version string that this process produced itself.
func mustVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(fmt.Sprintf("invalid bundle version %q: %v", s, err))
	}

	return v
}
