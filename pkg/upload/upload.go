// Package upload pushes trained model artifacts to remote storage.
package upload

import "context"

// Uploader uploads a local artifacts directory to remote storage.
type Uploader interface {
	// Preflight verifies that the remote storage is reachable and writable.
	// Writes a small test object to the bucket to fail fast on
	// misconfiguration before a training run depends on it.
	Preflight(ctx context.Context) error

	// UploadArtifacts uploads all files under artifactsDir, preserving the
	// directory layout under the configured remote prefix.
	UploadArtifacts(ctx context.Context, artifactsDir string) error
}
