package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/upload"
)

var uploadMethod string

var uploadArtifactsCmd = &cobra.Command{
	Use:   "upload-artifacts",
	Short: "Upload trained model artifacts to remote storage",
	Long:  `Uploads the artifacts directory to S3-compatible storage using the config file settings.`,
	RunE:  runUploadArtifacts,
}

func init() {
	rootCmd.AddCommand(uploadArtifactsCmd)
	uploadArtifactsCmd.Flags().StringVar(&uploadMethod, "method", "s3",
		"Upload method (currently only \"s3\")")
}

func runUploadArtifacts(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if uploadMethod != "s3" {
		return fmt.Errorf("unsupported method %q (only \"s3\" is supported)", uploadMethod)
	}

	if cfg.ML.Upload.S3 == nil || !cfg.ML.Upload.S3.Enabled {
		return fmt.Errorf("S3 upload is not configured or not enabled in config")
	}

	uploader, err := upload.NewS3Uploader(log, cfg.ML.Upload.S3)
	if err != nil {
		return fmt.Errorf("creating S3 uploader: %w", err)
	}

	ctx := cmd.Context()

	if err := uploader.Preflight(ctx); err != nil {
		return fmt.Errorf("preflight check: %w", err)
	}

	log.WithField("dir", cfg.ML.ArtifactsDir).Info("Uploading artifacts")

	if err := uploader.UploadArtifacts(ctx, cfg.ML.ArtifactsDir); err != nil {
		return fmt.Errorf("uploading artifacts: %w", err)
	}

	log.Info("Upload completed successfully")

	return nil
}
