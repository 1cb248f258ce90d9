package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/dataset"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/fsutil"
)

var (
	buildDatasetOutDir string
	buildDatasetLegacy bool
)

var buildDatasetCmd = &cobra.Command{
	Use:   "build-dataset",
	Short: "Build training dataset CSVs from stored solves",
	Long: `Replays every user's solve history in chronological order and writes the
training dataset CSVs. By default the two-head dataset is built; --legacy
builds the single-score one instead.`,
	RunE: runBuildDataset,
}

func init() {
	rootCmd.AddCommand(buildDatasetCmd)
	buildDatasetCmd.Flags().StringVar(&buildDatasetOutDir, "out-dir", "",
		"Output directory (defaults to the configured datasets dir)")
	buildDatasetCmd.Flags().BoolVar(&buildDatasetLegacy, "legacy", false,
		"Build the single-score dataset instead of the two-head one")
}

func runBuildDataset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Stop() }()

	outDir := buildDatasetOutDir
	if outDir == "" {
		outDir = cfg.ML.DatasetsDir
	}

	if err := fsutil.EnsureDir(outDir, 0755); err != nil {
		return err
	}

	builder := dataset.NewBuilder(log, st, cfg.ML.Event)

	if buildDatasetLegacy {
		rows, err := builder.BuildAllLegacy(ctx)
		if err != nil {
			return fmt.Errorf("building dataset: %w", err)
		}

		path := filepath.Join(outDir, dataset.LegacyDatasetFile)
		if err := dataset.WriteLegacyCSV(path, rows); err != nil {
			return err
		}

		log.WithField("path", path).WithField("rows", len(rows)).Info("Wrote dataset")

		return nil
	}

	rows, err := builder.BuildAll(ctx)
	if err != nil {
		return fmt.Errorf("building dataset: %w", err)
	}

	path := filepath.Join(outDir, dataset.DatasetFileV2)
	if err := dataset.WriteCSV(path, rows); err != nil {
		return err
	}

	log.WithField("path", path).WithField("rows", len(rows)).Info("Wrote dataset")

	return nil
}
