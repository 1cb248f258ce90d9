package main

import (
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/dataset"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/model"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/scoring"
)

var (
	trainDatasetPath string
	trainLegacy      bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the global models from a dataset CSV",
	Long: `Trains the global two-head bundle (or, with --legacy, the single-score
model) from a dataset CSV and writes the model and schema artifacts.`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
	trainCmd.Flags().StringVar(&trainDatasetPath, "dataset", "",
		"Dataset CSV path (defaults to the configured datasets dir)")
	trainCmd.Flags().BoolVar(&trainLegacy, "legacy", false,
		"Train the single-score model instead of the two-head bundle")
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if trainLegacy {
		return trainLegacyModel(cfg.ML.ArtifactsDir, cfg.ML.DatasetsDir)
	}

	return trainGlobalBundle(cfg.ML.ArtifactsDir, cfg.ML.DatasetsDir)
}

func trainGlobalBundle(artifactsDir, datasetsDir string) error {
	path := trainDatasetPath
	if path == "" {
		path = filepath.Join(datasetsDir, dataset.DatasetFileV2)
	}

	rows, err := dataset.ReadCSV(path)
	if err != nil {
		return err
	}

	data, err := dataset.ToTrainingData(rows)
	if err != nil {
		return err
	}

	res, err := model.TrainBundle(data, model.GlobalVersion())
	if err != nil {
		return fmt.Errorf("training bundle: %w", err)
	}

	if err := model.SaveBundle(artifactsDir, res.Bundle); err != nil {
		return err
	}

	schema := &model.Schema{
		Version:  res.Bundle.Version,
		Labels:   []string{"y_time_ms", "y_dnf", "y_plus2"},
		Features: data.Features,
		Notes:    "DNF solves are excluded from rows; features derive from strictly earlier solves only",
	}
	if err := model.SaveSchema(model.SchemaV2Path(artifactsDir), schema); err != nil {
		return err
	}

	fields := logrus.Fields{
		"version": res.Bundle.Version,
		"rows":    len(rows),
		"valMAE":  fmt.Sprintf("%.1fms", res.ValMAE),
	}
	if res.DNFAUCOK {
		fields["dnfAUC"] = fmt.Sprintf("%.3f", res.DNFAUC)
	}

	if res.Plus2AUCOK {
		fields["plus2AUC"] = fmt.Sprintf("%.3f", res.Plus2AUC)
	}

	log.WithFields(fields).Info("Trained global bundle")

	return nil
}

func trainLegacyModel(artifactsDir, datasetsDir string) error {
	path := trainDatasetPath
	if path == "" {
		path = filepath.Join(datasetsDir, dataset.LegacyDatasetFile)
	}

	rows, err := dataset.ReadLegacyCSV(path)
	if err != nil {
		return err
	}

	x, y, err := dataset.ToLegacyTrainingData(rows)
	if err != nil {
		return err
	}

	res, err := model.TrainLegacy(scoring.FeatureOrder, x, y)
	if err != nil {
		return fmt.Errorf("training model: %w", err)
	}

	if err := model.SaveLegacyModel(artifactsDir, res.Model); err != nil {
		return err
	}

	schema := &model.Schema{
		Version:  res.Model.Version,
		Target:   "y_score",
		Features: res.Model.Features,
		Notes:    "score label is the curve applied to effective time over pre-solve baseline",
	}
	if err := model.SaveSchema(model.LegacySchemaPath(artifactsDir), schema); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"version": res.Model.Version,
		"rows":    len(rows),
		"valMAE":  fmt.Sprintf("%.2f points", res.ValMAE),
	}).Info("Trained legacy model")

	return nil
}
