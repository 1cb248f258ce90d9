package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/dataset"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/model"
)

var (
	evaluateDatasetPath string
	evaluateLegacy      bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate trained models against a dataset CSV",
	Long: `Re-runs the training split on a dataset CSV and reports the trained
artifacts' metrics on the held-out rows.`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringVar(&evaluateDatasetPath, "dataset", "",
		"Dataset CSV path (defaults to the configured datasets dir)")
	evaluateCmd.Flags().BoolVar(&evaluateLegacy, "legacy", false,
		"Evaluate the single-score model instead of the two-head bundle")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if evaluateLegacy {
		return evaluateLegacyModel(cfg.ML.ArtifactsDir, cfg.ML.DatasetsDir)
	}

	return evaluateBundle(cfg.ML.ArtifactsDir, cfg.ML.DatasetsDir)
}

func evaluateBundle(artifactsDir, datasetsDir string) error {
	path := evaluateDatasetPath
	if path == "" {
		path = filepath.Join(datasetsDir, dataset.DatasetFileV2)
	}

	rows, err := dataset.ReadCSV(path)
	if err != nil {
		return err
	}

	bundle, err := model.LoadBundle(model.BundlePath(artifactsDir, model.GlobalVersion()))
	if err != nil {
		return err
	}

	_, valIdx := model.SplitIndices(len(rows), model.ValFraction, model.SplitSeed)

	yTime := make([]float64, len(valIdx))
	predTime := make([]float64, len(valIdx))
	yDNF := make([]float64, len(valIdx))
	dnfProba := make([]float64, len(valIdx))
	yPlus2 := make([]float64, len(valIdx))
	plus2Proba := make([]float64, len(valIdx))

	for i, j := range valIdx {
		vec, err := rows[j].Features.Vector(bundle.Features)
		if err != nil {
			return fmt.Errorf("row %d: %w", j, err)
		}

		yTime[i] = rows[j].YTimeMs
		predTime[i] = bundle.TimeModel.Predict(vec)
		yDNF[i] = rows[j].YDNF
		dnfProba[i] = bundle.DNFModel.PredictProba(vec)
		yPlus2[i] = rows[j].YPlus2
		plus2Proba[i] = bundle.Plus2Model.PredictProba(vec)
	}

	fmt.Printf("bundle %s on %d held-out rows\n", bundle.Version, len(valIdx))
	fmt.Printf("  time MAE: %.1f ms\n", model.MAE(yTime, predTime))

	if auc, ok := model.ROCAUC(yDNF, dnfProba); ok {
		fmt.Printf("  dnf AUC: %.3f\n", auc)
	} else {
		fmt.Println("  dnf AUC: n/a (single class)")
	}

	if auc, ok := model.ROCAUC(yPlus2, plus2Proba); ok {
		fmt.Printf("  plus2 AUC: %.3f\n", auc)
	} else {
		fmt.Println("  plus2 AUC: n/a (single class)")
	}

	return nil
}

func evaluateLegacyModel(artifactsDir, datasetsDir string) error {
	path := evaluateDatasetPath
	if path == "" {
		path = filepath.Join(datasetsDir, dataset.LegacyDatasetFile)
	}

	rows, err := dataset.ReadLegacyCSV(path)
	if err != nil {
		return err
	}

	m, err := model.LoadLegacyModel(artifactsDir)
	if err != nil {
		return err
	}

	_, valIdx := model.SplitIndices(len(rows), model.ValFraction, model.SplitSeed)

	y := make([]float64, len(valIdx))
	preds := make([]float64, len(valIdx))

	for i, j := range valIdx {
		vec, err := rows[j].Features.Vector(m.Features)
		if err != nil {
			return fmt.Errorf("row %d: %w", j, err)
		}

		y[i] = rows[j].YScore
		preds[i] = m.Model.Predict(vec)
	}

	fmt.Printf("model %s on %d held-out rows\n", m.Version, len(valIdx))
	fmt.Printf("  score MAE: %.2f points\n", model.MAE(y, preds))

	return nil
}
