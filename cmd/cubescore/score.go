package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/registry"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/scorer"
)

var (
	scoreSolveID uint64
	scoreV2      bool
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a stored solve",
	Long: `Scores one solve against the trained models and persists the result onto
the solve. By default the single-score model is used; --v2 scores with the
user's two-head bundle, falling back to the global one.`,
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)
	scoreCmd.Flags().Uint64Var(&scoreSolveID, "solve", 0, "Solve id to score")
	scoreCmd.Flags().BoolVar(&scoreV2, "v2", false, "Score with the two-head pipeline")

	_ = scoreCmd.MarkFlagRequired("solve")
}

func runScore(cmd *cobra.Command, args []string) error {
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

	solve, err := st.GetSolveByID(ctx, scoreSolveID)
	if err != nil {
		return fmt.Errorf("looking up solve %d: %w", scoreSolveID, err)
	}

	user, err := st.GetUserByID(ctx, solve.UserID)
	if err != nil {
		return fmt.Errorf("looking up user %d: %w", solve.UserID, err)
	}

	reg, err := registry.NewRegistry(log, cfg.ML.ArtifactsDir)
	if err != nil {
		return err
	}

	svc := scorer.NewService(log, st, reg)

	var (
		score   float64
		modelID string
	)

	if scoreV2 {
		score, modelID, err = svc.ScoreSolveV2(ctx, user, solve)
	} else {
		score, modelID, err = svc.ScoreSolve(ctx, user, solve)
	}

	if err != nil {
		return fmt.Errorf("scoring solve: %w", err)
	}

	fmt.Printf("solve %d: score %.1f (model %s)\n", solve.ID, score, modelID)

	return nil
}
