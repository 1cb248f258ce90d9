package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/dataset"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/registry"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/retrain"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/store"
)

var retrainEnqueueUser uint

var retrainCmd = &cobra.Command{
	Use:   "retrain",
	Short: "Manage per-user model retraining",
}

var retrainEnqueueCmd = &cobra.Command{
	Use:   "enqueue",
	Short: "Queue a retrain job for a user",
	RunE:  runRetrainEnqueue,
}

var retrainRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Process one batch of queued retrain jobs",
	Long: `Drains up to the configured batch size of queued retrain jobs, oldest
requested first. Each job trains a fresh personal bundle; jobs that fail the
row-count or validation gates are marked failed and never touch the user's
active model.`,
	RunE: runRetrainRun,
}

func init() {
	rootCmd.AddCommand(retrainCmd)
	retrainCmd.AddCommand(retrainEnqueueCmd)
	retrainCmd.AddCommand(retrainRunCmd)

	retrainEnqueueCmd.Flags().UintVar(&retrainEnqueueUser, "user", 0, "User id to retrain")
	_ = retrainEnqueueCmd.MarkFlagRequired("user")
}

func runRetrainEnqueue(cmd *cobra.Command, args []string) error {
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

	if _, err := st.GetUserByID(ctx, retrainEnqueueUser); err != nil {
		return fmt.Errorf("looking up user %d: %w", retrainEnqueueUser, err)
	}

	job := &store.RetrainJob{UserID: retrainEnqueueUser}
	if err := st.CreateRetrainJob(ctx, job); err != nil {
		return err
	}

	log.WithField("job", job.ID).WithField("user", retrainEnqueueUser).Info("Queued retrain job")

	return nil
}

func runRetrainRun(cmd *cobra.Command, args []string) error {
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

	reg, err := registry.NewRegistry(log, cfg.ML.ArtifactsDir)
	if err != nil {
		return err
	}

	builder := dataset.NewBuilder(log, st, cfg.ML.Event)
	runner := retrain.NewRunner(log, st, builder, reg, cfg.ML.ArtifactsDir, cfg.ML.Retrain)

	processed, err := runner.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("running retrain batch: %w", err)
	}

	log.WithField("processed", processed).Info("Retrain batch finished")

	return nil
}
