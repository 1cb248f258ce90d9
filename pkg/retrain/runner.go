// Package retrain drains the per-user retrain job queue: it trains a fresh
// personal bundle per job, gates it, and atomically promotes it.
package retrain

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/config"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/dataset"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/model"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/registry"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/store"
)

// Runner processes queued retrain jobs in batches.
type Runner struct {
	log          logrus.FieldLogger
	store        store.Store
	builder      *dataset.Builder
	registry     registry.Registry
	artifactsDir string
	cfg          config.RetrainConfig

	// now is swappable for tests.
	now func() time.Time
}

// NewRunner creates a retrain job runner.
func NewRunner(
	log logrus.FieldLogger,
	st store.Store,
	builder *dataset.Builder,
	reg registry.Registry,
	artifactsDir string,
	cfg config.RetrainConfig,
) *Runner {
	return &Runner{
		log:          log.WithField("component", "retrain-runner"),
		store:        st,
		builder:      builder,
		registry:     reg,
		artifactsDir: artifactsDir,
		cfg:          cfg,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce drains one batch of queued jobs, oldest requested first, and
// returns how many were processed. Jobs are isolated: one failing job is
// marked failed with its reason and the rest of the batch still runs. Only a
// queue-level error aborts the pass.
func (r *Runner) RunOnce(ctx context.Context) (int, error) {
	jobs, err := r.store.ListQueuedRetrainJobs(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("listing queued jobs: %w", err)
	}

	for i := range jobs {
		job := &jobs[i]

		if err := ctx.Err(); err != nil {
			return i, err
		}

		if err := r.runJob(ctx, job); err != nil {
			r.log.WithError(err).WithFields(logrus.Fields{
				"job":  job.ID,
				"user": job.UserID,
			}).Warn("Retrain job failed")

			r.failJob(ctx, job, err)
		}
	}

	return len(jobs), nil
}

// runJob trains, gates and promotes a single job. Any returned error becomes
// the job's recorded failure reason.
func (r *Runner) runJob(ctx context.Context, job *store.RetrainJob) error {
	// The running state commits before any training work so a crashed run
	// is visible as stuck-running rather than silently re-queued.
	startedAt := r.now()
	job.Status = store.JobStatusRunning
	job.StartedAt = &startedAt

	if err := r.store.UpdateRetrainJob(ctx, job); err != nil {
		return fmt.Errorf("marking job running: %w", err)
	}

	user, err := r.store.GetUserByID(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("loading user %d: %w", job.UserID, err)
	}

	rows, err := r.builder.BuildUser(ctx, user)
	if err != nil {
		return fmt.Errorf("building dataset: %w", err)
	}

	if len(rows) < r.cfg.MinRows {
		return fmt.Errorf("insufficient training data: %d rows, need %d", len(rows), r.cfg.MinRows)
	}

	data, err := dataset.ToTrainingData(rows)
	if err != nil {
		return fmt.Errorf("converting dataset: %w", err)
	}

	version := model.UserVersion(user.ID)

	res, err := model.TrainBundle(data, version)
	if err != nil {
		return fmt.Errorf("training bundle: %w", err)
	}

	if !model.SaneMAE(res.ValMAE, r.cfg.MAECeilingMs) {
		return fmt.Errorf("validation mae %.1f ms outside acceptable range (0, %.0f]", res.ValMAE, r.cfg.MAECeilingMs)
	}

	// The bundle lands on disk before the promotion commits; a failure
	// between the two leaves an unreferenced artifact, never a dangling
	// pointer.
	if err := model.SaveBundle(r.artifactsDir, res.Bundle); err != nil {
		return fmt.Errorf("saving bundle: %w", err)
	}

	if err := r.store.PromoteUserModel(ctx, user.ID, job.ID, res.Bundle.Version, r.now()); err != nil {
		return fmt.Errorf("promoting bundle: %w", err)
	}

	r.registry.Invalidate(version)

	r.log.WithFields(logrus.Fields{
		"job":     job.ID,
		"user":    user.ID,
		"version": res.Bundle.Version,
		"rows":    len(rows),
		"valMAE":  res.ValMAE,
	}).Info("Promoted per-user bundle")

	return nil
}

// failJob records a terminal failure. The user's active model pointer is
// untouched: a failed retrain never demotes whatever was serving before.
func (r *Runner) failJob(ctx context.Context, job *store.RetrainJob, cause error) {
	finishedAt := r.now()
	msg := cause.Error()

	job.Status = store.JobStatusFailed
	job.FinishedAt = &finishedAt
	job.Error = &msg

	if err := r.store.UpdateRetrainJob(ctx, job); err != nil {
		r.log.WithError(err).WithField("job", job.ID).Error("Failed to record job failure")
	}
}
