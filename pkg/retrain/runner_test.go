package retrain

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/config"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/dataset"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/model"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/registry"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/scoring"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/store"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func intPtr(v int) *int { return &v }

type fixture struct {
	store    store.Store
	registry registry.Registry
	runner   *Runner
	dir      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := testLogger()

	st := store.NewStore(log, &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, st.Start(context.Background()))
	t.Cleanup(func() { _ = st.Stop() })

	dir := t.TempDir()

	reg, err := registry.NewRegistry(log, dir)
	require.NoError(t, err)

	builder := dataset.NewBuilder(log, st, "3x3")

	cfg := config.RetrainConfig{
		BatchSize:    config.DefaultRetrainBatchSize,
		MinRows:      config.DefaultRetrainMinRows,
		MAECeilingMs: config.DefaultRetrainMAECeilingMs,
	}

	return &fixture{
		store:    st,
		registry: reg,
		runner:   NewRunner(log, st, builder, reg, dir, cfg),
		dir:      dir,
	}
}

// seedUser creates a user with n solves whose effective times follow a
// learnable pattern around the prior.
func seedUser(t *testing.T, st store.Store, email string, n int) *store.User {
	t.Helper()

	ctx := context.Background()

	user := &store.User{
		Email:       email,
		Name:        "Tester",
		SkillSource: store.SkillSourceWCA,
		WCA333AvgMs: intPtr(12000),
	}
	require.NoError(t, st.CreateUser(ctx, user))

	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	solves := make([]*store.Solve, n)

	for i := 0; i < n; i++ {
		solves[i] = &store.Solve{
			UserID:    user.ID,
			Scramble:  "R U R' U'",
			TimeMs:    intPtr(11000 + (i%9)*250),
			Penalty:   scoring.PenaltyOK,
			Event:     "3x3",
			Source:    "timer",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
	}

	require.NoError(t, st.CreateSolves(ctx, solves))

	return user
}

func TestRunOnceSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := seedUser(t, f.store, "solver@example.com", 250)

	job := &store.RetrainJob{UserID: user.ID}
	require.NoError(t, f.store.CreateRetrainJob(ctx, job))

	processed, err := f.runner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	gotJob, err := f.store.GetRetrainJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.JobStatusDone, gotJob.Status)
	require.NotNil(t, gotJob.StartedAt)
	require.NotNil(t, gotJob.FinishedAt)
	require.NotNil(t, gotJob.NewModelVersion)

	version := model.UserVersion(user.ID)
	assert.Equal(t, version.String(), *gotJob.NewModelVersion)

	gotUser, err := f.store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, gotUser.ActiveModelVersion)
	assert.Equal(t, version.String(), *gotUser.ActiveModelVersion)
	require.NotNil(t, gotUser.LastRetrainAt)

	// The artifact is on disk and loadable.
	_, err = os.Stat(model.BundlePath(f.dir, version))
	require.NoError(t, err)

	b, err := f.registry.Bundle(ctx, version)
	require.NoError(t, err)
	assert.Equal(t, version.String(), b.Version)
}

func TestRunOnceInsufficientData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 150 usable solves: under the row gate.
	user := seedUser(t, f.store, "sparse@example.com", 150)

	job := &store.RetrainJob{UserID: user.ID}
	require.NoError(t, f.store.CreateRetrainJob(ctx, job))

	processed, err := f.runner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	gotJob, err := f.store.GetRetrainJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.JobStatusFailed, gotJob.Status)
	require.NotNil(t, gotJob.Error)
	assert.Contains(t, *gotJob.Error, "150 rows")
	assert.Nil(t, gotJob.NewModelVersion)

	// The active model pointer never moves on failure.
	gotUser, err := f.store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, gotUser.ActiveModelVersion)

	// No artifact was written.
	_, err = os.Stat(model.BundlePath(f.dir, model.UserVersion(user.ID)))
	assert.True(t, os.IsNotExist(err))
}

func TestRunOnceDNFsDoNotCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 210 solves but 20 DNFs: usable rows fall below the gate.
	user := seedUser(t, f.store, "dnf@example.com", 190)

	base := time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)
	dnfs := make([]*store.Solve, 20)

	for i := range dnfs {
		dnfs[i] = &store.Solve{
			UserID:    user.ID,
			Scramble:  "F B F'",
			TimeMs:    intPtr(15000),
			Penalty:   scoring.PenaltyDNF,
			Event:     "3x3",
			Source:    "timer",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
	}

	require.NoError(t, f.store.CreateSolves(ctx, dnfs))

	job := &store.RetrainJob{UserID: user.ID}
	require.NoError(t, f.store.CreateRetrainJob(ctx, job))

	_, err := f.runner.RunOnce(ctx)
	require.NoError(t, err)

	gotJob, err := f.store.GetRetrainJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.JobStatusFailed, gotJob.Status)
	require.NotNil(t, gotJob.Error)
	assert.Contains(t, *gotJob.Error, "190 rows")
}

func TestRunOnceBatchLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := seedUser(t, f.store, "batch@example.com", 10)

	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < config.DefaultRetrainBatchSize+2; i++ {
		job := &store.RetrainJob{UserID: user.ID, RequestedAt: base.Add(time.Duration(i) * time.Second)}
		require.NoError(t, f.store.CreateRetrainJob(ctx, job))
	}

	processed, err := f.runner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultRetrainBatchSize, processed)

	queued, err := f.store.ListQueuedRetrainJobs(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, queued, 2)
}

func TestRunOnceJobIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sparse := seedUser(t, f.store, "sparse2@example.com", 5)
	dense := seedUser(t, f.store, "dense@example.com", 250)

	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	failing := &store.RetrainJob{UserID: sparse.ID, RequestedAt: base}
	succeeding := &store.RetrainJob{UserID: dense.ID, RequestedAt: base.Add(time.Second)}

	require.NoError(t, f.store.CreateRetrainJob(ctx, failing))
	require.NoError(t, f.store.CreateRetrainJob(ctx, succeeding))

	processed, err := f.runner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)

	gotFailing, err := f.store.GetRetrainJob(ctx, failing.ID)
	require.NoError(t, err)
	assert.Equal(t, store.JobStatusFailed, gotFailing.Status)

	gotSucceeding, err := f.store.GetRetrainJob(ctx, succeeding.ID)
	require.NoError(t, err)
	assert.Equal(t, store.JobStatusDone, gotSucceeding.Status)
}

func TestRunOnceMissingUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	job := &store.RetrainJob{UserID: 9999}
	require.NoError(t, f.store.CreateRetrainJob(ctx, job))

	processed, err := f.runner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	gotJob, err := f.store.GetRetrainJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, store.JobStatusFailed, gotJob.Status)
	require.NotNil(t, gotJob.Error)
}
