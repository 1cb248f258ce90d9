package store

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/config"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/scoring"
)

func newTestStore(t *testing.T) Store {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	s := NewStore(log, &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: ":memory:"},
	})

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop() })

	return s
}

func intPtr(v int) *int { return &v }

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := &User{
		Email:       "cuber@example.com",
		Name:        "Cuber",
		SkillSource: SkillSourceWCA,
		WCA333AvgMs: intPtr(30830),
	}
	require.NoError(t, s.CreateUser(ctx, user))
	require.NotZero(t, user.ID)

	got, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "cuber@example.com", got.Email)
	require.NotNil(t, got.SkillPriorMs())
	assert.Equal(t, 30830, *got.SkillPriorMs())

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	_, err = s.GetUserByID(ctx, 999)
	require.Error(t, err)
}

func TestSkillPriorMs(t *testing.T) {
	tests := []struct {
		name     string
		user     User
		expected *int
	}{
		{
			name: "wca source",
			user: User{
				SkillSource:          SkillSourceWCA,
				WCA333AvgMs:          intPtr(25000),
				SelfReported333AvgMs: intPtr(30000),
			},
			expected: intPtr(25000),
		},
		{
			name: "self reported source",
			user: User{
				SkillSource:          SkillSourceSelfReported,
				WCA333AvgMs:          intPtr(25000),
				SelfReported333AvgMs: intPtr(30000),
			},
			expected: intPtr(30000),
		},
		{
			name: "unknown source falls back to wca",
			user: User{
				SkillSource: SkillSourceUnknown,
				WCA333AvgMs: intPtr(25000),
			},
			expected: intPtr(25000),
		},
		{
			name: "unknown source falls back to self reported",
			user: User{
				SkillSource:          SkillSourceUnknown,
				SelfReported333AvgMs: intPtr(30000),
			},
			expected: intPtr(30000),
		},
		{
			name:     "nothing available",
			user:     User{SkillSource: SkillSourceUnknown},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.user.SkillPriorMs()
			if tt.expected == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, *tt.expected, *got)
			}
		})
	}
}

func seedSolves(t *testing.T, s Store, userID uint) []*Solve {
	t.Helper()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	solves := []*Solve{
		{UserID: userID, Scramble: "R U R'", TimeMs: intPtr(12000), Penalty: scoring.PenaltyOK, Event: "3x3", Source: "timer", CreatedAt: base},
		{UserID: userID, Scramble: "L F L'", TimeMs: intPtr(13000), Penalty: scoring.PenaltyPlus2, Event: "3x3", Source: "timer", CreatedAt: base.Add(time.Minute)},
		{UserID: userID, Scramble: "B D B'", TimeMs: intPtr(11000), Penalty: scoring.PenaltyDNF, Event: "3x3", Source: "timer", CreatedAt: base.Add(2 * time.Minute)},
		{UserID: userID, Scramble: "F U F'", TimeMs: intPtr(11500), Penalty: scoring.PenaltyOK, Event: "3x3", Source: "timer", CreatedAt: base.Add(3 * time.Minute)},
	}

	require.NoError(t, s.CreateSolves(context.Background(), solves))

	return solves
}

func TestListSolvesOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := &User{Email: "a@example.com", Name: "A"}
	require.NoError(t, s.CreateUser(ctx, user))

	// Insert out of chronological order.
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	later := &Solve{UserID: user.ID, Scramble: "x", TimeMs: intPtr(9000), Event: "3x3", Source: "timer", CreatedAt: base.Add(time.Hour)}
	earlier := &Solve{UserID: user.ID, Scramble: "y", TimeMs: intPtr(9500), Event: "3x3", Source: "timer", CreatedAt: base}
	require.NoError(t, s.CreateSolve(ctx, later))
	require.NoError(t, s.CreateSolve(ctx, earlier))

	solves, err := s.ListSolves(ctx, user.ID, "3x3")
	require.NoError(t, err)
	require.Len(t, solves, 2)
	assert.Equal(t, earlier.ID, solves[0].ID)
	assert.Equal(t, later.ID, solves[1].ID)
}

func TestListSolvesBeforeTieBreak(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := &User{Email: "b@example.com", Name: "B"}
	require.NoError(t, s.CreateUser(ctx, user))

	// Three solves sharing one timestamp: only lower ids count as earlier.
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var solves []*Solve

	for i := 0; i < 3; i++ {
		sv := &Solve{UserID: user.ID, Scramble: "z", TimeMs: intPtr(10000 + i), Event: "3x3", Source: "timer", CreatedAt: at}
		require.NoError(t, s.CreateSolve(ctx, sv))
		solves = append(solves, sv)
	}

	before, err := s.ListSolvesBefore(ctx, solves[1])
	require.NoError(t, err)
	require.Len(t, before, 1)
	assert.Equal(t, solves[0].ID, before[0].ID)

	before, err = s.ListSolvesBefore(ctx, solves[2])
	require.NoError(t, err)
	require.Len(t, before, 2)
}

func TestUpdateSolveScore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := &User{Email: "c@example.com", Name: "C"}
	require.NoError(t, s.CreateUser(ctx, user))

	solves := seedSolves(t, s, user.ID)

	require.NoError(t, s.UpdateSolveScore(ctx, solves[0].ID, 68.2, "gbm_v1"))

	got, err := s.GetSolveByID(ctx, solves[0].ID)
	require.NoError(t, err)
	require.NotNil(t, got.MLScore)
	assert.InDelta(t, 68.2, *got.MLScore, 1e-9)
	require.NotNil(t, got.ScoreVersion)
	assert.Equal(t, "gbm_v1", *got.ScoreVersion)
}

func TestRetrainJobQueue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := &User{Email: "d@example.com", Name: "D"}
	require.NoError(t, s.CreateUser(ctx, user))

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// Enqueue newest first to prove listing is oldest-requested-first.
	newer := &RetrainJob{UserID: user.ID, RequestedAt: base.Add(time.Hour)}
	older := &RetrainJob{UserID: user.ID, RequestedAt: base}
	done := &RetrainJob{UserID: user.ID, Status: JobStatusDone, RequestedAt: base.Add(-time.Hour)}

	require.NoError(t, s.CreateRetrainJob(ctx, newer))
	require.NoError(t, s.CreateRetrainJob(ctx, older))
	require.NoError(t, s.CreateRetrainJob(ctx, done))

	queued, err := s.ListQueuedRetrainJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, queued, 2)
	assert.Equal(t, older.ID, queued[0].ID)
	assert.Equal(t, newer.ID, queued[1].ID)

	// Limit applies.
	queued, err = s.ListQueuedRetrainJobs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, older.ID, queued[0].ID)
}

func TestPromoteUserModel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := &User{Email: "e@example.com", Name: "E"}
	require.NoError(t, s.CreateUser(ctx, user))

	job := &RetrainJob{UserID: user.ID}
	require.NoError(t, s.CreateRetrainJob(ctx, job))

	at := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.PromoteUserModel(ctx, user.ID, job.ID, "user_1_v2", at))

	gotUser, err := s.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, gotUser.ActiveModelVersion)
	assert.Equal(t, "user_1_v2", *gotUser.ActiveModelVersion)
	require.NotNil(t, gotUser.LastRetrainAt)

	gotJob, err := s.GetRetrainJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusDone, gotJob.Status)
	require.NotNil(t, gotJob.NewModelVersion)
	assert.Equal(t, "user_1_v2", *gotJob.NewModelVersion)
	require.NotNil(t, gotJob.FinishedAt)
}
