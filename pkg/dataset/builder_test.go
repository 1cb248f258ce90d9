package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/scoring"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/store"
)

type fakeSource struct {
	users  []store.User
	solves map[uint][]store.Solve
}

func (f *fakeSource) ListUsers(_ context.Context) ([]store.User, error) {
	return f.users, nil
}

func (f *fakeSource) ListSolves(_ context.Context, userID uint, _ string) ([]store.Solve, error) {
	return f.solves[userID], nil
}

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func intPtr(v int) *int { return &v }

func mkSolves(userID uint, times []int, penalties []scoring.Penalty) []store.Solve {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	solves := make([]store.Solve, len(times))

	for i := range times {
		var tm *int
		if times[i] >= 0 {
			tm = intPtr(times[i])
		}

		solves[i] = store.Solve{
			ID:        uint64(userID)*1000 + uint64(i) + 1,
			UserID:    userID,
			Scramble:  fmt.Sprintf("scramble-%d", i),
			TimeMs:    tm,
			Penalty:   penalties[i],
			Event:     "3x3",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
	}

	return solves
}

func okPenalties(n int) []scoring.Penalty {
	ps := make([]scoring.Penalty, n)
	for i := range ps {
		ps[i] = scoring.PenaltyOK
	}

	return ps
}

func TestBuildUserLeakFree(t *testing.T) {
	times := []int{12000, 11500, 13000, 11000, 12500, 11800}
	user := store.User{ID: 1, SkillSource: store.SkillSourceWCA, WCA333AvgMs: intPtr(12000)}

	src := &fakeSource{
		users:  []store.User{user},
		solves: map[uint][]store.Solve{1: mkSolves(1, times, okPenalties(len(times)))},
	}

	b := NewBuilder(testLogger(), src, "3x3")

	rows, err := b.BuildUser(context.Background(), &user)
	require.NoError(t, err)
	require.Len(t, rows, len(times))

	// First row sees no history at all: ao5 falls back to the baseline,
	// which here is the skill prior.
	assert.InDelta(t, 12000.0, rows[0].Features[scoring.FeatureBaseline50Ms], 1e-9)
	assert.InDelta(t, 12000.0, rows[0].Features[scoring.FeatureAo5Ms], 1e-9)

	// Each later row's ao5 is the mean of strictly earlier times only. If
	// the solve's own time leaked into its features these would differ.
	for i := 1; i < len(rows); i++ {
		lo := 0
		if i > 5 {
			lo = i - 5
		}

		sum := 0.0
		for _, v := range times[lo:i] {
			sum += float64(v)
		}

		want := sum / float64(i-lo)
		assert.InDelta(t, want, rows[i].Features[scoring.FeatureAo5Ms], 1e-9, "row %d", i)
	}
}

func TestBuildUserSkipsAdvanceIndex(t *testing.T) {
	// Second solve is a DNF, third has no recorded time. Neither emits a
	// row or enters the history, but both advance the solve index.
	times := []int{12000, 11000, -1, 11500}
	penalties := []scoring.Penalty{
		scoring.PenaltyOK, scoring.PenaltyDNF, scoring.PenaltyOK, scoring.PenaltyOK,
	}

	user := store.User{ID: 2, SkillSource: store.SkillSourceUnknown}
	src := &fakeSource{
		users:  []store.User{user},
		solves: map[uint][]store.Solve{2: mkSolves(2, times, penalties)},
	}

	b := NewBuilder(testLogger(), src, "3x3")

	rows, err := b.BuildUser(context.Background(), &user)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.InDelta(t, 1.0, rows[0].Features[scoring.FeatureSolveIndex], 1e-9)
	assert.InDelta(t, 4.0, rows[1].Features[scoring.FeatureSolveIndex], 1e-9)

	// The DNF never entered the history: the second emitted row's ao5 is
	// the first solve's time alone.
	assert.InDelta(t, 12000.0, rows[1].Features[scoring.FeatureAo5Ms], 1e-9)
}

func TestBuildUserPlus2Targets(t *testing.T) {
	times := []int{12000, 13000}
	penalties := []scoring.Penalty{scoring.PenaltyOK, scoring.PenaltyPlus2}

	user := store.User{ID: 3}
	src := &fakeSource{
		users:  []store.User{user},
		solves: map[uint][]store.Solve{3: mkSolves(3, times, penalties)},
	}

	b := NewBuilder(testLogger(), src, "3x3")

	rows, err := b.BuildUser(context.Background(), &user)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 0.0, rows[0].YPlus2)
	assert.Equal(t, 1.0, rows[1].YPlus2)
	assert.Equal(t, 0.0, rows[1].YDNF)

	// Penalty is baked into the regression target.
	assert.InDelta(t, 15000.0, rows[1].YTimeMs, 1e-9)
	assert.InDelta(t, 1.0, rows[1].Features[scoring.FeatureHasPlus2], 1e-9)
}

func TestBuildUserLegacyLabels(t *testing.T) {
	user := store.User{ID: 4, SkillSource: store.SkillSourceWCA, WCA333AvgMs: intPtr(10000)}
	times := []int{10000, 7000, 14000}

	src := &fakeSource{
		users:  []store.User{user},
		solves: map[uint][]store.Solve{4: mkSolves(4, times, okPenalties(len(times)))},
	}

	b := NewBuilder(testLogger(), src, "3x3")

	rows, err := b.BuildUserLegacy(context.Background(), &user)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Baselines: prior, prior (history still < 10), then prior again.
	// ratio 1.0 -> 50, ratio 0.7 -> 100, ratio 1.4 -> 0.
	assert.InDelta(t, 50.0, rows[0].YScore, 1e-9)
	assert.InDelta(t, 100.0, rows[1].YScore, 1e-9)
	assert.InDelta(t, 0.0, rows[2].YScore, 1e-9)
}

func TestBuildAllDeterministicOrder(t *testing.T) {
	users := []store.User{{ID: 1}, {ID: 2}, {ID: 3}}
	solves := map[uint][]store.Solve{}

	for _, u := range users {
		solves[u.ID] = mkSolves(u.ID, []int{12000, 11000}, okPenalties(2))
	}

	src := &fakeSource{users: users, solves: solves}
	b := NewBuilder(testLogger(), src, "3x3")

	rows, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 6)

	// Rows come out grouped by user in listing order regardless of which
	// goroutine finished first.
	wantUsers := []uint{1, 1, 2, 2, 3, 3}
	for i, row := range rows {
		assert.Equal(t, wantUsers[i], row.UserID, "row %d", i)
	}

	again, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rows, again)
}

func TestToTrainingData(t *testing.T) {
	user := store.User{ID: 5}
	src := &fakeSource{
		users:  []store.User{user},
		solves: map[uint][]store.Solve{5: mkSolves(5, []int{12000, 11000, 13000}, okPenalties(3))},
	}

	b := NewBuilder(testLogger(), src, "3x3")

	rows, err := b.BuildUser(context.Background(), &user)
	require.NoError(t, err)

	data, err := ToTrainingData(rows)
	require.NoError(t, err)
	assert.Equal(t, scoring.FeatureOrder, data.Features)
	require.Len(t, data.X, 3)
	assert.Len(t, data.X[0], len(scoring.FeatureOrder))
	assert.Equal(t, []float64{12000, 11000, 13000}, data.YTime)
}

func TestCSVRoundTrip(t *testing.T) {
	user := store.User{ID: 6, SkillSource: store.SkillSourceWCA, WCA333AvgMs: intPtr(11000)}
	src := &fakeSource{
		users:  []store.User{user},
		solves: map[uint][]store.Solve{6: mkSolves(6, []int{12000, 11000, 13000, 10500}, okPenalties(4))},
	}

	b := NewBuilder(testLogger(), src, "3x3")

	rows, err := b.BuildUser(context.Background(), &user)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), DatasetFileV2)
	require.NoError(t, WriteCSV(path, rows))

	got, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, got, len(rows))

	for i := range rows {
		assert.Equal(t, rows[i].UserID, got[i].UserID)
		assert.Equal(t, rows[i].SolveID, got[i].SolveID)
		assert.Equal(t, rows[i].YTimeMs, got[i].YTimeMs)

		for _, name := range scoring.FeatureOrder {
			assert.Equal(t, rows[i].Features[name], got[i].Features[name], "row %d feature %s", i, name)
		}
	}
}

func TestLegacyCSVRoundTrip(t *testing.T) {
	user := store.User{ID: 7, SkillSource: store.SkillSourceWCA, WCA333AvgMs: intPtr(11000)}
	src := &fakeSource{
		users:  []store.User{user},
		solves: map[uint][]store.Solve{7: mkSolves(7, []int{12000, 11000}, okPenalties(2))},
	}

	b := NewBuilder(testLogger(), src, "3x3")

	rows, err := b.BuildUserLegacy(context.Background(), &user)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), LegacyDatasetFile)
	require.NoError(t, WriteLegacyCSV(path, rows))

	got, err := ReadLegacyCSV(path)
	require.NoError(t, err)
	require.Len(t, got, len(rows))
	assert.Equal(t, rows[0].YScore, got[0].YScore)
}
