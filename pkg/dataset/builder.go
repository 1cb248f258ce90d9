// Package dataset builds training datasets by replaying solve histories in
// chronological order without temporal leakage.
package dataset

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/model"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/scoring"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/store"
)

// buildConcurrency bounds how many users are replayed in parallel by the
// full-dataset builds. Replay within a single user is strictly sequential.
const buildConcurrency = 4

// SolveSource is the slice of the store the builder needs.
type SolveSource interface {
	ListUsers(ctx context.Context) ([]store.User, error)
	ListSolves(ctx context.Context, userID uint, event string) ([]store.Solve, error)
}

// Row is one two-head training example: the 11 features plus the regression
// and classification targets, keyed by (user, solve).
type Row struct {
	UserID   uint
	SolveID  uint64
	Features scoring.Features
	YTimeMs  float64
	YDNF     float64
	YPlus2   float64
}

// LegacyRow is one single-target training example with the curve-derived
// score label.
type LegacyRow struct {
	UserID   uint
	SolveID  uint64
	Features scoring.Features
	YScore   float64
}

// Builder replays solve histories into feature/label rows.
type Builder struct {
	log    logrus.FieldLogger
	source SolveSource
	event  string
}

// NewBuilder creates a dataset builder for the given event.
func NewBuilder(log logrus.FieldLogger, source SolveSource, event string) *Builder {
	return &Builder{
		log:    log.WithField("component", "dataset-builder"),
		source: source,
		event:  event,
	}
}

// BuildUser replays one user's solves in (created_at, id) order and emits
// one two-head row per solve with a defined effective time.
//
// The replay maintains a running history of effective times. The ordering
// invariant that keeps the dataset leak-free: a solve's features and labels
// are computed from the history as it stood *before* the solve, and the
// solve's own time is appended only afterwards. DNF and missing-time solves
// still advance the 1-based index (so solve_index reflects true position)
// but emit no row and never enter the history.
func (b *Builder) BuildUser(ctx context.Context, user *store.User) ([]Row, error) {
	solves, err := b.source.ListSolves(ctx, user.ID, b.event)
	if err != nil {
		return nil, fmt.Errorf("listing solves for user %d: %w", user.ID, err)
	}

	skillPrior := user.SkillPriorMs()

	var (
		rows    []Row
		history []int
	)

	solveIndex := 0

	for i := range solves {
		s := &solves[i]
		solveIndex++

		yDNF := 0.0
		if s.Penalty == scoring.PenaltyDNF {
			yDNF = 1.0
		}

		yPlus2 := 0.0
		hasPlus2 := 0

		if s.Penalty == scoring.PenaltyPlus2 {
			yPlus2 = 1.0
			hasPlus2 = 1
		}

		eff, ok := s.EffectiveTimeMs()
		if !ok {
			continue
		}

		feats := scoring.BuildFeatures(scoring.FeatureInput{
			EffectiveMs:  eff,
			History:      history,
			SkillPriorMs: skillPrior,
			HasPlus2:     hasPlus2,
			NumMoves:     s.NumMoves,
			SolveIndex:   solveIndex,
		})

		rows = append(rows, Row{
			UserID:   user.ID,
			SolveID:  s.ID,
			Features: feats,
			YTimeMs:  float64(eff),
			YDNF:     yDNF,
			YPlus2:   yPlus2,
		})

		// Append after use; moving this earlier leaks the solve into its
		// own rolling statistics.
		history = append(history, eff)
	}

	return rows, nil
}

// BuildUserLegacy is the single-target variant: same replay, but the label
// is the curve score against the pre-solve baseline. Kept separate from
// BuildUser because the target semantics differ; do not merge.
func (b *Builder) BuildUserLegacy(ctx context.Context, user *store.User) ([]LegacyRow, error) {
	solves, err := b.source.ListSolves(ctx, user.ID, b.event)
	if err != nil {
		return nil, fmt.Errorf("listing solves for user %d: %w", user.ID, err)
	}

	skillPrior := user.SkillPriorMs()

	var (
		rows    []LegacyRow
		history []int
	)

	solveIndex := 0

	for i := range solves {
		s := &solves[i]
		solveIndex++

		eff, ok := s.EffectiveTimeMs()
		if !ok {
			continue
		}

		hasPlus2 := 0
		if s.Penalty == scoring.PenaltyPlus2 {
			hasPlus2 = 1
		}

		baseline, ok := scoring.BaselineMs(history, skillPrior)
		if !ok {
			if skillPrior != nil {
				baseline = float64(*skillPrior)
			} else {
				baseline = float64(eff)
			}
		}

		feats := scoring.BuildFeatures(scoring.FeatureInput{
			EffectiveMs:  eff,
			History:      history,
			SkillPriorMs: skillPrior,
			HasPlus2:     hasPlus2,
			NumMoves:     s.NumMoves,
			SolveIndex:   solveIndex,
		})

		rows = append(rows, LegacyRow{
			UserID:   user.ID,
			SolveID:  s.ID,
			Features: feats,
			YScore:   scoring.LabelScore(eff, baseline),
		})

		history = append(history, eff)
	}

	return rows, nil
}

// BuildAll replays every user and concatenates their rows in user order.
// Users are processed in parallel; output order stays deterministic.
func (b *Builder) BuildAll(ctx context.Context) ([]Row, error) {
	users, err := b.source.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	perUser := make([][]Row, len(users))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(buildConcurrency)

	for i := range users {
		g.Go(func() error {
			rows, err := b.BuildUser(gctx, &users[i])
			if err != nil {
				return err
			}

			perUser[i] = rows

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var rows []Row
	for _, ur := range perUser {
		rows = append(rows, ur...)
	}

	b.log.WithFields(logrus.Fields{
		"users": len(users),
		"rows":  len(rows),
	}).Info("Built two-head dataset")

	return rows, nil
}

// BuildAllLegacy is BuildAll for the single-target pipeline.
func (b *Builder) BuildAllLegacy(ctx context.Context) ([]LegacyRow, error) {
	users, err := b.source.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	perUser := make([][]LegacyRow, len(users))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(buildConcurrency)

	for i := range users {
		g.Go(func() error {
			rows, err := b.BuildUserLegacy(gctx, &users[i])
			if err != nil {
				return err
			}

			perUser[i] = rows

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var rows []LegacyRow
	for _, ur := range perUser {
		rows = append(rows, ur...)
	}

	b.log.WithFields(logrus.Fields{
		"users": len(users),
		"rows":  len(rows),
	}).Info("Built legacy dataset")

	return rows, nil
}

// ToTrainingData converts rows into the matrix form the trainer consumes,
// with vectors assembled in the canonical feature order.
func ToTrainingData(rows []Row) (model.TrainingData, error) {
	data := model.TrainingData{
		Features: scoring.FeatureOrder,
		X:        make([][]float64, len(rows)),
		YTime:    make([]float64, len(rows)),
		YDNF:     make([]float64, len(rows)),
		YPlus2:   make([]float64, len(rows)),
	}

	for i, row := range rows {
		vec, err := row.Features.Vector(scoring.FeatureOrder)
		if err != nil {
			return model.TrainingData{}, fmt.Errorf("row %d (solve %d): %w", i, row.SolveID, err)
		}

		data.X[i] = vec
		data.YTime[i] = row.YTimeMs
		data.YDNF[i] = row.YDNF
		data.YPlus2[i] = row.YPlus2
	}

	return data, nil
}

// ToLegacyTrainingData converts legacy rows into feature matrix + score
// targets.
func ToLegacyTrainingData(rows []LegacyRow) ([][]float64, []float64, error) {
	x := make([][]float64, len(rows))
	y := make([]float64, len(rows))

	for i, row := range rows {
		vec, err := row.Features.Vector(scoring.FeatureOrder)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d (solve %d): %w", i, row.SolveID, err)
		}

		x[i] = vec
		y[i] = row.YScore
	}

	return x, y, nil
}
