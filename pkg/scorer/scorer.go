// Package scorer turns stored solves into model scores.
package scorer

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/model"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/registry"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/scoring"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/store"
)

// SolveStore is the slice of the store the scorer needs.
type SolveStore interface {
	ListSolvesBefore(ctx context.Context, solve *store.Solve) ([]store.Solve, error)
	UpdateSolveScore(ctx context.Context, solveID uint64, score float64, version string) error
}

// Service scores solves against trained model artifacts. Feature derivation
// goes through the same code path as dataset building, with the history
// query using the same ordering, so a solve scores identically online and in
// a replayed dataset.
type Service struct {
	log      logrus.FieldLogger
	store    SolveStore
	registry registry.Registry
}

// NewService creates a scoring service.
func NewService(log logrus.FieldLogger, st SolveStore, reg registry.Registry) *Service {
	return &Service{
		log:      log.WithField("component", "scorer"),
		store:    st,
		registry: reg,
	}
}

// featuresFor derives the solve's feature set from its strictly-earlier
// history.
func (s *Service) featuresFor(ctx context.Context, user *store.User, solve *store.Solve, effectiveMs int) (scoring.Features, error) {
	before, err := s.store.ListSolvesBefore(ctx, solve)
	if err != nil {
		return nil, fmt.Errorf("loading solve history: %w", err)
	}

	history := make([]int, 0, len(before))

	for i := range before {
		if eff, ok := before[i].EffectiveTimeMs(); ok {
			history = append(history, eff)
		}
	}

	hasPlus2 := 0
	if solve.Penalty == scoring.PenaltyPlus2 {
		hasPlus2 = 1
	}

	return scoring.BuildFeatures(scoring.FeatureInput{
		EffectiveMs:  effectiveMs,
		History:      history,
		SkillPriorMs: user.SkillPriorMs(),
		HasPlus2:     hasPlus2,
		NumMoves:     solve.NumMoves,
		SolveIndex:   len(before) + 1,
	}), nil
}

// record persists the score and mirrors it onto the in-memory solve.
func (s *Service) record(ctx context.Context, solve *store.Solve, score float64, version string) error {
	if err := s.store.UpdateSolveScore(ctx, solve.ID, score, version); err != nil {
		return fmt.Errorf("recording score: %w", err)
	}

	solve.MLScore = &score
	solve.ScoreVersion = &version

	return nil
}

// ScoreSolve scores a solve with the single-score model. A DNF scores 0
// without touching the model; otherwise the model predicts the score directly
// and the result is clamped to [0, 100]. The score and model version are
// persisted onto the solve.
func (s *Service) ScoreSolve(ctx context.Context, user *store.User, solve *store.Solve) (float64, string, error) {
	eff, ok := solve.EffectiveTimeMs()
	if !ok {
		if err := s.record(ctx, solve, 0, model.LegacyVersion); err != nil {
			return 0, "", err
		}

		return 0, model.LegacyVersion, nil
	}

	m, schema, err := s.registry.Legacy(ctx)
	if err != nil {
		return 0, "", fmt.Errorf("loading legacy model: %w", err)
	}

	feats, err := s.featuresFor(ctx, user, solve, eff)
	if err != nil {
		return 0, "", err
	}

	// Vectors follow the order the artifact was fitted with, not the
	// compile-time default.
	vec, err := feats.Vector(schema.Features)
	if err != nil {
		return 0, "", fmt.Errorf("assembling feature vector: %w", err)
	}

	score := scoring.ClampScore(m.Model.Predict(vec))

	if err := s.record(ctx, solve, score, m.Version); err != nil {
		return 0, "", err
	}

	s.log.WithFields(logrus.Fields{
		"solve":   solve.ID,
		"user":    user.ID,
		"score":   score,
		"version": m.Version,
	}).Debug("Scored solve")

	return score, m.Version, nil
}

// ScoreSolveV2 scores a solve with the two-head pipeline: the bundle's time
// regressor predicts the effective time, and the score is the curve applied
// to that prediction's ratio against the pre-solve baseline. The bundle is
// the user's active one when set, falling back to the global bundle when the
// user has no personal artifact.
func (s *Service) ScoreSolveV2(ctx context.Context, user *store.User, solve *store.Solve) (float64, string, error) {
	requested := model.UserVersion(user.ID)

	if user.ActiveModelVersion != nil {
		v, err := model.ParseVersion(*user.ActiveModelVersion)
		if err != nil {
			return 0, "", fmt.Errorf("user %d has invalid active model version: %w", user.ID, err)
		}

		requested = v
	}

	bundle, err := s.registry.Bundle(ctx, requested)
	if err != nil {
		return 0, "", fmt.Errorf("loading bundle %s: %w", requested, err)
	}

	// A DNF scores 0 under every model version; the served bundle still
	// names the version so the recorded provenance is truthful.
	eff, ok := solve.EffectiveTimeMs()
	if !ok {
		if err := s.record(ctx, solve, 0, bundle.Version); err != nil {
			return 0, "", err
		}

		return 0, bundle.Version, nil
	}

	feats, err := s.featuresFor(ctx, user, solve, eff)
	if err != nil {
		return 0, "", err
	}

	vec, err := feats.Vector(bundle.Features)
	if err != nil {
		return 0, "", fmt.Errorf("assembling feature vector: %w", err)
	}

	predMs := bundle.TimeModel.Predict(vec)
	baseline := feats[scoring.FeatureBaseline50Ms]
	score := scoring.ScoreFromRatio(predMs / baseline)

	if err := s.record(ctx, solve, score, bundle.Version); err != nil {
		return 0, "", err
	}

	s.log.WithFields(logrus.Fields{
		"solve":     solve.ID,
		"user":      user.ID,
		"score":     score,
		"predMs":    predMs,
		"baseline":  baseline,
		"version":   bundle.Version,
		"requested": requested.String(),
	}).Debug("Scored solve")

	return score, bundle.Version, nil
}
