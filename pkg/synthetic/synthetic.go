// Package synthetic generates realistic solve data for seeding development
// databases and exercising the training pipeline.
package synthetic

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/scoring"
	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/store"
)

// Distribution knobs. Times are anchored on the user's averages with a weak
// move-count correlation, occasional hot and cold outliers, and a recency
// bias in the timestamps.
const (
	// scrambleLength is the number of moves per generated scramble.
	scrambleLength = 20

	// DefaultCount is how many solves a run generates by default.
	DefaultCount = 2500

	// DefaultDays is the span the timestamps are spread over.
	DefaultDays = 30

	// defaultAvgMs / defaultSingleMs anchor the time distribution when the
	// user carries no prior of their own.
	defaultAvgMs    = 30830
	defaultSingleMs = 28020

	// baseStdS is the typical solve-to-solve variability in seconds.
	baseStdS = 3.2

	// pDNF and pPlus2 are the penalty rates; the remainder is clean.
	pDNF   = 0.015
	pPlus2 = 0.07

	// recencyExponent skews timestamps toward the present.
	recencyExponent = 0.6

	// minTimeS / maxTimeS bound generated times.
	minTimeS = 8.0
	maxTimeS = 120.0
)

var (
	scrambleFaces = []string{"R", "L", "U", "D", "F", "B"}
	scrambleMods  = []string{"", "'", "2"}
)

// Options configures a generation run.
type Options struct {
	// Count is the number of solves to generate.
	Count int

	// Days is how far back the oldest timestamps reach.
	Days int

	// Seed makes the run reproducible; zero seeds from the clock.
	Seed int64

	// Event tags the generated solves.
	Event string
}

// Generator produces synthetic solves for a user.
type Generator struct {
	log logrus.FieldLogger
	rng *rand.Rand
}

// NewGenerator creates a generator. A non-zero seed yields a reproducible
// sequence.
func NewGenerator(log logrus.FieldLogger, seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Generator{
		log: log.WithField("component", "synthetic"),
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Scramble returns a plausible scramble string: random faces with modifiers,
// never the same face twice in a row.
func (g *Generator) Scramble(length int) string {
	var sb strings.Builder

	lastFace := ""

	for i := 0; i < length; i++ {
		face := scrambleFaces[g.rng.Intn(len(scrambleFaces))]
		for face == lastFace {
			face = scrambleFaces[g.rng.Intn(len(scrambleFaces))]
		}

		lastFace = face

		if i > 0 {
			sb.WriteByte(' ')
		}

		sb.WriteString(face)
		sb.WriteString(scrambleMods[g.rng.Intn(len(scrambleMods))])
	}

	return sb.String()
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// Solves generates opts.Count solves for the user. Times are gaussian around
// the user's average anchor with a weak positive correlation to move count;
// roughly 6% of solves pull toward the personal single and 3% are bad-day
// outliers. Timestamps spread across opts.Days with more recent density.
func (g *Generator) Solves(user *store.User, opts Options) []*store.Solve {
	if opts.Count <= 0 {
		opts.Count = DefaultCount
	}

	if opts.Days <= 0 {
		opts.Days = DefaultDays
	}

	if opts.Event == "" {
		opts.Event = "3x3"
	}

	avgS := float64(defaultAvgMs) / 1000
	if prior := user.SkillPriorMs(); prior != nil {
		avgS = float64(*prior) / 1000
	}

	singleS := float64(defaultSingleMs) / 1000
	if user.WCA333SingleMs != nil {
		singleS = float64(*user.WCA333SingleMs) / 1000
	}

	now := time.Now().UTC()
	span := time.Duration(opts.Days) * 24 * time.Hour
	start := now.Add(-span)

	solves := make([]*store.Solve, opts.Count)

	for i := 0; i < opts.Count; i++ {
		t := math.Pow(g.rng.Float64(), recencyExponent)
		createdAt := start.Add(time.Duration(t * float64(span)))

		penalty := scoring.PenaltyOK

		switch r := g.rng.Float64(); {
		case r < pDNF:
			penalty = scoring.PenaltyDNF
		case r < pDNF+pPlus2:
			penalty = scoring.PenaltyPlus2
		}

		numMoves := int(clamp(math.Round(g.rng.NormFloat64()*6+60), 40, 90))

		base := g.rng.NormFloat64()*baseStdS + avgS
		base += 0.05 * float64(numMoves-60)

		switch u := g.rng.Float64(); {
		case u < 0.06:
			base = g.rng.NormFloat64()*1.0 + singleS + 0.6
		case u > 0.97:
			base = g.rng.NormFloat64()*4.0 + avgS + 10.0
		}

		base = clamp(base, minTimeS, maxTimeS)
		timeMs := int(math.Round(base * 1000))
		moves := numMoves

		solves[i] = &store.Solve{
			UserID:    user.ID,
			Scramble:  g.Scramble(scrambleLength),
			TimeMs:    &timeMs,
			Penalty:   penalty,
			NumMoves:  &moves,
			Source:    "timer",
			Event:     opts.Event,
			CreatedAt: createdAt,
		}
	}

	return solves
}

// Seed generates and bulk-inserts solves for the user.
func (g *Generator) Seed(ctx context.Context, st store.Store, user *store.User, opts Options) (int, error) {
	solves := g.Solves(user, opts)

	if err := st.CreateSolves(ctx, solves); err != nil {
		return 0, fmt.Errorf("inserting synthetic solves: %w", err)
	}

	g.log.WithFields(logrus.Fields{
		"user":  user.ID,
		"count": len(solves),
	}).Info("Inserted synthetic solves")

	return len(solves), nil
}
