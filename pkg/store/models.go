package store

import (
	"time"

	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/scoring"
)

// Skill prior source constants.
const (
	SkillSourceWCA          = "wca"
	SkillSourceSelfReported = "self_reported"
	SkillSourceUnknown      = "unknown"
)

// User represents a solver whose attempts are scored.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`

	// Skill prior inputs: an externally sourced competition average or a
	// self-reported one, selected by SkillSource.
	WCAID                string     `json:"wca_id,omitempty"`
	WCA333AvgMs          *int       `json:"wca_333_avg_ms,omitempty"`
	WCA333SingleMs       *int       `json:"wca_333_single_ms,omitempty"`
	SelfReported333AvgMs *int       `json:"self_reported_333_avg_ms,omitempty"`
	SkillSource          string     `gorm:"default:unknown" json:"skill_source"`
	WCALastFetchedAt     *time.Time `json:"wca_last_fetched_at,omitempty"`

	// ActiveModelVersion points at the bundle serving this user's
	// predictions. Updated only by a successful retrain promotion, never
	// rolled back automatically on failure.
	ActiveModelVersion *string    `json:"active_model_version,omitempty"`
	LastRetrainAt      *time.Time `json:"last_retrain_at,omitempty"`
}

// SkillPriorMs returns the best available external estimate of the user's
// average solve time in milliseconds, or nil when none exists.
func (u *User) SkillPriorMs() *int {
	if u.SkillSource == SkillSourceWCA && u.WCA333AvgMs != nil {
		return u.WCA333AvgMs
	}

	if u.SkillSource == SkillSourceSelfReported && u.SelfReported333AvgMs != nil {
		return u.SelfReported333AvgMs
	}

	if u.WCA333AvgMs != nil {
		return u.WCA333AvgMs
	}

	return u.SelfReported333AvgMs
}

// Solve is one timed attempt. Immutable once scored except for the score
// fields.
type Solve struct {
	ID     uint64 `gorm:"primaryKey" json:"id"`
	UserID uint   `gorm:"not null;index:idx_solves_user_event_time" json:"user_id"`

	Scramble string          `gorm:"type:text;not null" json:"scramble"`
	TimeMs   *int            `json:"time_ms,omitempty"`
	Penalty  scoring.Penalty `gorm:"not null;default:OK" json:"penalty"`
	Notes    string          `gorm:"type:text" json:"notes,omitempty"`

	State         string `gorm:"type:text" json:"state,omitempty"`
	SolutionMoves string `gorm:"type:text" json:"solution_moves,omitempty"`
	NumMoves      *int   `json:"num_moves,omitempty"`

	MLScore      *float64 `json:"ml_score,omitempty"`
	ScoreVersion *string  `json:"score_version,omitempty"`

	Source    string    `gorm:"not null;default:timer" json:"source"`
	Event     string    `gorm:"not null;default:3x3;index:idx_solves_user_event_time" json:"event"`
	CreatedAt time.Time `gorm:"index:idx_solves_user_event_time" json:"created_at"`
}

// EffectiveTimeMs returns the solve's penalty-adjusted time, or false when
// undefined (DNF or missing raw time).
func (s *Solve) EffectiveTimeMs() (int, bool) {
	return scoring.EffectiveTimeMs(s.TimeMs, s.Penalty)
}

// Retrain job status values. Jobs are created queued by external callers and
// only the job runner moves them; done and failed are terminal.
const (
	JobStatusQueued  = "queued"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// RetrainJob is one queued request to retrain a user's personal model.
type RetrainJob struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;index" json:"user_id"`

	Status      string     `gorm:"not null;default:queued;index" json:"status"`
	RequestedAt time.Time  `gorm:"not null" json:"requested_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`

	NewModelVersion *string `json:"new_model_version,omitempty"`
	Error           *string `json:"error,omitempty"`
}
