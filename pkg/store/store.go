// Package store provides persistence for users, solves and retrain jobs.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rjajoo18/Rubiks-Cube-Project/pkg/config"
)

// Store provides persistence for the scoring pipeline's entities.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	// Users.
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uint) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)

	// Solves. List queries order by (created_at, id) ascending; this
	// tie-break is shared with dataset building and must not diverge.
	CreateSolve(ctx context.Context, solve *Solve) error
	CreateSolves(ctx context.Context, solves []*Solve) error
	GetSolveByID(ctx context.Context, id uint64) (*Solve, error)
	ListSolves(ctx context.Context, userID uint, event string) ([]Solve, error)
	ListSolvesBefore(ctx context.Context, solve *Solve) ([]Solve, error)
	UpdateSolveScore(ctx context.Context, solveID uint64, score float64, version string) error

	// Retrain jobs.
	CreateRetrainJob(ctx context.Context, job *RetrainJob) error
	GetRetrainJob(ctx context.Context, id uint) (*RetrainJob, error)
	ListQueuedRetrainJobs(ctx context.Context, limit int) ([]RetrainJob, error)
	UpdateRetrainJob(ctx context.Context, job *RetrainJob) error

	// PromoteUserModel atomically records a successful retrain: the user's
	// active model pointer, the retrain timestamp and the job's terminal
	// state commit together or not at all.
	PromoteUserModel(ctx context.Context, userID, jobID uint, version string, at time.Time) error
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a new Store backed by the configured database driver.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.DatabaseConfig,
) Store {
	return &store{
		log: log.WithField("component", "store"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	s.db = db

	if err := s.db.WithContext(ctx).AutoMigrate(
		&User{},
		&Solve{},
		&RetrainJob{},
	); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).Info("Database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// --- Users ---

func (s *store) CreateUser(ctx context.Context, user *User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	return nil
}

func (s *store) GetUserByID(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("getting user by id: %w", err)
	}

	return &user, nil
}

func (s *store) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := s.db.WithContext(ctx).
		Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	return users, nil
}

// --- Solves ---

func (s *store) CreateSolve(ctx context.Context, solve *Solve) error {
	if err := s.db.WithContext(ctx).Create(solve).Error; err != nil {
		return fmt.Errorf("creating solve: %w", err)
	}

	return nil
}

func (s *store) CreateSolves(ctx context.Context, solves []*Solve) error {
	if len(solves) == 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).
		CreateInBatches(solves, 500).Error; err != nil {
		return fmt.Errorf("creating solves: %w", err)
	}

	return nil
}

func (s *store) GetSolveByID(ctx context.Context, id uint64) (*Solve, error) {
	var solve Solve
	if err := s.db.WithContext(ctx).First(&solve, id).Error; err != nil {
		return nil, fmt.Errorf("getting solve by id: %w", err)
	}

	return &solve, nil
}

func (s *store) ListSolves(ctx context.Context, userID uint, event string) ([]Solve, error) {
	var solves []Solve
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND event = ?", userID, event).
		Order("created_at ASC, id ASC").
		Find(&solves).Error; err != nil {
		return nil, fmt.Errorf("listing solves: %w", err)
	}

	return solves, nil
}

// ListSolvesBefore returns the user's solves strictly earlier than the given
// one under the (created_at, id) ordering. This is the inference-side
// history query; it must use the same tie-break as dataset replay so
// training and inference see identical feature inputs.
func (s *store) ListSolvesBefore(ctx context.Context, solve *Solve) ([]Solve, error) {
	var solves []Solve
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND event = ?", solve.UserID, solve.Event).
		Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			solve.CreatedAt, solve.CreatedAt, solve.ID,
		).
		Order("created_at ASC, id ASC").
		Find(&solves).Error; err != nil {
		return nil, fmt.Errorf("listing solves before: %w", err)
	}

	return solves, nil
}

func (s *store) UpdateSolveScore(ctx context.Context, solveID uint64, score float64, version string) error {
	if err := s.db.WithContext(ctx).
		Model(&Solve{}).
		Where("id = ?", solveID).
		Updates(map[string]any{
			"ml_score":      score,
			"score_version": version,
		}).Error; err != nil {
		return fmt.Errorf("updating solve score: %w", err)
	}

	return nil
}

// --- Retrain jobs ---

func (s *store) CreateRetrainJob(ctx context.Context, job *RetrainJob) error {
	if job.Status == "" {
		job.Status = JobStatusQueued
	}

	if job.RequestedAt.IsZero() {
		job.RequestedAt = time.Now().UTC()
	}

	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("creating retrain job: %w", err)
	}

	return nil
}

func (s *store) GetRetrainJob(ctx context.Context, id uint) (*RetrainJob, error) {
	var job RetrainJob
	if err := s.db.WithContext(ctx).First(&job, id).Error; err != nil {
		return nil, fmt.Errorf("getting retrain job: %w", err)
	}

	return &job, nil
}

func (s *store) ListQueuedRetrainJobs(ctx context.Context, limit int) ([]RetrainJob, error) {
	var jobs []RetrainJob
	if err := s.db.WithContext(ctx).
		Where("status = ?", JobStatusQueued).
		Order("requested_at ASC, id ASC").
		Limit(limit).
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("listing queued retrain jobs: %w", err)
	}

	return jobs, nil
}

func (s *store) UpdateRetrainJob(ctx context.Context, job *RetrainJob) error {
	if err := s.db.WithContext(ctx).Save(job).Error; err != nil {
		return fmt.Errorf("updating retrain job: %w", err)
	}

	return nil
}

func (s *store) PromoteUserModel(ctx context.Context, userID, jobID uint, version string, at time.Time) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&User{}).
			Where("id = ?", userID).
			Updates(map[string]any{
				"active_model_version": version,
				"last_retrain_at":      at,
			}).Error; err != nil {
			return fmt.Errorf("updating user model pointer: %w", err)
		}

		if err := tx.Model(&RetrainJob{}).
			Where("id = ?", jobID).
			Updates(map[string]any{
				"status":            JobStatusDone,
				"finished_at":       at,
				"new_model_version": version,
			}).Error; err != nil {
			return fmt.Errorf("updating retrain job: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("promoting model %s for user %d: %w", version, userID, err)
	}

	return nil
}
