// Package config loads and validates the YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultEvent is the default puzzle event solves are scored for.
	DefaultEvent = "3x3"

	// DefaultArtifactsDir is where trained model artifacts are written.
	DefaultArtifactsDir = "./ml/artifacts"

	// DefaultDatasetsDir is where dataset CSVs are written.
	DefaultDatasetsDir = "./ml/datasets"

	// DefaultRetrainBatchSize caps the queued jobs drained per runner pass.
	DefaultRetrainBatchSize = 5

	// DefaultRetrainMinRows is the minimum usable dataset rows required
	// before a per-user retrain is allowed to promote.
	DefaultRetrainMinRows = 200

	// DefaultRetrainMAECeilingMs is the validation MAE sanity ceiling.
	DefaultRetrainMAECeilingMs = 20000
)

// Config is the root configuration.
type Config struct {
	Global   GlobalConfig   `yaml:"global"`
	Database DatabaseConfig `yaml:"database"`
	ML       MLConfig       `yaml:"ml"`
}

// GlobalConfig contains application-wide settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty"`
	Postgres PostgresConfig `yaml:"postgres,omitempty"`
}

// SQLiteConfig contains SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode,omitempty"`
}

// MLConfig contains the scoring and training pipeline settings.
type MLConfig struct {
	// ArtifactsDir holds model bundles and schema files.
	ArtifactsDir string `yaml:"artifacts_dir"`

	// DatasetsDir holds training dataset CSVs.
	DatasetsDir string `yaml:"datasets_dir"`

	// Event restricts which solves enter the pipeline.
	Event string `yaml:"event"`

	Retrain RetrainConfig `yaml:"retrain,omitempty"`
	Upload  UploadConfig  `yaml:"upload,omitempty"`
}

// RetrainConfig contains the retrain job runner gates.
type RetrainConfig struct {
	BatchSize    int     `yaml:"batch_size,omitempty"`
	MinRows      int     `yaml:"min_rows,omitempty"`
	MAECeilingMs float64 `yaml:"mae_ceiling_ms,omitempty"`
}

// UploadConfig contains artifact upload settings.
type UploadConfig struct {
	S3 *S3UploadConfig `yaml:"s3,omitempty"`
}

// S3UploadConfig configures S3-compatible artifact storage.
type S3UploadConfig struct {
	Enabled         bool   `yaml:"enabled"`
	EndpointURL     string `yaml:"endpoint_url,omitempty"`
	Region          string `yaml:"region,omitempty"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
	StorageClass    string `yaml:"storage_class,omitempty"`
	ACL             string `yaml:"acl,omitempty"`
}

// Load reads and parses one or more configuration files. Later files
// override values set by earlier ones.
func Load(paths ...string) (*Config, error) {
	var cfg Config

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for unspecified configuration options.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}

	if c.Database.Driver == "sqlite" && c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = "./cubescore.db"
	}

	if c.ML.ArtifactsDir == "" {
		c.ML.ArtifactsDir = DefaultArtifactsDir
	}

	if c.ML.DatasetsDir == "" {
		c.ML.DatasetsDir = DefaultDatasetsDir
	}

	if c.ML.Event == "" {
		c.ML.Event = DefaultEvent
	}

	if c.ML.Retrain.BatchSize <= 0 {
		c.ML.Retrain.BatchSize = DefaultRetrainBatchSize
	}

	if c.ML.Retrain.MinRows <= 0 {
		c.ML.Retrain.MinRows = DefaultRetrainMinRows
	}

	if c.ML.Retrain.MAECeilingMs <= 0 {
		c.ML.Retrain.MAECeilingMs = DefaultRetrainMAECeilingMs
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("sqlite driver requires a database path")
		}
	case "postgres":
		if c.Database.Postgres.Host == "" {
			return fmt.Errorf("postgres driver requires a host")
		}

		if c.Database.Postgres.Database == "" {
			return fmt.Errorf("postgres driver requires a database name")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if dir := filepath.Dir(c.ML.ArtifactsDir); dir != "." && dir != ".." {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("artifacts directory parent %q does not exist", dir)
		}
	}

	if c.ML.Upload.S3 != nil && c.ML.Upload.S3.Enabled && c.ML.Upload.S3.Bucket == "" {
		return fmt.Errorf("s3 upload requires a bucket")
	}

	return nil
}
