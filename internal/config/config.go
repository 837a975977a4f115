package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// DefaultPath is read when no --config flag is given. It may be absent.
const DefaultPath = "storymap.toml"

type Config struct {
	Sync    SyncConfig    `toml:"sync"`
	Merge   MergeConfig   `toml:"merge"`
	Events  EventsConfig  `toml:"events"`
	Archive ArchiveConfig `toml:"archive"`
	Publish PublishConfig `toml:"publish"`
	Log     LogConfig     `toml:"log"`
}

// SyncConfig holds the diagram reading tolerances, in pixels.
type SyncConfig struct {
	UserTolerance      float64 `toml:"user_tolerance"`
	SequenceTolerance  float64 `toml:"sequence_tolerance"`
	IncrementTolerance float64 `toml:"increment_tolerance"`
}

type MergeConfig struct {
	FuzzyThreshold float64 `toml:"fuzzy_threshold"` // STORYMAP_FUZZY_THRESHOLD
	DeletionRatio  float64 `toml:"deletion_ratio"`  // STORYMAP_DELETION_RATIO
}

type EventsConfig struct {
	NATSURL string `toml:"nats_url"` // STORYMAP_NATS_URL (empty = no events)
}

type ArchiveConfig struct {
	Driver string `toml:"driver"` // STORYMAP_ARCHIVE_DRIVER: postgres, sqlite or empty
	DSN    string `toml:"dsn"`    // STORYMAP_ARCHIVE_DSN
}

type PublishConfig struct {
	S3Bucket    string `toml:"s3_bucket"`     // STORYMAP_S3_BUCKET (enables S3 when set)
	S3KeyPrefix string `toml:"s3_key_prefix"` // STORYMAP_S3_KEY_PREFIX (default "storymap")
	S3Region    string `toml:"s3_region"`     // STORYMAP_S3_REGION (default "us-east-1")
	S3Endpoint  string `toml:"s3_endpoint"`   // STORYMAP_S3_ENDPOINT (custom endpoint for MinIO)
	GitRepo     string `toml:"git_repo"`      // STORYMAP_GIT_REPO (enables git when set; path to clone)
	GitDir      string `toml:"git_dir"`       // STORYMAP_GIT_DIR (default "storymaps")
	GitBranch   string `toml:"git_branch"`    // STORYMAP_GIT_BRANCH (default "main")
}

type LogConfig struct {
	Level string `toml:"level"` // STORYMAP_LOG_LEVEL (default "info")
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Sync: SyncConfig{
			UserTolerance:      25,
			SequenceTolerance:  30,
			IncrementTolerance: 100,
		},
		Merge: MergeConfig{
			FuzzyThreshold: 0.7,
			DeletionRatio:  0.5,
		},
		Publish: PublishConfig{
			S3KeyPrefix: "storymap",
			S3Region:    "us-east-1",
			GitDir:      "storymaps",
			GitBranch:   "main",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults and then applies STORYMAP_* environment
// overrides. An empty path means DefaultPath, which need not exist.
func Load(path string) (*Config, error) {
	c := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	if _, err := toml.DecodeFile(path, c); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	c.Events.NATSURL = envOrDefault("STORYMAP_NATS_URL", c.Events.NATSURL)
	c.Archive.Driver = envOrDefault("STORYMAP_ARCHIVE_DRIVER", c.Archive.Driver)
	c.Archive.DSN = envOrDefault("STORYMAP_ARCHIVE_DSN", c.Archive.DSN)
	c.Publish.S3Bucket = envOrDefault("STORYMAP_S3_BUCKET", c.Publish.S3Bucket)
	c.Publish.S3KeyPrefix = envOrDefault("STORYMAP_S3_KEY_PREFIX", c.Publish.S3KeyPrefix)
	c.Publish.S3Region = envOrDefault("STORYMAP_S3_REGION", c.Publish.S3Region)
	c.Publish.S3Endpoint = envOrDefault("STORYMAP_S3_ENDPOINT", c.Publish.S3Endpoint)
	c.Publish.GitRepo = envOrDefault("STORYMAP_GIT_REPO", c.Publish.GitRepo)
	c.Publish.GitDir = envOrDefault("STORYMAP_GIT_DIR", c.Publish.GitDir)
	c.Publish.GitBranch = envOrDefault("STORYMAP_GIT_BRANCH", c.Publish.GitBranch)
	c.Log.Level = envOrDefault("STORYMAP_LOG_LEVEL", c.Log.Level)

	var err error
	if c.Merge.FuzzyThreshold, err = envFloat("STORYMAP_FUZZY_THRESHOLD", c.Merge.FuzzyThreshold); err != nil {
		return nil, err
	}
	if c.Merge.DeletionRatio, err = envFloat("STORYMAP_DELETION_RATIO", c.Merge.DeletionRatio); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Sync.UserTolerance <= 0 || c.Sync.SequenceTolerance <= 0 || c.Sync.IncrementTolerance <= 0 {
		return fmt.Errorf("sync tolerances must be positive")
	}
	if c.Merge.FuzzyThreshold <= 0 || c.Merge.FuzzyThreshold > 1 {
		return fmt.Errorf("merge.fuzzy_threshold %v out of range (0, 1]", c.Merge.FuzzyThreshold)
	}
	if c.Merge.DeletionRatio <= 0 || c.Merge.DeletionRatio >= 1 {
		return fmt.Errorf("merge.deletion_ratio %v out of range (0, 1)", c.Merge.DeletionRatio)
	}
	switch c.Archive.Driver {
	case "", "postgres", "sqlite":
	default:
		return fmt.Errorf("archive.driver %q: want postgres, sqlite or empty", c.Archive.Driver)
	}
	if c.Archive.Driver != "" && c.Archive.DSN == "" {
		return fmt.Errorf("archive.dsn is required with driver %s", c.Archive.Driver)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses the configured level name.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// Encode writes c as TOML.
func Encode(w io.Writer, c *Config) error {
	return toml.NewEncoder(w).Encode(c)
}

// WriteDefault writes the default configuration to path. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := Encode(f, Default()); err != nil {
		f.Close()
		return fmt.Errorf("write config: %w", err)
	}
	return f.Close()
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}
