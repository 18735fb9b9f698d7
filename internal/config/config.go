package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/doctagger/internal/domain"
	"github.com/kailas-cloud/doctagger/internal/domain/schedule"
	"github.com/kailas-cloud/doctagger/internal/domain/selection"
	"github.com/kailas-cloud/doctagger/internal/domain/tagging"
)

// Index backend drivers.
const (
	DriverRedis         = "redis"
	DriverElasticsearch = "elasticsearch"
	DriverBolt          = "bolt"
)

// DefaultBatchSize is the number of documents selected per batch.
const DefaultBatchSize = 100

// Config holds the doctagger configuration.
type Config struct {
	Index     IndexConfig     `yaml:"index"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Tagging   TaggingConfig   `yaml:"tagging"`
	Stopwords StopwordsConfig `yaml:"stopwords"`
	Logging   LoggingConfig   `yaml:"logging"`
	Status    StatusConfig    `yaml:"status"`
}

// IndexConfig selects and configures the index backend.
type IndexConfig struct {
	Driver           string   `yaml:"driver"` // redis, elasticsearch, bolt (default: redis)
	Name             string   `yaml:"name"`
	Addrs            []string `yaml:"addrs"` // redis
	URLs             []string `yaml:"urls"`  // elasticsearch
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DocType          string   `yaml:"doc_type"` // elasticsearch mapping type
	Path             string   `yaml:"path"`     // bolt file
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ScheduleConfig holds the working-hours window during which the tagger must not run.
type ScheduleConfig struct {
	WorkStart *int `yaml:"work_start"` // default 8
	WorkEnd   *int `yaml:"work_end"`   // default 18; equal to work_start disables the guard
}

// TaggingConfig holds batch and topic-model settings.
type TaggingConfig struct {
	BatchSize      int     `yaml:"batch_size"`
	RetagBefore    int64   `yaml:"retag_before"` // epoch seconds
	MaxFeatures    int     `yaml:"max_features"`
	MaxIter        int     `yaml:"max_iter"`
	LearningOffset float64 `yaml:"learning_offset"`
	TopWords       *int    `yaml:"top_words"`
	Seed           uint64  `yaml:"seed"`
}

// StopwordsConfig locates the custom stopword lists.
type StopwordsConfig struct {
	Paths []string `yaml:"paths"`
	// Chunks is the glob merged by "stopwords aggregate" into the first path.
	Chunks string `yaml:"chunks"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
	Dir   string `yaml:"dir"`   // optional directory for one log file per run
}

// StatusConfig holds the optional status server settings.
type StatusConfig struct {
	ListenAddr string   `yaml:"listen_addr"` // empty disables the server
	APIKeys    []string `yaml:"api_keys"`
}

// Load reads configuration from a YAML file by environment name (local, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w: %w", configPath, domain.ErrInvalidConfig, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w: %w", domain.ErrInvalidConfig, err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Index.Driver == "" {
		c.Index.Driver = DriverRedis
	}
	if c.Index.ReadinessTimeout <= 0 {
		c.Index.ReadinessTimeout = 10
	}
	if c.Schedule.WorkStart == nil {
		v := schedule.DefaultStart
		c.Schedule.WorkStart = &v
	}
	if c.Schedule.WorkEnd == nil {
		v := schedule.DefaultEnd
		c.Schedule.WorkEnd = &v
	}
	if c.Tagging.BatchSize <= 0 {
		c.Tagging.BatchSize = DefaultBatchSize
	}
	if c.Tagging.MaxFeatures <= 0 {
		c.Tagging.MaxFeatures = tagging.DefaultMaxFeatures
	}
	if c.Tagging.MaxIter <= 0 {
		c.Tagging.MaxIter = tagging.DefaultMaxIter
	}
	if c.Tagging.LearningOffset <= 0 {
		c.Tagging.LearningOffset = tagging.DefaultLearningOffset
	}
	if c.Tagging.TopWords == nil {
		v := tagging.DefaultTopWords
		c.Tagging.TopWords = &v
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if err := c.Index.validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}
	if _, err := c.Window(); err != nil {
		return fmt.Errorf("%w: schedule: %w", domain.ErrInvalidConfig, err)
	}
	if c.Tagging.BatchSize > selection.MaxBatchSize {
		return fmt.Errorf("%w: tagging.batch_size must be between 0 and %d, got %d",
			domain.ErrInvalidConfig, selection.MaxBatchSize, c.Tagging.BatchSize)
	}
	if c.Tagging.RetagBefore < 0 {
		return fmt.Errorf("%w: tagging.retag_before must not be negative", domain.ErrInvalidConfig)
	}
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("tagging: %w", err)
	}
	return nil
}

func (c *IndexConfig) validate() error {
	if c.Name == "" {
		return fmt.Errorf("index.name is required")
	}
	switch c.Driver {
	case DriverRedis:
		if len(c.Addrs) == 0 {
			return fmt.Errorf("index.addrs is required for driver %q", c.Driver)
		}
	case DriverElasticsearch:
		if len(c.URLs) == 0 {
			return fmt.Errorf("index.urls is required for driver %q", c.Driver)
		}
	case DriverBolt:
		if c.Path == "" {
			return fmt.Errorf("index.path is required for driver %q", c.Driver)
		}
	default:
		return fmt.Errorf("index.driver must be %q, %q or %q, got %q",
			DriverRedis, DriverElasticsearch, DriverBolt, c.Driver)
	}
	return nil
}

// Window returns the working-hours window.
func (c *Config) Window() (schedule.Window, error) {
	if c.Schedule.WorkStart == nil || c.Schedule.WorkEnd == nil {
		return schedule.DefaultWindow(), nil
	}
	w, err := schedule.NewWindow(*c.Schedule.WorkStart, *c.Schedule.WorkEnd)
	if err != nil {
		return schedule.Window{}, fmt.Errorf("window: %w", err)
	}
	return w, nil
}

// Params returns the topic extraction parameters.
func (c *Config) Params() tagging.Params {
	p := tagging.Params{
		MaxFeatures:    c.Tagging.MaxFeatures,
		MaxIter:        c.Tagging.MaxIter,
		LearningOffset: c.Tagging.LearningOffset,
		TopWords:       tagging.DefaultTopWords,
		Seed:           c.Tagging.Seed,
	}
	if c.Tagging.TopWords != nil {
		p.TopWords = *c.Tagging.TopWords
	}
	return p
}

// ReadinessTimeout returns how long to wait for the backend at startup.
func (c *Config) ReadinessTimeout() time.Duration {
	return time.Duration(c.Index.ReadinessTimeout) * time.Second
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
