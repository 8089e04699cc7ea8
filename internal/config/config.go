package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// Storage selects and configures the durable catalog backend.
type Storage struct {
	Backend     string `toml:"backend"`
	CatalogFile string `toml:"catalog_file"`
	SQLitePath  string `toml:"sqlite_path"`
	BadgerDir   string `toml:"badger_dir"`
	RedisURL    string `toml:"redis_url"`
	RedisKey    string `toml:"redis_key"`
	SeedOnStart bool   `toml:"seed_on_start"`
}

// Scheduler contains aggregation intervals in seconds.
type Scheduler struct {
	ServeInterval int `toml:"serve_interval"`
	JobInterval   int `toml:"job_interval"`
	// RunOnStart triggers an aggregation as soon as serve mode starts. Job
	// mode always runs immediately.
	RunOnStart bool `toml:"run_on_start"`
}

// Feed describes an HTTP JSON discovery feed.
type Feed struct {
	Name              string  `toml:"name"`
	URL               string  `toml:"url"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Discovery configures which sources an aggregation consults.
type Discovery struct {
	Sources      []string `toml:"sources"`
	Fallback     string   `toml:"fallback"`
	Concurrency  int      `toml:"concurrency"`
	WebDelayMS   int      `toml:"web_delay_ms"`
	FreshDelayMS int      `toml:"fresh_delay_ms"`
	Feeds        []Feed   `toml:"feeds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Aggregation    bool   `toml:"aggregation"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
	MaxSizeMB     int    `toml:"max_size_mb"`
	MaxBackups    int    `toml:"max_backups"`
}

// API contains HTTP surface settings.
type API struct {
	CORSOrigins            []string `toml:"cors_origins"`
	CrawlRequestsPerMinute int      `toml:"crawl_requests_per_minute"`
}

// Config encapsulates all configuration values for tunecrawl.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories and the API bind address
//   - Storage: durable catalog backend selection
//   - Scheduler: serve and job aggregation intervals
//   - Discovery: source list, fallback, concurrency, HTTP feeds
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, rotation and retention
//   - API: CORS and crawl rate limiting
type Config struct {
	Paths         Paths         `toml:"paths"`
	Storage       Storage       `toml:"storage"`
	Scheduler     Scheduler     `toml:"scheduler"`
	Discovery     Discovery     `toml:"discovery"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
	API           API           `toml:"api"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigRelativePath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigRelativePath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(defaultProjectConfigFileName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories. Backend specific
// locations are created by the storage layer when it opens them.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, defaultLockFileName)
}

// PIDPath returns the file serve mode records its process id in.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, defaultPIDFileName)
}

// LogFilePath returns the rotating log file location, or "" when file
// logging is disabled.
func (c *Config) LogFilePath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, defaultLogFileName)
}

// ServeInterval returns the serve-mode aggregation interval.
func (c *Config) ServeInterval() time.Duration {
	return time.Duration(c.Scheduler.ServeInterval) * time.Second
}

// JobInterval returns the job-mode aggregation interval.
func (c *Config) JobInterval() time.Duration {
	return time.Duration(c.Scheduler.JobInterval) * time.Second
}

// WebDelay returns the simulated latency of the web discovery source.
func (c *Config) WebDelay() time.Duration {
	return time.Duration(c.Discovery.WebDelayMS) * time.Millisecond
}

// FreshDelay returns the simulated latency of the fresh crawl source.
func (c *Config) FreshDelay() time.Duration {
	return time.Duration(c.Discovery.FreshDelayMS) * time.Millisecond
}

// APIBaseURL returns the HTTP base URL clients use to reach the daemon.
func (c *Config) APIBaseURL() string {
	return "http://" + c.Paths.APIBind
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
