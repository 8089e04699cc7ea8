package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeScheduler()
	c.normalizeDiscovery()
	c.normalizeNotifications()
	c.normalizeLogging()
	c.normalizeAPI()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeStorage() error {
	var err error
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStorageBackend
	}

	if strings.TrimSpace(c.Storage.CatalogFile) == "" {
		c.Storage.CatalogFile = filepath.Join(c.Paths.DataDir, defaultCatalogFileName)
	}
	if c.Storage.CatalogFile, err = expandPath(strings.TrimSpace(c.Storage.CatalogFile)); err != nil {
		return fmt.Errorf("storage.catalog_file: %w", err)
	}
	if strings.TrimSpace(c.Storage.SQLitePath) == "" {
		c.Storage.SQLitePath = filepath.Join(c.Paths.DataDir, defaultSQLiteFileName)
	}
	if c.Storage.SQLitePath, err = expandPath(strings.TrimSpace(c.Storage.SQLitePath)); err != nil {
		return fmt.Errorf("storage.sqlite_path: %w", err)
	}
	if strings.TrimSpace(c.Storage.BadgerDir) == "" {
		c.Storage.BadgerDir = filepath.Join(c.Paths.DataDir, defaultBadgerDirName)
	}
	if c.Storage.BadgerDir, err = expandPath(strings.TrimSpace(c.Storage.BadgerDir)); err != nil {
		return fmt.Errorf("storage.badger_dir: %w", err)
	}

	c.Storage.RedisURL = strings.TrimSpace(c.Storage.RedisURL)
	if c.Storage.RedisURL == "" {
		if value, ok := os.LookupEnv("TUNECRAWL_REDIS_URL"); ok {
			c.Storage.RedisURL = strings.TrimSpace(value)
		}
	}
	c.Storage.RedisKey = strings.TrimSpace(c.Storage.RedisKey)
	if c.Storage.RedisKey == "" {
		c.Storage.RedisKey = defaultRedisKey
	}
	return nil
}

func (c *Config) normalizeScheduler() {
	if c.Scheduler.ServeInterval == 0 {
		c.Scheduler.ServeInterval = defaultServeIntervalSeconds
	}
	if c.Scheduler.JobInterval == 0 {
		c.Scheduler.JobInterval = defaultJobIntervalSeconds
	}
}

func (c *Config) normalizeDiscovery() {
	sources := make([]string, 0, len(c.Discovery.Sources))
	seen := make(map[string]struct{}, len(c.Discovery.Sources))
	for _, name := range c.Discovery.Sources {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		sources = append(sources, normalized)
	}
	c.Discovery.Sources = sources

	c.Discovery.Fallback = strings.ToLower(strings.TrimSpace(c.Discovery.Fallback))
	if c.Discovery.Fallback == "" {
		c.Discovery.Fallback = defaultFallbackSource
	}
	if c.Discovery.Concurrency == 0 {
		c.Discovery.Concurrency = defaultDiscoveryConcurrency
	}

	for i := range c.Discovery.Feeds {
		feed := &c.Discovery.Feeds[i]
		feed.Name = strings.ToLower(strings.TrimSpace(feed.Name))
		feed.URL = strings.TrimSpace(feed.URL)
		if feed.TimeoutSeconds == 0 {
			feed.TimeoutSeconds = defaultFeedTimeoutSeconds
		}
		if feed.RequestsPerSecond == 0 {
			feed.RequestsPerSecond = defaultFeedRequestsPerSecond
		}
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("TUNECRAWL_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
}

func (c *Config) normalizeAPI() {
	origins := make([]string, 0, len(c.API.CORSOrigins))
	for _, origin := range c.API.CORSOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	c.API.CORSOrigins = origins
	if c.API.CrawlRequestsPerMinute < 0 {
		c.API.CrawlRequestsPerMinute = 0
	}
}
