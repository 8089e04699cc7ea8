package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateDiscovery(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendBadger, BackendMemory:
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			return errors.New("storage.redis_url must be set when storage.backend is redis (or set TUNECRAWL_REDIS_URL)")
		}
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (expected file, sqlite, badger, redis or memory)", c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateScheduler() error {
	return ensurePositiveMap(map[string]int{
		"scheduler.serve_interval": c.Scheduler.ServeInterval,
		"scheduler.job_interval":   c.Scheduler.JobInterval,
	})
}

func (c *Config) validateDiscovery() error {
	if c.Discovery.Concurrency <= 0 {
		return errors.New("discovery.concurrency must be positive")
	}
	if c.Discovery.WebDelayMS < 0 {
		return errors.New("discovery.web_delay_ms must be >= 0")
	}
	if c.Discovery.FreshDelayMS < 0 {
		return errors.New("discovery.fresh_delay_ms must be >= 0")
	}

	feeds := make(map[string]struct{}, len(c.Discovery.Feeds))
	for i, feed := range c.Discovery.Feeds {
		if feed.Name == "" {
			return fmt.Errorf("discovery.feeds[%d].name must be set", i)
		}
		if isBuiltinSource(feed.Name) {
			return fmt.Errorf("discovery.feeds[%d].name %q collides with a built-in source", i, feed.Name)
		}
		if _, dup := feeds[feed.Name]; dup {
			return fmt.Errorf("discovery.feeds[%d].name %q is duplicated", i, feed.Name)
		}
		feeds[feed.Name] = struct{}{}
		parsed, err := url.Parse(feed.URL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("discovery.feeds[%d].url must be an http(s) URL", i)
		}
		if feed.TimeoutSeconds <= 0 {
			return fmt.Errorf("discovery.feeds[%d].timeout_seconds must be positive", i)
		}
		if feed.RequestsPerSecond <= 0 {
			return fmt.Errorf("discovery.feeds[%d].requests_per_second must be positive", i)
		}
	}

	for _, name := range c.Discovery.Sources {
		if isBuiltinSource(name) {
			continue
		}
		if _, ok := feeds[name]; ok {
			continue
		}
		return fmt.Errorf("discovery.sources: unknown source %q (built-ins: %s)", name, strings.Join(builtinSources(), ", "))
	}

	switch c.Discovery.Fallback {
	case SourceCore, SourceWeb, SourceGenre, SourceFresh:
	default:
		return fmt.Errorf("discovery.fallback: unsupported value %q (expected core, web, genre or fresh)", c.Discovery.Fallback)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func builtinSources() []string {
	return []string{SourceCore, SourceWeb, SourceGenre, SourceFresh, SourceFailing}
}

func isBuiltinSource(name string) bool {
	for _, builtin := range builtinSources() {
		if name == builtin {
			return true
		}
	}
	return false
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
