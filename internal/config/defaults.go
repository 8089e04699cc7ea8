package config

const (
	defaultDataDir                = "~/.local/share/tunecrawl"
	defaultLogDir                 = "~/.local/share/tunecrawl/logs"
	defaultAPIBind                = "127.0.0.1:7488"
	defaultCatalogFileName        = "music-catalog.json"
	defaultSQLiteFileName         = "catalog.db"
	defaultBadgerDirName          = "badger"
	defaultRedisKey               = "tunecrawl:catalog"
	defaultStorageBackend         = BackendFile
	defaultServeIntervalSeconds   = 300
	defaultJobIntervalSeconds     = 600
	defaultDiscoveryConcurrency   = 4
	defaultWebDelayMillis         = 300
	defaultFreshDelayMillis       = 500
	defaultFallbackSource         = SourceCore
	defaultFeedTimeoutSeconds     = 10
	defaultFeedRequestsPerSecond  = 1.0
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
	defaultLogMaxSizeMB           = 50
	defaultLogMaxBackups          = 5
	defaultCrawlRequestsPerMinute = 6
	defaultLockFileName           = "tunecrawl.lock"
	defaultPIDFileName            = "tunecrawl.pid"
	defaultLogFileName            = "tunecrawl.log"
	defaultConfigRelativePath     = "~/.config/tunecrawl/config.toml"
	defaultProjectConfigFileName  = "tunecrawl.toml"
)

// Storage backend names accepted by storage.backend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Built-in discovery source names accepted by discovery.sources.
const (
	SourceCore    = "core"
	SourceWeb     = "web"
	SourceGenre   = "genre"
	SourceFresh   = "fresh"
	SourceFailing = "failing"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Storage: Storage{
			Backend:     defaultStorageBackend,
			RedisKey:    defaultRedisKey,
			SeedOnStart: true,
		},
		Scheduler: Scheduler{
			ServeInterval: defaultServeIntervalSeconds,
			JobInterval:   defaultJobIntervalSeconds,
		},
		Discovery: Discovery{
			Sources:      []string{SourceCore, SourceWeb, SourceGenre, SourceFresh},
			Fallback:     defaultFallbackSource,
			Concurrency:  defaultDiscoveryConcurrency,
			WebDelayMS:   defaultWebDelayMillis,
			FreshDelayMS: defaultFreshDelayMillis,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Aggregation:    true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
			MaxSizeMB:     defaultLogMaxSizeMB,
			MaxBackups:    defaultLogMaxBackups,
		},
		API: API{
			CORSOrigins:            []string{"*"},
			CrawlRequestsPerMinute: defaultCrawlRequestsPerMinute,
		},
	}
}
