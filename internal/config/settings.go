package config

import "time"

// Settings is the root of the settings.json document. Version is bumped by
// Migrate whenever a structural change requires one.
type Settings struct {
	Version    int              `koanf:"version"`
	Server     ServerSettings   `koanf:"server"`
	Database   DatabaseSettings `koanf:"database"`
	Broker     BrokerSettings   `koanf:"broker"`
	Realtime   RealtimeSettings `koanf:"realtime"`
	Scheduler  SchedulerSettings `koanf:"scheduler"`
	Assistant  AssistantSettings `koanf:"assistant"`
	Logging    LoggingSettings  `koanf:"logging"`
	Diagnostics DiagnosticsSettings `koanf:"diagnostics"`
}

// ServerSettings configures the HTTP surface (§4.10).
type ServerSettings struct {
	Host             string   `koanf:"host"`
	Port             int      `koanf:"port"`
	APIKey           string   `koanf:"api_key"`
	LANOnly          bool     `koanf:"lan_only"`
	CORSOrigins      []string `koanf:"cors_origins"`
	DefaultPageSize  int      `koanf:"default_page_size"`
	MaxPageSize      int      `koanf:"max_page_size"`
}

// DatabaseSettings configures the catalog and shard databases (§4.2).
type DatabaseSettings struct {
	CatalogPath      string        `koanf:"catalog_path"`
	BusyTimeout      time.Duration `koanf:"busy_timeout"`
	ShardPoolSize    int           `koanf:"shard_pool_size"`
}

// BrokerSettings configures the event broker (§4.5).
type BrokerSettings struct {
	SubscriberCapacity int `koanf:"subscriber_capacity"`
	BatchLimit         int `koanf:"batch_limit"`
	CoalesceThreshold  int `koanf:"coalesce_threshold"`
	PollInterval       time.Duration `koanf:"poll_interval"`
}

// RealtimeSettings configures the realtime connection/QoS monitor (§4.6).
type RealtimeSettings struct {
	FlushInterval    time.Duration `koanf:"flush_interval"`
	MetricsDBPath    string        `koanf:"metrics_db_path"`
	StaleAfter       time.Duration `koanf:"stale_after"`
	LagWindowSeconds int           `koanf:"lag_window_seconds"`
}

// SchedulerSettings configures the job orchestrator (§4.7).
type SchedulerSettings struct {
	Concurrency      map[string]int `koanf:"concurrency"`
	LeaseTTL         time.Duration  `koanf:"lease_ttl"`
	HeartbeatEvery   time.Duration  `koanf:"heartbeat_interval"`
	BackoffBase      time.Duration  `koanf:"backoff_base"`
	BackoffMax       time.Duration  `koanf:"backoff_max"`
	DefaultMaxAttempts int          `koanf:"default_max_attempts"`
	OrchestratorPath string         `koanf:"orchestrator_path"`
	GPUSafetyMarginMB int           `koanf:"gpu_safety_margin_mb"`
	GPUHardRequirement bool         `koanf:"gpu_hard_requirement"`
}

// AssistantSettings configures the assistant gateway (§4.9).
type AssistantSettings struct {
	Enabled         bool          `koanf:"enabled"`
	OllamaHost      string        `koanf:"ollama_host"`
	Model           string        `koanf:"model"`
	ToolBudget      int           `koanf:"tool_budget"`
	RequireGPU      bool          `koanf:"require_gpu"`
	TMDBAPIKey      string        `koanf:"tmdb_api_key"`
	OpenSubtitlesKey string       `koanf:"opensubtitles_api_key"`
	SessionIdleTimeout time.Duration `koanf:"session_idle_timeout"`
}

// LoggingSettings configures the ambient logger.
type LoggingSettings struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DiagnosticsSettings configures preflight/smoke behavior (§4.11).
type DiagnosticsSettings struct {
	ProbeTimeout time.Duration `koanf:"probe_timeout"`
}

// CurrentVersion is the settings schema version this binary writes.
const CurrentVersion = 1

// Default returns the built-in default settings tree.
func Default() *Settings {
	return &Settings{
		Version: CurrentVersion,
		Server: ServerSettings{
			Host:            "127.0.0.1",
			Port:            8743,
			LANOnly:         true,
			CORSOrigins:     []string{},
			DefaultPageSize: 50,
			MaxPageSize:     500,
		},
		Database: DatabaseSettings{
			CatalogPath:   "data/catalog.db",
			BusyTimeout:   5 * time.Second,
			ShardPoolSize: 8,
		},
		Broker: BrokerSettings{
			SubscriberCapacity: 512,
			BatchLimit:         200,
			CoalesceThreshold:  50,
			PollInterval:       500 * time.Millisecond,
		},
		Realtime: RealtimeSettings{
			FlushInterval:    10 * time.Second,
			MetricsDBPath:    "data/web_metrics.db",
			StaleAfter:       60 * time.Second,
			LagWindowSeconds: 120,
		},
		Scheduler: SchedulerSettings{
			Concurrency: map[string]int{
				"heavy_ai_gpu": 1,
				"light_cpu":    2,
				"io_light":     2,
			},
			LeaseTTL:           120 * time.Second,
			HeartbeatEvery:     5 * time.Second,
			BackoffBase:        5 * time.Second,
			BackoffMax:         5 * time.Minute,
			DefaultMaxAttempts: 3,
			OrchestratorPath:   "data/orchestrator.db",
			GPUSafetyMarginMB:  512,
			GPUHardRequirement: false,
		},
		Assistant: AssistantSettings{
			Enabled:            false,
			OllamaHost:         "http://127.0.0.1:11434",
			Model:              "llama3.1",
			ToolBudget:         20,
			RequireGPU:         true,
			SessionIdleTimeout: 30 * time.Minute,
		},
		Logging: LoggingSettings{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Diagnostics: DiagnosticsSettings{
			ProbeTimeout: 30 * time.Second,
		},
	}
}
