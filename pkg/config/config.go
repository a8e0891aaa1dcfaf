package config

import (
	"fmt"
	"time"

	"github.com/nyx-chain/evmsync/internal/common"
)

// Config is the complete, immutable configuration for a running evmsync process.
// It is resolved once at startup and passed explicitly into each component's
// constructor rather than read from globals.
type Config struct {
	// RPCURL is the upstream JSON-RPC endpoint the Chain Client dials.
	RPCURL string `yaml:"rpc_url" json:"rpc_url" toml:"rpc_url"`

	// DatabaseURL is the SQLite file path backing the store.
	DatabaseURL string `yaml:"database_url" json:"database_url" toml:"database_url"`

	DB          DatabaseConfig    `yaml:"db" json:"db" toml:"db"`
	Retry       RetryConfig       `yaml:"retry" json:"retry" toml:"retry"`
	Sync        SyncConfig        `yaml:"sync" json:"sync" toml:"sync"`
	API         APIConfig         `yaml:"api" json:"api" toml:"api"`
	Metrics     MetricsConfig     `yaml:"metrics" json:"metrics" toml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging" toml:"logging"`
	Maintenance MaintenanceConfig `yaml:"maintenance" json:"maintenance" toml:"maintenance"`
}

// RetryConfig controls the Chain Client's bounded-retry policy (spec §4.1).
type RetryConfig struct {
	// MaxAttempts is the number of tries before the last error is surfaced.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts"`

	// InitialBackoff is the wait before the second attempt.
	InitialBackoff common.Duration `yaml:"initial_backoff" json:"initial_backoff" toml:"initial_backoff"`

	// MaxBackoff caps the exponential growth of the wait between attempts.
	MaxBackoff common.Duration `yaml:"max_backoff" json:"max_backoff" toml:"max_backoff"`

	// BackoffMultiplier is the exponential growth factor (2.0 doubles each attempt).
	BackoffMultiplier float64 `yaml:"backoff_multiplier" json:"backoff_multiplier" toml:"backoff_multiplier"`
}

// ApplyDefaults fills in the retry defaults from spec §4.1/§6.
func (r *RetryConfig) ApplyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 5
	}
	if r.InitialBackoff.Duration == 0 {
		r.InitialBackoff = common.NewDuration(2 * time.Second)
	}
	if r.MaxBackoff.Duration == 0 {
		r.MaxBackoff = common.NewDuration(10 * time.Second)
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2
	}
}

// SyncConfig controls the Sync Engine's pipeline parameters (spec §4.4/§4.5/§6).
type SyncConfig struct {
	// BufferSize is the Prefetch Buffer capacity.
	BufferSize int `yaml:"buffer_size" json:"buffer_size" toml:"buffer_size"`

	// PollInterval is how long the engine sleeps once caught up to the tip.
	PollInterval common.Duration `yaml:"poll_interval" json:"poll_interval" toml:"poll_interval"`

	// ErrorBackoff is the sleep applied by the error handler before resuming.
	ErrorBackoff common.Duration `yaml:"error_backoff" json:"error_backoff" toml:"error_backoff"`

	// TipMargin is how far behind head a fresh catch-up start begins (head - TipMargin).
	TipMargin uint64 `yaml:"tip_margin" json:"tip_margin" toml:"tip_margin"`

	// PrefetchWorkers is the number of background prefetch goroutines.
	PrefetchWorkers int `yaml:"prefetch_workers" json:"prefetch_workers" toml:"prefetch_workers"`

	// StartHeight is an explicit starting height, used only when the store is
	// empty. Meaningless unless BackfillFromGenesis is also set, since the
	// zero value is otherwise indistinguishable from "unset" (see spec §9).
	StartHeight uint64 `yaml:"start_height" json:"start_height" toml:"start_height"`

	// BackfillFromGenesis opts into StartHeight (typically 0) instead of the
	// head-TipMargin catch-up default.
	BackfillFromGenesis bool `yaml:"backfill_from_genesis" json:"backfill_from_genesis" toml:"backfill_from_genesis"`
}

// ApplyDefaults fills in the sync defaults from spec §6.
func (s *SyncConfig) ApplyDefaults() {
	if s.BufferSize == 0 {
		s.BufferSize = 10
	}
	if s.PollInterval.Duration == 0 {
		s.PollInterval = common.NewDuration(5 * time.Second)
	}
	if s.ErrorBackoff.Duration == 0 {
		s.ErrorBackoff = common.NewDuration(2 * time.Second)
	}
	if s.TipMargin == 0 {
		s.TipMargin = 5
	}
	if s.PrefetchWorkers == 0 {
		s.PrefetchWorkers = 5
	}
}

// DatabaseConfig represents database connection configuration.
type DatabaseConfig struct {
	// Path is the file path to the SQLite database.
	Path string `yaml:"path" json:"path" toml:"path"`

	// JournalMode sets the SQLite journal mode (e.g., "WAL", "DELETE").
	JournalMode string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`

	// Synchronous sets the synchronization level ("FULL", "NORMAL", "OFF").
	Synchronous string `yaml:"synchronous" json:"synchronous" toml:"synchronous"`

	// BusyTimeout is the time in milliseconds to wait when the database is locked.
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout"`

	// CacheSize is the size of the page cache (negative = KB, positive = pages).
	CacheSize int `yaml:"cache_size" json:"cache_size" toml:"cache_size"`

	// MaxOpenConnections is the maximum number of open database connections.
	MaxOpenConnections int `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`

	// MaxIdleConnections is the maximum number of idle connections in the pool.
	MaxIdleConnections int `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`

	// EnableForeignKeys enables foreign key constraint enforcement.
	EnableForeignKeys bool `yaml:"enable_foreign_keys" json:"enable_foreign_keys" toml:"enable_foreign_keys"`
}

// ApplyDefaults sets default values for optional database configuration fields.
func (d *DatabaseConfig) ApplyDefaults() {
	if d.JournalMode == "" {
		d.JournalMode = "WAL"
	}
	if d.Synchronous == "" {
		d.Synchronous = "NORMAL"
	}
	if d.BusyTimeout == 0 {
		d.BusyTimeout = 5000
	}
	if d.CacheSize == 0 {
		d.CacheSize = 10000
	}
	if d.MaxOpenConnections == 0 {
		d.MaxOpenConnections = 25
	}
	if d.MaxIdleConnections == 0 {
		d.MaxIdleConnections = 5
	}
}

// MaintenanceConfig controls the background database maintenance coordinator.
type MaintenanceConfig struct {
	Enabled           bool            `yaml:"enabled" json:"enabled" toml:"enabled"`
	CheckInterval     common.Duration `yaml:"check_interval" json:"check_interval" toml:"check_interval"`
	VacuumOnStartup   bool            `yaml:"vacuum_on_startup" json:"vacuum_on_startup" toml:"vacuum_on_startup"`
	WALCheckpointMode string          `yaml:"wal_checkpoint_mode" json:"wal_checkpoint_mode" toml:"wal_checkpoint_mode"`
}

// ApplyDefaults fills in maintenance defaults.
func (m *MaintenanceConfig) ApplyDefaults() {
	if m.CheckInterval.Duration == 0 {
		m.CheckInterval = common.NewDuration(time.Hour)
	}
	if m.WALCheckpointMode == "" {
		m.WALCheckpointMode = "TRUNCATE"
	}
}

// APIConfig controls the read-only query surface (spec §6/§12).
type APIConfig struct {
	Enabled       bool            `yaml:"enabled" json:"enabled" toml:"enabled"`
	ListenAddress string          `yaml:"listen_address" json:"listen_address" toml:"listen_address"`
	ReadTimeout   common.Duration `yaml:"read_timeout" json:"read_timeout" toml:"read_timeout"`
	WriteTimeout  common.Duration `yaml:"write_timeout" json:"write_timeout" toml:"write_timeout"`
	IdleTimeout   common.Duration `yaml:"idle_timeout" json:"idle_timeout" toml:"idle_timeout"`
	CORS          CORSConfig      `yaml:"cors" json:"cors" toml:"cors"`
}

// CORSConfig controls cross-origin access to the read-only API.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled" json:"enabled" toml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins" toml:"allowed_origins"`
}

// ApplyDefaults fills in API defaults.
func (a *APIConfig) ApplyDefaults() {
	if a.ListenAddress == "" {
		a.ListenAddress = ":8080"
	}
	if a.ReadTimeout.Duration == 0 {
		a.ReadTimeout = common.NewDuration(5 * time.Second)
	}
	if a.WriteTimeout.Duration == 0 {
		a.WriteTimeout = common.NewDuration(10 * time.Second)
	}
	if a.IdleTimeout.Duration == 0 {
		a.IdleTimeout = common.NewDuration(60 * time.Second)
	}
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled" toml:"enabled"`
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`
	Path          string `yaml:"path" json:"path" toml:"path"`
}

// ApplyDefaults fills in metrics defaults.
func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}

// LoggingConfig controls the zap logger construction.
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level" toml:"level"`
	Development bool   `yaml:"development" json:"development" toml:"development"`
}

// ApplyDefaults fills in logging defaults.
func (l *LoggingConfig) ApplyDefaults() {
	if l.Level == "" {
		l.Level = "info"
	}
}

// ApplyDefaults sets default values for every optional configuration field.
func (c *Config) ApplyDefaults() {
	c.DB.ApplyDefaults()
	c.Retry.ApplyDefaults()
	c.Sync.ApplyDefaults()
	c.API.ApplyDefaults()
	c.Metrics.ApplyDefaults()
	c.Logging.ApplyDefaults()
	c.Maintenance.ApplyDefaults()

	if c.DB.Path == "" {
		c.DB.Path = c.DatabaseURL
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc_url is required")
	}

	if c.DatabaseURL == "" && c.DB.Path == "" {
		return fmt.Errorf("database_url is required")
	}

	if c.DB.JournalMode != "" && c.DB.JournalMode != "WAL" &&
		c.DB.JournalMode != "DELETE" && c.DB.JournalMode != "TRUNCATE" &&
		c.DB.JournalMode != "PERSIST" && c.DB.JournalMode != "MEMORY" {
		return fmt.Errorf("db.journal_mode must be one of: WAL, DELETE, TRUNCATE, PERSIST, MEMORY")
	}

	if c.DB.Synchronous != "" && c.DB.Synchronous != "FULL" &&
		c.DB.Synchronous != "NORMAL" && c.DB.Synchronous != "OFF" {
		return fmt.Errorf("db.synchronous must be one of: FULL, NORMAL, OFF")
	}

	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be positive")
	}

	if c.Sync.BufferSize <= 0 {
		return fmt.Errorf("sync.buffer_size must be positive")
	}

	if c.Sync.PrefetchWorkers <= 0 {
		return fmt.Errorf("sync.prefetch_workers must be positive")
	}

	return nil
}
