package config

import "time"

type PostgresConfig struct {
	DSN             string        `env:"PG_DSN"`
	MaxOpenConns    int           `env:"PG_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `env:"PG_MAX_IDLE_CONNS" default:"10"`
	ConnMaxIdleTime time.Duration `env:"PG_CONN_MAX_IDLE_TIME" default:"5m"`
	ConnMaxLifetime time.Duration `env:"PG_CONN_MAX_LIFETIME" default:"30m"`
}

// EconomyConfig controls where economy settings and the tier catalog come from.
type EconomyConfig struct {
	// SettingsFile is layered over the embedded defaults. Empty means defaults only.
	SettingsFile string        `env:"ECONOMY_SETTINGS_FILE" default:""`
	SettingsTTL  time.Duration `env:"ECONOMY_SETTINGS_TTL" default:"1m"`
	TiersTTL     time.Duration `env:"ECONOMY_TIERS_TTL" default:"5m"`
}

// SchedulerConfig holds cron specs (with seconds) for background sweeps.
type SchedulerConfig struct {
	ExpireSpec      string `env:"SWEEP_EXPIRE_SPEC" default:"*/30 * * * * *"`
	AutoCollectSpec string `env:"SWEEP_AUTOCOLLECT_SPEC" default:"0 * * * * *"`
	RefreshSpec     string `env:"CATALOG_REFRESH_SPEC" default:"0 */1 * * * *"`
	BatchSize       int    `env:"SWEEP_BATCH_SIZE" default:"200"`
}

// RecorderConfig selects the audit trail backend. An empty path disables it.
type RecorderConfig struct {
	SQLitePath string `env:"RECORDER_SQLITE_PATH" default:""`
}
