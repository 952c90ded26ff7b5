// Package config loads process configuration from defaults, an optional .env file and
// the environment. Environment keys are the upper-cased dotted keys with dots replaced
// by underscores: rollup.max_months is ROLLUP_MAX_MONTHS.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"gaushala/internal/domain/rollup"
	"gaushala/internal/infrastructure/storage/postgres"
	"gaushala/pkg/logger"
)

// Config is the full process configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Rollup   RollupConfig   `mapstructure:"rollup"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
}

type AppConfig struct {
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	URL              string        `mapstructure:"url"`
	MaxConns         int32         `mapstructure:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// RedisConfig selects the distributed site lock. An empty Addr means in-process locking.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RollupConfig struct {
	Concurrency       int           `mapstructure:"concurrency"`
	MaxMonths         int           `mapstructure:"max_months"`
	SalesStepInterval time.Duration `mapstructure:"sales_step_interval"`
	SalesStepBurst    int           `mapstructure:"sales_step_burst"`
	LockTTL           time.Duration `mapstructure:"lock_ttl"`
	ExpenseRule       string        `mapstructure:"expense_rule"`
	Interval          time.Duration `mapstructure:"interval"`
	Timezone          string        `mapstructure:"timezone"`
	JournalCompressAt int           `mapstructure:"journal_compress_at"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration. envFile may be empty; a missing file is not an error.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if envFile != "" {
		if err := readEnvFile(v, envFile); err != nil {
			return nil, err
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.statement_timeout", 30*time.Second)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rollup.concurrency", 4)
	v.SetDefault("rollup.max_months", rollup.DefaultMaxMonths)
	v.SetDefault("rollup.sales_step_interval", 100*time.Millisecond)
	v.SetDefault("rollup.sales_step_burst", 1)
	v.SetDefault("rollup.lock_ttl", 2*time.Minute)
	v.SetDefault("rollup.expense_rule", rollup.DefaultExpenseRule)
	v.SetDefault("rollup.interval", time.Hour)
	v.SetDefault("rollup.timezone", "Asia/Kolkata")
	v.SetDefault("rollup.journal_compress_at", postgres.DefaultCompressThreshold)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("log.level", "info")
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("config: DATABASE_URL is required")
	}
	if c.Rollup.Concurrency <= 0 {
		return fmt.Errorf("config: rollup.concurrency must be positive, got %d", c.Rollup.Concurrency)
	}
	if c.Rollup.MaxMonths <= 0 {
		return fmt.Errorf("config: rollup.max_months must be positive, got %d", c.Rollup.MaxMonths)
	}
	if _, err := time.LoadLocation(c.Rollup.Timezone); err != nil {
		return fmt.Errorf("config: rollup.timezone: %w", err)
	}
	if _, err := rollup.NewExpenseRule(c.Rollup.ExpenseRule); err != nil {
		return fmt.Errorf("config: rollup.expense_rule: %w", err)
	}
	return nil
}

// IsDevelopment reports whether the process runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// Clock returns time.Now in the configured time zone.
func (c *Config) Clock() func() time.Time {
	loc, err := time.LoadLocation(c.Rollup.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return func() time.Time { return time.Now().In(loc) }
}

// RollupEngine returns the month walker settings.
func (c *Config) RollupEngine() rollup.Config {
	return rollup.Config{
		MaxMonths:         c.Rollup.MaxMonths,
		SalesStepInterval: c.Rollup.SalesStepInterval,
		SalesStepBurst:    c.Rollup.SalesStepBurst,
		Now:               c.Clock(),
	}
}

// Orchestrator returns the orchestrator settings.
func (c *Config) Orchestrator() rollup.OrchestratorConfig {
	return rollup.OrchestratorConfig{
		Concurrency: c.Rollup.Concurrency,
		LockTTL:     c.Rollup.LockTTL,
		Now:         c.Clock(),
	}
}

// Pool returns the database pool settings.
func (c *Config) Pool(applicationName string) postgres.PoolConfig {
	pc := postgres.DefaultPoolConfig(c.Database.URL)
	pc.ApplicationName = applicationName
	if c.Database.MaxConns > 0 {
		pc.MaxConns = c.Database.MaxConns
	}
	if c.Database.MinConns > 0 {
		pc.MinConns = c.Database.MinConns
	}
	return pc
}

// Logger returns the logger settings.
func (c *Config) Logger() logger.Config {
	return logger.Config{
		Level:       c.Log.Level,
		Development: c.IsDevelopment(),
	}
}

// readEnvFile lifts KEY=value lines of a .env file into defaults, so the real
// environment still wins.
func readEnvFile(v *viper.Viper, path string) error {
	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType("env")
	if err := file.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		envKey := strings.ReplaceAll(key, ".", "_")
		if file.IsSet(envKey) {
			v.SetDefault(key, file.Get(envKey))
		}
	}
	return nil
}
