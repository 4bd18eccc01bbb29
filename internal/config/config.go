// Package config provides Viper-based configuration loading for the arena.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// Enabled turns on the PostgreSQL definition source and result persistence.
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection URL. Credentials are escaped.
//
// Precondition: Host, Port, User, and Name must be non-empty.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Content sources.
const (
	SourceFiles    = "files"
	SourcePostgres = "postgres"
)

// ContentConfig locates class and weapon definitions.
type ContentConfig struct {
	// Dir holds classes/ and weapons/ subdirectories of YAML or TOML files.
	Dir string `mapstructure:"dir"`
	// Source is "files" or "postgres".
	Source string `mapstructure:"source"`
}

// MatchConfig holds simulation parameters for a single match.
type MatchConfig struct {
	// TickRate is the number of simulation steps per simulated second.
	TickRate int `mapstructure:"tick_rate"`
	// ArenaWidth and ArenaHeight bound the play field.
	ArenaWidth  float64 `mapstructure:"arena_width"`
	ArenaHeight float64 `mapstructure:"arena_height"`
	// BaseOrbitRate is the weapon angular speed in radians/second at attack speed 1.
	BaseOrbitRate float64 `mapstructure:"base_orbit_rate"`
	// MoveSpeedScale multiplies effective move speed into world units/second.
	MoveSpeedScale float64 `mapstructure:"move_speed_scale"`
	// EntityScale multiplies body radius and weapon hitbox size.
	EntityScale float64 `mapstructure:"entity_scale"`
	// WeaponReach is the distance from the body centre to the weapon hitbox centre.
	WeaponReach float64 `mapstructure:"weapon_reach"`
	// MaxDuration ends the match as a draw. Zero disables the limit.
	MaxDuration time.Duration `mapstructure:"max_duration"`
	// SnapshotEvery logs a debug snapshot every N ticks. Zero disables snapshots.
	SnapshotEvery int `mapstructure:"snapshot_every"`
	// Realtime paces ticks on a wall-clock ticker instead of running flat out.
	Realtime bool `mapstructure:"realtime"`
	// Seed selects a deterministic random source. Zero uses crypto/rand.
	Seed uint64 `mapstructure:"seed"`
}

// TickInterval returns the simulated duration of one tick.
//
// Precondition: TickRate must be > 0.
func (m MatchConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(m.TickRate)
}

// ScriptingConfig holds Lua class hook settings.
type ScriptingConfig struct {
	// Root is the directory class script paths are relative to. Empty disables scripting.
	Root string `mapstructure:"root"`
	// InstructionLimit bounds each hook call. Zero applies the sandbox default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// Config is the root configuration structure.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Content   ContentConfig   `mapstructure:"content"`
	Match     MatchConfig     `mapstructure:"match"`
	Scripting ScriptingConfig `mapstructure:"scripting"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if c.Database.Enabled {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content, c.Database.Enabled); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateMatch(c.Match); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Scripting.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("scripting.instruction_limit must be >= 0, got %d", c.Scripting.InstructionLimit))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateContent(c ContentConfig, dbEnabled bool) error {
	switch c.Source {
	case SourceFiles:
		if c.Dir == "" {
			return fmt.Errorf("content.dir must not be empty when content.source is %q", SourceFiles)
		}
	case SourcePostgres:
		if !dbEnabled {
			return fmt.Errorf("content.source %q requires database.enabled", SourcePostgres)
		}
	default:
		return fmt.Errorf("content.source must be one of [files, postgres], got %q", c.Source)
	}
	return nil
}

func validateMatch(m MatchConfig) error {
	var errs []string
	if m.TickRate < 1 {
		errs = append(errs, fmt.Sprintf("match.tick_rate must be >= 1, got %d", m.TickRate))
	}
	if m.ArenaWidth <= 0 || m.ArenaHeight <= 0 {
		errs = append(errs, fmt.Sprintf("match arena must have positive size, got %gx%g", m.ArenaWidth, m.ArenaHeight))
	}
	if m.BaseOrbitRate <= 0 {
		errs = append(errs, fmt.Sprintf("match.base_orbit_rate must be > 0, got %g", m.BaseOrbitRate))
	}
	if m.MoveSpeedScale < 0 {
		errs = append(errs, fmt.Sprintf("match.move_speed_scale must be >= 0, got %g", m.MoveSpeedScale))
	}
	if m.EntityScale <= 0 {
		errs = append(errs, fmt.Sprintf("match.entity_scale must be > 0, got %g", m.EntityScale))
	}
	if m.WeaponReach < 0 {
		errs = append(errs, fmt.Sprintf("match.weapon_reach must be >= 0, got %g", m.WeaponReach))
	}
	if m.MaxDuration < 0 {
		errs = append(errs, "match.max_duration must not be negative")
	}
	if m.SnapshotEvery < 0 {
		errs = append(errs, fmt.Sprintf("match.snapshot_every must be >= 0, got %d", m.SnapshotEvery))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with ARENA_ prefix
	v.SetEnvPrefix("ARENA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// Default returns the built-in configuration used when no file is given.
//
// Postcondition: Returns a Config that passes Validate.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := LoadFromViper(v)
	if err != nil {
		panic(fmt.Sprintf("config: built-in defaults are invalid: %v", err))
	}
	return cfg
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "arena")
	v.SetDefault("database.password", "arena")
	v.SetDefault("database.name", "arena")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("content.dir", "content")
	v.SetDefault("content.source", SourceFiles)

	v.SetDefault("match.tick_rate", 60)
	v.SetDefault("match.arena_width", 800.0)
	v.SetDefault("match.arena_height", 800.0)
	v.SetDefault("match.base_orbit_rate", 5.0)
	v.SetDefault("match.move_speed_scale", 2.0)
	v.SetDefault("match.entity_scale", 2.5)
	v.SetDefault("match.weapon_reach", 80.0)
	v.SetDefault("match.max_duration", "3m")
	v.SetDefault("match.snapshot_every", 60)
	v.SetDefault("match.realtime", false)
	v.SetDefault("match.seed", 0)

	v.SetDefault("scripting.root", "content/scripts")
	v.SetDefault("scripting.instruction_limit", 100000)
}
