package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for configuration environment variables.
// Nesting is expressed with a double underscore:
// FLOWKEEP_DATABASE__HOST -> database.host.
const EnvPrefix = "FLOWKEEP_"

// DefaultConfigPaths are searched in order when --config is not given.
var DefaultConfigPaths = []string{
	"flowkeep.yaml",
	"/etc/flowkeep/flowkeep.yaml",
}

// DatabaseConfig holds connection parameters for the target PostgreSQL
// instance. Password may come from the environment or a file; the file
// wins when both are set.
type DatabaseConfig struct {
	Host         string `koanf:"host"`
	Port         int    `koanf:"port"`
	User         string `koanf:"user"`
	Name         string `koanf:"name"`
	Password     string `koanf:"password"`
	PasswordFile string `koanf:"password_file"`
}

// Addr returns host:port for TCP probes.
func (d DatabaseConfig) Addr() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// ResolvePassword returns the effective password, reading PasswordFile
// when set.
func (d DatabaseConfig) ResolvePassword() (string, error) {
	if d.PasswordFile == "" {
		return d.Password, nil
	}
	data, err := os.ReadFile(d.PasswordFile)
	if err != nil {
		return "", fmt.Errorf("read database password file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ApplicationConfig describes the workflow-automation application whose
// lifecycle the restore pipeline controls.
type ApplicationConfig struct {
	// ComposeFile is the compose project file managing the stack
	ComposeFile string `koanf:"compose_file"`

	// Service is the application service name within the project
	Service string `koanf:"service"`

	// HealthURL is the application's liveness endpoint
	HealthURL string `koanf:"health_url"`
}

// ProbeConfig bounds the readiness polling loop.
type ProbeConfig struct {
	MaxAttempts int           `koanf:"max_attempts"`
	Interval    time.Duration `koanf:"interval"`
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

// Config is the explicit configuration passed to every component. No
// component reads process-global state past Load.
type Config struct {
	// Environment names this deployment target
	Environment string `koanf:"environment"`

	// SnapshotRoot is the directory under which snapshot directories
	// are created and swept
	SnapshotRoot string `koanf:"snapshot_root"`

	// DataRoot is the application's persistent file tree, archived into
	// every snapshot and extracted over during restore
	DataRoot string `koanf:"data_root"`

	// ConfigPaths are deployment configuration files copied verbatim
	// into each snapshot, relative structure preserved
	ConfigPaths []string `koanf:"config_paths"`

	// EncryptionKey is the environment's active credentials key.
	// Read-only: flowkeep compares it, never writes it.
	EncryptionKey string `koanf:"encryption_key"`

	// RetentionDays is the default sweep age threshold
	RetentionDays int `koanf:"retention_days"`

	// MinRetention is how long failed partial snapshots are protected
	// from the sweeper so operators can inspect them
	MinRetention time.Duration `koanf:"min_retention"`

	// CommandTimeout bounds every external command invocation
	CommandTimeout time.Duration `koanf:"command_timeout"`

	// RegistryPath is the bbolt run-registry file
	RegistryPath string `koanf:"registry_path"`

	// MetricsAddr, when set, serves Prometheus metrics during
	// long-running invocations (e.g. "127.0.0.1:9464")
	MetricsAddr string `koanf:"metrics_addr"`

	Database    DatabaseConfig    `koanf:"database"`
	Application ApplicationConfig `koanf:"application"`
	Probe       ProbeConfig       `koanf:"probe"`
	Log         LogConfig         `koanf:"log"`
}

// Default returns the built-in defaults, the lowest configuration layer.
func Default() Config {
	return Config{
		Environment:    "default",
		SnapshotRoot:   "/var/lib/flowkeep/snapshots",
		DataRoot:       "/var/lib/flowkeep/data",
		RetentionDays:  14,
		MinRetention:   24 * time.Hour,
		CommandTimeout: 30 * time.Minute,
		RegistryPath:   "/var/lib/flowkeep/flowkeep.db",
		Database: DatabaseConfig{
			Host: "127.0.0.1",
			Port: 5432,
			User: "postgres",
			Name: "workflows",
		},
		Application: ApplicationConfig{
			ComposeFile: "docker-compose.yml",
			Service:     "app",
			HealthURL:   "http://127.0.0.1:5678/healthz",
		},
		Probe: ProbeConfig{
			MaxAttempts: 30,
			Interval:    2 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// Load builds the effective configuration from three layers, later
// layers overriding earlier ones:
//
//  1. built-in defaults
//  2. YAML config file (explicit path, or the first DefaultConfigPaths
//     entry that exists)
//  3. FLOWKEEP_-prefixed environment variables
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransform maps FLOWKEEP_DATABASE__HOST to database.host. A single
// underscore stays part of the key (snapshot_root); a double underscore
// descends one nesting level.
func envTransform(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "__", ".")
}

func findConfigFile() string {
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate rejects configurations no component could act on.
func (c *Config) Validate() error {
	if c.SnapshotRoot == "" {
		return fmt.Errorf("snapshot_root must be set")
	}
	if c.DataRoot == "" {
		return fmt.Errorf("data_root must be set")
	}
	if c.Database.Host == "" || c.Database.Name == "" {
		return fmt.Errorf("database host and name must be set")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("database port %d out of range", c.Database.Port)
	}
	if c.Probe.MaxAttempts <= 0 {
		return fmt.Errorf("probe max_attempts must be positive")
	}
	if c.Probe.Interval <= 0 {
		return fmt.Errorf("probe interval must be positive")
	}
	if c.CommandTimeout <= 0 {
		return fmt.Errorf("command_timeout must be positive")
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("retention_days must not be negative")
	}
	return nil
}
