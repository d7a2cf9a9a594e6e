package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shravan/physio/internal/exercise"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Estimator EstimatorConfig `yaml:"estimator"`
	Coach     CoachConfig     `yaml:"coach"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Admin mounts the tailsql console and backup download under /debug/
	// when the sqlite driver is used.
	Admin bool `yaml:"admin"`
}

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	// Path is the database file for the sqlite driver.
	Path string `yaml:"path"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// EstimatorConfig points at the HTTP pose-estimation service used by
// physio-replay for image frames. Browser clients that run the model
// themselves do not need it.
type EstimatorConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type CoachConfig struct {
	// FrameInterval paces replayed frame loops. Zero runs as fast as
	// frames arrive.
	FrameInterval time.Duration       `yaml:"frame_interval"`
	Thresholds    exercise.Thresholds `yaml:"thresholds"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix PHYSIO_ and underscore-separated paths:
//
//	PHYSIO_SERVER_HOST, PHYSIO_SERVER_PORT,
//	PHYSIO_DB_DRIVER, PHYSIO_DB_PATH,
//	PHYSIO_DB_HOST, PHYSIO_DB_PORT, PHYSIO_DB_NAME,
//	PHYSIO_DB_USER, PHYSIO_DB_PASSWORD, PHYSIO_DB_SSLMODE,
//	PHYSIO_AUTH_API_KEY,
//	PHYSIO_TAILSCALE_ENABLED, PHYSIO_TAILSCALE_HOSTNAME,
//	PHYSIO_ESTIMATOR_URL, PHYSIO_ESTIMATOR_TIMEOUT,
//	PHYSIO_COACH_MIN_CONFIDENCE
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// LoadCoach reads the same file as Load but only requires the estimator and
// coach sections, for offline tools that never serve or store anything.
func LoadCoach(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateCoach(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func read(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PHYSIO_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PHYSIO_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PHYSIO_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("PHYSIO_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("PHYSIO_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("PHYSIO_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("PHYSIO_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("PHYSIO_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("PHYSIO_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("PHYSIO_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("PHYSIO_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("PHYSIO_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	if v := os.Getenv("PHYSIO_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("PHYSIO_ESTIMATOR_URL"); v != "" {
		cfg.Estimator.URL = v
	}
	if v := os.Getenv("PHYSIO_ESTIMATOR_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Estimator.Timeout = d
		}
	}
	if v := os.Getenv("PHYSIO_COACH_MIN_CONFIDENCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Coach.Thresholds.MinConfidence = f
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = "physio"
	}
	if c.Estimator.Timeout == 0 {
		c.Estimator.Timeout = 5 * time.Second
	}
	c.Coach.Thresholds = c.Coach.Thresholds.WithDefaults()
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	return c.validateCoach()
}

func (c *Config) validateCoach() error {
	if c.Estimator.Timeout < 0 {
		return fmt.Errorf("estimator.timeout must not be negative")
	}
	if c.Coach.FrameInterval < 0 {
		return fmt.Errorf("coach.frame_interval must not be negative")
	}
	if err := c.Coach.Thresholds.Validate(); err != nil {
		return fmt.Errorf("coach.thresholds: %w", err)
	}
	return nil
}
