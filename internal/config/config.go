package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"placestatus/internal/status"
)

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	API struct {
		Port            int     `yaml:"port"`
		APIKey          string  `yaml:"api_key"`
		RatePerSecond   float64 `yaml:"rate_per_second"`
		Burst           int     `yaml:"burst"`
		CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	} `yaml:"api"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Status struct {
		OpeningSoonMinutes int `yaml:"opening_soon_minutes"`
		BreakSoonMinutes   int `yaml:"break_soon_minutes"`
		ClosingSoonMinutes int `yaml:"closing_soon_minutes"`
	} `yaml:"status"`

	Monitor struct {
		Enabled         bool `yaml:"enabled"`
		IntervalSeconds int  `yaml:"interval_seconds"`
	} `yaml:"monitor"`

	PlacesConfigPath string `yaml:"places_config_path"`
}

// Load reads the YAML config at path. A .env file next to it is loaded first
// so ${ENV_VAR} placeholders can refer to it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	envPath := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "data/placestatus.db"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.PlacesConfigPath == "" {
		c.PlacesConfigPath = "configs/places.yaml"
	}
}

func (c *Config) Validate() error {
	if c.API.Port < 0 || c.API.Port > 65535 {
		return fmt.Errorf("api port out of range: %d", c.API.Port)
	}
	if c.API.RatePerSecond < 0 {
		return fmt.Errorf("api rate_per_second cannot be negative")
	}
	if c.API.Burst < 0 {
		return fmt.Errorf("api burst cannot be negative")
	}
	if c.Status.OpeningSoonMinutes < 0 || c.Status.BreakSoonMinutes < 0 || c.Status.ClosingSoonMinutes < 0 {
		return fmt.Errorf("status thresholds cannot be negative")
	}
	return nil
}

// Thresholds converts the status section; zero values keep the defaults.
func (c *Config) Thresholds() status.Thresholds {
	return status.Thresholds{
		OpeningSoon: time.Duration(c.Status.OpeningSoonMinutes) * time.Minute,
		BreakSoon:   time.Duration(c.Status.BreakSoonMinutes) * time.Minute,
		ClosingSoon: time.Duration(c.Status.ClosingSoonMinutes) * time.Minute,
	}
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.API.CacheTTLSeconds) * time.Second
}

func (c *Config) MonitorInterval() time.Duration {
	if c.Monitor.IntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Monitor.IntervalSeconds) * time.Second
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

func (c *Config) BackupRetention() time.Duration {
	if c.Backup.RetentionDays <= 0 {
		return 14 * 24 * time.Hour
	}
	return time.Duration(c.Backup.RetentionDays) * 24 * time.Hour
}
