package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"retailpipe/internal/common"
	"retailpipe/pkg/errors"
)

// Config is the top-level pipeline configuration
type Config struct {
	DataGeneration DataGeneration `yaml:"data_generation"`
	Database       Database       `yaml:"database"`
	Pipeline       Pipeline       `yaml:"pipeline"`
	Schedule       Schedule       `yaml:"schedule"`
	Paths          Paths          `yaml:"paths"`
}

// DataGeneration controls the synthetic data generator
type DataGeneration struct {
	Customers    int    `yaml:"customers"`
	Products     int    `yaml:"products"`
	Transactions int    `yaml:"transactions"`
	StartDate    string `yaml:"start_date"`
	EndDate      string `yaml:"end_date"`
}

// Database holds Postgres connection settings
type Database struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// Pipeline controls the step runner
type Pipeline struct {
	Retries  int    `yaml:"retries"`
	LogLevel string `yaml:"log_level"`
	Command  string `yaml:"command"` // binary the runner invokes per step, defaults to retailpipe
}

// Schedule controls the daily trigger
type Schedule struct {
	At string `yaml:"at"` // HH:MM, local time
}

// Paths holds the artifact locations
type Paths struct {
	RawDir     string `yaml:"raw_dir"`
	ReportsDir string `yaml:"reports_dir"`
}

// DateRange parses the configured generation window
func (d DataGeneration) DateRange() (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", d.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date %q: %w", d.StartDate, err)
	}
	end, err := time.Parse("2006-01-02", d.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date %q: %w", d.EndDate, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date %s is before start_date %s", d.EndDate, d.StartDate)
	}
	return start, end, nil
}

// GetConfigFile resolves the config file location
func GetConfigFile() string {
	if configFile := os.Getenv("RETAILPIPE_CONFIG"); configFile != "" {
		cleaned, err := common.CleanPath(configFile)
		if err == nil {
			return cleaned
		}
	}
	return filepath.Join("config", "config.yaml")
}

// Load reads the config file, applies defaults and DB_* environment overrides
func Load() (*Config, error) {
	return LoadFile(GetConfigFile())
}

// LoadFile reads a specific config file
func LoadFile(path string) (*Config, error) {
	config := defaults()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path) // #nosec G304 - path is validated by caller
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	// .env overrides config.yaml for DB credentials, matching the deployment
	// convention where credentials never live in the checked-in config.
	_ = godotenv.Load()
	applyEnvOverrides(&config.Database)

	return config, nil
}

// Save writes the config back to disk
func Save(config *Config, path string) error {
	if err := common.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func defaults() *Config {
	return &Config{
		DataGeneration: DataGeneration{
			Customers:    1000,
			Products:     500,
			Transactions: 5000,
			StartDate:    "2023-01-01",
			EndDate:      "2024-12-31",
		},
		Database: Database{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
		Pipeline: Pipeline{
			Retries:  1,
			LogLevel: "info",
			Command:  "retailpipe",
		},
		Schedule: Schedule{At: "02:00"},
		Paths: Paths{
			RawDir:     filepath.Join("data", "raw"),
			ReportsDir: "docs",
		},
	}
}

func applyEnvOverrides(db *Database) {
	if v := os.Getenv("DB_HOST"); v != "" {
		db.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			db.Port = port
		}
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		db.Name = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		db.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		db.Password = v
	}
}

// Validate checks the loaded configuration for values the pipeline cannot run without
func (c *Config) Validate() error {
	if c.DataGeneration.Customers <= 0 {
		return errors.ConfigError("data_generation.customers must be positive", "data_generation.customers")
	}
	if c.DataGeneration.Products <= 0 {
		return errors.ConfigError("data_generation.products must be positive", "data_generation.products")
	}
	if c.DataGeneration.Transactions <= 0 {
		return errors.ConfigError("data_generation.transactions must be positive", "data_generation.transactions")
	}
	if _, _, err := c.DataGeneration.DateRange(); err != nil {
		return err
	}
	if c.Pipeline.Retries < 0 {
		return errors.ConfigError("pipeline.retries must not be negative", "pipeline.retries")
	}
	if c.Schedule.At != "" {
		if _, err := time.Parse("15:04", c.Schedule.At); err != nil {
			return errors.ConfigError(fmt.Sprintf("invalid schedule.at %q", c.Schedule.At), "schedule.at")
		}
	}
	return nil
}
