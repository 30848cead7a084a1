// Package config loads the broker configuration from defaults, an optional YAML
// file, a .env file and the process environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Order log backends
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// ConfigFileEnv names the variable holding the optional YAML config path
const ConfigFileEnv = "REPLAY_CONFIG"

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	ConnStr  string `yaml:"connStr"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// DSN returns the explicit connection string, or builds one from the individual fields
func (d DatabaseConfig) DSN() string {
	if d.ConnStr != "" {
		return d.ConnStr
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// Config represents the broker process configuration
type Config struct {
	GRPCAddr            string         `yaml:"grpcAddr"`
	PriceFile           string         `yaml:"priceFile"`
	DataDir             string         `yaml:"dataDir"`
	SnapshotFile        string         `yaml:"snapshotFile"`
	SnapshotInterval    time.Duration  `yaml:"snapshotInterval"`
	RecoverFromSnapshot bool           `yaml:"recoverFromSnapshot"`
	LogLevel            string         `yaml:"logLevel"`
	OrderLogBackend     string         `yaml:"orderLogBackend"`
	Database            DatabaseConfig `yaml:"database"`
}

// Default returns the configuration used when nothing is overridden
func Default() Config {
	return Config{
		GRPCAddr:         ":8080",
		PriceFile:        "data/prices.csv",
		DataDir:          "data/portfolios",
		SnapshotFile:     "data/recovery.json",
		SnapshotInterval: 500 * time.Millisecond,
		LogLevel:         "info",
		OrderLogBackend:  BackendFile,
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			Name:     "replay",
		},
	}
}

// Load builds the configuration
// Logic:
//  1. Start from Default()
//  2. Load .env files into the environment (missing files are ignored, set variables win)
//  3. Merge the YAML file named by REPLAY_CONFIG, if any
//  4. Apply environment overrides
//  5. Validate
func Load(envFiles ...string) (Config, error) {
	cfg := Default()

	if err := loadDotEnv(envFiles...); err != nil {
		return Config{}, err
	}

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with
func (c Config) Validate() error {
	if strings.TrimSpace(c.GRPCAddr) == "" {
		return errors.New("grpc address cannot be empty")
	}
	if strings.TrimSpace(c.PriceFile) == "" {
		return errors.New("price file cannot be empty")
	}
	if strings.TrimSpace(c.SnapshotFile) == "" {
		return errors.New("snapshot file cannot be empty")
	}
	if c.SnapshotInterval <= 0 {
		return fmt.Errorf("snapshot interval must be positive, got %s", c.SnapshotInterval)
	}

	switch c.OrderLogBackend {
	case BackendFile:
		if strings.TrimSpace(c.DataDir) == "" {
			return errors.New("data directory cannot be empty")
		}
	case BackendPostgres:
	default:
		return fmt.Errorf("unknown order log backend %q", c.OrderLogBackend)
	}
	return nil
}

func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.GRPCAddr, "GRPC_ADDR")
	setString(&cfg.PriceFile, "PRICE_FILE")
	setString(&cfg.DataDir, "DATA_DIR")
	setString(&cfg.SnapshotFile, "SNAPSHOT_FILE")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.OrderLogBackend, "ORDER_LOG_BACKEND")

	if raw := os.Getenv("SNAPSHOT_INTERVAL"); raw != "" {
		interval, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid SNAPSHOT_INTERVAL %q: %w", raw, err)
		}
		cfg.SnapshotInterval = interval
	}

	if raw := os.Getenv("RECOVER_FROM_SNAPSHOT"); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid RECOVER_FROM_SNAPSHOT %q: %w", raw, err)
		}
		cfg.RecoverFromSnapshot = enabled
	}

	// Explicit connection string, or individual vars (Docker friendly)
	setString(&cfg.Database.ConnStr, "DB_CONN_STR")
	setString(&cfg.Database.Host, "DB_HOST")
	setString(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Name, "DB_NAME")

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
