package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the atm and students binaries.
type Config struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	AuditLog    string `yaml:"audit_log"`

	ATM struct {
		InitialBalance string `yaml:"initial_balance"`
		PINHash        string `yaml:"pin_hash"`
		MaxPINAttempts int    `yaml:"max_pin_attempts"`
	} `yaml:"atm"`

	Students struct {
		Backend     string `yaml:"backend"`
		File        string `yaml:"file"`
		FileKey     string `yaml:"file_key"`
		SQLitePath  string `yaml:"sqlite_path"`
		DatabaseURL string `yaml:"database_url"`
		RedisAddr   string `yaml:"redis_addr"`
		RedisKey    string `yaml:"redis_key"`
		UniqueIDs   bool   `yaml:"unique_ids"`
		ExportPath  string `yaml:"export_path"`
	} `yaml:"students"`
}

const (
	defaultEnvironment    = "development"
	defaultLogLevel       = "info"
	defaultInitialBalance = "1000.0"
	defaultPINAttempts    = 3
	defaultBackend        = "file"
	defaultStudentsFile   = "students.dat"
	defaultSQLitePath     = "students.db"
	defaultRedisKey       = "kiosk:students:snapshot"
	defaultExportPath     = "students.xlsx"
)

var (
	knownBackends  = []string{"file", "sqlite", "postgres", "redis"}
	knownLogLevels = []string{"debug", "info", "warn", "error"}
)

// Load reads .env (if present), then the YAML file named by KIOSK_CONFIG (if
// set), then applies environment overrides and defaults, and validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{}
	if path := os.Getenv("KIOSK_CONFIG"); path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile decodes a YAML configuration file without applying env or defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config from %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Environment, "APP_ENV")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.AuditLog, "AUDIT_LOG")

	setString(&c.ATM.InitialBalance, "ATM_INITIAL_BALANCE")
	setString(&c.ATM.PINHash, "ATM_PIN_HASH")
	if v, ok := os.LookupEnv("ATM_MAX_PIN_ATTEMPTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ATM_MAX_PIN_ATTEMPTS must be an integer: %w", err)
		}
		c.ATM.MaxPINAttempts = n
	}

	setString(&c.Students.Backend, "STUDENTS_BACKEND")
	setString(&c.Students.File, "STUDENTS_FILE")
	setString(&c.Students.FileKey, "STUDENTS_FILE_KEY")
	setString(&c.Students.SQLitePath, "STUDENTS_SQLITE_PATH")
	setString(&c.Students.DatabaseURL, "DATABASE_URL")
	setString(&c.Students.RedisAddr, "REDIS_ADDR")
	setString(&c.Students.RedisKey, "REDIS_KEY")
	setString(&c.Students.ExportPath, "STUDENTS_EXPORT_PATH")
	if v, ok := os.LookupEnv("STUDENTS_UNIQUE_IDS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STUDENTS_UNIQUE_IDS must be a boolean: %w", err)
		}
		c.Students.UniqueIDs = b
	}
	return nil
}

func (c *Config) applyDefaults() {
	setDefault(&c.Environment, defaultEnvironment)
	setDefault(&c.LogLevel, defaultLogLevel)
	setDefault(&c.ATM.InitialBalance, defaultInitialBalance)
	if c.ATM.MaxPINAttempts == 0 {
		c.ATM.MaxPINAttempts = defaultPINAttempts
	}
	setDefault(&c.Students.Backend, defaultBackend)
	setDefault(&c.Students.File, defaultStudentsFile)
	setDefault(&c.Students.SQLitePath, defaultSQLitePath)
	setDefault(&c.Students.RedisKey, defaultRedisKey)
	setDefault(&c.Students.ExportPath, defaultExportPath)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var problems []string

	if !contains(knownLogLevels, strings.ToLower(c.LogLevel)) {
		problems = append(problems, "LOG_LEVEL must be one of "+strings.Join(knownLogLevels, ", "))
	}

	if bal, err := decimal.NewFromString(c.ATM.InitialBalance); err != nil {
		problems = append(problems, "ATM_INITIAL_BALANCE must be a decimal number")
	} else if bal.IsNegative() {
		problems = append(problems, "ATM_INITIAL_BALANCE must not be negative")
	}
	if c.ATM.MaxPINAttempts <= 0 {
		problems = append(problems, "ATM_MAX_PIN_ATTEMPTS must be positive")
	}

	if c.Students.FileKey != "" {
		if key, err := hex.DecodeString(c.Students.FileKey); err != nil || len(key) != 32 {
			problems = append(problems, "STUDENTS_FILE_KEY must be 64 hex characters")
		}
	}

	switch c.Students.Backend {
	case "postgres":
		if c.Students.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required for the postgres backend")
		}
	case "redis":
		if c.Students.RedisAddr == "" {
			problems = append(problems, "REDIS_ADDR is required for the redis backend")
		}
	default:
		if !contains(knownBackends, c.Students.Backend) {
			problems = append(problems, "STUDENTS_BACKEND must be one of "+strings.Join(knownBackends, ", "))
		}
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitialBalance returns the parsed opening balance. Call after Validate.
func (c *Config) InitialBalance() decimal.Decimal {
	return decimal.RequireFromString(c.ATM.InitialBalance)
}

// NewLogger builds a text logger at the configured level writing to w.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setDefault(dst *string, fallback string) {
	if *dst == "" {
		*dst = fallback
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
