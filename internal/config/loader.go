package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/custody-scheduler/internal/logging"
)

// Storage drivers accepted in SCHEDULER_DB_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const defaultEnvFile = ".env"

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	HTTPPort             int
	DBDriver             string
	SQLitePath           string
	PostgresDSN          string
	LogLevel             slog.Level
	// AvailabilityCacheTTL is zero unless set. Cached answers are only cleared
	// by detection in this process, so the cache suits a single server instance.
	AvailabilityCacheTTL time.Duration
	ShutdownTimeout      time.Duration
}

// Load parses configuration values from the current process environment.
//
// Variables from the file named by SCHEDULER_ENV_FILE (default .env) are
// applied first without overriding the process environment. A missing file is
// not an error. Missing and invalid variables are reported together.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTPPort:        8080,
		DBDriver:        DriverSQLite,
		SQLitePath:      "scheduler.db",
		LogLevel:        slog.LevelInfo,
		ShutdownTimeout: 10 * time.Second,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := env("SCHEDULER_HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "SCHEDULER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if driver := strings.ToLower(env("SCHEDULER_DB_DRIVER")); driver != "" {
		switch driver {
		case DriverSQLite, DriverPostgres:
			cfg.DBDriver = driver
		default:
			invalid = append(invalid, "SCHEDULER_DB_DRIVER")
		}
	}

	if path := env("SCHEDULER_SQLITE_DSN"); path != "" {
		cfg.SQLitePath = path
	}

	cfg.PostgresDSN = env("SCHEDULER_POSTGRES_DSN")
	if cfg.DBDriver == DriverPostgres && cfg.PostgresDSN == "" {
		missing = append(missing, "SCHEDULER_POSTGRES_DSN")
	}

	if levelValue := env("SCHEDULER_LOG_LEVEL"); levelValue != "" {
		level, err := logging.ParseLevel(levelValue)
		if err != nil {
			invalid = append(invalid, "SCHEDULER_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	if ttlValue := env("SCHEDULER_AVAILABILITY_CACHE_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl < 0 {
			invalid = append(invalid, "SCHEDULER_AVAILABILITY_CACHE_TTL")
		} else {
			cfg.AvailabilityCacheTTL = ttl
		}
	}

	if timeoutValue := env("SCHEDULER_SHUTDOWN_TIMEOUT"); timeoutValue != "" {
		timeout, err := time.ParseDuration(timeoutValue)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "SCHEDULER_SHUTDOWN_TIMEOUT")
		} else {
			cfg.ShutdownTimeout = timeout
		}
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", ")))
	}
	if len(invalid) > 0 {
		errs = append(errs, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", ")))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	return cfg, nil
}

func loadEnvFile() error {
	path := env("SCHEDULER_ENV_FILE")
	if path == "" {
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
