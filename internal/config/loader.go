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
	"github.com/robfig/cron/v3"
)

// DataSource names a to-do repository implementation.
type DataSource string

const (
	DataSourceSQLite    DataSource = "sqlite"
	DataSourceFirestore DataSource = "firestore"
	DataSourceMemory    DataSource = "memory"
)

// Valid reports whether the data source is supported.
func (d DataSource) Valid() bool {
	switch d {
	case DataSourceSQLite, DataSourceFirestore, DataSourceMemory:
		return true
	}
	return false
}

// ScheduleParser parses six-field agenda cron specs (seconds first).
var ScheduleParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Config captures environment driven configuration values for the to-do service.
type Config struct {
	HTTPPort            int
	DataSource          DataSource
	SQLiteDSN           string
	FirestoreProject    string
	FirestoreCollection string
	MemoryFile          string
	MemorySeedDemo      bool
	Location            *time.Location
	AgendaSchedule      string
	LogLevel            slog.Level
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		HTTPPort:            8080,
		DataSource:          DataSourceSQLite,
		SQLiteDSN:           "bsmanager.db",
		FirestoreCollection: "todos",
		Location:            time.UTC,
		LogLevel:            slog.LevelInfo,
	}
}

// Load reads optional dotenv files and then parses configuration values from
// the process environment. Variables already set in the environment win over
// dotenv entries.
//
// The loader applies defaults for optional fields while validating required
// values and reporting localized error messages for missing entries.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("환경 파일을 찾을 수 없습니다: %w", err)
			}
			return Config{}, fmt.Errorf("환경 파일을 읽을 수 없습니다: %w", err)
		}
	}

	cfg := Default()
	if loc, err := time.LoadLocation("Asia/Seoul"); err == nil {
		cfg.Location = loc
	}

	invalid := make([]string, 0, 2)

	if portValue := lookup("HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, envKey("HTTP_PORT"))
		} else {
			cfg.HTTPPort = port
		}
	}

	if source := lookup("DATA_SOURCE"); source != "" {
		cfg.DataSource = DataSource(strings.ToLower(source))
	}
	if dsn := lookup("SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}
	cfg.FirestoreProject = lookup("FIRESTORE_PROJECT")
	if collection := lookup("FIRESTORE_COLLECTION"); collection != "" {
		cfg.FirestoreCollection = collection
	}
	cfg.MemoryFile = lookup("MEMORY_FILE")

	if seedValue := lookup("MEMORY_SEED_DEMO"); seedValue != "" {
		seed, err := strconv.ParseBool(seedValue)
		if err != nil {
			invalid = append(invalid, envKey("MEMORY_SEED_DEMO"))
		} else {
			cfg.MemorySeedDemo = seed
		}
	}

	if tz := lookup("TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			invalid = append(invalid, envKey("TIMEZONE"))
		} else {
			cfg.Location = loc
		}
	}

	cfg.AgendaSchedule = lookup("AGENDA_SCHEDULE")

	if levelValue := lookup("LOG_LEVEL"); levelValue != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(levelValue)); err != nil {
			invalid = append(invalid, envKey("LOG_LEVEL"))
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("환경 변수 값이 올바르지 않습니다: %s", strings.Join(invalid, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements. It is run again after command
// line overrides are applied.
func (c Config) Validate() error {
	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		invalid = append(invalid, envKey("HTTP_PORT"))
	}
	if !c.DataSource.Valid() {
		invalid = append(invalid, envKey("DATA_SOURCE"))
	}
	if c.DataSource == DataSourceSQLite && strings.TrimSpace(c.SQLiteDSN) == "" {
		missing = append(missing, envKey("SQLITE_DSN"))
	}
	if c.DataSource == DataSourceFirestore && strings.TrimSpace(c.FirestoreProject) == "" {
		missing = append(missing, envKey("FIRESTORE_PROJECT"))
	}
	if c.AgendaSchedule != "" {
		if _, err := ScheduleParser.Parse(c.AgendaSchedule); err != nil {
			invalid = append(invalid, envKey("AGENDA_SCHEDULE"))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("필수 환경 변수가 설정되지 않았습니다: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return fmt.Errorf("환경 변수 값이 올바르지 않습니다: %s", strings.Join(invalid, ", "))
	}
	return nil
}

const envPrefix = "BSMANAGER_"

func envKey(name string) string {
	return envPrefix + name
}

func lookup(name string) string {
	return strings.TrimSpace(os.Getenv(envKey(name)))
}
