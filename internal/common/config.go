package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Workbook  WorkbookConfig
	Packaging PackagingConfig
	Logging   LoggingConfig
}

// DatabaseConfig selects the scan store. A postgres:// DSN uses pgx; anything else
// is opened as a SQLite file.
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds the listen addresses. An empty APIToken disables bearer auth.
type ServerConfig struct {
	HTTPAddr        string
	HealthAddr      string
	APIToken        string
	ShutdownTimeout time.Duration
}

// WorkbookConfig describes where job workbooks live and how they are laid out.
type WorkbookConfig struct {
	Dir          string
	TempDir      string
	IOTimeout    time.Duration
	WarmOnChange bool
	WarmDebounce time.Duration
	ControlCell  string
	PartColumn   string
	FallbackCol  string
	QuantityCol  string
	MaxRowQty    int
	// PROJET sheet cells and columns.
	ProjectNameCell string
	ClientCell      string
	SiteCell        string
	ProjectPartCol  string
	HeightCol       string
	WidthCol        string
	MaterialCol     string
	ProjectRow      int
	MaterialRange   string
}

// PackagingConfig holds manifest output and side-effect settings.
type PackagingConfig struct {
	OutputDir      string
	TemplatePath   string
	ExportCommand  string
	NtfyTopic      string
	NotifyTimeout  time.Duration
	Recipients     []string
	Workers        int
	QueueSize      int
	SideEffectTime time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables. When envFile is set and
// exists it is loaded first; variables already present in the environment win.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}

	return &Config{
		Database: DatabaseConfig{
			DSN:              envOr("DB_URL", "file:cyrscan.db", asString),
			MaxConns:         envOr[int32]("DB_MAX_CONNS", 10, asInt32),
			MinConns:         envOr[int32]("DB_MIN_CONNS", 2, asInt32),
			MaxConnLifetime:  envOr("DB_MAX_CONN_LIFETIME", 30*time.Minute, time.ParseDuration),
			MaxConnIdleTime:  envOr("DB_MAX_CONN_IDLE_TIME", 5*time.Minute, time.ParseDuration),
			DialTimeout:      envOr("DB_DIAL_TIMEOUT", 3*time.Second, time.ParseDuration),
			StatementTimeout: envOr("DB_STATEMENT_TIMEOUT", 0, time.ParseDuration),
		},
		Server: ServerConfig{
			HTTPAddr:        envOr("HTTP_ADDR", ":8080", asString),
			HealthAddr:      envOr("HEALTH_ADDR", ":8081", asString),
			APIToken:        envOr("API_TOKEN", "", asString),
			ShutdownTimeout: envOr("SHUTDOWN_TIMEOUT", 10*time.Second, time.ParseDuration),
		},
		Workbook: WorkbookConfig{
			Dir:             envOr("WORKBOOK_DIR", "./workbooks", asString),
			TempDir:         envOr("WORKBOOK_TEMP_DIR", os.TempDir(), asString),
			IOTimeout:       envOr("WORKBOOK_IO_TIMEOUT", 20*time.Second, time.ParseDuration),
			WarmOnChange:    envOr("WORKBOOK_WARM_ON_CHANGE", false, strconv.ParseBool),
			WarmDebounce:    envOr("WORKBOOK_WARM_DEBOUNCE", 2*time.Second, time.ParseDuration),
			ControlCell:     envOr("WORKBOOK_CONTROL_CELL", "K1", asString),
			PartColumn:      envOr("WORKBOOK_PART_COLUMN", "Z", asString),
			FallbackCol:     envOr("WORKBOOK_FALLBACK_COLUMN", "C", asString),
			QuantityCol:     envOr("WORKBOOK_QUANTITY_COLUMN", "AA", asString),
			MaxRowQty:       envOr("WORKBOOK_MAX_ROW_QUANTITY", 10000, strconv.Atoi),
			ProjectNameCell: envOr("WORKBOOK_PROJECT_NAME_CELL", "B1", asString),
			ClientCell:      envOr("WORKBOOK_CLIENT_CELL", "B2", asString),
			SiteCell:        envOr("WORKBOOK_SITE_CELL", "B3", asString),
			ProjectPartCol:  envOr("WORKBOOK_PROJECT_PART_COLUMN", "A", asString),
			HeightCol:       envOr("WORKBOOK_HEIGHT_COLUMN", "B", asString),
			WidthCol:        envOr("WORKBOOK_WIDTH_COLUMN", "C", asString),
			MaterialCol:     envOr("WORKBOOK_MATERIAL_COLUMN", "D", asString),
			ProjectRow:      envOr("WORKBOOK_PROJECT_FIRST_ROW", 6, strconv.Atoi),
			MaterialRange:   envOr("WORKBOOK_MATERIAL_RANGE", "H2:I19", asString),
		},
		Packaging: PackagingConfig{
			OutputDir:      envOr("PACKAGING_OUTPUT_DIR", "./emballage", asString),
			TemplatePath:   envOr("PACKAGING_TEMPLATE", "", asString),
			ExportCommand:  envOr("PACKAGING_EXPORT_COMMAND", "", asString),
			NtfyTopic:      envOr("PACKAGING_NTFY_TOPIC", "", asString),
			NotifyTimeout:  envOr("PACKAGING_NOTIFY_TIMEOUT", 10*time.Second, time.ParseDuration),
			Recipients:     envOr[[]string]("PACKAGING_RECIPIENTS", nil, asList),
			Workers:        envOr("PACKAGING_WORKERS", 2, strconv.Atoi),
			QueueSize:      envOr("PACKAGING_QUEUE_SIZE", 64, strconv.Atoi),
			SideEffectTime: envOr("PACKAGING_SIDE_EFFECT_TIMEOUT", 3*time.Minute, time.ParseDuration),
		},
		Logging: LoggingConfig{
			Level:  envOr("LOG_LEVEL", "info", asString),
			Format: envOr("LOG_FORMAT", "text", asString),
		},
	}, nil
}

func envOr[T any](key string, def T, parse func(string) (T, error)) T {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func asString(s string) (string, error) { return s, nil }

func asInt32(s string) (int32, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	return int32(n), err
}

// asList splits a comma-separated value, dropping blank items.
func asList(s string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Workbook.Dir == "" {
		return NewAppError("CONFIG_ERROR", "WORKBOOK_DIR is required", ErrInvalidInput)
	}
	if c.Packaging.OutputDir == "" {
		return NewAppError("CONFIG_ERROR", "PACKAGING_OUTPUT_DIR is required", ErrInvalidInput)
	}
	if c.Workbook.IOTimeout < 0 {
		return NewAppError("CONFIG_ERROR", "WORKBOOK_IO_TIMEOUT must not be negative", ErrInvalidInput)
	}
	return nil
}
