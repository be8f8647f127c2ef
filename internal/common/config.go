package common

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `toml:"database" yaml:"database"`
	Server   ServerConfig   `toml:"server" yaml:"server"`
	OCR      OCRConfig      `toml:"ocr" yaml:"ocr"`
	Form     FormConfig     `toml:"form" yaml:"form"`
	Ingest   IngestConfig   `toml:"ingest" yaml:"ingest"`
	Archive  ArchiveConfig  `toml:"archive" yaml:"archive"`
	Logging  LoggingConfig  `toml:"logging" yaml:"logging"`
	Calendar CalendarConfig `toml:"calendar" yaml:"calendar"`
}

// DatabaseConfig holds database-related configuration. A DSN starting with
// postgres:// selects PostgreSQL; anything else is a sqlite file path.
type DatabaseConfig struct {
	DSN          string        `toml:"dsn" yaml:"dsn"`
	MaxOpenConns int           `toml:"max_open_conns" yaml:"max_open_conns"`
	BusyTimeout  time.Duration `toml:"busy_timeout" yaml:"busy_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr     string        `toml:"http_addr" yaml:"http_addr"`
	GRPCAddr     string        `toml:"grpc_addr" yaml:"grpc_addr"`
	APIToken     string        `toml:"api_token" yaml:"api_token"`
	JWTSecret    string        `toml:"jwt_secret" yaml:"jwt_secret"`
	MaxUploadMB  int64         `toml:"max_upload_mb" yaml:"max_upload_mb"`
	RateLimit    int           `toml:"rate_limit" yaml:"rate_limit"`
	RateWindow   time.Duration `toml:"rate_window" yaml:"rate_window"`
	LockFile     string        `toml:"lock_file" yaml:"lock_file"`
	ShutdownWait time.Duration `toml:"shutdown_wait" yaml:"shutdown_wait"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	TesseractBin string `toml:"tesseract_bin" yaml:"tesseract_bin"`
	PdftoppmBin  string `toml:"pdftoppm_bin" yaml:"pdftoppm_bin"`
	TessdataDir  string `toml:"tessdata_dir" yaml:"tessdata_dir"`
	Lang         string `toml:"lang" yaml:"lang"`
	PSM          int    `toml:"psm" yaml:"psm"`
	DPI          int    `toml:"dpi" yaml:"dpi"`
	MaxPages     int    `toml:"max_pages" yaml:"max_pages"`
	Workers      int    `toml:"workers" yaml:"workers"`
	Preprocess   bool   `toml:"preprocess" yaml:"preprocess"`
	TempDir      string `toml:"temp_dir" yaml:"temp_dir"`
}

// FormConfig holds the attendance web form settings.
type FormConfig struct {
	BaseURL       string        `toml:"base_url" yaml:"base_url"`
	LoginURL      string        `toml:"login_url" yaml:"login_url"`
	ContractID    string        `toml:"contract_id" yaml:"contract_id"`
	LoginID       string        `toml:"login_id" yaml:"login_id"`
	Password      string        `toml:"password" yaml:"password"`
	Headless      bool          `toml:"headless" yaml:"headless"`
	BrowserBin    string        `toml:"browser_bin" yaml:"browser_bin"`
	ProfileDir    string        `toml:"profile_dir" yaml:"profile_dir"`
	RetryCount    int           `toml:"retry_count" yaml:"retry_count"`
	RetryInterval time.Duration `toml:"retry_interval" yaml:"retry_interval"`
	Timeout       time.Duration `toml:"timeout" yaml:"timeout"`
	Selectors     FormSelectors `toml:"selectors" yaml:"selectors"`
}

// FormSelectors are CSS selectors on the login and entry pages. EntryURL and the
// entry selectors may contain {date} (YYYY-MM-DD) and {ymd} (YYYYMMDD) placeholders.
type FormSelectors struct {
	ContractID string `toml:"contract_id" yaml:"contract_id"`
	LoginID    string `toml:"login_id" yaml:"login_id"`
	Password   string `toml:"password" yaml:"password"`
	LoginBtn   string `toml:"login_button" yaml:"login_button"`
	LoggedIn   string `toml:"logged_in" yaml:"logged_in"`
	EntryURL   string `toml:"entry_url" yaml:"entry_url"`
	StartTime  string `toml:"start_time" yaml:"start_time"`
	EndTime    string `toml:"end_time" yaml:"end_time"`
	BreakTime  string `toml:"break_time" yaml:"break_time"`
	SaveBtn    string `toml:"save_button" yaml:"save_button"`
}

// IngestConfig holds inbox watching configuration
type IngestConfig struct {
	WatchDirs []string      `toml:"watch_dirs" yaml:"watch_dirs"`
	Debounce  time.Duration `toml:"debounce" yaml:"debounce"`
	Workers   int           `toml:"workers" yaml:"workers"`
	QueueSize int           `toml:"queue_size" yaml:"queue_size"`
	Timeout   time.Duration `toml:"timeout" yaml:"timeout"`
}

// ArchiveConfig selects where processed documents are kept. An empty Endpoint
// archives to Dir; otherwise objects go to the MinIO bucket.
type ArchiveConfig struct {
	Dir       string `toml:"dir" yaml:"dir"`
	Endpoint  string `toml:"endpoint" yaml:"endpoint"`
	Bucket    string `toml:"bucket" yaml:"bucket"`
	AccessKey string `toml:"access_key" yaml:"access_key"`
	SecretKey string `toml:"secret_key" yaml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl" yaml:"use_ssl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// CalendarConfig pins the year and month used for records that carry only a day.
// Zero values mean the current date.
type CalendarConfig struct {
	Year  int `toml:"year" yaml:"year"`
	Month int `toml:"month" yaml:"month"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			DSN:          "attendance.db",
			MaxOpenConns: 4,
			BusyTimeout:  5 * time.Second,
		},
		Server: ServerConfig{
			HTTPAddr:     ":8080",
			GRPCAddr:     ":9090",
			MaxUploadMB:  20,
			RateLimit:    60,
			RateWindow:   time.Minute,
			LockFile:     "attendanced.lock",
			ShutdownWait: 10 * time.Second,
		},
		OCR: OCRConfig{
			TesseractBin: "tesseract",
			PdftoppmBin:  "pdftoppm",
			Lang:         "jpn+eng",
			PSM:          6,
			DPI:          300,
			MaxPages:     50,
			Workers:      2,
			Preprocess:   true,
		},
		Form: FormConfig{
			Headless:      true,
			RetryCount:    3,
			RetryInterval: 5 * time.Second,
			Timeout:       30 * time.Second,
			Selectors: FormSelectors{
				ContractID: "#contractId",
				LoginID:    "#authId",
				Password:   "#password",
				LoginBtn:   "input[type=submit]",
				LoggedIn:   "#menu",
				StartTime:  "input[name=startTime]",
				EndTime:    "input[name=endTime]",
				BreakTime:  "input[name=breakTime]",
				SaveBtn:    "#save",
			},
		},
		Ingest: IngestConfig{
			Debounce:  500 * time.Millisecond,
			Workers:   2,
			QueueSize: 64,
			Timeout:   5 * time.Minute,
		},
		Archive: ArchiveConfig{
			Dir: "archive",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig builds configuration from defaults, an optional TOML or YAML file at
// path, a .env file in the working directory, and environment variables, in that
// order of increasing precedence.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, NewAppError("CONFIG_ERROR", "read config", err)
		default:
			if err := decodeConfig(path, data, &cfg); err != nil {
				return nil, NewAppError("CONFIG_ERROR", "parse config", err)
			}
		}
	}

	// a missing .env is normal
	_ = godotenv.Load()
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeConfig(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	}
}

func applyEnv(c *Config) {
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxOpenConns = getEnvAsInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)

	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.APIToken = getEnv("API_TOKEN", c.Server.APIToken)
	c.Server.JWTSecret = getEnv("JWT_SECRET", c.Server.JWTSecret)

	c.OCR.TesseractBin = getEnv("TESSERACT_BIN", c.OCR.TesseractBin)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.Lang = getEnv("OCR_LANG", c.OCR.Lang)
	c.OCR.DPI = getEnvAsInt("OCR_DPI", c.OCR.DPI)
	c.OCR.Workers = getEnvAsInt("OCR_WORKERS", c.OCR.Workers)
	c.OCR.Preprocess = getEnvAsBool("OCR_PREPROCESS", c.OCR.Preprocess)

	c.Form.BaseURL = getEnv("FORM_BASE_URL", c.Form.BaseURL)
	c.Form.LoginURL = getEnv("FORM_LOGIN_URL", c.Form.LoginURL)
	c.Form.ContractID = getEnv("FORM_CONTRACT_ID", c.Form.ContractID)
	c.Form.LoginID = getEnv("FORM_LOGIN_ID", c.Form.LoginID)
	c.Form.Password = getEnv("FORM_PASSWORD", c.Form.Password)
	c.Form.Headless = getEnvAsBool("FORM_HEADLESS", c.Form.Headless)
	c.Form.BrowserBin = getEnv("FORM_BROWSER_BIN", c.Form.BrowserBin)
	c.Form.ProfileDir = getEnv("FORM_PROFILE_DIR", c.Form.ProfileDir)
	c.Form.RetryCount = getEnvAsInt("FORM_RETRY_COUNT", c.Form.RetryCount)
	c.Form.RetryInterval = getEnvAsDuration("FORM_RETRY_INTERVAL", c.Form.RetryInterval)

	if dirs := getEnv("INGEST_WATCH_DIRS", ""); dirs != "" {
		c.Ingest.WatchDirs = strings.Split(dirs, string(os.PathListSeparator))
	}

	c.Archive.Dir = getEnv("ARCHIVE_DIR", c.Archive.Dir)
	c.Archive.Endpoint = getEnv("MINIO_ENDPOINT", c.Archive.Endpoint)
	c.Archive.Bucket = getEnv("MINIO_BUCKET", c.Archive.Bucket)
	c.Archive.AccessKey = getEnv("MINIO_ACCESS_KEY", c.Archive.AccessKey)
	c.Archive.SecretKey = getEnv("MINIO_SECRET_KEY", c.Archive.SecretKey)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "database.dsn is required", ErrInvalidInput)
	}
	if c.OCR.Lang == "" {
		return NewAppError("CONFIG_ERROR", "ocr.lang is required", ErrInvalidInput)
	}
	if c.OCR.DPI <= 0 || c.OCR.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "ocr.dpi and ocr.workers must be positive", ErrInvalidInput)
	}
	if c.Form.RetryCount < 1 {
		return NewAppError("CONFIG_ERROR", "form.retry_count must be at least 1", ErrInvalidInput)
	}
	if c.Calendar.Month < 0 || c.Calendar.Month > 12 {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("calendar.month out of range: %d", c.Calendar.Month), ErrInvalidInput)
	}
	if c.Archive.Endpoint != "" && c.Archive.Bucket == "" {
		return NewAppError("CONFIG_ERROR", "archive.bucket is required with archive.endpoint", ErrInvalidInput)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown logging.format %q", c.Logging.Format), ErrInvalidInput)
	}
	return nil
}

// Clock returns the reference time for day-only records: the configured year and
// month when set, otherwise now.
func (c CalendarConfig) Clock(now func() time.Time) func() time.Time {
	return func() time.Time {
		t := now()
		if c.Year == 0 && c.Month == 0 {
			return t
		}
		year, month := t.Year(), t.Month()
		if c.Year != 0 {
			year = c.Year
		}
		if c.Month != 0 {
			month = time.Month(c.Month)
		}
		return time.Date(year, month, 1, 0, 0, 0, 0, t.Location())
	}
}
