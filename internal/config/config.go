package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "APP_"

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Logging   LoggingConfig   `toml:"logging"`
	Transcode TranscodeConfig `toml:"transcode"`
	Ingest    IngestConfig    `toml:"ingest"`
	Ngrok     NgrokConfig     `toml:"ngrok"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port         string `toml:"port"`
	Host         string `toml:"host"`
	EnableCORS   bool   `toml:"enable_cors"`
	ReadTimeout  int    `toml:"read_timeout_seconds"`
	WriteTimeout int    `toml:"write_timeout_seconds"`
	IdleTimeout  int    `toml:"idle_timeout_seconds"`
}

// DatabaseConfig contains database-related configuration
type DatabaseConfig struct {
	Path           string `toml:"path"`
	MaxConnections int    `toml:"max_connections"`
	EchoSQL        bool   `toml:"echo_sql"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level          string `toml:"level"`
	Format         string `toml:"format"`
	File           string `toml:"file"`
	RequestLogging bool   `toml:"request_logging"`
}

// TranscodeConfig controls the background re-encoder
type TranscodeConfig struct {
	FFmpegPath    string `toml:"ffmpeg_path"`
	BitrateKbps   int    `toml:"bitrate_kbps"`
	MaxConcurrent int    `toml:"max_concurrent"`
}

// IngestConfig controls the inbox folder watcher
type IngestConfig struct {
	Enabled  bool   `toml:"enabled"`
	InboxDir string `toml:"inbox_dir"`
}

// NgrokConfig contains ngrok tunnel configuration
type NgrokConfig struct {
	Enabled   bool   `toml:"enabled"`
	AuthToken string `toml:"auth_token"`
	Domain    string `toml:"domain"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8000",
			Host:         "0.0.0.0",
			EnableCORS:   true,
			ReadTimeout:  30,
			WriteTimeout: 60,
			IdleTimeout:  120,
		},
		Database: DatabaseConfig{
			Path:           "./musiccatalog.db",
			MaxConnections: 5,
			EchoSQL:        false,
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			File:           "",
			RequestLogging: true,
		},
		Transcode: TranscodeConfig{
			FFmpegPath:    "ffmpeg",
			BitrateKbps:   64,
			MaxConcurrent: 2,
		},
		Ingest: IngestConfig{
			Enabled:  false,
			InboxDir: "./inbox",
		},
		Ngrok: NgrokConfig{
			Enabled: false,
		},
	}
}

// LoadConfig loads configuration from a TOML file, then applies .env and
// APP_ environment overrides
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
	} else if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	envFile := filepath.Join(filepath.Dir(configPath), ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from APP_* variables resolved through getenv
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvPrefix + "DATABASE_URL"); v != "" {
		c.Database.Path = databasePathFromURL(v)
	}
	if v := getenv(EnvPrefix + "ECHO_SQL"); v != "" {
		echo, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sECHO_SQL %q: %w", EnvPrefix, v, err)
		}
		c.Database.EchoSQL = echo
	}
	if v := getenv(EnvPrefix + "PORT"); v != "" {
		c.Server.Port = v
	}
	if v := getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := getenv(EnvPrefix + "FFMPEG_PATH"); v != "" {
		c.Transcode.FFmpegPath = v
	}
	if v := getenv("NGROK_AUTHTOKEN"); v != "" && c.Ngrok.AuthToken == "" {
		c.Ngrok.AuthToken = v
	}
	return nil
}

// databasePathFromURL accepts either a bare path or a sqlite:// URL
func databasePathFromURL(v string) string {
	for _, prefix := range []string{"sqlite3://", "sqlite:///", "sqlite://"} {
		if strings.HasPrefix(v, prefix) {
			return strings.TrimPrefix(v, prefix)
		}
	}
	return v
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	header := `# Music Catalog Configuration
# Values here can be overridden with APP_* environment variables or a .env file
# next to this config (APP_DATABASE_URL, APP_ECHO_SQL, APP_PORT, APP_LOG_LEVEL).

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 || c.Server.IdleTimeout < 0 {
		return fmt.Errorf("server timeouts must be positive")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	if c.Transcode.FFmpegPath == "" {
		return fmt.Errorf("transcode ffmpeg path cannot be empty")
	}
	if c.Transcode.BitrateKbps < 1 {
		return fmt.Errorf("transcode bitrate must be positive")
	}
	if c.Transcode.MaxConcurrent < 1 {
		return fmt.Errorf("transcode max concurrent must be at least 1")
	}

	if c.Ingest.Enabled && c.Ingest.InboxDir == "" {
		return fmt.Errorf("ingest inbox directory cannot be empty when ingest is enabled")
	}

	return nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// NewLogger builds the root logger described by the logging section
func (c *Config) NewLogger() (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)

	if c.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if c.Logging.File != "" {
		f, err := os.OpenFile(c.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	return logger, nil
}
