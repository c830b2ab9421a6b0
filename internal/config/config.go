package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "SPIRO"

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Data     DataConfig     `yaml:"data" envconfig:"DATA"`
	Export   ExportConfig   `yaml:"export" envconfig:"EXPORT"`
	Tracing  TracingConfig  `yaml:"tracing" envconfig:"TRACING"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" validate:"gte=0"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" validate:"gte=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	EnableMetrics   bool          `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" validate:"required,min=1"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gt=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"min=1"`
}

// LoggingConfig contains logging configuration. Output is always JSON.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
}

// DataConfig points at the population the summary table is built from.
type DataConfig struct {
	PopulationFile string `yaml:"population_file" envconfig:"POPULATION_FILE"`
	Watch          bool   `yaml:"watch" envconfig:"WATCH"`
}

// ExportConfig controls generated downloads.
type ExportConfig struct {
	Dir          string `yaml:"dir" envconfig:"DIR" validate:"required"`
	BOMPrefix    bool   `yaml:"bom_prefix" envconfig:"BOM_PREFIX"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES" validate:"min=1"`
}

// TracingConfig controls OpenTelemetry tracing. Spans are exported as JSON
// to stderr; "none" keeps the propagator but records nothing.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" envconfig:"ENABLED"`
	Exporter    string  `yaml:"exporter" envconfig:"EXPORTER" validate:"oneof=stdout none"`
	SampleRatio float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
}

// Load builds the configuration from defaults, the optional YAML file and the
// environment, then validates it.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Fields without a matching variable keep the value from the file or the default.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file at filePath onto cfg.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks field constraints and normalizes the logging section.
func (c *Config) Validate() error {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Output = strings.ToLower(c.Logging.Output)
	c.Tracing.Exporter = strings.ToLower(c.Tracing.Exporter)

	if err := validator.New().Struct(c); err != nil {
		return err
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			EnableMetrics:   true,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Data: DataConfig{
			PopulationFile: "data/spirometry_anthropometric_clean.csv",
			Watch:          true,
		},
		Export: ExportConfig{
			Dir:          "exports",
			BOMPrefix:    false,
			MaxBodyBytes: 32 << 20, // 32MB
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Exporter:    "stdout",
			SampleRatio: 1.0,
		},
	}
}
