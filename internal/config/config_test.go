package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets the variables the tests touch; t.Setenv restores them afterwards.
func clearEnv(t *testing.T, vars ...string) {
	t.Helper()
	for _, v := range vars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

// chdirTemp moves into an empty directory so no stray config.yaml is found.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })
}

var testEnvVars = []string{
	"SPIRO_CONFIG",
	"SPIRO_SERVER_PORT",
	"SPIRO_SERVER_READ_TIMEOUT",
	"SPIRO_LOGGING_LEVEL",
	"SPIRO_LOGGING_OUTPUT",
	"SPIRO_DATA_POPULATION_FILE",
	"SPIRO_EXPORT_BOM_PREFIX",
	"SPIRO_SECURITY_ALLOWED_ORIGINS",
	"SPIRO_TRACING_ENABLED",
	"SPIRO_TRACING_EXPORTER",
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		file        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults without env or file",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{
			name: "environment overrides defaults",
			env: map[string]string{
				"SPIRO_SERVER_PORT":              "9090",
				"SPIRO_SERVER_READ_TIMEOUT":      "5s",
				"SPIRO_LOGGING_LEVEL":            "DEBUG",
				"SPIRO_EXPORT_BOM_PREFIX":        "true",
				"SPIRO_SECURITY_ALLOWED_ORIGINS": "http://a.example,http://b.example",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.True(t, cfg.Export.BOMPrefix)
				assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Security.AllowedOrigins)
				assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
			},
		},
		{
			name: "file overrides defaults",
			file: `
server:
  port: 7070
  write_timeout: 45s
data:
  population_file: /srv/population.xlsx
  watch: false
export:
  dir: /srv/exports
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, 45*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "/srv/population.xlsx", cfg.Data.PopulationFile)
				assert.False(t, cfg.Data.Watch)
				assert.Equal(t, "/srv/exports", cfg.Export.Dir)
			},
		},
		{
			name: "environment wins over file",
			env:  map[string]string{"SPIRO_SERVER_PORT": "6060"},
			file: "server:\n  port: 7070\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 6060, cfg.Server.Port)
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"SPIRO_SERVER_PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "unparsable env value",
			env:     map[string]string{"SPIRO_SERVER_PORT": "eighty"},
			wantErr: true,
		},
		{
			name:    "invalid log output",
			env:     map[string]string{"SPIRO_LOGGING_OUTPUT": "syslog"},
			wantErr: true,
		},
		{
			name: "tracing from environment",
			env: map[string]string{
				"SPIRO_TRACING_ENABLED":  "true",
				"SPIRO_TRACING_EXPORTER": "NONE",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Tracing.Enabled)
				assert.Equal(t, "none", cfg.Tracing.Exporter)
				assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
			},
		},
		{
			name:    "unknown trace exporter",
			env:     map[string]string{"SPIRO_TRACING_EXPORTER": "otlp"},
			wantErr: true,
		},
		{
			name:    "malformed file",
			file:    "server: [unclosed",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t, testEnvVars...)
			chdirTemp(t)

			if tt.file != "" {
				t.Setenv("SPIRO_CONFIG", writeConfigFile(t, tt.file))
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "default is valid", mutate: func(c *Config) {}},
		{name: "zero read timeout", mutate: func(c *Config) { c.Server.ReadTimeout = 0 }, wantErr: true},
		{name: "no allowed origins", mutate: func(c *Config) { c.Security.AllowedOrigins = nil }, wantErr: true},
		{name: "unknown log level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: true},
		{name: "file output needs path", mutate: func(c *Config) {
			c.Logging.Output = "file"
			c.Logging.FilePath = ""
		}, wantErr: true},
		{name: "console output needs no path", mutate: func(c *Config) { c.Logging.FilePath = "" }},
		{name: "empty export dir", mutate: func(c *Config) { c.Export.Dir = "" }, wantErr: true},
		{name: "sample ratio above one", mutate: func(c *Config) { c.Tracing.SampleRatio = 1.5 }, wantErr: true},
		{name: "upper case level is normalized", mutate: func(c *Config) { c.Logging.Level = "WARN" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
