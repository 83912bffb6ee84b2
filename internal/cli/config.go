// Package cli holds configuration and exit handling shared by the sqldsl
// command.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/dropbox/sqldsl/database/sqlexec"
	"github.com/dropbox/sqldsl/dlog"
)

const (
	maxWalkDepth = 25
	envPrefix    = "SQLDSL"
)

// Config is the effective sqldsl configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" json:"database"`
	Render   RenderConfig   `mapstructure:"render" json:"render"`
	Log      LogConfig      `mapstructure:"log" json:"log"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver" json:"driver"`
	DSN    string `mapstructure:"dsn" json:"dsn"`
	// Dialect overrides the placeholder style implied by the driver.
	Dialect string `mapstructure:"dialect" json:"dialect"`

	MaxOpenConns    int           `mapstructure:"max_open_conns" json:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" json:"conn_max_lifetime"`
}

type RenderConfig struct {
	AllowNonRenderingWhere bool `mapstructure:"allow_non_rendering_where" json:"allow_non_rendering_where"`
}

type LogConfig struct {
	Level         string        `mapstructure:"level" json:"level"`
	Format        string        `mapstructure:"format" json:"format"`
	BufferSize    int           `mapstructure:"buffer_size" json:"buffer_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval" json:"flush_interval"`
}

// LoadConfig loads configuration with precedence env > config file >
// defaults.  Variables from envFile, when it exists, are added to the
// environment first without replacing variables that are already set.
//
// Returns the config and the path of the config file used, which is empty
// when none was found.
func LoadConfig(explicitConfigPath string, envFile string) (*Config, string, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, "", fmt.Errorf("loading %s: %w", envFile, err)
			}
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath, err := findConfigFile(explicitConfigPath)
	if err != nil {
		return nil, "", err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, configPath, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, configPath, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, configPath, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.dialect", "")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.conn_max_lifetime", 0)

	v.SetDefault("render.allow_non_rendering_where", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.buffer_size", 0)
	v.SetDefault("log.flush_interval", time.Second)
}

// findConfigFile returns explicitPath after checking it exists.  Otherwise
// it walks up from cwd looking for sqldsl.yaml or sqldsl.yml, stopping at a
// .git directory or after maxWalkDepth levels.
func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting cwd: %w", err)
	}

	dir := cwd
	for i := 0; i < maxWalkDepth; i++ {
		for _, name := range []string{"sqldsl.yaml", "sqldsl.yml"} {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}

		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", nil
}

// Executor returns the sqlexec configuration for the database section.
func (c *Config) Executor() sqlexec.Config {
	return sqlexec.Config{
		Driver:          c.Database.Driver,
		DSN:             c.Database.DSN,
		Dialect:         c.Database.Dialect,
		MaxOpenConns:    c.Database.MaxOpenConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
	}
}

// Logging returns the dlog options for the log section.
func (c *Config) Logging() dlog.Options {
	return dlog.Options{
		Level:         c.Log.Level,
		Format:        c.Log.Format,
		BufferSize:    c.Log.BufferSize,
		FlushInterval: c.Log.FlushInterval,
	}
}

// DialectName is the dialect statements are rendered for: the explicit
// dialect, else the driver, else mysql.
func (c *Config) DialectName() string {
	if c.Database.Dialect != "" {
		return c.Database.Dialect
	}
	if c.Database.Driver != "" {
		return c.Database.Driver
	}
	return "mysql"
}

// RedactedDSN returns the DSN with any password replaced, for display.
func (c *Config) RedactedDSN() string {
	dsn := c.Database.DSN
	if dsn == "" {
		return ""
	}
	if strings.ToLower(c.Database.Driver) == sqlexec.MySQLDriver {
		if at := strings.LastIndex(dsn, "@"); at > 0 {
			if colon := strings.Index(dsn[:at], ":"); colon >= 0 {
				return dsn[:colon+1] + "xxxxx" + dsn[at:]
			}
		}
		return dsn
	}
	if scheme := strings.Index(dsn, "://"); scheme >= 0 {
		rest := dsn[scheme+3:]
		if at := strings.LastIndex(rest, "@"); at > 0 {
			if colon := strings.Index(rest[:at], ":"); colon >= 0 {
				return dsn[:scheme+3] + rest[:colon+1] + "xxxxx" + rest[at:]
			}
		}
	}
	return dsn
}
