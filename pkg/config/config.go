// Package config loads service configuration from an optional YAML file
// and APPLYFLOW_ environment variables.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	Model    ModelConfig    `mapstructure:"model"`
	Sessions SessionsConfig `mapstructure:"sessions"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

type ModelConfig struct {
	APIKey        string `mapstructure:"api_key"`
	BaseURL       string `mapstructure:"base_url"`
	Name          string `mapstructure:"name"`
	MaxIterations int    `mapstructure:"max_iterations"`
}

type SessionsConfig struct {
	// Backend is file or redis.
	Backend          string      `mapstructure:"backend"`
	Dir              string      `mapstructure:"dir"`
	Redis            RedisConfig `mapstructure:"redis"`
	WindowSize       int         `mapstructure:"window_size"`
	TruncateResults  bool        `mapstructure:"truncate_results"`
	MaxResultBytes   int         `mapstructure:"max_result_bytes"`
	PersistToolTurns bool        `mapstructure:"persist_tool_turns"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type BackendConfig struct {
	ApplicationsURL string `mapstructure:"applications_url"`
	ResumesURL      string `mapstructure:"resumes_url"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model.name", "gpt-4o-mini")
	v.SetDefault("model.max_iterations", 10)
	v.SetDefault("sessions.backend", "file")
	v.SetDefault("sessions.dir", "sessions")
	v.SetDefault("sessions.redis.addr", "localhost:6379")
	v.SetDefault("sessions.window_size", 20)
	v.SetDefault("sessions.truncate_results", true)
	v.SetDefault("sessions.max_result_bytes", 16*1024)
	v.SetDefault("sessions.persist_tool_turns", false)
	v.SetDefault("backend.applications_url", "http://localhost:9001")
	v.SetDefault("backend.resumes_url", "http://localhost:9002")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads configuration from configPath (optional, may be empty) with
// APPLYFLOW_ environment variables taking precedence. Each instance uses
// its own viper, so tests can load different configurations side by side.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("applyflow")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", configPath)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Sessions.Backend {
	case "file", "redis":
	default:
		return errors.Errorf("invalid sessions backend %q, must be file or redis", c.Sessions.Backend)
	}
	if c.Sessions.WindowSize < 0 {
		return errors.New("sessions.window_size must not be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}
