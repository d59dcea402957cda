// Package config loads application settings from .env files, the environment
// and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. SALESDASH_SERVER_PORT.
const EnvPrefix = "SALESDASH"

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Cache    CacheConfig    `mapstructure:"cache" yaml:"cache"`
	Scratch  ScratchConfig  `mapstructure:"scratch" yaml:"scratch"`
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
}

type ServerConfig struct {
	Host               string        `mapstructure:"host" yaml:"host"`
	Port               int           `mapstructure:"port" yaml:"port"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	RateLimitPerSecond float64       `mapstructure:"rate_limit_per_second" yaml:"rate_limit_per_second"`
	RateLimitBurst     int           `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst"`
	AllowedOrigins     []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	SessionKey         string        `mapstructure:"session_key" yaml:"session_key"`
	MaxUploadBytes     int64         `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes"`
}

type StorageConfig struct {
	UploadDir string `mapstructure:"upload_dir" yaml:"upload_dir"`
}

type CacheConfig struct {
	Size int           `mapstructure:"size" yaml:"size"`
	TTL  time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type ScratchConfig struct {
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl"`
	PurgeSchedule string        `mapstructure:"purge_schedule" yaml:"purge_schedule"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type AnalysisConfig struct {
	DefaultK          int   `mapstructure:"default_k" yaml:"default_k"`
	DefaultComponents int   `mapstructure:"default_components" yaml:"default_components"`
	SampleRows        int   `mapstructure:"sample_rows" yaml:"sample_rows"`
	SampleSeed        int64 `mapstructure:"sample_seed" yaml:"sample_seed"`
	SampleFallback    bool  `mapstructure:"sample_fallback" yaml:"sample_fallback"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.rate_limit_per_second", 10.0)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.session_key", "change-me-session-key-32-bytes!!")
	v.SetDefault("server.max_upload_bytes", 50<<20)

	v.SetDefault("storage.upload_dir", "./data/uploads")

	v.SetDefault("cache.size", 64)
	v.SetDefault("cache.ttl", 30*time.Minute)

	v.SetDefault("scratch.ttl", 2*time.Hour)
	v.SetDefault("scratch.purge_schedule", "*/15 * * * *")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("analysis.default_k", 3)
	v.SetDefault("analysis.default_components", 2)
	v.SetDefault("analysis.sample_rows", 240)
	v.SetDefault("analysis.sample_seed", 42)
	v.SetDefault("analysis.sample_fallback", false)
}

// Load reads configuration from defaults, an optional YAML file and the
// environment. Precedence: env > config file > defaults.
func Load(cfgFile string) (*Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("salesdash")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Comma separated origins from the environment arrive as a single element.
	if len(cfg.Server.AllowedOrigins) == 1 && strings.Contains(cfg.Server.AllowedOrigins[0], ",") {
		cfg.Server.AllowedOrigins = splitList(cfg.Server.AllowedOrigins[0])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimitPerSecond <= 0 {
		errs = append(errs, errors.New("server.rate_limit_per_second must be positive"))
	}
	if c.Server.RateLimitBurst < 1 {
		errs = append(errs, errors.New("server.rate_limit_burst must be at least 1"))
	}
	if len(c.Server.SessionKey) < 32 {
		errs = append(errs, errors.New("server.session_key must be at least 32 bytes"))
	}
	if c.Storage.UploadDir == "" {
		errs = append(errs, errors.New("storage.upload_dir is required"))
	}
	if c.Cache.Size < 0 {
		errs = append(errs, errors.New("cache.size cannot be negative"))
	}

	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logger.level %q is not one of debug, info, warn, error", c.Logger.Level))
	}
	switch strings.ToLower(c.Logger.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("logger.format %q must be json or text", c.Logger.Format))
	}

	if c.Analysis.DefaultK < 1 {
		errs = append(errs, errors.New("analysis.default_k must be at least 1"))
	}
	if c.Analysis.DefaultComponents < 1 {
		errs = append(errs, errors.New("analysis.default_components must be at least 1"))
	}
	if c.Analysis.SampleRows < 1 {
		errs = append(errs, errors.New("analysis.sample_rows must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Address returns the host:port the HTTP server listens on
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
