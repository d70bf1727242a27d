package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server    ServerConfig    `envconfig:"SERVER"`
	Dataset   DatasetConfig   `envconfig:"DATASET"`
	Dashboard DashboardConfig `envconfig:"DASHBOARD"`
	Logger    LoggerConfig    `envconfig:"LOG"`
	Tracing   TracingConfig   `envconfig:"TRACING"`
	Security  SecurityConfig  `envconfig:"SECURITY"`
}

type ServerConfig struct {
	Host            string        `split_words:"true" default:"localhost"`
	Port            int           `split_words:"true" default:"8084" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `split_words:"true" default:"10s" validate:"gt=0"`
	WriteTimeout    time.Duration `split_words:"true" default:"10s" validate:"gt=0"`
	IdleTimeout     time.Duration `split_words:"true" default:"60s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"30s" validate:"gt=0"`
}

type DatasetConfig struct {
	Path        string        `split_words:"true" default:"GSD.csv" validate:"required"`
	CacheDir    string        `split_words:"true" default:".cache"`
	LoadTimeout time.Duration `split_words:"true" default:"30s" validate:"gt=0"`
	Workers     int           `split_words:"true" default:"10" validate:"min=1,max=64"`
}

type DashboardConfig struct {
	ChartsFile    string `split_words:"true"`
	HistogramBins int    `split_words:"true" default:"0" validate:"min=0,max=500"`
}

type LoggerConfig struct {
	Level  string `split_words:"true" default:"info" validate:"oneof=debug info warn error"`
	Format string `split_words:"true" default:"json" validate:"oneof=json text"`
}

type TracingConfig struct {
	Exporter    string  `split_words:"true" default:"none" validate:"oneof=none stdout"`
	SampleRatio float64 `split_words:"true" default:"1" validate:"gte=0,lte=1"`
}

type SecurityConfig struct {
	RateLimitEnabled bool     `split_words:"true" default:"true"`
	RateLimitRPS     int      `split_words:"true" default:"100" validate:"gt=0"`
	RateLimitBurst   int      `split_words:"true" default:"10" validate:"gt=0"`
	AllowedOrigins   []string `split_words:"true" default:"http://localhost:8084"`
	TrustedProxies   []string `split_words:"true" default:"127.0.0.1"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
