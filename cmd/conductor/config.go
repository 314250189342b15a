package main

import (
	"fmt"
	"net"
	"os"
	"time"

	"sregrade/internal/common/cache"
	"sregrade/internal/common/mq"
	"sregrade/internal/common/storage"
	"sregrade/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHost            = "0.0.0.0"
	defaultPort            = "8000"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Minute
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultPollInterval    = time.Second
	defaultProblemTimeout  = 30 * time.Minute
	defaultCommandTimeout  = 10 * time.Minute
	defaultResultsDir      = "results"
	defaultResultsTopic    = "sregrade.results"
	defaultClientID        = "sregrade-conductor"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// ConductorConfig holds conductor settings.
type ConductorConfig struct {
	// RequiredBinaries are looked up on PATH before each deployment. Unset means kubectl and helm.
	RequiredBinaries []string      `yaml:"requiredBinaries"`
	CommandTimeout   time.Duration `yaml:"commandTimeout"`
	WorkDir          string        `yaml:"workDir"`
}

// DriverConfig holds sweep settings.
type DriverConfig struct {
	Problems       []string      `yaml:"problems"`
	Filter         string        `yaml:"filter"`
	PollInterval   time.Duration `yaml:"pollInterval"`
	ProblemTimeout time.Duration `yaml:"problemTimeout"`
	RunNoop        bool          `yaml:"runNoop"`
	ResultsDir     string        `yaml:"resultsDir"`
}

// CatalogConfig points at the problem catalog. An empty path uses the built-in catalog.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// RedisExportConfig stores every finished run in Redis.
type RedisExportConfig struct {
	Enabled bool              `yaml:"enabled"`
	Redis   cache.RedisConfig `yaml:"redis"`
	Prefix  string            `yaml:"prefix"`
	TTL     time.Duration     `yaml:"ttl"`
}

// KafkaExportConfig publishes every finished run to a topic.
type KafkaExportConfig struct {
	Enabled        bool   `yaml:"enabled"`
	mq.KafkaConfig `yaml:",inline"`
	Topic          string `yaml:"topic"`
}

// ObjectExportConfig uploads the result CSV files to a bucket.
type ObjectExportConfig struct {
	Enabled  bool                `yaml:"enabled"`
	MinIO    storage.MinIOConfig `yaml:"minio"`
	Prefix   string              `yaml:"prefix"`
	Compress bool                `yaml:"compress"`
}

// ExportConfig holds the optional result sinks.
type ExportConfig struct {
	Redis  RedisExportConfig  `yaml:"redis"`
	Kafka  KafkaExportConfig  `yaml:"kafka"`
	Object ObjectExportConfig `yaml:"object"`
}

// AppConfig holds conductor process config.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Logger    logger.Config   `yaml:"logger"`
	Conductor ConductorConfig `yaml:"conductor"`
	Driver    DriverConfig    `yaml:"driver"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Export    ExportConfig    `yaml:"export"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

// loadAppConfig reads path when it exists and fills defaults. A missing file at the default
// path is not an error so the binary runs with no config at all.
func loadAppConfig(path string, required bool) (*AppConfig, error) {
	var cfg AppConfig
	if _, err := os.Stat(path); err == nil || required {
		if err := loadYAML(path, &cfg); err != nil {
			return nil, err
		}
	}
	applyDefaults(&cfg, os.Getenv)
	if err := cfg.Export.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig, getenv func(string) string) {
	host, port := defaultHost, defaultPort
	if cfg.Server.Addr != "" {
		if h, p, err := net.SplitHostPort(cfg.Server.Addr); err == nil {
			host, port = h, p
		}
	}
	if v := getenv("API_HOSTNAME"); v != "" {
		host = v
	}
	if v := getenv("API_PORT"); v != "" {
		port = v
	}
	cfg.Server.Addr = net.JoinHostPort(host, port)

	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "console"
	}
	if cfg.Logger.OutputPath == "" {
		cfg.Logger.OutputPath = "stdout"
	}
	if cfg.Logger.ErrorPath == "" {
		cfg.Logger.ErrorPath = "stderr"
	}
	if cfg.Conductor.CommandTimeout == 0 {
		cfg.Conductor.CommandTimeout = defaultCommandTimeout
	}
	if cfg.Driver.PollInterval == 0 {
		cfg.Driver.PollInterval = defaultPollInterval
	}
	if cfg.Driver.ProblemTimeout == 0 {
		cfg.Driver.ProblemTimeout = defaultProblemTimeout
	}
	if cfg.Driver.ResultsDir == "" {
		cfg.Driver.ResultsDir = defaultResultsDir
	}
	if cfg.Export.Kafka.Topic == "" {
		cfg.Export.Kafka.Topic = defaultResultsTopic
	}
	if cfg.Export.Kafka.ClientID == "" {
		cfg.Export.Kafka.ClientID = defaultClientID
	}
}

func (c ExportConfig) validate() error {
	if c.Redis.Enabled && c.Redis.Redis.Addr == "" {
		return fmt.Errorf("export.redis.redis.addr is required when redis export is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("export.kafka.brokers are required when kafka export is enabled")
	}
	if c.Object.Enabled && c.Object.MinIO.Bucket == "" {
		return fmt.Errorf("export.object.minio.bucket is required when object export is enabled")
	}
	return nil
}
