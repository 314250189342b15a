package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL        = "http://127.0.0.1:8000"
	DefaultTimeout        = 10 * time.Minute
	DefaultShellTimeout   = 2 * time.Minute
	DefaultHistoryFile    = ".sregrade_history"
	DefaultTranscriptPath = "results/transcript.jsonl"
)

// ShellConfig controls the commands the agent runs against the cluster.
type ShellConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	WorkDir string        `yaml:"workDir"`
}

// Config holds CLI configuration.
type Config struct {
	BaseURL        string        `yaml:"baseURL"`
	Timeout        time.Duration `yaml:"timeout"`
	PrettyJSON     *bool         `yaml:"prettyJSON"`
	HistoryFile    string        `yaml:"historyFile"`
	TranscriptPath string        `yaml:"transcriptPath"`
	Shell          ShellConfig   `yaml:"shell"`
}

// Load reads path and fills defaults. A missing file is only an error when required is set.
func Load(path string, required bool) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file failed: %w", err)
		}
	case required || !os.IsNotExist(err):
		return cfg, fmt.Errorf("read config file failed: %w", err)
	}
	applyDefaults(&cfg, os.Getenv)
	return cfg, nil
}

func applyDefaults(cfg *Config, getenv func(string) string) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
		host, port := getenv("API_HOSTNAME"), getenv("API_PORT")
		if host != "" || port != "" {
			if host == "" || host == "0.0.0.0" {
				host = "127.0.0.1"
			}
			if port == "" {
				port = "8000"
			}
			cfg.BaseURL = fmt.Sprintf("http://%s:%s", host, port)
		}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.PrettyJSON == nil {
		value := true
		cfg.PrettyJSON = &value
	}
	if cfg.HistoryFile == "" {
		cfg.HistoryFile = DefaultHistoryFile
	}
	if cfg.TranscriptPath == "" {
		cfg.TranscriptPath = DefaultTranscriptPath
	}
	if cfg.Shell.Timeout == 0 {
		cfg.Shell.Timeout = DefaultShellTimeout
	}
}
