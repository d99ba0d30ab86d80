package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// fileConfig represents the vllmc configuration file
// (~/.config/vllmc/config.yaml). Pointer fields distinguish "not set" from
// zero values.
type fileConfig struct {
	Host    string   `yaml:"host"`
	Port    *int64   `yaml:"port"`
	Timeout *float64 `yaml:"timeout"` // seconds

	// Tokenizer points at a tokenizer.json (or a model directory holding
	// one) used by --decode.
	Tokenizer string `yaml:"tokenizer"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "vllmc", "config.yaml")
}

// loadConfig reads the config file. Returns a zero fileConfig if the file
// doesn't exist or doesn't parse.
func loadConfig() fileConfig {
	path := configPath()
	if path == "" {
		return fileConfig{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}
	}
	return cfg
}

// applyConnConfig applies config file defaults to connection variables when
// the corresponding CLI flag was not explicitly set.
func applyConnConfig(c *cli.Command, cfg fileConfig) {
	if cfg.Host != "" && !c.IsSet("host") {
		host = cfg.Host
	}
	if cfg.Port != nil && !c.IsSet("port") {
		port = *cfg.Port
	}
	if cfg.Timeout != nil && !c.IsSet("timeout") {
		timeout = *cfg.Timeout
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
	if cfg.Tokenizer != "" && !c.IsSet("tokenizer") {
		tokenizerPath = cfg.Tokenizer
	}
}
