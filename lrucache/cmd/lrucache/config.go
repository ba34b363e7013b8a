package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"
)

// Config is read from the file given by --config; flags set on the
// command line take precedence.
type Config struct {
	Capacity int    `yaml:"capacity"`
	Addr     string `yaml:"addr"`
	LogLevel string `yaml:"log_level"`
	Dev      bool   `yaml:"dev"`
}

func defaultConfig() Config {
	return Config{
		Capacity: 1024,
		Addr:     "127.0.0.1:8080",
		LogLevel: "info",
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(data) == 0 {
		return cfg, nil
	}

	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return cfg, nil
}

// applyFlags copies flags the user set explicitly over the file values.
func (c *Config) applyFlags(flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "capacity":
			c.Capacity, err = flags.GetInt(f.Name)
		case "addr":
			c.Addr, err = flags.GetString(f.Name)
		case "log-level":
			c.LogLevel, err = flags.GetString(f.Name)
		case "dev":
			c.Dev, err = flags.GetBool(f.Name)
		}
	})
	return err
}

func (c *Config) validate() error {
	if c.Capacity < 1 {
		return fmt.Errorf("capacity must be positive, got %d", c.Capacity)
	}
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func (c *Config) newLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if c.Dev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
