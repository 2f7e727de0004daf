// Package config loads capnweb server/client configuration, grounded on
// orbas1-Synnergy's pkg/config (YAML-first, environment-overlay pattern),
// simplified to yaml.v3 only — see DESIGN.md for why viper is not wired.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the unified configuration for a capnweb server or client
// process.
type Config struct {
	Listen struct {
		Addr       string `yaml:"addr"`
		RPCPath    string `yaml:"rpc_path"`
		StaticPath string `yaml:"static_path"`
		AdminAddr  string `yaml:"admin_addr"`
	} `yaml:"listen"`

	Codec struct {
		Kind string `yaml:"kind"` // "tagged" | "structured" | "binary"
	} `yaml:"codec"`

	Session struct {
		ReleaseFlushCount      int `yaml:"release_flush_count"`
		ReleaseFlushIntervalMS int `yaml:"release_flush_interval_ms"`
		DrainGraceMS           int `yaml:"drain_grace_ms"`
	} `yaml:"session"`
}

// Default returns the values the demo servers fall back to when no
// config file is supplied.
func Default() Config {
	var c Config
	c.Listen.Addr = ":8000"
	c.Listen.RPCPath = "/rpc"
	c.Listen.StaticPath = "./static"
	c.Listen.AdminAddr = ":8001"
	c.Codec.Kind = "tagged"
	c.Session.ReleaseFlushCount = 32
	c.Session.ReleaseFlushIntervalMS = 50
	c.Session.DrainGraceMS = 2000
	return c
}

// Load loads envFile (if non-empty, via godotenv — missing files are not
// an error) into the process environment and then merges the YAML file at
// path onto Default(). Either argument may be empty. No Config field is
// read from the environment; only the YAML file overrides the defaults.
func Load(path string, envFile string) (Config, error) {
	cfg := Default()
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("config: loading env file %s: %w", envFile, err)
		}
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) ReleaseFlushInterval() time.Duration {
	return time.Duration(c.Session.ReleaseFlushIntervalMS) * time.Millisecond
}

func (c Config) DrainGrace() time.Duration {
	return time.Duration(c.Session.DrainGraceMS) * time.Millisecond
}
