package main

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/app"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/rpcclient"
	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration of the daemon. The configuration of
// the harvester itself is part of the genesis and lives in the store.
type Config struct {
	// DataDir holds the leveldb database. Relative paths are resolved
	// against the home directory.
	DataDir  string `yaml:"data_dir"`
	Listen   string `yaml:"listen"`
	LogLevel string `yaml:"log_level"`
	Workers  int    `yaml:"workers"`

	Relay struct {
		URL         string        `yaml:"url"`
		Timeout     time.Duration `yaml:"timeout"`
		StatusRetry time.Duration `yaml:"status_retry"`
	} `yaml:"relay"`

	// Head configures the local chain head, used when the relay does not
	// provide a status.
	Head struct {
		Local       bool          `yaml:"local"`
		Genesis     time.Time     `yaml:"genesis"`
		EpochLength time.Duration `yaml:"epoch_length"`
	} `yaml:"head"`

	Schedule struct {
		// Caller is the account scheduled triggers are submitted as.
		Caller  harvest.AccountID `yaml:"caller"`
		Harvest string            `yaml:"harvest"`
		Release string            `yaml:"release"`
	} `yaml:"schedule"`

	// Tokens maps API bearer tokens to the account of the caller.
	Tokens map[string]harvest.AccountID `yaml:"tokens"`
}

// LoadConfig reads the configuration from a YAML file, then applies the
// environment overrides and the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	var c Config
	raw, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(errors.ErrInput, "read config: %s", err)
	}
	if len(raw) > 0 {
		if err := yaml.Unmarshal(raw, &c); err != nil {
			return nil, errors.Wrapf(errors.ErrInput, "parse config: %s", err)
		}
	}

	if v := os.Getenv("HARVESTD_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("HARVESTD_RELAY_URL"); v != "" {
		c.Relay.URL = v
	}
	if v := os.Getenv("HARVESTD_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("HARVESTD_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("HARVESTD_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrInput, "HARVESTD_WORKERS: %s", err)
		}
		c.Workers = n
	}

	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8480"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Workers == 0 {
		c.Workers = app.DefaultWorkers
	}
	if c.Relay.Timeout == 0 {
		c.Relay.Timeout = rpcclient.DefaultTimeout
	}
	if c.Relay.StatusRetry == 0 {
		c.Relay.StatusRetry = rpcclient.DefaultStatusRetry
	}
	if c.Head.EpochLength == 0 {
		c.Head.EpochLength = 12 * time.Hour
	}
	return &c, nil
}

// Validate returns an error if the daemon cannot start with this
// configuration.
func (c *Config) Validate() error {
	var errs error
	if c.Relay.URL == "" {
		errs = errors.AppendField(errs, "Relay.URL", errors.ErrEmpty)
	}
	if c.Head.Local && c.Head.Genesis.IsZero() {
		errs = errors.AppendField(errs, "Head.Genesis", errors.ErrEmpty)
	}
	if c.Workers < 0 {
		errs = errors.AppendField(errs, "Workers", errors.Wrap(errors.ErrInput, "negative"))
	}
	if c.Schedule.Harvest != "" || c.Schedule.Release != "" {
		errs = errors.AppendField(errs, "Schedule.Caller", c.Schedule.Caller.Validate())
	}
	for token, caller := range c.Tokens {
		if token == "" {
			errs = errors.AppendField(errs, "Tokens", errors.Wrap(errors.ErrEmpty, "token"))
		}
		errs = errors.AppendField(errs, "Tokens", caller.Validate())
	}
	return errs
}

// dataPath returns the location of the database.
func (c *Config) dataPath(home string) string {
	if filepath.IsAbs(c.DataDir) {
		return c.DataDir
	}
	return filepath.Join(home, c.DataDir)
}

// chainHead returns the head the engine operates at.
func (c *Config) chainHead(client *rpcclient.Client) (harvest.ChainHead, error) {
	if c.Head.Local {
		return rpcclient.NewLocalHead(nil, c.Head.Genesis, c.Head.EpochLength)
	}
	return client, nil
}
