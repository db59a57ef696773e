// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/taskflow/lib/task"
)

// EnvConfig names the environment variable Load reads the config path
// from.
const EnvConfig = "TASKFLOW_CONFIG"

// Transport values for TrackerConfig.Transport.
const (
	TransportCLI  = "cli"
	TransportREST = "rest"
)

// Config is the taskflow configuration.
type Config struct {
	// Home is the data directory. ${TASKFLOW_HOME} in other paths
	// expands to it.
	// Default: ~/.local/share/taskflow
	Home string `yaml:"home" json:"home"`

	// Database is the SQLite task database.
	// Default: ${TASKFLOW_HOME}/tasks.db
	Database string `yaml:"database" json:"database"`

	// Repository is the git working tree tasks are tied to.
	// Default: . (the current directory)
	Repository string `yaml:"repository" json:"repository"`

	// MainBranch is the merge target on completion.
	// Default: main
	MainBranch string `yaml:"main_branch" json:"main_branch"`

	// BranchPrefix is prepended to derived task branch names.
	// Default: task/
	BranchPrefix string `yaml:"branch_prefix" json:"branch_prefix"`

	// GatewayTimeout bounds every git, gh, and GitHub API call, as a Go
	// duration string.
	// Default: 30s
	GatewayTimeout string `yaml:"gateway_timeout" json:"gateway_timeout"`

	Tracker TrackerConfig `yaml:"tracker" json:"tracker"`
	Pull    PullConfig    `yaml:"pull" json:"pull"`
}

// TrackerConfig configures the issue tracker.
type TrackerConfig struct {
	// Provider is the tracker kind. Only "github" is supported.
	Provider string `yaml:"provider" json:"provider"`

	// Transport is "cli" (the gh tool and its login) or "rest" (the
	// REST API with a token from TokenEnv).
	// Default: cli
	Transport string `yaml:"transport" json:"transport"`

	// Repository is "owner/repo". Empty means detect it from the origin
	// remote of the working tree.
	Repository string `yaml:"repository" json:"repository"`

	// Host is matched against the remote URL during detection.
	// Default: github.com
	Host string `yaml:"host" json:"host"`

	// APIURL is the REST base URL.
	// Default: https://api.github.com
	APIURL string `yaml:"api_url" json:"api_url"`

	// TokenEnv names the environment variable holding the REST token.
	// Default: GITHUB_TOKEN
	TokenEnv string `yaml:"token_env" json:"token_env"`

	// MarkerLabel is added to every pushed issue.
	// Default: synced-from-local
	MarkerLabel string `yaml:"marker_label" json:"marker_label"`
}

// PullConfig holds the defaults for pulling issues.
type PullConfig struct {
	// Limit is the maximum number of issues fetched.
	// Default: 20
	Limit int `yaml:"limit" json:"limit"`

	// State is "open", "closed", or "all".
	// Default: all
	State string `yaml:"state" json:"state"`
}

// Default returns the configuration used when no file is given, and the
// base every file is merged onto.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Home:           filepath.Join(homeDir, ".local", "share", "taskflow"),
		Database:       "${TASKFLOW_HOME}/tasks.db",
		Repository:     ".",
		MainBranch:     "main",
		BranchPrefix:   "task/",
		GatewayTimeout: "30s",
		Tracker: TrackerConfig{
			Provider:    "github",
			Transport:   TransportCLI,
			Host:        "github.com",
			APIURL:      "https://api.github.com",
			TokenEnv:    "GITHUB_TOKEN",
			MarkerLabel: "synced-from-local",
		},
		Pull: PullConfig{
			Limit: 20,
			State: "all",
		},
	}
}

// Load reads the file named by TASKFLOW_CONFIG. When the variable is
// unset the defaults are returned, expanded.
func Load() (*Config, error) {
	path := os.Getenv(EnvConfig)
	if path == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile reads configuration from path and merges it onto the
// defaults. Files ending in .json or .jsonc are JSON (comments and
// trailing commas allowed); everything else is YAML.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Home = expandVars(c.Home, vars)
	vars["TASKFLOW_HOME"] = c.Home

	c.Database = expandVars(c.Database, vars)
	c.Repository = expandVars(c.Repository, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${VAR} and ${VAR:-default}. Values in vars win
// over the environment; unset variables take the default or "".
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Timeout returns GatewayTimeout parsed. Call Validate first; an
// unparseable value yields zero.
func (c *Config) Timeout() time.Duration {
	d, _ := time.ParseDuration(c.GatewayTimeout)
	return d
}

// Token returns the REST token from the environment variable named by
// Tracker.TokenEnv.
func (c *Config) Token() string {
	if c.Tracker.TokenEnv == "" {
		return ""
	}
	return os.Getenv(c.Tracker.TokenEnv)
}

// Validate reports every problem with the configuration at once. The
// error matches task.ErrConfiguration.
func (c *Config) Validate() error {
	var errs []error

	if c.Database == "" {
		errs = append(errs, errors.New("database is required"))
	}
	if c.MainBranch == "" {
		errs = append(errs, errors.New("main_branch is required"))
	}
	if d, err := time.ParseDuration(c.GatewayTimeout); err != nil {
		errs = append(errs, fmt.Errorf("gateway_timeout: %w", err))
	} else if d <= 0 {
		errs = append(errs, fmt.Errorf("gateway_timeout must be positive, got %s", c.GatewayTimeout))
	}

	if c.Tracker.Provider != "github" {
		errs = append(errs, fmt.Errorf("tracker.provider %q is not supported (want github)", c.Tracker.Provider))
	}
	if !slices.Contains([]string{TransportCLI, TransportREST}, c.Tracker.Transport) {
		errs = append(errs, fmt.Errorf("tracker.transport must be one of: cli, rest (got %q)", c.Tracker.Transport))
	}
	if c.Tracker.Transport == TransportREST {
		if c.Tracker.TokenEnv == "" {
			errs = append(errs, errors.New("tracker.token_env is required for the rest transport"))
		}
		if !strings.HasPrefix(c.Tracker.APIURL, "https://") {
			errs = append(errs, fmt.Errorf("tracker.api_url must use https (got %q)", c.Tracker.APIURL))
		}
	}

	if c.Pull.Limit <= 0 {
		errs = append(errs, fmt.Errorf("pull.limit must be positive, got %d", c.Pull.Limit))
	}
	if !slices.Contains([]string{"open", "closed", "all"}, c.Pull.State) {
		errs = append(errs, fmt.Errorf("pull.state must be one of: open, closed, all (got %q)", c.Pull.State))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w: %w", task.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

// EnsureDatabaseDir creates the directory holding the database file.
func (c *Config) EnsureDatabaseDir() error {
	dir := filepath.Dir(c.Database)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: creating %s: %w", dir, err)
	}
	return nil
}
