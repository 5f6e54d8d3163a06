package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/coolutils/internal/model"
)

// Config is the root of the configuration file.
type Config struct {
	JSON    JSONConfig    `yaml:"json"`
	Install InstallConfig `yaml:"install"`
	Notify  NotifyConfig  `yaml:"notify"`
}

// JSONConfig holds defaults for the check and convert commands.
type JSONConfig struct {
	// Dialect is the default input dialect (strict, comments, jsonc, hujson).
	Dialect string `yaml:"dialect,omitempty"`
}

// InstallConfig holds defaults for the install command.
type InstallConfig struct {
	Quiet       bool     `yaml:"quiet,omitempty"`
	ExceptionOK bool     `yaml:"exceptionOk,omitempty"`
	Gitignore   bool     `yaml:"gitignore,omitempty"`
	Exclude     []string `yaml:"exclude,omitempty"`
}

// NotifyConfig holds defaults for the notify command.
type NotifyConfig struct {
	// Server is "host" or "host:port".
	Server string `yaml:"server,omitempty"`

	// Address is the mailbox that sends and receives the notification.
	Address string `yaml:"address,omitempty"`

	// PasswordEnv names the environment variable holding the mailbox
	// password. The password itself is never stored in the file.
	PasswordEnv string `yaml:"passwordEnv,omitempty"`

	// Subject is the default subject line.
	Subject string `yaml:"subject,omitempty"`
}

// DefaultDialect is used when neither the file nor a flag sets a dialect.
const DefaultDialect = model.DialectComments

// DefaultPath returns the per-user configuration file location,
// <user config dir>/coolutils/config.yaml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "coolutils", "config.yaml"), nil
}

// Load reads the configuration file at path.
//
// When explicit is false (path came from DefaultPath), a missing file is
// not an error and yields an empty Config. When explicit is true, a missing
// file is reported as a CLIError with ExitInvalidConfig.
func Load(path string, explicit bool) (*Config, error) {
	cfg := &Config{}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, model.WrapCLIError(model.ExitInvalidConfig,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidConfig,
			fmt.Sprintf("failed to parse config file %s", path), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidConfig,
			fmt.Sprintf("invalid config file %s", path), err)
	}
	return cfg, nil
}

// Validate checks the values that have a fixed set of options.
func (c *Config) Validate() error {
	if c.JSON.Dialect != "" {
		if _, err := model.ParseDialect(c.JSON.Dialect); err != nil {
			return fmt.Errorf("json.dialect: %w", err)
		}
	}
	return nil
}

// Dialect returns the configured dialect, or DefaultDialect when unset.
// It assumes Validate has succeeded.
func (c *Config) Dialect() model.Dialect {
	if c.JSON.Dialect == "" {
		return DefaultDialect
	}
	d, err := model.ParseDialect(c.JSON.Dialect)
	if err != nil {
		return DefaultDialect
	}
	return d
}

// Password resolves the notify password from the environment variable
// named by PasswordEnv. It returns "" when no variable is configured.
func (n NotifyConfig) Password() string {
	if n.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(n.PasswordEnv)
}
