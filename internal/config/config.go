// Package config manages application configuration from files and environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/klytics/vbadoc/internal/flow"
)

// Config holds the application configuration.
type Config struct {
	Output struct {
		Format string `mapstructure:"format" yaml:"format"`
		Color  bool   `mapstructure:"color" yaml:"color"`
	} `mapstructure:"output" yaml:"output"`
	Report struct {
		Suffix string `mapstructure:"suffix" yaml:"suffix"`
	} `mapstructure:"report" yaml:"report"`
	Flowchart struct {
		Format string `mapstructure:"format" yaml:"format"`
		Dot    string `mapstructure:"dot" yaml:"dot"`
	} `mapstructure:"flowchart" yaml:"flowchart"`
	Watch struct {
		DebounceMs int    `mapstructure:"debounce_ms" yaml:"debounce_ms"`
		OutDir     string `mapstructure:"out_dir" yaml:"out_dir"`
	} `mapstructure:"watch" yaml:"watch"`
	Audit struct {
		Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
		File    string `mapstructure:"file" yaml:"file"`
	} `mapstructure:"audit" yaml:"audit"`
}

// Issue is a validation finding.
type Issue struct {
	Key      string `json:"key"`
	Severity string `json:"severity"` // "error", "warning"
	Message  string `json:"message"`
}

var configFile string

// SetFile overrides the config file location (the --config flag).
func SetFile(path string) {
	configFile = path
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("output.format", "text")
	v.SetDefault("output.color", true)
	v.SetDefault("report.suffix", ".macros.txt")
	v.SetDefault("flowchart.format", flow.DefaultFormat)
	v.SetDefault("flowchart.dot", "dot")
	v.SetDefault("watch.debounce_ms", 500)
	v.SetDefault("watch.out_dir", "")
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.file", "")
}

// Load reads the configuration from ~/.vbadoc/config.yaml (or the file given
// to SetFile) and VBADOC_* environment variables. A missing file is not an
// error; a malformed one is.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
	}

	v.SetEnvPrefix("VBADOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && (configFile == "" || !os.IsNotExist(err)) {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks config values and returns a list of issues.
func (c *Config) Validate() []Issue {
	var issues []Issue
	switch c.Output.Format {
	case "text", "json", "yaml":
	default:
		issues = append(issues, Issue{
			Key:      "output.format",
			Severity: "error",
			Message:  fmt.Sprintf("unknown output format %q (expected text, json or yaml)", c.Output.Format),
		})
	}
	if !flow.ValidFormat(c.Flowchart.Format) {
		issues = append(issues, Issue{
			Key:      "flowchart.format",
			Severity: "error",
			Message:  fmt.Sprintf("unsupported flowchart format %q", c.Flowchart.Format),
		})
	}
	if c.Flowchart.Format != "dot" {
		if _, err := flow.LookupDot(c.Flowchart.Dot); err != nil {
			issues = append(issues, Issue{
				Key:      "flowchart.dot",
				Severity: "warning",
				Message:  err.Error(),
			})
		}
	}
	if c.Watch.DebounceMs < 0 {
		issues = append(issues, Issue{
			Key:      "watch.debounce_ms",
			Severity: "error",
			Message:  "debounce must not be negative",
		})
	}
	if c.Audit.File != "" && !filepath.IsAbs(c.Audit.File) {
		issues = append(issues, Issue{
			Key:      "audit.file",
			Severity: "warning",
			Message:  "relative audit log path is resolved against the working directory",
		})
	}
	return issues
}

// AuditPath returns the audit log location: audit.file when set, otherwise
// audit.log in the state directory.
func (c *Config) AuditPath() string {
	if c.Audit.File != "" {
		return c.Audit.File
	}
	return filepath.Join(configDir(), "audit.log")
}

// YAML encodes the configuration.
func (c *Config) YAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Save writes cfg to the config file, creating its directory.
func Save(cfg *Config) (string, error) {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", fmt.Errorf("could not create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("could not write config: %w", err)
	}
	return path, nil
}

// Path returns the path to the config file.
func Path() string {
	if configFile != "" {
		return configFile
	}
	return filepath.Join(configDir(), "config.yaml")
}

// Dir returns the vbadoc state directory.
func Dir() string {
	return configDir()
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vbadoc"
	}
	return filepath.Join(home, ".vbadoc")
}
