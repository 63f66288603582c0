package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/KaramelBytes/dqguard-cli/internal/export"
	"github.com/KaramelBytes/dqguard-cli/internal/logging"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	OutDir        string  `mapstructure:"out_dir" yaml:"out_dir"`
	ProjectsDir   string  `mapstructure:"projects_dir" yaml:"projects_dir"`
	Contamination float64 `mapstructure:"contamination" yaml:"contamination"`
	Trees         int     `mapstructure:"trees" yaml:"trees"`
	Seed          uint64  `mapstructure:"seed" yaml:"seed"`
	SQLDialect    string  `mapstructure:"sql_dialect" yaml:"sql_dialect"`
	TableName     string  `mapstructure:"table_name" yaml:"table_name"`
	SuiteName     string  `mapstructure:"suite_name" yaml:"suite_name"`
	PreviewRows   int     `mapstructure:"preview_rows" yaml:"preview_rows"`
	MaxRows       int     `mapstructure:"max_rows" yaml:"max_rows"`

	// Run history store
	HistoryDriver  string `mapstructure:"history_driver" yaml:"history_driver"`
	HistoryDSN     string `mapstructure:"history_dsn" yaml:"history_dsn"`
	HistoryEnabled bool   `mapstructure:"history_enabled" yaml:"history_enabled"`

	ServeAddr string `mapstructure:"serve_addr" yaml:"serve_addr"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Dir returns ~/.dqguard.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".dqguard"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.dqguard/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("out_dir", "exports")
	v.SetDefault("projects_dir", filepath.Join(dir, "projects"))
	v.SetDefault("contamination", 0.05)
	v.SetDefault("trees", 200)
	v.SetDefault("seed", 42)
	v.SetDefault("sql_dialect", "ansi")
	v.SetDefault("table_name", "my_table")
	v.SetDefault("suite_name", "dqguard_suite")
	v.SetDefault("preview_rows", 20)
	v.SetDefault("max_rows", 0)
	v.SetDefault("history_driver", "sqlite")
	v.SetDefault("history_dsn", filepath.Join(dir, "history.db"))
	v.SetDefault("history_enabled", true)
	v.SetDefault("serve_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Default returns the built-in defaults without reading a file or the
// environment. Paths fall back to the working directory when the home
// directory cannot be resolved.
func Default() *Global {
	dir, err := Dir()
	if err != nil {
		dir = ".dqguard"
	}
	v := viper.New()
	setDefaults(v, dir)
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetEnvPrefix("DQGUARD")
	v.AutomaticEnv()
	setDefaults(v, dir)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.ProjectsDir = expandHome(c.ProjectsDir)
	if c.HistoryDriver == "sqlite" {
		c.HistoryDSN = expandHome(c.HistoryDSN)
	}
	return &c, nil
}

// Validate checks value ranges and enumerations.
func (c *Global) Validate() error {
	if !(c.Contamination > 0 && c.Contamination < 1) {
		return fmt.Errorf("contamination must be between 0 and 1 (exclusive), got %v", c.Contamination)
	}
	if c.Trees <= 0 {
		return fmt.Errorf("trees must be positive, got %d", c.Trees)
	}
	if _, err := export.ParseDialect(c.SQLDialect); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if !logging.ValidFormat(c.LogFormat) {
		return fmt.Errorf("unknown log format %q (use text or json)", c.LogFormat)
	}
	switch c.HistoryDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown history driver %q (use sqlite or postgres)", c.HistoryDriver)
	}
	return nil
}

// Values returns every key with its current value, rendered as text.
func (c *Global) Values() map[string]string {
	return map[string]string{
		"out_dir":         c.OutDir,
		"projects_dir":    c.ProjectsDir,
		"contamination":   strconv.FormatFloat(c.Contamination, 'f', -1, 64),
		"trees":           strconv.Itoa(c.Trees),
		"seed":            strconv.FormatUint(c.Seed, 10),
		"sql_dialect":     c.SQLDialect,
		"table_name":      c.TableName,
		"suite_name":      c.SuiteName,
		"preview_rows":    strconv.Itoa(c.PreviewRows),
		"max_rows":        strconv.Itoa(c.MaxRows),
		"history_driver":  c.HistoryDriver,
		"history_dsn":     c.HistoryDSN,
		"history_enabled": strconv.FormatBool(c.HistoryEnabled),
		"serve_addr":      c.ServeAddr,
		"log_level":       c.LogLevel,
		"log_format":      c.LogFormat,
	}
}

// Keys lists config keys in sorted order.
func (c *Global) Keys() []string {
	vals := c.Values()
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set parses value into key and validates the result. The receiver is left
// unchanged on error.
func (c *Global) Set(key, value string) error {
	next := *c
	var err error
	switch strings.ToLower(key) {
	case "out_dir":
		next.OutDir = value
	case "projects_dir":
		next.ProjectsDir = expandHome(value)
	case "contamination":
		next.Contamination, err = strconv.ParseFloat(value, 64)
	case "trees":
		next.Trees, err = strconv.Atoi(value)
	case "seed":
		next.Seed, err = strconv.ParseUint(value, 10, 64)
	case "sql_dialect":
		next.SQLDialect = strings.ToLower(value)
	case "table_name":
		next.TableName = value
	case "suite_name":
		next.SuiteName = value
	case "preview_rows":
		next.PreviewRows, err = strconv.Atoi(value)
	case "max_rows":
		next.MaxRows, err = strconv.Atoi(value)
	case "history_driver":
		next.HistoryDriver = strings.ToLower(value)
	case "history_dsn":
		next.HistoryDSN = value
	case "history_enabled":
		next.HistoryEnabled, err = strconv.ParseBool(value)
	case "serve_addr":
		next.ServeAddr = value
	case "log_level":
		next.LogLevel = strings.ToLower(value)
	case "log_format":
		next.LogFormat = strings.ToLower(value)
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
