package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	Dataset    string `mapstructure:"dataset" yaml:"dataset"`
	Source     string `mapstructure:"source" yaml:"source"`
	Clusters   int    `mapstructure:"clusters" yaml:"clusters"`
	Seed       int64  `mapstructure:"seed" yaml:"seed"`
	MaxIter    int    `mapstructure:"max_iter" yaml:"max_iter"`
	SampleRows int    `mapstructure:"sample_rows" yaml:"sample_rows"`

	// Reader options
	MaxRows    int    `mapstructure:"max_rows" yaml:"max_rows"`
	Delimiter  string `mapstructure:"delimiter" yaml:"delimiter"`
	SheetName  string `mapstructure:"sheet_name" yaml:"sheet_name"`
	SheetIndex int    `mapstructure:"sheet_index" yaml:"sheet_index"`

	LogLevel        string `mapstructure:"log_level" yaml:"log_level"`
	Cache           bool   `mapstructure:"cache" yaml:"cache"`
	WatchDebounceMs int    `mapstructure:"watch_debounce_ms" yaml:"watch_debounce_ms"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"dataset", "source", "clusters", "seed", "max_iter", "sample_rows",
	"max_rows", "delimiter", "sheet_name", "sheet_index",
	"log_level", "cache", "watch_debounce_ms",
}

// DefaultPath is ~/.bizintel/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".bizintel", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.bizintel/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
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

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Command flags override the result.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("BIZINTEL")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("dataset", "churn")
	v.SetDefault("source", "")
	v.SetDefault("clusters", 3)
	v.SetDefault("seed", 42)
	v.SetDefault("max_iter", 300)
	v.SetDefault("sample_rows", 100)
	v.SetDefault("max_rows", 0)
	v.SetDefault("delimiter", "")
	v.SetDefault("sheet_name", "")
	v.SetDefault("sheet_index", 0)
	v.SetDefault("log_level", "warn")
	v.SetDefault("cache", true)
	v.SetDefault("watch_debounce_ms", 300)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".bizintel"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		// a missing default file is fine; a broken or missing explicit one is not
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects settings no command can run with.
func (c *Global) Validate() error {
	if c.Clusters < 1 {
		return fmt.Errorf("clusters must be at least 1, got %d", c.Clusters)
	}
	if c.MaxIter < 1 {
		return fmt.Errorf("max_iter must be at least 1, got %d", c.MaxIter)
	}
	if c.SampleRows < 0 || c.MaxRows < 0 || c.SheetIndex < 0 || c.WatchDebounceMs < 0 {
		return errors.New("sample_rows, max_rows, sheet_index and watch_debounce_ms must not be negative")
	}
	if n := len([]rune(c.Delimiter)); n > 1 && c.Delimiter != `\t` {
		return fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}
	return nil
}

// DelimiterRune returns the configured delimiter, or 0 to sniff it from the
// header line. `\t` is accepted for tab.
func (c *Global) DelimiterRune() rune {
	if c.Delimiter == `\t` {
		return '\t'
	}
	r := []rune(c.Delimiter)
	if len(r) == 0 {
		return 0
	}
	return r[0]
}

// Set parses val for key and assigns it. The result is validated before it
// takes effect.
func (c *Global) Set(key, val string) error {
	next := *c
	switch key {
	case "dataset":
		next.Dataset = val
	case "source":
		next.Source = val
	case "delimiter":
		next.Delimiter = val
	case "sheet_name":
		next.SheetName = val
	case "log_level":
		next.LogLevel = val
	case "seed":
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int for seed: %w", err)
		}
		next.Seed = i
	case "cache":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for cache: %w", err)
		}
		next.Cache = b
	case "clusters", "max_iter", "sample_rows", "max_rows", "sheet_index", "watch_debounce_ms":
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for %s: %w", key, err)
		}
		*next.intField(key) = i
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// Value renders the current value of key.
func (c *Global) Value(key string) (string, bool) {
	switch key {
	case "dataset":
		return c.Dataset, true
	case "source":
		return c.Source, true
	case "delimiter":
		return c.Delimiter, true
	case "sheet_name":
		return c.SheetName, true
	case "log_level":
		return c.LogLevel, true
	case "seed":
		return strconv.FormatInt(c.Seed, 10), true
	case "cache":
		return strconv.FormatBool(c.Cache), true
	case "clusters", "max_iter", "sample_rows", "max_rows", "sheet_index", "watch_debounce_ms":
		return strconv.Itoa(*c.intField(key)), true
	}
	return "", false
}

func (c *Global) intField(key string) *int {
	switch key {
	case "clusters":
		return &c.Clusters
	case "max_iter":
		return &c.MaxIter
	case "sample_rows":
		return &c.SampleRows
	case "max_rows":
		return &c.MaxRows
	case "sheet_index":
		return &c.SheetIndex
	default:
		return &c.WatchDebounceMs
	}
}
