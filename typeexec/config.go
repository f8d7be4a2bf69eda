package typeexec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the file form of Options and BatchOptions. Unset fields keep
// their defaults.
type Config struct {
	MaxIterations        *int   `yaml:"maxIterations" toml:"max_iterations"`
	StrictMerge          *bool  `yaml:"strictMerge" toml:"strict_merge"`
	LogLevel             string `yaml:"logLevel" toml:"log_level"`
	LogTimeFormat        string `yaml:"logTimeFormat" toml:"log_time_format"`
	LogStackPreviewDepth int    `yaml:"logStackPreviewDepth" toml:"log_stack_preview_depth"`
	LogMaxLocals         int    `yaml:"logMaxLocals" toml:"log_max_locals"`

	Concurrency int `yaml:"concurrency" toml:"concurrency"`
	CacheSize   int `yaml:"cacheSize" toml:"cache_size"`
	// EnableCache turns on the result cache; CacheSize bounds it.
	EnableCache bool `yaml:"enableCache" toml:"enable_cache"`
}

// LoadConfig reads a YAML (.yaml, .yml) or TOML (.toml) config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return ParseYAMLConfig(data)
	case ".toml":
		return ParseTOMLConfig(data)
	default:
		return Config{}, fmt.Errorf("config %s: unsupported extension %q", path, ext)
	}
}

// ParseYAMLConfig decodes a YAML config, rejecting unknown keys.
func ParseYAMLConfig(data []byte) (Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse yaml config: %w", err)
	}
	return c, c.validate()
}

// ParseTOMLConfig decodes a TOML config, rejecting unknown keys.
func ParseTOMLConfig(data []byte) (Config, error) {
	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return Config{}, fmt.Errorf("parse toml config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("parse toml config: unknown key %q", undecoded[0].String())
	}
	return c, c.validate()
}

func (c Config) validate() error {
	if c.MaxIterations != nil && *c.MaxIterations < 0 {
		return fmt.Errorf("maxIterations must not be negative, got %d", *c.MaxIterations)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cacheSize must not be negative, got %d", c.CacheSize)
	}
	if c.LogLevel != "" {
		switch strings.ToLower(c.LogLevel) {
		case "error", "warn", "warning", "info", "debug":
		default:
			return fmt.Errorf("unknown log level %q", c.LogLevel)
		}
	}
	return nil
}

// Apply overlays the set fields of c on opts.
func (c Config) Apply(opts Options) Options {
	if c.MaxIterations != nil {
		opts.MaxIterations = *c.MaxIterations
	}
	if c.StrictMerge != nil {
		opts.StrictMerge = *c.StrictMerge
	}
	if c.LogLevel != "" {
		opts.LogLevel = c.LogLevel
	}
	if c.LogTimeFormat != "" {
		opts.LogTimeFormat = c.LogTimeFormat
	}
	if c.LogStackPreviewDepth > 0 {
		opts.LogStackPreviewDepth = c.LogStackPreviewDepth
	}
	if c.LogMaxLocals > 0 {
		opts.LogMaxLocals = c.LogMaxLocals
	}
	return opts
}

// BatchOptions returns the batch settings of c. Metrics and tracing are
// wired by the caller.
func (c Config) BatchOptions() BatchOptions {
	bo := BatchOptions{Concurrency: c.Concurrency}
	if c.EnableCache {
		bo.Cache = NewCache(c.CacheSize)
	}
	return bo
}
