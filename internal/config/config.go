// Package config loads and saves the user configuration of aistack.
//
// The file lives at $XDG_CONFIG_HOME/aistack/config.yaml. Values missing from
// the file keep their defaults and AISTACK_* environment variables override
// both, e.g. AISTACK_OLLAMA_URL sets ollama_url.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"aistack/internal/logging"
	"aistack/pkg/fileops"
)

const APP_NAME = "aistack"

// EnvPrefix marks environment variables that override file values.
const EnvPrefix = "AISTACK_"

// Config holds user configuration for aistack.
type Config struct {
	// TemplatesDir is the template store. Empty selects the built-in templates.
	TemplatesDir string `yaml:"templates_dir" koanf:"templates_dir"`
	// MarkerFile identifies the orchestration root during detection.
	MarkerFile  string        `yaml:"marker_file" koanf:"marker_file" validate:"required"`
	RegistryURL string        `yaml:"registry_url" koanf:"registry_url" validate:"required,url"`
	CacheDir    string        `yaml:"cache_dir" koanf:"cache_dir" validate:"required"`
	CacheTTL    time.Duration `yaml:"cache_ttl" koanf:"cache_ttl" validate:"gte=0"`
	OllamaURL   string        `yaml:"ollama_url" koanf:"ollama_url" validate:"required,url"`
	QdrantURL   string        `yaml:"qdrant_url" koanf:"qdrant_url" validate:"required,url"`
	HTTPTimeout time.Duration `yaml:"http_timeout" koanf:"http_timeout" validate:"gt=0"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		MarkerFile:  "mcp_intelligence_server.py",
		RegistryURL: "https://registry.modelcontextprotocol.io/v0",
		CacheDir:    filepath.Join(xdg.CacheHome, APP_NAME, "registry"),
		CacheTTL:    24 * time.Hour,
		OllamaURL:   "http://localhost:11434",
		QdrantURL:   "http://localhost:6333",
		HTTPTimeout: 10 * time.Second,
	}
}

// ConfigPath returns the standard config file path for the current platform.
func ConfigPath() string {
	path := filepath.Join(xdg.ConfigHome, APP_NAME, "config.yaml")
	logging.Debug("Determined config path", "path", path)
	return path
}

// FindConfigFile returns the standard config path and whether a file exists there.
func FindConfigFile() (string, bool) {
	path := ConfigPath()
	if _, err := os.Stat(path); err != nil {
		return path, false
	}
	return path, true
}

// IsFirstRun reports whether no config file exists yet.
func IsFirstRun() bool {
	_, exists := FindConfigFile()
	return !exists
}

// Load reads the config at path, or at ConfigPath when path is empty. A
// missing file is not an error: defaults and environment overrides apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	k := koanf.New(".")
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		logging.Debug("Reading config file", "path", path)
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to access config file %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.TemplatesDir = expand(cfg.TemplatesDir)
	cfg.CacheDir = expand(cfg.CacheDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func expand(p string) string {
	if p == "" {
		return p
	}
	return fileops.ExpandPath(p)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
	})
	return v
}

// Validate checks every field and reports all invalid ones together.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s: failed '%s' (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
}

// Save writes the config to the standard location.
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes the config to path with owner-only permissions.
func (c *Config) SaveTo(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := fileops.AtomicWrite(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	logging.Info("Saved config", "path", path)
	return nil
}
