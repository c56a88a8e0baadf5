// Package config loads deepresearch settings from defaults, an optional YAML
// file and the environment.
//
// API keys are only read from the environment (optionally populated from a
// .env file); they are never stored in the YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppName names the XDG directories.
const AppName = "deepresearch"

// FileName is the config file looked up in the working directory.
const FileName = ".deepresearch.yaml"

var (
	// ErrMissingModelKey is returned when the selected model provider has no API key.
	ErrMissingModelKey = errors.New("config: missing API key for model provider")
	// ErrInvalidTavilyKey is returned for Tavily keys without the "tvly-" prefix.
	ErrInvalidTavilyKey = errors.New(`config: TAVILY_API_KEY must start with "tvly-"`)
	// ErrNoSearchKeys is returned when neither Tavily nor SerpAPI is configured.
	ErrNoSearchKeys = errors.New("config: set TAVILY_API_KEY or SERP_API_KEY")
	// ErrUnknownProvider is returned for unsupported model providers.
	ErrUnknownProvider = errors.New("config: unknown model provider")
)

// Provider names a model backend.
type Provider string

// Supported model providers.
const (
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
	ProviderGroq      Provider = "groq"
	ProviderAnthropic Provider = "anthropic"
)

// Preset holds the defaults of a model provider.
type Preset struct {
	Model   string
	BaseURL string
	// KeyEnv is the environment variable holding the API key.
	KeyEnv string
	// Anthropic providers use the Messages API instead of Chat Completions.
	Anthropic bool
}

// Presets maps providers to their defaults. Gemini and Groq are served
// through their OpenAI compatible endpoints.
var Presets = map[Provider]Preset{
	ProviderOpenAI: {
		Model:  "gpt-4o-mini",
		KeyEnv: "OPENAI_API_KEY",
	},
	ProviderGemini: {
		Model:   "gemini-2.5-flash",
		BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai/",
		KeyEnv:  "GEMINI_API_KEY",
	},
	ProviderGroq: {
		Model:   "moonshotai/kimi-k2-instruct",
		BaseURL: "https://api.groq.com/openai/v1",
		KeyEnv:  "GROQ_API_KEY",
	},
	ProviderAnthropic: {
		Model:     "claude-3-5-haiku-latest",
		KeyEnv:    "ANTHROPIC_API_KEY",
		Anthropic: true,
	},
}

// Output formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Config is the complete application configuration.
type Config struct {
	Model  ModelConfig  `yaml:"model"`
	Search SearchConfig `yaml:"search"`
	Output OutputConfig `yaml:"output"`
	Log    LogConfig    `yaml:"log"`
	Store  StoreConfig  `yaml:"store"`

	// Keys are read from the environment.
	Keys Keys `yaml:"-"`

	// File is the config file that was loaded, if any.
	File string `yaml:"-"`
}

// ModelConfig selects and tunes the language model.
type ModelConfig struct {
	Provider    Provider `yaml:"provider"`
	Name        string   `yaml:"name"`
	BaseURL     string   `yaml:"base_url"`
	Temperature *float64 `yaml:"temperature"`
	// MaxModelCalls caps model calls per research run, shared by all stages.
	MaxModelCalls int `yaml:"max_model_calls"`
}

// SearchConfig tunes the web search providers.
type SearchConfig struct {
	MaxResults        int           `yaml:"max_results"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
	// ProviderTools also offers the single-provider tools to the search agent.
	ProviderTools bool `yaml:"provider_tools"`
}

// OutputConfig controls how results are printed.
type OutputConfig struct {
	Format string `yaml:"format"`
	Path   string `yaml:"path"`
	Stream bool   `yaml:"stream"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StoreConfig configures run history.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// Keys holds API keys.
type Keys struct {
	OpenAI    string
	Gemini    string
	Groq      string
	Anthropic string
	Tavily    string
	Serp      string
	News      string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Model: ModelConfig{
			Provider:      ProviderGemini,
			MaxModelCalls: 50,
		},
		Search: SearchConfig{
			MaxResults:        5,
			Timeout:           15 * time.Second,
			RequestsPerSecond: 2,
			CacheTTL:          10 * time.Minute,
		},
		Output: OutputConfig{
			Format: FormatText,
			Stream: true,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Store: StoreConfig{
			Enabled: true,
			Dir:     filepath.Join(xdg.DataHome, AppName),
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (or
// the first file found by FindFile when path is empty), then keys from the
// environment. A .env file in the working directory is loaded first without
// overriding variables that are already set.
func Load(path string) (Config, error) {
	if err := LoadDotEnv(); err != nil {
		return Config{}, err
	}

	cfg := Default()

	if path == "" {
		path = FindFile()
	}

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.Keys = KeysFromEnv()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.File = path

	return nil
}

// FindFile returns ./.deepresearch.yaml or $XDG_CONFIG_HOME/deepresearch/config.yaml,
// whichever exists first, or "".
func FindFile() string {
	candidates := []string{
		FileName,
		filepath.Join(xdg.ConfigHome, AppName, "config.yaml"),
	}

	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}

	return ""
}

// LoadDotEnv loads the given .env files, or ./.env when none are given.
// Missing files are ignored and existing variables are never overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}

	return nil
}

// KeysFromEnv reads API keys from the environment.
func KeysFromEnv() Keys {
	get := func(name string) string { return strings.TrimSpace(os.Getenv(name)) }

	return Keys{
		OpenAI:    get("OPENAI_API_KEY"),
		Gemini:    get("GEMINI_API_KEY"),
		Groq:      get("GROQ_API_KEY"),
		Anthropic: get("ANTHROPIC_API_KEY"),
		Tavily:    get("TAVILY_API_KEY"),
		Serp:      get("SERP_API_KEY"),
		News:      get("NEWS_API_ORG"),
	}
}

func (k Keys) forProvider(p Provider) string {
	switch p {
	case ProviderOpenAI:
		return k.OpenAI
	case ProviderGemini:
		return k.Gemini
	case ProviderGroq:
		return k.Groq
	case ProviderAnthropic:
		return k.Anthropic
	default:
		return ""
	}
}

// ResolvedModel is the model selection after applying presets.
type ResolvedModel struct {
	Provider  Provider
	Name      string
	BaseURL   string
	APIKey    string
	Anthropic bool
}

// ResolveModel applies the provider preset to unset model fields.
func (c Config) ResolveModel() (ResolvedModel, error) {
	preset, ok := Presets[c.Model.Provider]
	if !ok {
		return ResolvedModel{}, fmt.Errorf("%w: %q", ErrUnknownProvider, c.Model.Provider)
	}

	m := ResolvedModel{
		Provider:  c.Model.Provider,
		Name:      c.Model.Name,
		BaseURL:   c.Model.BaseURL,
		APIKey:    c.Keys.forProvider(c.Model.Provider),
		Anthropic: preset.Anthropic,
	}

	if m.Name == "" {
		m.Name = preset.Model
	}
	if m.BaseURL == "" {
		m.BaseURL = preset.BaseURL
	}

	if m.APIKey == "" {
		return m, fmt.Errorf("%w: set %s", ErrMissingModelKey, preset.KeyEnv)
	}

	return m, nil
}

// Validate checks the configuration and the keys it needs.
func (c Config) Validate() error {
	if _, err := c.ResolveModel(); err != nil {
		return err
	}

	if c.Keys.Tavily != "" && !strings.HasPrefix(c.Keys.Tavily, "tvly-") {
		return ErrInvalidTavilyKey
	}

	if c.Keys.Tavily == "" && c.Keys.Serp == "" {
		return ErrNoSearchKeys
	}

	switch c.Output.Format {
	case FormatText, FormatMarkdown, FormatJSON:
	default:
		return fmt.Errorf("config: unknown output format %q", c.Output.Format)
	}

	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("config: search.max_results must be positive, got %d", c.Search.MaxResults)
	}

	if c.Search.Timeout <= 0 {
		return fmt.Errorf("config: search.timeout must be positive, got %s", c.Search.Timeout)
	}

	return nil
}
