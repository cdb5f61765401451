package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendDocstore = "docstore"
	BackendSQLite   = "sqlite"

	ProviderNone   = "none"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds all flowstate configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" json:"store"`
	LLM     LLMConfig     `yaml:"llm" json:"llm"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// StoreConfig selects and locates the task backend.
type StoreConfig struct {
	Backend    string `yaml:"backend" json:"backend"` // docstore, sqlite
	Root       string `yaml:"root" json:"root"`
	SQLitePath string `yaml:"sqlite_path,omitempty" json:"sqlite_path,omitempty"`
}

// LLMConfig configures the chat completion fallback.
type LLMConfig struct {
	Provider string `yaml:"provider" json:"provider"` // none, openai, gemini; empty picks from the API key env vars
	APIKey   string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	Model    string `yaml:"model,omitempty" json:"model,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Timeout  string `yaml:"timeout" json:"timeout"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`

	// MaxSessions caps the chat sessions kept in memory; the least recently used is dropped.
	MaxSessions int `yaml:"max_sessions" json:"max_sessions"`
}

type LoggingConfig struct {
	Level       string `yaml:"level" json:"level"` // debug, info, warn, error
	Development bool   `yaml:"development" json:"development"`
}

var (
	ValidBackends  = []string{BackendDocstore, BackendSQLite}
	ValidProviders = []string{ProviderNone, ProviderOpenAI, ProviderGemini}
	validLevels    = []string{"debug", "info", "warn", "error"}
)

var defaultModels = map[string]string{
	ProviderOpenAI: "gpt-4o-mini",
	ProviderGemini: "gemini-2.5-flash",
}

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// DefaultRoot is FLOWSTATE_ROOT, or ~/.flowstate.
func DefaultRoot() string {
	if root := strings.TrimSpace(os.Getenv("FLOWSTATE_ROOT")); root != "" {
		return root
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".flowstate"
	}
	return filepath.Join(home, ".flowstate")
}

// DefaultPath is the config file inside root.
func DefaultPath(root string) string {
	return filepath.Join(root, "config.yaml")
}

func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: BackendDocstore,
			Root:    DefaultRoot(),
		},
		LLM: LLMConfig{
			Timeout: "60s",
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:8080",
			MaxSessions: 256,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults and applies environment overrides. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if root := os.Getenv("FLOWSTATE_ROOT"); root != "" {
		c.Store.Root = root
	}
	if backend := os.Getenv("FLOWSTATE_STORE"); backend != "" {
		c.Store.Backend = strings.ToLower(backend)
	}
	if p := os.Getenv("FLOWSTATE_LLM_PROVIDER"); p != "" {
		c.LLM.Provider = strings.ToLower(p)
	}
	if m := os.Getenv("FLOWSTATE_LLM_MODEL"); m != "" {
		c.LLM.Model = m
	}
	if u := os.Getenv("FLOWSTATE_LLM_BASE_URL"); u != "" {
		c.LLM.BaseURL = u
	}
	if addr := os.Getenv("FLOWSTATE_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if lvl := os.Getenv("FLOWSTATE_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = strings.ToLower(lvl)
	}

	openAIKey := os.Getenv("OPENAI_API_KEY")
	geminiKey := os.Getenv("GEMINI_API_KEY")
	switch c.LLM.Provider {
	case "":
		switch {
		case openAIKey != "":
			c.LLM.Provider, c.LLM.APIKey = ProviderOpenAI, openAIKey
		case geminiKey != "":
			c.LLM.Provider, c.LLM.APIKey = ProviderGemini, geminiKey
		case c.LLM.APIKey == "":
			c.LLM.Provider = ProviderNone
		}
	case ProviderOpenAI:
		if openAIKey != "" {
			c.LLM.APIKey = openAIKey
		}
	case ProviderGemini:
		if geminiKey != "" {
			c.LLM.APIKey = geminiKey
		}
	}
}

// LLMTimeout is llm.timeout as a duration, 60s when unset or invalid.
func (c *Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// LLMModel is the configured model or the provider default.
func (c *Config) LLMModel() string {
	if c.LLM.Model != "" {
		return c.LLM.Model
	}
	return defaultModels[c.LLM.Provider]
}

func (c *Config) LLMBaseURL() string {
	if c.LLM.BaseURL != "" {
		return strings.TrimRight(c.LLM.BaseURL, "/")
	}
	if c.LLM.Provider == ProviderOpenAI {
		return defaultOpenAIBaseURL
	}
	return ""
}

// SQLitePath is store.sqlite_path, or flowstate.db inside the root.
func (c *Config) SQLitePath() string {
	if c.Store.SQLitePath != "" {
		return c.Store.SQLitePath
	}
	return filepath.Join(c.Store.Root, "flowstate.db")
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Store.Root) == "" {
		return fmt.Errorf("store root is not configured (set FLOWSTATE_ROOT or --root)")
	}
	if !contains(ValidBackends, c.Store.Backend) {
		return fmt.Errorf("invalid store backend: %s (valid: %v)", c.Store.Backend, ValidBackends)
	}
	provider := c.LLM.Provider
	if provider == "" {
		provider = ProviderNone
	}
	if !contains(ValidProviders, provider) {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}
	// OpenAI-compatible local servers often run without a key.
	needsKey := provider == ProviderGemini || (provider == ProviderOpenAI && c.LLM.BaseURL == "")
	if needsKey && c.LLM.APIKey == "" {
		return fmt.Errorf("LLM provider %s needs an API key (set OPENAI_API_KEY or GEMINI_API_KEY)", provider)
	}
	if c.LLM.Timeout != "" {
		if _, err := time.ParseDuration(c.LLM.Timeout); err != nil {
			return fmt.Errorf("invalid llm.timeout %q: %w", c.LLM.Timeout, err)
		}
	}
	if c.Server.MaxSessions < 1 {
		return fmt.Errorf("invalid server.max_sessions %d: must be at least 1", c.Server.MaxSessions)
	}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, validLevels)
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	out := *c
	if out.LLM.APIKey != "" {
		out.LLM.APIKey = "****"
	}
	return &out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
