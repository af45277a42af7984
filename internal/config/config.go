package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Oracle    OracleConfig    `mapstructure:"oracle" json:"oracle"`
	GitHub    GitHubConfig    `mapstructure:"github" json:"github"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline" json:"pipeline"`
	Diff      DiffConfig      `mapstructure:"diff" json:"diff"`
	Redaction RedactionConfig `mapstructure:"redaction" json:"redaction"`
	TUI       TUIConfig       `mapstructure:"tui" json:"tui"`
	Server    ServerConfig    `mapstructure:"server" json:"server"`
	Store     StoreConfig     `mapstructure:"store" json:"store"`
}

type OracleConfig struct {
	Provider      string        `mapstructure:"provider" json:"provider"`
	Command       string        `mapstructure:"command" json:"command"`
	Args          []string      `mapstructure:"args" json:"args"`
	Model         string        `mapstructure:"model" json:"model"`
	Endpoint      string        `mapstructure:"endpoint" json:"endpoint"`
	APIKeyEnv     string        `mapstructure:"api_key_env" json:"api_key_env"`
	Fixture       string        `mapstructure:"fixture" json:"fixture"`
	Timeout       time.Duration `mapstructure:"timeout" json:"timeout"`
	RatePerMinute int           `mapstructure:"rate_per_minute" json:"rate_per_minute"`
}

type GitHubConfig struct {
	TokenEnv         string   `mapstructure:"token_env" json:"token_env"`
	BaseURL          string   `mapstructure:"base_url" json:"base_url"`
	APIRatePerSecond float64  `mapstructure:"api_rate_per_second" json:"api_rate_per_second"`
	GuidelinePaths   []string `mapstructure:"guideline_paths" json:"guideline_paths"`
	FollowLinks      bool     `mapstructure:"follow_links" json:"follow_links"`
	MaxLinks         int      `mapstructure:"max_links" json:"max_links"`
}

type PipelineConfig struct {
	MaxParallel     int  `mapstructure:"max_parallel" json:"max_parallel"`
	SuggestionLevel int  `mapstructure:"suggestion_level" json:"suggestion_level"`
	Checklist       bool `mapstructure:"checklist" json:"checklist"`
}

type DiffConfig struct {
	Ignore        []string `mapstructure:"ignore" json:"ignore"`
	MaxFiles      int      `mapstructure:"max_files" json:"max_files"`
	MaxChunkChars int      `mapstructure:"max_chunk_chars" json:"max_chunk_chars"`
}

type RedactionConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
}

type TUIConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" json:"addr"`
}

type StoreConfig struct {
	Path string `mapstructure:"path" json:"path"`
}

// DefaultGuidelinePaths are tried in order; the first file found wins.
var DefaultGuidelinePaths = []string{
	"CONTRIBUTING.md",
	".github/CONTRIBUTING.md",
	"docs/CONTRIBUTING.md",
	"CONTRIBUTING.rst",
	"README.md",
	"CODE_OF_CONDUCT.md",
	"docs/STYLEGUIDE.md",
	"STYLEGUIDE.md",
	"DEVELOPER.md",
}

func Defaults() Config {
	return Config{
		Oracle: OracleConfig{
			Provider:      "claude",
			Command:       "claude",
			Args:          []string{},
			Model:         "gpt-4o-mini",
			Endpoint:      "https://api.openai.com/v1/chat/completions",
			APIKeyEnv:     "OPENAI_API_KEY",
			Timeout:       3 * time.Minute,
			RatePerMinute: 30,
		},
		GitHub: GitHubConfig{
			TokenEnv:         "GITHUB_TOKEN",
			APIRatePerSecond: 5,
			GuidelinePaths:   append([]string(nil), DefaultGuidelinePaths...),
			FollowLinks:      true,
			MaxLinks:         5,
		},
		Pipeline: PipelineConfig{
			MaxParallel:     4,
			SuggestionLevel: 3,
			Checklist:       true,
		},
		Diff: DiffConfig{
			Ignore:        []string{"go.sum", "package-lock.json", "yarn.lock", "*.min.js"},
			MaxFiles:      50,
			MaxChunkChars: 8000,
		},
		Redaction: RedactionConfig{Enabled: true},
		TUI:       TUIConfig{Enabled: true},
		Server:    ServerConfig{Addr: "127.0.0.1:5000"},
		Store:     StoreConfig{Path: filepath.Join(homeDir(), ".guidebook", "guidebook.db")},
	}
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	home, _ := os.UserHomeDir()
	return home
}

// DefaultPath is ~/.guidebook/config.yaml.
func DefaultPath() string {
	return filepath.Join(homeDir(), ".guidebook", "config.yaml")
}

// Load reads the user config over the defaults. A missing file is not an
// error. GUIDEBOOK_DB_PATH overrides store.path.
func Load(configPath string) (Config, error) {
	cfg := Defaults()
	path := configPath
	if path == "" {
		path = DefaultPath()
	}
	if err := loadFile(path, &cfg); err != nil {
		return Config{}, err
	}
	applyZeroDefaults(&cfg)
	if p := os.Getenv("GUIDEBOOK_DB_PATH"); p != "" {
		cfg.Store.Path = p
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read user config: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to load user config: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to parse user config: %w", err)
	}
	return nil
}

func applyZeroDefaults(cfg *Config) {
	d := Defaults()
	if cfg.Oracle.Provider == "" {
		cfg.Oracle.Provider = d.Oracle.Provider
	}
	if cfg.Oracle.Command == "" {
		cfg.Oracle.Command = d.Oracle.Command
	}
	if cfg.Oracle.Endpoint == "" {
		cfg.Oracle.Endpoint = d.Oracle.Endpoint
	}
	if cfg.Oracle.APIKeyEnv == "" {
		cfg.Oracle.APIKeyEnv = d.Oracle.APIKeyEnv
	}
	if cfg.Oracle.Timeout <= 0 {
		cfg.Oracle.Timeout = d.Oracle.Timeout
	}
	if cfg.GitHub.TokenEnv == "" {
		cfg.GitHub.TokenEnv = d.GitHub.TokenEnv
	}
	if cfg.GitHub.APIRatePerSecond <= 0 {
		cfg.GitHub.APIRatePerSecond = d.GitHub.APIRatePerSecond
	}
	if len(cfg.GitHub.GuidelinePaths) == 0 {
		cfg.GitHub.GuidelinePaths = d.GitHub.GuidelinePaths
	}
	if cfg.Pipeline.SuggestionLevel < 1 || cfg.Pipeline.SuggestionLevel > 5 {
		cfg.Pipeline.SuggestionLevel = d.Pipeline.SuggestionLevel
	}
	if cfg.Diff.MaxFiles == 0 {
		cfg.Diff.MaxFiles = d.Diff.MaxFiles
	}
	if cfg.Diff.MaxChunkChars == 0 {
		cfg.Diff.MaxChunkChars = d.Diff.MaxChunkChars
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = d.Server.Addr
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = d.Store.Path
	}
}
