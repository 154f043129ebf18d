package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	TikTok         TikTok         `yaml:"tiktok"`
	Classification Classification `yaml:"classification"`
	Analysis       Analysis       `yaml:"analysis"`
	LLM            LLM            `yaml:"llm"`
	Feishu         Feishu         `yaml:"feishu"`
	Download       Download       `yaml:"download"`
	Output         Output         `yaml:"output"`
	Server         Server         `yaml:"server"`
	Logging        Logging        `yaml:"logging"`
}

type TikTok struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

type Classification struct {
	TargetCategory  string   `yaml:"target_category"`
	Keywords        []string `yaml:"keywords"`
	MinModelMatches int      `yaml:"min_model_matches"`
}

type Analysis struct {
	MinSample   int `yaml:"min_sample"`
	TargetCount int `yaml:"target_count"`
}

type LLM struct {
	Provider     string `yaml:"provider"`
	GeminiModel  string `yaml:"gemini_model"`
	GeminiKeyEnv string `yaml:"gemini_key_env"`
	OpenAIModel  string `yaml:"openai_model"`
	OpenAIKeyEnv string `yaml:"openai_key_env"`
	OllamaModel  string `yaml:"ollama_model"`
	OllamaURL    string `yaml:"ollama_url"`
}

type Feishu struct {
	Enabled      bool   `yaml:"enabled"`
	AppIDEnv     string `yaml:"app_id_env"`
	AppSecretEnv string `yaml:"app_secret_env"`
	AppToken     string `yaml:"app_token"`
	TableID      string `yaml:"table_id"`
}

type Download struct {
	Enabled     bool `yaml:"enabled"`
	MaxParallel int  `yaml:"max_parallel"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for creatorlens.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "creatorlens")
}

// DataDir returns the XDG data directory for creatorlens.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "creatorlens")
}

// LoadEnv loads a .env file from the working directory when present.
// Missing files are fine; real environment variables win.
func LoadEnv() {
	_ = godotenv.Load()
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/creatorlens/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'creatorlens init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		TikTok: TikTok{
			BaseURL:   "https://api.tikhub.io",
			APIKeyEnv: "TIKTOK_API_KEY",
		},
		Classification: Classification{
			TargetCategory:  "beauty/skincare",
			MinModelMatches: 3,
		},
		Analysis: Analysis{
			MinSample:   5,
			TargetCount: 3,
		},
		LLM: LLM{
			Provider:     "gemini",
			GeminiModel:  "gemini-2.5-flash",
			GeminiKeyEnv: "GEMINI_API_KEY",
			OpenAIModel:  "gpt-4o-mini",
			OpenAIKeyEnv: "OPENAI_API_KEY",
			OllamaModel:  "qwen2.5:7b",
			OllamaURL:    "http://localhost:11434",
		},
		Feishu: Feishu{
			AppIDEnv:     "FEISHU_APP_ID",
			AppSecretEnv: "FEISHU_APP_SECRET",
		},
		Download: Download{
			MaxParallel: 3,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
