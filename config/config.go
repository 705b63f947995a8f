package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const appName = "pvcse"

const (
	ProviderAssemblyAI = "assemblyai"
	ProviderWhisperx   = "whisperx"
	ProviderMock       = "mock"
)

type Config struct {
	Addr         string
	DataDir      string
	Provider     string
	AssemblyKey  string
	Language     string
	PollInterval time.Duration
	Title        string

	WhisperxModel  string
	WhisperxDevice string
	HFToken        string
}

type fileConfig struct {
	Addr           string `toml:"addr"`
	DataDir        string `toml:"data_dir"`
	Provider       string `toml:"provider"`
	AssemblyKey    string `toml:"assemblyai_api_key"`
	Language       string `toml:"language"`
	PollInterval   string `toml:"poll_interval"`
	Title          string `toml:"title"`
	WhisperxModel  string `toml:"whisperx_model"`
	WhisperxDevice string `toml:"whisperx_device"`
	HFToken        string `toml:"hf_token"`
}

func Default() *Config {
	return &Config{
		Addr:           ":8121",
		DataDir:        defaultDataDir(),
		Provider:       ProviderAssemblyAI,
		Language:       "fr",
		PollInterval:   3 * time.Second,
		WhisperxModel:  "large-v2",
		WhisperxDevice: "auto",
	}
}

// Load reads defaults, then the config file if present, then the environment.
func Load() (*Config, error) {
	cfg := Default()

	if path := configFilePath(); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	applyEnvOverrides(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if fc.Addr != "" {
		c.Addr = fc.Addr
	}
	if fc.DataDir != "" {
		c.DataDir = resolvePath(fc.DataDir)
	}
	if fc.Provider != "" {
		c.Provider = strings.ToLower(fc.Provider)
	}
	c.AssemblyKey = fc.AssemblyKey
	if fc.Language != "" {
		c.Language = fc.Language
	}
	if fc.PollInterval != "" {
		d, err := time.ParseDuration(fc.PollInterval)
		if err != nil {
			return fmt.Errorf("reading %s: poll_interval: %w", path, err)
		}
		c.PollInterval = d
	}
	c.Title = fc.Title
	if fc.WhisperxModel != "" {
		c.WhisperxModel = fc.WhisperxModel
	}
	if fc.WhisperxDevice != "" {
		c.WhisperxDevice = fc.WhisperxDevice
	}
	c.HFToken = fc.HFToken
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PVCSE_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("PVCSE_DATA_DIR"); v != "" {
		cfg.DataDir = resolvePath(v)
	}
	if v := os.Getenv("PVCSE_PROVIDER"); v != "" {
		cfg.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("ASSEMBLYAI_API_KEY"); v != "" {
		cfg.AssemblyKey = v
	}
	if v := os.Getenv("PVCSE_LANGUAGE"); v != "" {
		cfg.Language = v
	}
	if v := os.Getenv("PVCSE_WHISPERX_MODEL"); v != "" {
		cfg.WhisperxModel = v
	}
	if v := os.Getenv("PVCSE_HF_TOKEN"); v != "" {
		cfg.HFToken = v
	}
	if os.Getenv("USE_MOCK") == "true" {
		cfg.Provider = ProviderMock
	}
}

func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderAssemblyAI:
		if c.AssemblyKey == "" {
			return fmt.Errorf("assemblyai API key not set: set ASSEMBLYAI_API_KEY or add assemblyai_api_key to config")
		}
	case ProviderWhisperx, ProviderMock:
	default:
		return fmt.Errorf("unknown provider %q: expected %s, %s or %s", c.Provider, ProviderAssemblyAI, ProviderWhisperx, ProviderMock)
	}
	return nil
}

func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "pvcse.db")
}

// FixturePath is the recorded transcript replayed by the mock provider.
func (c *Config) FixturePath() string {
	return filepath.Join(c.DataDir, "mock_transcript.json")
}

// configFilePath returns pvcse/config.toml under the user config dir
// ($XDG_CONFIG_HOME or ~/.config on Linux), or "" when there is none.
func configFilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, appName, "config.toml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// defaultDataDir holds the transcript cache and the replay fixture.
func defaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", appName)
	}
	return appName + "-data"
}

// resolvePath expands a leading ~ so paths copied from shell snippets work
// in the config file and the environment.
func resolvePath(path string) string {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok || (rest != "" && rest[0] != '/') {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
