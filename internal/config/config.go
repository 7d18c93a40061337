// Package config loads autopub settings.
//
// Config is stored at $XDG_CONFIG_HOME/autopub/config.yaml (defaults to
// ~/.config/autopub/config.yaml). A missing file yields defaults.
// AUTOPUB_BASE_URL, AUTOPUB_API_KEY and AUTOPUB_DB override the file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvBaseURL = "AUTOPUB_BASE_URL"
	EnvAPIKey  = "AUTOPUB_API_KEY"
	EnvDB      = "AUTOPUB_DB"

	DefaultBaseURL = "http://127.0.0.1:8000"
)

type Paths struct {
	Fetch  string `yaml:"fetch,omitempty"`
	Polish string `yaml:"polish,omitempty"`
	Render string `yaml:"render,omitempty"`
	Upload string `yaml:"upload,omitempty"`
}

type API struct {
	BaseURL     string        `yaml:"base-url"`
	APIKey      string        `yaml:"api-key,omitempty"`
	Timeout     time.Duration `yaml:"timeout"`
	LongTimeout time.Duration `yaml:"long-timeout"`
	Paths       Paths         `yaml:"paths,omitempty"`
	// UploadRoot is the backend's data directory as seen from its working
	// directory. Uploaded backgrounds are passed to the renderer below it.
	UploadRoot string `yaml:"upload-root,omitempty"`
}

type Storage struct {
	Path string `yaml:"path"`
}

// Defaults seed the shared fields of every new run.
type Defaults struct {
	Platforms       []string `yaml:"platforms"`
	SourceURL       string   `yaml:"source-url,omitempty"`
	BackgroundImage string   `yaml:"background-image,omitempty"`
	FontColor       string   `yaml:"font-color"`
	OutputDir       string   `yaml:"output-dir"`
	PolishPrompt    string   `yaml:"polish-prompt,omitempty"`
	TitlePrompt     string   `yaml:"title-prompt,omitempty"`
	TagsPrompt      string   `yaml:"tags-prompt,omitempty"`
}

type Config struct {
	API      API      `yaml:"api"`
	Storage  Storage  `yaml:"storage"`
	LogLevel string   `yaml:"log-level"`
	LogFile  string   `yaml:"log-file,omitempty"`
	Defaults Defaults `yaml:"defaults"`
}

// Path returns the config file location. It respects XDG_CONFIG_HOME,
// falling back to ~/.config/autopub/config.yaml.
func Path() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), "autopub", "config.yaml")
}

// DataPath returns where the run database lives by default.
func DataPath() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")), "autopub", "autopub.db")
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fallback
	}
	return filepath.Join(home, fallback)
}

func Default() *Config {
	return &Config{
		API: API{
			BaseURL:     DefaultBaseURL,
			Timeout:     30 * time.Second,
			LongTimeout: 5 * time.Minute,
		},
		Storage:  Storage{Path: DataPath()},
		LogLevel: "info",
		Defaults: Defaults{
			Platforms: []string{"xiaohongshu"},
			FontColor: "black",
			OutputDir: "data/output_image",
		},
	}
}

// Load reads the config file at path, or Path() when path is empty, and
// applies environment overrides. If the file does not exist, defaults are
// used (not an error).
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.API.APIKey = v
	}
	if v := os.Getenv(EnvDB); v != "" {
		c.Storage.Path = v
	}
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base-url %q is not an absolute URL", c.API.BaseURL)
	}
	if c.API.Timeout < 0 || c.API.LongTimeout < 0 {
		return fmt.Errorf("api timeouts must not be negative")
	}
	switch strings.ToLower(c.Defaults.FontColor) {
	case "", "black", "white":
	default:
		return fmt.Errorf("defaults.font-color %q must be black or white", c.Defaults.FontColor)
	}
	for _, p := range c.Defaults.Platforms {
		switch p {
		case "xiaohongshu", "douyin":
		default:
			return fmt.Errorf("defaults.platforms: unknown platform %q", p)
		}
	}
	return nil
}

// Save writes the config to path, creating directories as needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = Path()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := writeFileAtomic(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// writeFileAtomic replaces path in one rename so readers never see a
// partially written config.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
