// Package config handles bibcat configuration.
//
// Values are resolved in layers: built-in defaults, then the YAML file at
// $XDG_CONFIG_HOME/bibcat/config.yml, then environment variables (a .env
// file in the working directory is loaded first). CLI flags are applied on
// top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigDir is the directory name under XDG_CONFIG_HOME.
	ConfigDir = "bibcat"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"

	DefaultDBPath     = "bibliografia.db"
	DefaultReportPath = "reporte_bibliografia.csv"
	DefaultFaculty    = "Ciencias Sociales"
	DefaultCareer     = "Trabajo Social"
)

// Config is the full bibcat configuration.
type Config struct {
	DBPath     string `yaml:"db_path"`
	ReportPath string `yaml:"report_path"`
	Faculty    string `yaml:"faculty"`
	Career     string `yaml:"career"`

	LLM     LLMConfig     `yaml:"llm"`
	Catalog CatalogConfig `yaml:"catalog"`
	Merge   MergeConfig   `yaml:"merge"`
	Report  ReportConfig  `yaml:"report"`
	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
}

// LLMConfig configures the language-model capability.
type LLMConfig struct {
	APIKey  string        `yaml:"api_key,omitempty"`
	BaseURL string        `yaml:"base_url,omitempty"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// CatalogConfig configures the Primo catalog client.
type CatalogConfig struct {
	Disabled bool          `yaml:"disabled,omitempty"`
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key,omitempty"`
	VID      string        `yaml:"vid"`
	Tab      string        `yaml:"tab"`
	Scope    string        `yaml:"scope"`
	Delay    time.Duration `yaml:"delay"`
	Timeout  time.Duration `yaml:"timeout"`
}

// MergeConfig tunes the merge engine.
type MergeConfig struct {
	// CatalogImpliesDigital treats "found in catalog" as digital availability.
	CatalogImpliesDigital bool `yaml:"catalog_implies_digital"`
}

// ReportConfig controls report writing.
type ReportConfig struct {
	Attempts int           `yaml:"attempts"`
	Backoff  time.Duration `yaml:"backoff"`
}

// LogConfig selects the logger mode ("dev" or "prod").
type LogConfig struct {
	Mode string `yaml:"mode"`
}

// ServerConfig configures the web form.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	UploadDir string `yaml:"upload_dir,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DBPath:     DefaultDBPath,
		ReportPath: DefaultReportPath,
		Faculty:    DefaultFaculty,
		Career:     DefaultCareer,
		LLM: LLMConfig{
			Model:   "gpt-4o-mini",
			Timeout: 60 * time.Second,
		},
		Catalog: CatalogConfig{
			BaseURL: "https://api-na.hosted.exlibrisgroup.com/primo/v1/search",
			VID:     "56UAH_INST:56UAH_INST",
			Tab:     "Everything",
			Scope:   "MyInst_and_CI",
			Delay:   3 * time.Second,
			Timeout: 20 * time.Second,
		},
		Merge:  MergeConfig{CatalogImpliesDigital: true},
		Report: ReportConfig{Attempts: 3, Backoff: 2 * time.Second},
		Log:    LogConfig{Mode: "dev"},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Path returns the path to the config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/bibcat/config.yml.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDir, ConfigFile)
}

// Load resolves the configuration from path (or Path() when empty).
// A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = Path()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("PRIMO_API_KEY"); v != "" {
		c.Catalog.APIKey = v
	}
	if v := os.Getenv("BIBCAT_DB"); v != "" {
		c.DBPath = ExpandPath(v)
	}
	if v := os.Getenv("BIBCAT_REPORT"); v != "" {
		c.ReportPath = ExpandPath(v)
	}
	if v := os.Getenv("BIBCAT_LOG_MODE"); v != "" {
		c.Log.Mode = v
	}
}

// Validate checks the values that would otherwise fail deep in the pipeline.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("db_path is required")
	}
	if strings.TrimSpace(c.ReportPath) == "" {
		return fmt.Errorf("report_path is required")
	}
	if c.Report.Attempts < 1 {
		return fmt.Errorf("report.attempts must be at least 1, got %d", c.Report.Attempts)
	}
	if c.Catalog.Delay < 0 || c.Catalog.Timeout < 0 || c.LLM.Timeout < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

// Save writes the configuration to path, omitting secrets.
func (c *Config) Save(path string) error {
	out := *c
	out.LLM.APIKey = ""
	out.Catalog.APIKey = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// HasLLM reports whether a language-model key is configured.
func (c *Config) HasLLM() bool {
	return strings.TrimSpace(c.LLM.APIKey) != ""
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
