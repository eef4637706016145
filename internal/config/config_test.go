package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OPENAI_API_KEY", "OPENAI_BASE_URL", "PRIMO_API_KEY", "BIBCAT_DB", "BIBCAT_REPORT", "BIBCAT_LOG_MODE"} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DBPath != DefaultDBPath {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, DefaultDBPath)
	}
	if cfg.Catalog.Delay != 3*time.Second {
		t.Errorf("Catalog.Delay = %v, want 3s", cfg.Catalog.Delay)
	}
	if !cfg.Merge.CatalogImpliesDigital {
		t.Error("Merge.CatalogImpliesDigital should default to true")
	}
	if cfg.HasLLM() {
		t.Error("HasLLM() = true with no key")
	}
}

func TestLoad_FileAndEnvLayers(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yml")
	content := `db_path: /data/bib.db
faculty: Educación
catalog:
  delay: 500ms
  timeout: 5s
report:
  attempts: 5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BIBCAT_REPORT", "/tmp/out.csv")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DBPath != "/data/bib.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.Faculty != "Educación" {
		t.Errorf("Faculty = %q", cfg.Faculty)
	}
	if cfg.Catalog.Delay != 500*time.Millisecond {
		t.Errorf("Catalog.Delay = %v, want 500ms", cfg.Catalog.Delay)
	}
	if cfg.Report.Attempts != 5 {
		t.Errorf("Report.Attempts = %d, want 5", cfg.Report.Attempts)
	}
	if cfg.ReportPath != "/tmp/out.csv" {
		t.Errorf("ReportPath = %q, want env override", cfg.ReportPath)
	}
	if !cfg.HasLLM() {
		t.Error("HasLLM() = false with OPENAI_API_KEY set")
	}
	// Untouched sections keep defaults
	if cfg.Catalog.VID != "56UAH_INST:56UAH_INST" {
		t.Errorf("Catalog.VID = %q, want default", cfg.Catalog.VID)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("db_path: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Report.Attempts = 0
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "attempts") {
		t.Errorf("Validate() = %v, want attempts error", err)
	}

	cfg = Default()
	cfg.DBPath = " "
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for empty db_path")
	}
}

func TestSave_OmitsSecrets(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "config.yml")
	cfg := Default()
	cfg.LLM.APIKey = "sk-secret"
	cfg.Catalog.APIKey = "primo-secret"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "secret") {
		t.Errorf("saved config leaks secrets:\n%s", data)
	}
	if cfg.LLM.APIKey != "sk-secret" {
		t.Error("Save() must not mutate the receiver")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Catalog.Timeout != cfg.Catalog.Timeout {
		t.Errorf("round-trip Timeout = %v, want %v", loaded.Catalog.Timeout, cfg.Catalog.Timeout)
	}
}

func TestPath_RespectsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := Path(); got != filepath.Join("/xdg", "bibcat", "config.yml") {
		t.Errorf("Path() = %q", got)
	}
}

func TestExpandPath(t *testing.T) {
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandPath(abs) = %q", got)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := ExpandPath("~/x.db"); got != filepath.Join(home, "x.db") {
		t.Errorf("ExpandPath(~/x.db) = %q", got)
	}
}
