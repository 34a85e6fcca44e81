package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
index:
  path: "/srv/index"
  docno_field: "id"
search:
  default_model: "method:bm25,k1:1.2"
  default_limit: 100
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.Addr() != "127.0.0.1:9000" {
		t.Errorf("Addr() = %s", cfg.Server.Addr())
	}
	if cfg.Index.Path != "/srv/index" {
		t.Errorf("index path = %s", cfg.Index.Path)
	}
	if cfg.Index.DocnoField != "id" {
		t.Errorf("docno_field = %s", cfg.Index.DocnoField)
	}
	if cfg.Index.LengthField != "doclen" {
		t.Errorf("length_field should default to doclen, got %s", cfg.Index.LengthField)
	}
	if cfg.Search.DefaultModel != "method:bm25,k1:1.2" {
		t.Errorf("default_model = %s", cfg.Search.DefaultModel)
	}
	if cfg.Search.DefaultLimit != 100 {
		t.Errorf("default_limit = %d", cfg.Search.DefaultLimit)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	path := writeConfig(t, "debug: true\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
index:
  path: "./data/index"
  stopwords: "./stoplist.txt"
archive:
  database_path: "./data/db/runs.db"
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "index"); cfg.Index.Path != want {
		t.Errorf("index path = %s, want %s", cfg.Index.Path, want)
	}
	if want := filepath.Join(dir, "stoplist.txt"); cfg.Index.Stopwords != want {
		t.Errorf("stopwords = %s, want %s", cfg.Index.Stopwords, want)
	}
	if want := filepath.Join(dir, "data", "db", "runs.db"); cfg.Archive.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Archive.DatabasePath, want)
	}
}

func TestLoad_watchDebounce(t *testing.T) {
	path := writeConfig(t, `
watch:
  enabled: false
  debounce: 2s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Watch.EnabledOrDefault() {
		t.Error("watch should be disabled")
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("debounce = %v, want 2s", cfg.Watch.Debounce)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad yaml", "server: [", "failed to parse config"},
		{"limit above max", "search:\n  default_limit: 500\n  max_limit: 100\n", "exceeds"},
		{"negative depth", "index:\n  candidate_depth: -1\n", "candidate_depth"},
		{"unknown format", "output:\n  format: csv\n", "output.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Search.DefaultLimit != 1000 {
		t.Errorf("default limit: got %d", cfg.Search.DefaultLimit)
	}
	if cfg.Search.MaxLimit != 10000 {
		t.Errorf("max limit: got %d", cfg.Search.MaxLimit)
	}
	if cfg.Index.DocnoField != "docno" || cfg.Index.LengthField != "doclen" || cfg.Index.TimeField != "epoch" {
		t.Errorf("field defaults: got %+v", cfg.Index)
	}
	if cfg.Index.VectorCacheSize != 4096 {
		t.Errorf("default vector cache: got %d", cfg.Index.VectorCacheSize)
	}
	if cfg.Output.Format != "trec" {
		t.Errorf("default format: got %s", cfg.Output.Format)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("default debounce: got %v", cfg.Watch.Debounce)
	}
	if cfg.Search.DefaultModel != "" {
		t.Errorf("default model should stay empty so index metadata applies, got %s", cfg.Search.DefaultModel)
	}
}

func TestWatchConfig_EnabledOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		w := &WatchConfig{}
		if got := w.EnabledOrDefault(); !got {
			t.Errorf("EnabledOrDefault() = %v, want true", got)
		}
	})
	t.Run("true_returns_true", func(t *testing.T) {
		v := true
		w := &WatchConfig{Enabled: &v}
		if got := w.EnabledOrDefault(); !got {
			t.Errorf("EnabledOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		w := &WatchConfig{Enabled: &f}
		if got := w.EnabledOrDefault(); got {
			t.Errorf("EnabledOrDefault() = %v, want false", got)
		}
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Archive: ArchiveConfig{DatabasePath: "/tmp/runs.db"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Archive.DatabasePath != "/tmp/runs.db" {
		t.Errorf("loaded database_path: got %s", loaded.Archive.DatabasePath)
	}
}

func TestSearchConfig_ClampLimit(t *testing.T) {
	cfg := SearchConfig{DefaultLimit: 20, MaxLimit: 50}
	tests := []struct{ in, want int }{
		{0, 20},
		{-1, 20},
		{10, 10},
		{50, 50},
		{51, 50},
	}
	for _, tt := range tests {
		if got := cfg.ClampLimit(tt.in); got != tt.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if got := (SearchConfig{DefaultLimit: 5}).ClampLimit(900); got != 900 {
		t.Errorf("no max: got %d", got)
	}
}
