package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kensaku/internal/index"
	"github.com/hyperjump/kensaku/internal/index/indextest"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/storage"
)

var docs = []indextest.Doc{
	{Docno: "FT911-1", Fields: map[string]string{"text": "raf cranwell college graduates"}, Length: 4},
	{Docno: "FT911-2", Fields: map[string]string{"text": "raf squadron over cranwell and raf waddington"}, Length: 6},
	{Docno: "FT911-3", Fields: map[string]string{"text": "bank of england interest rates"}, Length: 4},
}

// writeTestConfig builds an index and writes a config pointing at it.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	indexPath := indextest.MustBuild(t, index.AnalyzerStandard, docs)
	content := fmt.Sprintf(`
index:
  path: %q
search:
  default_limit: 10
  max_limit: 100
  parallelism: 2
archive:
  database_path: %q
watch:
  enabled: false
`, indexPath, filepath.Join(dir, "runs.db"))
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
index:
  path: "./index"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolvedCanon, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	path := writeTestConfig(t)
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != path {
		t.Errorf("resolved = %s, want %s", resolved, path)
	}
	if cfg.Search.DefaultLimit != 10 || cfg.Watch.EnabledOrDefault() {
		t.Errorf("config not loaded: %+v", cfg)
	}
}

func TestLoadConfig_missing(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "kensaku dev\n" {
		t.Errorf("output = %q", out)
	}
}

func TestSearchCmd_Trec(t *testing.T) {
	cfg := writeTestConfig(t)
	out, err := execute(t, "--config", cfg, "search", "--query-id", "301", "--run-id", "test", "raf", "cranwell")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d: %q", len(lines), out)
	}
	for i, line := range lines {
		f := strings.Fields(line)
		if len(f) != 6 || f[0] != "301" || f[1] != "Q0" || f[3] != fmt.Sprint(i+1) || f[5] != "test" {
			t.Errorf("line %d = %q", i, line)
		}
	}
}

func TestSearchCmd_JSON(t *testing.T) {
	cfg := writeTestConfig(t)
	out, err := execute(t, "--config", cfg, "search", "--output", "json", "--model", "method:bm25", "bank", "interest")
	if err != nil {
		t.Fatal(err)
	}
	var resp models.SearchResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Hits[0].Docno != "FT911-3" {
		t.Errorf("response = %+v", resp)
	}
	if !strings.HasPrefix(resp.Model, "method:bm25") {
		t.Errorf("model = %q", resp.Model)
	}
}

func TestSearchCmd_Errors(t *testing.T) {
	cfg := writeTestConfig(t)
	tests := []struct {
		name string
		args []string
	}{
		{"invalid model", []string{"search", "--model", "method:bm25,k1:abc", "raf"}},
		{"unknown format", []string{"search", "--output", "xml", "raf"}},
		{"no query", []string{"search"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, append([]string{"--config", cfg}, tt.args...)...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBatchCmd_ArchivesRun(t *testing.T) {
	cfg := writeTestConfig(t)
	dir := t.TempDir()
	queries := filepath.Join(dir, "topics.txt")
	if err := os.WriteFile(queries, []byte("301 raf\n302\tbank interest\n"), 0600); err != nil {
		t.Fatal(err)
	}
	runFile := filepath.Join(dir, "r1.run")

	if _, err := execute(t, "--config", cfg, "batch", queries, "--out", runFile, "--run-id", "r1", "--archive"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(runFile)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("run file lines = %d: %q", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "301 Q0 ") || !strings.HasPrefix(lines[2], "302 Q0 FT911-3 1 ") {
		t.Errorf("run file order: %q", data)
	}

	out, err := execute(t, "--config", cfg, "runs", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "r1") {
		t.Errorf("runs list = %q", out)
	}

	out, err = execute(t, "--config", cfg, "runs", "show", "r1", "302")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "302 Q0 FT911-3 1 ") || !strings.HasSuffix(out, " r1\n") {
		t.Errorf("runs show = %q", out)
	}

	if _, err := execute(t, "--config", cfg, "runs", "delete", "r1"); err != nil {
		t.Fatal(err)
	}
	_, err = execute(t, "--config", cfg, "runs", "delete", "r1")
	if !errors.Is(err, storage.ErrRunNotFound) {
		t.Errorf("second delete: got %v", err)
	}
}

func TestBatchCmd_Stdout(t *testing.T) {
	cfg := writeTestConfig(t)
	queries := filepath.Join(t.TempDir(), "topics.json")
	if err := os.WriteFile(queries, []byte(`[{"id": "q1", "terms": {"raf": 1, "waddington": 2}}]`), 0600); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "--config", cfg, "batch", queries, "--run-id", "vec")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "q1 Q0 FT911-2 1 ") {
		t.Errorf("output = %q", out)
	}
}

func TestBatchCmd_MissingQueryFile(t *testing.T) {
	cfg := writeTestConfig(t)
	if _, err := execute(t, "--config", cfg, "batch", filepath.Join(t.TempDir(), "none.txt")); err == nil {
		t.Fatal("expected error")
	}
}

func TestStatsCmd(t *testing.T) {
	cfg := writeTestConfig(t)
	out, err := execute(t, "--config", cfg, "stats", "--output", "json")
	if err != nil {
		t.Fatal(err)
	}
	var resp statsResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Statistics.DocCount != 3 {
		t.Errorf("doc_count = %d", resp.Statistics.DocCount)
	}
	if resp.DiskUsage == nil || resp.DiskUsage.IndexBytes == 0 {
		t.Errorf("disk usage = %+v", resp.DiskUsage)
	}

	out, err = execute(t, "--config", cfg, "stats")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "documents:           3 ") {
		t.Errorf("text output = %q", out)
	}
}

func TestTermCmd(t *testing.T) {
	cfg := writeTestConfig(t)
	out, err := execute(t, "--config", cfg, "term", "--analyze", "RAF", "Bank")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q", out)
	}
	if f := strings.Fields(lines[1]); len(f) != 3 || f[0] != "raf" || f[1] != "2" || f[2] != "3" {
		t.Errorf("raf line = %q", lines[1])
	}
	if f := strings.Fields(lines[2]); len(f) != 3 || f[0] != "bank" || f[1] != "1" {
		t.Errorf("bank line = %q", lines[2])
	}
}

func TestDocCmd(t *testing.T) {
	cfg := writeTestConfig(t)

	out, err := execute(t, "--config", cfg, "doc", "FT911-1")
	if err != nil {
		t.Fatal(err)
	}
	var hit models.SearchHit
	if err := json.Unmarshal([]byte(out), &hit); err != nil {
		t.Fatal(err)
	}
	if hit.Docno != "FT911-1" || hit.Length != 4 {
		t.Errorf("hit = %+v", hit)
	}

	out, err = execute(t, "--config", cfg, "doc", "--vector", "--top", "1", "FT911-2")
	if err != nil {
		t.Fatal(err)
	}
	if out != "raf 2\n" {
		t.Errorf("vector = %q", out)
	}

	out, err = execute(t, "--config", cfg, "doc", "--text", "FT911-3")
	if err != nil {
		t.Fatal(err)
	}
	if out != "bank england interest rates\n" {
		t.Errorf("text = %q", out)
	}

	_, err = execute(t, "--config", cfg, "doc", "NOPE")
	if !errors.Is(err, index.ErrDocumentNotFound) {
		t.Errorf("missing doc: got %v", err)
	}
	if _, err := execute(t, "--config", cfg, "doc", "--vector", "--text", "FT911-1"); err == nil {
		t.Error("expected error for --vector with --text")
	}
}
