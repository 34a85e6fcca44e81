package models

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadQueries(t *testing.T) {
	in := "# topics 301-303\n301\tinternational organized crime\n\n302 poliomyelitis and post-polio\n  303   hubble telescope achievements  \n"
	queries, err := ReadQueries(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	want := []struct{ id, text string }{
		{"301", "international organized crime"},
		{"302", "poliomyelitis and post-polio"},
		{"303", "hubble telescope achievements"},
	}
	if len(queries) != len(want) {
		t.Fatalf("got %d queries, want %d", len(queries), len(want))
	}
	for i, w := range want {
		if queries[i].ID != w.id || queries[i].Text != w.text {
			t.Errorf("query %d: got %q %q", i, queries[i].ID, queries[i].Text)
		}
	}
}

func TestReadQueries_MissingText(t *testing.T) {
	_, err := ReadQueries(strings.NewReader("301 crime\n302\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected error naming line 2, got %v", err)
	}
}

func TestReadJSONQueries(t *testing.T) {
	in := `[{"id": "q1", "text": "raf cranwell"}, {"id": "q2", "terms": {"zeta": 0.2, "alpha": 0.7}}]`
	queries, err := ReadJSONQueries(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(queries) != 2 {
		t.Fatalf("got %d queries", len(queries))
	}
	if queries[0].Vector != nil {
		t.Errorf("text query should carry no vector")
	}
	fv := queries[1].Vector
	if fv == nil || fv.Weight("alpha") != 0.7 || fv.Weight("zeta") != 0.2 {
		t.Fatalf("vector: got %v", fv)
	}
	if got := strings.Join(fv.Features(), ","); got != "alpha,zeta" {
		t.Errorf("term order: got %s", got)
	}
}

func TestReadJSONQueries_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"malformed", `[{"id": "q1"`},
		{"empty query", `[{"id": "q1", "text": "  "}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadJSONQueries(strings.NewReader(tt.in)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadQueries_ByExtension(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "topics.txt")
	if err := os.WriteFile(txt, []byte("401 foreign minorities germany\n"), 0600); err != nil {
		t.Fatal(err)
	}
	js := filepath.Join(dir, "topics.JSON")
	if err := os.WriteFile(js, []byte(`[{"id": "402", "text": "behavioral genetics"}]`), 0600); err != nil {
		t.Fatal(err)
	}

	q, err := LoadQueries(txt)
	if err != nil || len(q) != 1 || q[0].ID != "401" {
		t.Errorf("text file: got %v, %v", q, err)
	}
	q, err = LoadQueries(js)
	if err != nil || len(q) != 1 || q[0].Text != "behavioral genetics" {
		t.Errorf("json file: got %v, %v", q, err)
	}
	if _, err := LoadQueries(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNewFeatureVectorFromMap(t *testing.T) {
	fv := NewFeatureVectorFromMap(map[string]float64{"b": 2, "a": 1, "c": 3})
	if got := strings.Join(fv.Features(), ","); got != "a,b,c" {
		t.Errorf("order: got %s", got)
	}
	if fv.Length() != 6 {
		t.Errorf("length: got %v", fv.Length())
	}
}
