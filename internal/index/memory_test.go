package index

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/kensaku/internal/query"
)

func newTestMemoryIndex(t *testing.T) *MemoryIndex {
	t.Helper()
	m := NewMemoryIndex(nil)
	docs := []struct {
		id     string
		text   string
		title  string
		stored map[string]string
	}{
		{"d2", "raf cranwell raf college", "cranwell", map[string]string{"docno": "d2", "doclen": "5", "epoch": "100"}},
		{"d1", "bank of england rates", "bank news", map[string]string{"docno": "d1", "doclen": "6"}},
		{"d3", "england bank rates fall", "", map[string]string{"docno": "d3"}},
	}
	for _, d := range docs {
		fields := map[string]string{"text": d.text}
		if d.title != "" {
			fields["title"] = d.title
		}
		if err := m.AddText(d.id, fields, d.stored); err != nil {
			t.Fatalf("AddText: %v", err)
		}
	}
	return m
}

func TestMemoryIndex_Counts(t *testing.T) {
	m := newTestMemoryIndex(t)

	if n, _ := m.DocCount(); n != 3 {
		t.Errorf("DocCount = %d, want 3", n)
	}
	fields, _ := m.Fields()
	if len(fields) != 2 || fields[0] != "text" || fields[1] != "title" {
		t.Errorf("Fields = %v", fields)
	}
	if n, _ := m.SumTotalTermFreq("text"); n != 12 {
		t.Errorf("SumTotalTermFreq(text) = %d, want 12", n)
	}
	if n, _ := m.VocabularySize("text"); n != 8 {
		t.Errorf("VocabularySize(text) = %d, want 8", n)
	}
	if n, _ := m.DocFreq("text", "bank"); n != 2 {
		t.Errorf("DocFreq(bank) = %d, want 2", n)
	}
	if n, _ := m.TotalTermFreq("text", "raf"); n != 2 {
		t.Errorf("TotalTermFreq(raf) = %d, want 2", n)
	}
}

func TestMemoryIndex_InternalIDsFollowSortedExternalIDs(t *testing.T) {
	m := newTestMemoryIndex(t)
	for want, docno := range []string{"d1", "d2", "d3"} {
		got, err := m.DocID(IDField, docno)
		if err != nil || got != want {
			t.Errorf("DocID(%s) = %d, %v; want %d", docno, got, err, want)
		}
		byField, err := m.DocID("docno", docno)
		if err != nil || byField != want {
			t.Errorf("DocID(docno=%s) = %d, %v; want %d", docno, byField, err, want)
		}
	}
	if _, err := m.DocID("docno", "missing"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("DocID(missing) error = %v", err)
	}
}

func TestMemoryIndex_TermVectorAndStored(t *testing.T) {
	m := newTestMemoryIndex(t)

	tv, err := m.TermVector(1, "text")
	if err != nil {
		t.Fatalf("TermVector: %v", err)
	}
	want := []string{"raf", "cranwell", "raf", "college"}
	if len(tv) != len(want) {
		t.Fatalf("TermVector = %v", tv)
	}
	for i, p := range tv {
		if p.Term != want[i] || p.Position != i {
			t.Errorf("posting %d = %+v", i, p)
		}
	}

	stored, err := m.StoredFields(1, []string{"docno", "epoch", "absent"})
	if err != nil {
		t.Fatalf("StoredFields: %v", err)
	}
	if stored["docno"] != "d2" || stored["epoch"] != "100" {
		t.Errorf("StoredFields = %v", stored)
	}
	if _, ok := stored["absent"]; ok {
		t.Error("absent field should be omitted")
	}

	if _, err := m.TermVector(99, "text"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("TermVector(99) error = %v", err)
	}
	if _, err := m.StoredFields(-1, nil); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("StoredFields(-1) error = %v", err)
	}
}

func TestMemoryIndex_Search(t *testing.T) {
	m := newTestMemoryIndex(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		query  string
		fields []string
		want   []int
	}{
		{"disjunction", "raf bank", nil, []int{0, 1, 2}},
		{"conjunction", "+bank +rates", nil, []int{0, 2}},
		{"exclusion", "bank -england", nil, nil},
		{"exclusion keeps others", "rates -fall", nil, []int{0}},
		{"field restricted", "title:cranwell", nil, []int{1}},
		{"searched fields", "cranwell", []string{"title"}, []int{1}},
		{"exact phrase", `"england bank"`, nil, []int{2}},
		{"gap needs slop", `"bank england"`, nil, nil},
		{"sloppy phrase", `"bank england"~1`, nil, []int{0}},
		{"reversed phrase", `"bank england"~2`, nil, []int{0, 2}},
		{"phrase must", `+"raf college" cranwell`, nil, []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := query.Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			got, err := m.Search(ctx, q, SearchOptions{Fields: tt.fields})
			if err != nil {
				t.Fatalf("Search: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Search(%q) = %+v, want ids %v", tt.query, got, tt.want)
			}
			for i, id := range tt.want {
				if got[i].DocID != id {
					t.Errorf("match %d = %d, want %d", i, got[i].DocID, id)
				}
			}
		})
	}
}

func TestMemoryIndex_SearchFreqsAndLimit(t *testing.T) {
	m := newTestMemoryIndex(t)
	q, _ := query.Parse("raf cranwell")

	got, err := m.Search(context.Background(), q, SearchOptions{StoredFields: []string{"doclen", "missing"}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("matches = %+v", got)
	}
	// cranwell occurs once in text and once in title.
	if got[0].Freqs["raf"] != 2 || got[0].Freqs["cranwell"] != 2 {
		t.Errorf("Freqs = %v", got[0].Freqs)
	}
	if len(got[0].Stored) != 1 || got[0].Stored["doclen"] != "5" {
		t.Errorf("Stored = %v", got[0].Stored)
	}

	q, _ = query.Parse("bank rates")
	got, _ = m.Search(context.Background(), q, SearchOptions{Limit: 1})
	if len(got) != 1 || got[0].DocID != 0 {
		t.Errorf("limited search = %+v", got)
	}
}

func TestMemoryIndex_SearchNothingSearchable(t *testing.T) {
	m := NewMemoryIndex(stopAnalyzer{})
	_ = m.AddText("a", map[string]string{"text": "the raf"}, nil)
	q, _ := query.Parse("the -raf")
	if _, err := m.Search(context.Background(), q, SearchOptions{}); !errors.Is(err, query.ErrParse) {
		t.Errorf("Search error = %v, want ErrParse", err)
	}
}

func TestMemoryIndex_SearchCancelled(t *testing.T) {
	m := newTestMemoryIndex(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q, _ := query.Parse("raf")
	if _, err := m.Search(ctx, q, SearchOptions{}); !errors.Is(err, ErrIndexAccess) {
		t.Errorf("Search error = %v, want ErrIndexAccess", err)
	}
}

// stopAnalyzer drops "the".
type stopAnalyzer struct{}

func (stopAnalyzer) Name() string { return "stop" }

func (stopAnalyzer) Tokens(text string) []Posting {
	var out []Posting
	for _, p := range (whitespaceAnalyzer{}).Tokens(text) {
		if p.Term != "the" {
			out = append(out, p)
		}
	}
	return out
}
