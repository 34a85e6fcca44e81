// Package indextest builds small on-disk bleve indexes for tests.
package indextest

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/hyperjump/kensaku/internal/index"
)

// Doc is one test document. Length and Epoch are stored when non-zero.
type Doc struct {
	Docno  string
	Fields map[string]string
	Length float64
	Epoch  float64
}

// Build writes docs to a new bleve index under dir using the named analyzer
// for every text field, plus an index.metadata sidecar naming the analyzer.
// It returns the index directory.
func Build(dir, analyzer string, docs []Doc) (string, error) {
	path := filepath.Join(dir, "index")
	idx, err := bleve.New(path, newMapping(analyzer, textFields(docs)))
	if err != nil {
		return "", err
	}
	batch := idx.NewBatch()
	for _, d := range docs {
		v := map[string]interface{}{index.DefaultDocnoField: d.Docno}
		for f, text := range d.Fields {
			v[f] = text
		}
		if d.Length != 0 {
			v[index.DefaultLengthField] = d.Length
		}
		if d.Epoch != 0 {
			v[index.DefaultTimeField] = d.Epoch
		}
		if err := batch.Index(d.Docno, v); err != nil {
			_ = idx.Close()
			return "", err
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return "", err
	}
	if err := idx.Close(); err != nil {
		return "", err
	}
	md := index.Metadata{index.MetaAnalyzer: analyzer}
	if err := index.WriteMetadata(path, md, index.MetaAnalyzer); err != nil {
		return "", err
	}
	return path, nil
}

// MustBuild is Build for tests, using a temporary directory.
func MustBuild(t testing.TB, analyzer string, docs []Doc) string {
	t.Helper()
	path, err := Build(t.TempDir(), analyzer, docs)
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	return path
}

// Open builds docs and opens the result read-only.
func Open(t testing.TB, analyzer string, docs []Doc, opts ...index.BleveOption) *index.BleveIndex {
	t.Helper()
	idx, err := index.OpenBleve(MustBuild(t, analyzer, docs), opts...)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func textFields(docs []Doc) []string {
	seen := make(map[string]struct{})
	for _, d := range docs {
		for f := range d.Fields {
			seen[f] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func newMapping(analyzer string, fields []string) *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	text.Analyzer = analyzer
	text.Store = true
	text.IncludeTermVectors = true
	text.IncludeInAll = false
	for _, f := range fields {
		docMapping.AddFieldMappingsAt(f, text)
	}

	docno := bleve.NewKeywordFieldMapping()
	docno.Store = true
	docno.IncludeInAll = false
	docMapping.AddFieldMappingsAt(index.DefaultDocnoField, docno)

	num := bleve.NewNumericFieldMapping()
	num.Store = true
	num.IncludeInAll = false
	docMapping.AddFieldMappingsAt(index.DefaultLengthField, num)
	docMapping.AddFieldMappingsAt(index.DefaultTimeField, num)

	im.DefaultMapping = docMapping
	im.DefaultAnalyzer = analyzer
	return im
}
