package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/kensaku/internal/query"
)

// IDField addresses the external document identifier in DocID lookups.
const IDField = "_id"

type memDoc struct {
	id       string
	postings map[string][]Posting
	stored   map[string]string
}

func (d *memDoc) positions(field, term string) []int {
	var out []int
	for _, p := range d.postings[field] {
		if p.Term == term {
			out = append(out, p.Position)
		}
	}
	return out
}

// MemoryIndex is an in-memory Reader. Documents are kept sorted by external
// id, so internal ids are stable once loading is complete.
type MemoryIndex struct {
	mu       sync.RWMutex
	analyzer Analyzer
	docs     []*memDoc
}

// NewMemoryIndex creates an empty index that analyzes text and queries with a.
// A nil analyzer uses whitespace tokenization.
func NewMemoryIndex(a Analyzer) *MemoryIndex {
	if a == nil {
		a = whitespaceAnalyzer{}
	}
	return &MemoryIndex{analyzer: a}
}

// AddDocument adds a document from pre-tokenized postings per field.
func (m *MemoryIndex) AddDocument(id string, postings map[string][]Posting, stored map[string]string) error {
	if id == "" {
		return fmt.Errorf("add document: empty id")
	}
	d := &memDoc{id: id, postings: make(map[string][]Posting, len(postings)), stored: make(map[string]string, len(stored))}
	for f, ps := range postings {
		sorted := append([]Posting(nil), ps...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })
		d.postings[f] = sorted
	}
	for k, v := range stored {
		d.stored[k] = v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	i := sort.Search(len(m.docs), func(i int) bool { return m.docs[i].id >= id })
	if i < len(m.docs) && m.docs[i].id == id {
		m.docs[i] = d
		return nil
	}
	m.docs = append(m.docs, nil)
	copy(m.docs[i+1:], m.docs[i:])
	m.docs[i] = d
	return nil
}

// AddText adds a document whose text fields are analyzed and also stored.
func (m *MemoryIndex) AddText(id string, text map[string]string, stored map[string]string) error {
	postings := make(map[string][]Posting, len(text))
	all := make(map[string]string, len(text)+len(stored))
	for f, t := range text {
		postings[f] = m.analyzer.Tokens(t)
		all[f] = t
	}
	for k, v := range stored {
		all[k] = v
	}
	return m.AddDocument(id, postings, all)
}

func (m *MemoryIndex) doc(docID int) (*memDoc, error) {
	if docID < 0 || docID >= len(m.docs) {
		return nil, fmt.Errorf("%w: internal id %d", ErrDocumentNotFound, docID)
	}
	return m.docs[docID], nil
}

func (m *MemoryIndex) DocCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs), nil
}

func (m *MemoryIndex) Fields() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fields(), nil
}

func (m *MemoryIndex) fields() []string {
	seen := make(map[string]struct{})
	for _, d := range m.docs {
		for f := range d.postings {
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

func (m *MemoryIndex) SumTotalTermFreq(field string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, d := range m.docs {
		n += int64(len(d.postings[field]))
	}
	return n, nil
}

func (m *MemoryIndex) VocabularySize(field string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	terms := make(map[string]struct{})
	for _, d := range m.docs {
		for _, p := range d.postings[field] {
			terms[p.Term] = struct{}{}
		}
	}
	return int64(len(terms)), nil
}

func (m *MemoryIndex) DocFreq(field, term string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, d := range m.docs {
		for _, p := range d.postings[field] {
			if p.Term == term {
				n++
				break
			}
		}
	}
	return n, nil
}

func (m *MemoryIndex) TotalTermFreq(field, term string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, d := range m.docs {
		for _, p := range d.postings[field] {
			if p.Term == term {
				n++
			}
		}
	}
	return n, nil
}

func (m *MemoryIndex) TermVector(docID int, field string) ([]Posting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, err := m.doc(docID)
	if err != nil {
		return nil, err
	}
	return append([]Posting(nil), d.postings[field]...), nil
}

func (m *MemoryIndex) StoredFields(docID int, names []string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, err := m.doc(docID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(names))
	for _, n := range names {
		if v, ok := d.stored[n]; ok {
			out[n] = v
		}
	}
	return out, nil
}

func (m *MemoryIndex) DocID(field, value string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i, d := range m.docs {
		if field == IDField && d.id == value {
			return i, nil
		}
		if v, ok := d.stored[field]; ok && v == value {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s=%q", ErrDocumentNotFound, field, value)
}

func (m *MemoryIndex) Search(ctx context.Context, q *query.Query, opts SearchOptions) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexAccess, err)
	}
	pq, err := prepare(q, m.Analyze)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	fields := opts.Fields
	if len(fields) == 0 {
		fields = m.fields()
	}
	var out []Match
	for i, d := range m.docs {
		if !matches(pq, fields, d.positions) {
			continue
		}
		stored := make(map[string]string, len(opts.StoredFields))
		for _, n := range opts.StoredFields {
			if v, ok := d.stored[n]; ok {
				stored[n] = v
			}
		}
		out = append(out, Match{DocID: i, Freqs: termFreqs(pq, fields, d.positions), Stored: stored})
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryIndex) Analyze(text string) []string {
	return Terms(m.analyzer, text)
}

func (m *MemoryIndex) Close() error { return nil }
