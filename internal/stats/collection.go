// Package stats computes collection-wide statistics over an index.
//
// Per-field quantities are summed across the requested fields. A document
// matching a term in two fields is counted twice by DocumentFrequency.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/index"
)

// Snapshot is a point-in-time summary of the collection.
type Snapshot struct {
	Fields           []string `json:"fields"`
	DocCount         int      `json:"doc_count"`
	TermCount        int64    `json:"term_count"`
	VocabularySize   int64    `json:"vocabulary_size"`
	AverageDocLength float64  `json:"average_doc_length"`
}

// Collection answers statistics queries over an index.Reader. The index is
// assumed not to change for the lifetime of a Collection.
type Collection struct {
	reader index.Reader
	logger *zap.Logger
	vocab  sync.Map // field-set key -> int64
}

// Option configures a Collection.
type Option func(*Collection)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Collection) { c.logger = l }
}

// New creates a Collection over r.
func New(r index.Reader, opts ...Option) *Collection {
	c := &Collection{reader: r, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fields returns the text fields of the index in lexicographic order.
func (c *Collection) Fields() ([]string, error) {
	return c.reader.Fields()
}

func (c *Collection) resolve(fields []string) ([]string, error) {
	if len(fields) > 0 {
		return fields, nil
	}
	return c.reader.Fields()
}

// DocumentCount returns the number of documents.
func (c *Collection) DocumentCount() (int, error) {
	return c.reader.DocCount()
}

// TermCount returns the number of term occurrences over fields. No fields means all text fields.
func (c *Collection) TermCount(fields ...string) (int64, error) {
	fields, err := c.resolve(fields)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, f := range fields {
		n, err := c.reader.SumTotalTermFreq(f)
		if err != nil {
			return 0, fmt.Errorf("term count of %s: %w", f, err)
		}
		total += n
	}
	return total, nil
}

// VocabularySize returns the number of distinct terms summed per field. The
// result is computed once per field set and memoized.
func (c *Collection) VocabularySize(fields ...string) (int64, error) {
	fields, err := c.resolve(fields)
	if err != nil {
		return 0, err
	}
	key := fieldKey(fields)
	if v, ok := c.vocab.Load(key); ok {
		return v.(int64), nil
	}
	var total int64
	for _, f := range fields {
		n, err := c.reader.VocabularySize(f)
		if err != nil {
			return 0, fmt.Errorf("vocabulary size of %s: %w", f, err)
		}
		total += n
	}
	actual, _ := c.vocab.LoadOrStore(key, total)
	c.logger.Debug("vocabulary size computed", zap.String("fields", key), zap.Int64("size", total))
	return actual.(int64), nil
}

// DocumentFrequency returns the number of documents containing term, summed over fields.
func (c *Collection) DocumentFrequency(term string, fields ...string) (int64, error) {
	fields, err := c.resolve(fields)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, f := range fields {
		n, err := c.reader.DocFreq(f, term)
		if err != nil {
			return 0, fmt.Errorf("document frequency of %s:%s: %w", f, term, err)
		}
		total += n
	}
	return total, nil
}

// TermFrequency returns the number of occurrences of term, summed over fields.
func (c *Collection) TermFrequency(term string, fields ...string) (int64, error) {
	fields, err := c.resolve(fields)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, f := range fields {
		n, err := c.reader.TotalTermFreq(f, term)
		if err != nil {
			return 0, fmt.Errorf("term frequency of %s:%s: %w", f, term, err)
		}
		total += n
	}
	return total, nil
}

// AverageDocumentLength returns TermCount / DocumentCount, or 0 for an empty index.
func (c *Collection) AverageDocumentLength(fields ...string) (float64, error) {
	n, err := c.DocumentCount()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	terms, err := c.TermCount(fields...)
	if err != nil {
		return 0, err
	}
	return float64(terms) / float64(n), nil
}

// Snapshot gathers the collection summary for fields.
func (c *Collection) Snapshot(fields ...string) (Snapshot, error) {
	fields, err := c.resolve(fields)
	if err != nil {
		return Snapshot{}, err
	}
	var s Snapshot
	s.Fields = append([]string(nil), fields...)
	if s.DocCount, err = c.DocumentCount(); err != nil {
		return Snapshot{}, err
	}
	if s.TermCount, err = c.TermCount(fields...); err != nil {
		return Snapshot{}, err
	}
	if s.VocabularySize, err = c.VocabularySize(fields...); err != nil {
		return Snapshot{}, err
	}
	if s.DocCount > 0 {
		s.AverageDocLength = float64(s.TermCount) / float64(s.DocCount)
	}
	return s, nil
}

func fieldKey(fields []string) string {
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}
