// Package index provides read access to a persisted inverted index: collection
// counts, per-document positional postings, stored fields and boolean/phrase
// candidate retrieval.
package index

import (
	"context"
	"errors"

	"github.com/hyperjump/kensaku/internal/query"
)

var (
	// ErrIndexAccess wraps failures of the underlying index.
	ErrIndexAccess = errors.New("index access failed")
	// ErrDocumentNotFound is returned for internal ids or docnos the index does not hold.
	ErrDocumentNotFound = errors.New("document not found")
)

// Default names of the metadata fields written by the index builder.
const (
	DefaultDocnoField  = "docno"
	DefaultLengthField = "doclen"
	DefaultTimeField   = "epoch"
)

// Posting is one occurrence of a term in a document field. Positions are 0-based.
type Posting struct {
	Term     string
	Position int
}

// Match is a candidate document returned by Search.
type Match struct {
	DocID int
	// Freqs counts occurrences of each positive query term over the searched fields.
	Freqs map[string]float64
	// Stored holds the values of SearchOptions.StoredFields present on the document.
	Stored map[string]string
}

// SearchOptions controls candidate retrieval.
type SearchOptions struct {
	// Fields are searched by clauses without an explicit field. Empty means all text fields.
	Fields []string
	// Limit caps the number of candidates. 0 returns every match.
	Limit int
	// StoredFields are loaded with each match, in the same pass as retrieval.
	StoredFields []string
}

// Reader is read-only access to an index. Implementations must be safe for
// concurrent use.
type Reader interface {
	// DocCount returns the number of documents.
	DocCount() (int, error)
	// Fields returns the text field names in lexicographic order.
	Fields() ([]string, error)
	// SumTotalTermFreq returns the number of term occurrences in field.
	SumTotalTermFreq(field string) (int64, error)
	// VocabularySize returns the number of distinct terms in field.
	VocabularySize(field string) (int64, error)
	// DocFreq returns the number of documents containing term in field.
	DocFreq(field, term string) (int64, error)
	// TotalTermFreq returns the number of occurrences of term in field.
	TotalTermFreq(field, term string) (int64, error)
	// TermVector returns the postings of one field of a document, ordered by position.
	TermVector(docID int, field string) ([]Posting, error)
	// StoredFields returns the stored values of the named fields. Absent fields are omitted.
	StoredFields(docID int, names []string) (map[string]string, error)
	// DocID resolves the document whose field has exactly value.
	DocID(field, value string) (int, error)
	// Search returns the documents matching q in retrieval order.
	Search(ctx context.Context, q *query.Query, opts SearchOptions) ([]Match, error)
	// Analyze tokenizes text the way indexed text was tokenized.
	Analyze(text string) []string
	Close() error
}
