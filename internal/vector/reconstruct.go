// Package vector rebuilds document term vectors and token sequences from the
// positional postings of an index.
package vector

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/index"
	"github.com/hyperjump/kensaku/internal/models"
)

type settings struct {
	fields    []string
	stopper   *models.Stopper
	cacheSize int
}

// Option selects fields or a stopper, for a Reconstructor or a single call.
type Option func(*settings)

// WithFields restricts reconstruction to fields. No fields means all text fields.
func WithFields(fields ...string) Option {
	return func(s *settings) { s.fields = fields }
}

// WithStopper excludes stopwords.
func WithStopper(st *models.Stopper) Option {
	return func(s *settings) { s.stopper = st }
}

// WithCacheSize sets how many per-field term vectors New keeps in memory.
// A negative size disables the cache. It has no effect on a single call.
func WithCacheSize(n int) Option {
	return func(s *settings) { s.cacheSize = n }
}

// Reconstructor builds document representations from postings.
type Reconstructor struct {
	reader   index.Reader
	logger   *zap.Logger
	defaults settings
	cache    *postingsCache
}

// New creates a Reconstructor over r.
func New(r index.Reader, logger *zap.Logger, opts ...Option) *Reconstructor {
	if logger == nil {
		logger = zap.NewNop()
	}
	rc := &Reconstructor{reader: r, logger: logger}
	rc.defaults.cacheSize = DefaultCacheSize
	for _, opt := range opts {
		opt(&rc.defaults)
	}
	if rc.defaults.cacheSize > 0 {
		rc.cache = newPostingsCache(rc.defaults.cacheSize)
	}
	return rc
}

// termVector reads one field's postings through the cache.
func (r *Reconstructor) termVector(docID int, field string) ([]index.Posting, error) {
	if r.cache == nil {
		return r.reader.TermVector(docID, field)
	}
	if postings, ok := r.cache.get(docID, field); ok {
		return postings, nil
	}
	postings, err := r.reader.TermVector(docID, field)
	if err != nil {
		return nil, err
	}
	r.cache.set(docID, field, postings)
	return postings, nil
}

func (r *Reconstructor) settings(opts []Option) (settings, error) {
	s := r.defaults
	for _, opt := range opts {
		opt(&s)
	}
	if len(s.fields) == 0 {
		fields, err := r.reader.Fields()
		if err != nil {
			return s, err
		}
		s.fields = fields
	}
	sorted := append([]string(nil), s.fields...)
	sort.Strings(sorted)
	s.fields = sorted
	return s, nil
}

// FeatureVector returns term counts of a document over the selected fields.
// An unknown document yields an empty vector and an error wrapping
// index.ErrDocumentNotFound.
func (r *Reconstructor) FeatureVector(docID int, opts ...Option) (*models.FeatureVector, error) {
	s, err := r.settings(opts)
	fv := models.NewFeatureVector(s.stopper)
	if err != nil {
		return fv, err
	}
	for _, f := range s.fields {
		postings, err := r.termVector(docID, f)
		if err != nil {
			return models.NewFeatureVector(s.stopper), fmt.Errorf("feature vector of %d: %w", docID, err)
		}
		for _, p := range postings {
			fv.AddTerm(p.Term, 1)
		}
	}
	return fv, nil
}

// Terms returns the token sequence of a document. Fields are concatenated in
// lexicographic order; each field's positions are shifted past the previous
// fields so tokens never interleave.
func (r *Reconstructor) Terms(docID int, opts ...Option) ([]string, error) {
	s, err := r.settings(opts)
	if err != nil {
		return nil, err
	}
	type placed struct {
		term string
		pos  int
	}
	var all []placed
	offset := 0
	for _, f := range s.fields {
		postings, err := r.termVector(docID, f)
		if err != nil {
			return []string{}, fmt.Errorf("terms of %d: %w", docID, err)
		}
		if len(postings) == 0 {
			continue
		}
		span := 0
		for _, p := range postings {
			if s.stopper.IsStopWord(p.Term) {
				continue
			}
			all = append(all, placed{term: p.Term, pos: offset + p.Position})
		}
		for _, p := range postings {
			if p.Position+1 > span {
				span = p.Position + 1
			}
		}
		offset += span
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].pos < all[j].pos })
	out := make([]string, len(all))
	for i, p := range all {
		out[i] = p.term
	}
	return out, nil
}

// Text returns the tokens of one field joined by single spaces.
func (r *Reconstructor) Text(docID int, field string) (string, error) {
	terms, err := r.Terms(docID, WithFields(field), WithStopper(nil))
	if err != nil {
		return "", err
	}
	return strings.Join(terms, " "), nil
}

// FullText joins the texts of all text fields, in lexicographic field order,
// skipping empty fields.
func (r *Reconstructor) FullText(docID int) (string, error) {
	fields, err := r.reader.Fields()
	if err != nil {
		return "", err
	}
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	parts := make([]string, 0, len(sorted))
	for _, f := range sorted {
		text, err := r.Text(docID, f)
		if err != nil {
			return "", err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

// Length counts the tokens of a document over fields. It is the fallback when
// the stored length field is missing.
func (r *Reconstructor) Length(docID int, fields ...string) (int, error) {
	s, err := r.settings([]Option{WithFields(fields...), WithStopper(nil)})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, f := range s.fields {
		postings, err := r.termVector(docID, f)
		if err != nil {
			return 0, fmt.Errorf("length of %d: %w", docID, err)
		}
		n += len(postings)
	}
	r.logger.Debug("document length reconstructed", zap.Int("doc_id", docID), zap.Int("length", n))
	return n, nil
}
