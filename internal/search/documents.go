package search

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperjump/kensaku/internal/index"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/vector"
)

// DocID resolves a docno to its internal id.
func (e *Engine) DocID(docno string) (int, error) {
	return e.reader.DocID(e.docno, docno)
}

// Hit builds a hit for docno carrying its feature vector, stored length and
// numeric time metadata. Stopwords in stopper are left out of the vector.
func (e *Engine) Hit(docno string, stopper *models.Stopper) (*models.SearchHit, error) {
	id, err := e.DocID(docno)
	if err != nil {
		return nil, err
	}
	hit, err := e.enrich(id, nil)
	if err != nil {
		return nil, err
	}
	if hit.Docno == "" {
		hit.Docno = docno
	}
	fv, err := e.vectors.FeatureVector(id, vector.WithStopper(stopper))
	if err != nil {
		return nil, err
	}
	hit.Vector = fv
	return hit, nil
}

// MetadataValue returns the stored value of field for docno.
func (e *Engine) MetadataValue(docno, field string) (string, error) {
	id, err := e.DocID(docno)
	if err != nil {
		return "", err
	}
	stored, err := e.reader.StoredFields(id, []string{field})
	if err != nil {
		return "", err
	}
	v, ok := stored[field]
	if !ok {
		return "", fmt.Errorf("%w: %s has no stored %s", index.ErrDocumentNotFound, docno, field)
	}
	return v, nil
}

// DocLength returns the stored length of a document, falling back to the
// number of tokens over all text fields.
func (e *Engine) DocLength(docID int) (float64, error) {
	stored, err := e.reader.StoredFields(docID, []string{e.length})
	if err != nil {
		return 0, err
	}
	if v, ok := stored[e.length]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
	}
	n, err := e.vectors.Length(docID)
	return float64(n), err
}

// DocsByTerm returns, for each of docIDs containing term, its number of
// occurrences over all text fields. The term is analyzed first, so raw
// surface forms match their indexed tokens. Unknown ids are skipped.
func (e *Engine) DocsByTerm(term string, docIDs []int) (map[int]int, error) {
	out := make(map[int]int)
	tokens := e.reader.Analyze(term)
	if len(tokens) == 0 {
		return out, nil
	}
	term = tokens[0]
	fields, err := e.reader.Fields()
	if err != nil {
		return nil, err
	}
docs:
	for _, id := range docIDs {
		n := 0
		for _, f := range fields {
			postings, err := e.reader.TermVector(id, f)
			if errors.Is(err, index.ErrDocumentNotFound) {
				continue docs
			}
			if err != nil {
				return nil, fmt.Errorf("term vector of doc %d field %s: %w", id, f, err)
			}
			for _, p := range postings {
				if p.Term == term {
					n++
				}
			}
		}
		if n > 0 {
			out[id] = n
		}
	}
	return out, nil
}

// Stem runs text through the index analyzer and joins the tokens by spaces.
func (e *Engine) Stem(text string) string {
	return strings.Join(e.reader.Analyze(text), " ")
}
