package models

import (
	"fmt"
	"strings"
)

// Query is a retrieval request: an identifier, its raw text, and an optional
// weighted term vector. When Vector is nil the text is used.
type Query struct {
	ID     string         `json:"id"`
	Text   string         `json:"text"`
	Vector *FeatureVector `json:"-"`
}

// Validate returns an error when the query carries neither text nor terms.
func (q *Query) Validate() error {
	if strings.TrimSpace(q.Text) == "" && (q.Vector == nil || q.Vector.Len() == 0) {
		return fmt.Errorf("query cannot be empty")
	}
	return nil
}

// FeatureVector returns the query's vector, building a unit-weight vector from
// the lowercased whitespace-delimited text when none was supplied.
func (q *Query) FeatureVector(stopper *Stopper) *FeatureVector {
	if q.Vector != nil && q.Vector.Len() > 0 {
		return q.Vector
	}
	fv := NewFeatureVector(stopper)
	for _, t := range strings.Fields(strings.ToLower(q.Text)) {
		fv.AddTerm(t, 1)
	}
	return fv
}
