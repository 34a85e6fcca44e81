// Package models defines core data structures for feature vectors, queries, and search hits.
package models

import (
	"sort"
	"strconv"
	"strings"
)

// FeatureVector is a weighted bag of terms. Iteration follows insertion order so
// rendered queries are deterministic.
type FeatureVector struct {
	weights map[string]float64
	order   []string
	stopper *Stopper
}

// NewFeatureVector creates an empty vector. Terms rejected by stopper are never added.
// stopper may be nil.
func NewFeatureVector(stopper *Stopper) *FeatureVector {
	return &FeatureVector{
		weights: make(map[string]float64),
		stopper: stopper,
	}
}

// NewFeatureVectorFromMap builds a vector from term weights, adding terms in
// lexicographic order so the result does not depend on map iteration.
func NewFeatureVectorFromMap(weights map[string]float64) *FeatureVector {
	terms := make([]string, 0, len(weights))
	for t := range weights {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	fv := NewFeatureVector(nil)
	for _, t := range terms {
		fv.AddTerm(t, weights[t])
	}
	return fv
}

// AddTerm adds weight to term, accumulating on repeated calls. Stopwords, empty
// terms and non-positive weights are ignored.
func (fv *FeatureVector) AddTerm(term string, weight float64) {
	if term == "" || weight <= 0 || fv.stopper.IsStopWord(term) {
		return
	}
	if _, ok := fv.weights[term]; !ok {
		fv.order = append(fv.order, term)
	}
	fv.weights[term] += weight
}

// SetTerm overwrites the weight of term. A non-positive weight removes it.
func (fv *FeatureVector) SetTerm(term string, weight float64) {
	if weight <= 0 {
		fv.remove(term)
		return
	}
	if _, ok := fv.weights[term]; !ok {
		if term == "" || fv.stopper.IsStopWord(term) {
			return
		}
		fv.order = append(fv.order, term)
	}
	fv.weights[term] = weight
}

func (fv *FeatureVector) remove(term string) {
	if _, ok := fv.weights[term]; !ok {
		return
	}
	delete(fv.weights, term)
	for i, t := range fv.order {
		if t == term {
			fv.order = append(fv.order[:i], fv.order[i+1:]...)
			break
		}
	}
}

// Weight returns the weight of term, or 0 when absent.
func (fv *FeatureVector) Weight(term string) float64 {
	return fv.weights[term]
}

// Contains reports whether term has a weight in the vector.
func (fv *FeatureVector) Contains(term string) bool {
	_, ok := fv.weights[term]
	return ok
}

// Features returns the terms in insertion order.
func (fv *FeatureVector) Features() []string {
	return append([]string(nil), fv.order...)
}

// Len returns the number of distinct terms.
func (fv *FeatureVector) Len() int {
	return len(fv.order)
}

// Length returns the sum of all weights.
func (fv *FeatureVector) Length() float64 {
	var sum float64
	for _, t := range fv.order {
		sum += fv.weights[t]
	}
	return sum
}

// Normalize rescales weights so they sum to 1. Empty vectors are left unchanged.
func (fv *FeatureVector) Normalize() {
	sum := fv.Length()
	if sum == 0 {
		return
	}
	for _, t := range fv.order {
		fv.weights[t] /= sum
	}
}

// Clone returns a deep copy sharing the same stopper.
func (fv *FeatureVector) Clone() *FeatureVector {
	out := &FeatureVector{
		weights: make(map[string]float64, len(fv.weights)),
		order:   append([]string(nil), fv.order...),
		stopper: fv.stopper,
	}
	for t, w := range fv.weights {
		out.weights[t] = w
	}
	return out
}

// Top keeps the k heaviest terms. Ties keep insertion order. k <= 0 is a no-op.
func (fv *FeatureVector) Top(k int) {
	if k <= 0 || k >= len(fv.order) {
		return
	}
	ranked := append([]string(nil), fv.order...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return fv.weights[ranked[i]] > fv.weights[ranked[j]]
	})
	keep := make(map[string]struct{}, k)
	for _, t := range ranked[:k] {
		keep[t] = struct{}{}
	}
	order := fv.order[:0]
	for _, t := range fv.order {
		if _, ok := keep[t]; ok {
			order = append(order, t)
			continue
		}
		delete(fv.weights, t)
	}
	fv.order = order
}

// Map returns a copy of the weights keyed by term.
func (fv *FeatureVector) Map() map[string]float64 {
	out := make(map[string]float64, len(fv.weights))
	for t, w := range fv.weights {
		out[t] = w
	}
	return out
}

// String renders "term:weight" pairs in insertion order.
func (fv *FeatureVector) String() string {
	var b strings.Builder
	for i, t := range fv.order {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t)
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(fv.weights[t], 'f', -1, 64))
	}
	return b.String()
}
