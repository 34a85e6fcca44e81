// Package ranking resolves scoring model specifications and implements the
// scoring functions used to rank retrieved documents.
package ranking

import (
	"errors"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidSpec is returned for malformed model specifications and
// unparseable explicit parameters.
var ErrInvalidSpec = errors.New("invalid scoring specification")

// Method identifies a scoring family.
type Method string

const (
	// Dirichlet is the Dirichlet-smoothed query likelihood model.
	Dirichlet Method = "dirichlet"
	// JelinekMercer is the linearly interpolated query likelihood model.
	JelinekMercer Method = "jelinek-mercer"
	// BM25 is Okapi BM25.
	BM25 Method = "bm25"
	// TFIDF is the classic vector-space TF-IDF model.
	TFIDF Method = "tfidf"
)

// DefaultSpec is the process-wide default scoring specification.
const DefaultSpec = "method:dirichlet,mu:2500"

// Parameter names and defaults.
const (
	ParamMu     = "mu"
	ParamLambda = "lambda"
	ParamK1     = "k1"
	ParamB      = "b"

	DefaultMu     = 2500.0
	DefaultLambda = 0.5
	DefaultK1     = 1.2
	DefaultB      = 0.75
)

// Model is a resolved scoring configuration: a method and its parameters with
// defaults applied. It performs no scoring itself; see Scorer.
type Model struct {
	Method Method
	Params map[string]float64
}

// DefaultModel returns dirichlet with mu=2500.
func DefaultModel() Model {
	return Model{Method: Dirichlet, Params: map[string]float64{ParamMu: DefaultMu}}
}

// Param returns the value of a parameter, or 0 when the method has no such parameter.
func (m Model) Param(name string) float64 {
	return m.Params[name]
}

// Equal reports whether two models have the same method and parameters.
func (m Model) Equal(o Model) bool {
	if m.Method != o.Method || len(m.Params) != len(o.Params) {
		return false
	}
	for k, v := range m.Params {
		if ov, ok := o.Params[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// String renders the canonical specification, parameters sorted by name.
func (m Model) String() string {
	keys := make([]string, 0, len(m.Params))
	for k := range m.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("method:")
	b.WriteString(string(m.Method))
	for _, k := range keys {
		b.WriteByte(',')
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(m.Params[k], 'f', -1, 64))
	}
	return b.String()
}

// Scorer returns the scoring function for the model.
func (m Model) Scorer() Scorer {
	switch m.Method {
	case JelinekMercer:
		return jelinekMercer{lambda: m.Param(ParamLambda)}
	case BM25:
		return bm25{k1: m.Param(ParamK1), b: m.Param(ParamB)}
	case TFIDF:
		return tfidf{}
	default:
		mu := DefaultMu
		if v, ok := m.Params[ParamMu]; ok {
			mu = v
		}
		return dirichlet{mu: mu}
	}
}
