package index

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Analyzer names.
const (
	AnalyzerStandard   = standard.Name
	AnalyzerEnglish    = en.AnalyzerName
	AnalyzerKeyword    = keyword.Name
	AnalyzerSimple     = simple.Name
	AnalyzerWhitespace = "whitespace"
)

// analyzerNames maps accepted sidecar values to analyzer names. Keys are
// lowercase; Lucene class names are accepted for indexes described that way.
var analyzerNames = map[string]string{
	"standard":   AnalyzerStandard,
	"english":    AnalyzerEnglish,
	"en":         AnalyzerEnglish,
	"keyword":    AnalyzerKeyword,
	"simple":     AnalyzerSimple,
	"whitespace": AnalyzerWhitespace,

	"org.apache.lucene.analysis.standard.standardanalyzer": AnalyzerStandard,
	"org.apache.lucene.analysis.en.englishanalyzer":        AnalyzerEnglish,
	"org.apache.lucene.analysis.core.keywordanalyzer":      AnalyzerKeyword,
	"org.apache.lucene.analysis.core.simpleanalyzer":       AnalyzerSimple,
	"org.apache.lucene.analysis.core.whitespaceanalyzer":   AnalyzerWhitespace,
}

// ResolveAnalyzer maps a configured analyzer value to a known analyzer name.
func ResolveAnalyzer(value string) (string, bool) {
	name, ok := analyzerNames[strings.ToLower(strings.TrimSpace(value))]
	return name, ok
}

// Analyzer turns text into positioned terms.
type Analyzer interface {
	Name() string
	Tokens(text string) []Posting
}

// Terms returns the terms of text in order.
func Terms(a Analyzer, text string) []string {
	tokens := a.Tokens(text)
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Term
	}
	return out
}

// NewAnalyzer returns the analyzer registered under name.
func NewAnalyzer(name string) (Analyzer, error) {
	if name == AnalyzerWhitespace {
		return whitespaceAnalyzer{}, nil
	}
	a := mapping.NewIndexMapping().AnalyzerNamed(name)
	if a == nil {
		return nil, fmt.Errorf("unknown analyzer %q", name)
	}
	return &bleveAnalyzer{name: name, analyze: a.Analyze}, nil
}

type bleveAnalyzer struct {
	name    string
	analyze func([]byte) analysis.TokenStream
}

func (a *bleveAnalyzer) Name() string { return a.name }

func (a *bleveAnalyzer) Tokens(text string) []Posting {
	stream := a.analyze([]byte(text))
	out := make([]Posting, 0, len(stream))
	for _, tok := range stream {
		out = append(out, Posting{Term: string(tok.Term), Position: tok.Position - 1})
	}
	return out
}

// whitespaceAnalyzer splits on whitespace and keeps tokens verbatim.
type whitespaceAnalyzer struct{}

func (whitespaceAnalyzer) Name() string { return AnalyzerWhitespace }

func (whitespaceAnalyzer) Tokens(text string) []Posting {
	fields := strings.Fields(text)
	out := make([]Posting, len(fields))
	for i, f := range fields {
		out[i] = Posting{Term: f, Position: i}
	}
	return out
}
