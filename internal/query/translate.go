// Package query builds and parses native query strings.
//
// Three construction modes produce the native syntax consumed by the index:
// weighted terms ("raf^0.6 cranwell^0.4"), conjunctive ("+raf +cranwell") and
// windowed phrase ("\"raf cranwell\"~10").
package query

import (
	"strconv"
	"strings"

	"github.com/hyperjump/kensaku/internal/models"
)

// WeightedTerms renders a normalized copy of fv as space-joined term^weight
// tokens in insertion order. fv itself is not modified.
func WeightedTerms(fv *models.FeatureVector) string {
	if fv == nil {
		return ""
	}
	norm := fv.Clone()
	norm.Normalize()

	var b strings.Builder
	for i, term := range norm.Features() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(escapeTerm(term))
		b.WriteByte('^')
		b.WriteString(formatWeight(norm.Weight(term)))
	}
	return b.String()
}

// Conjunctive requires every non-stopword term of text.
func Conjunctive(text string, stopper *models.Stopper) string {
	terms := keepTerms(text, stopper)
	for i, t := range terms {
		terms[i] = "+" + escapeTerm(t)
	}
	return strings.Join(terms, " ")
}

// Window renders the non-stopword terms of text as a phrase matching within
// window positions.
func Window(text string, window int, stopper *models.Stopper) string {
	terms := keepTerms(text, stopper)
	if len(terms) == 0 {
		return ""
	}
	if window < 0 {
		window = 0
	}
	for i, t := range terms {
		terms[i] = phraseEscaper.Replace(t)
	}
	return `"` + strings.Join(terms, " ") + `"~` + strconv.Itoa(window)
}

func keepTerms(text string, stopper *models.Stopper) []string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if stopper.IsStopWord(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}

// phraseEscaper escapes the characters the phrase parser unescapes.
var phraseEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// escapeTerm backslash-escapes characters that carry meaning in the native syntax.
func escapeTerm(term string) string {
	if !strings.ContainsAny(term, specialChars) {
		return term
	}
	var b strings.Builder
	for _, r := range term {
		if strings.ContainsRune(specialChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
