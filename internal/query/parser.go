package query

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ErrParse is returned for malformed native query strings.
var ErrParse = errors.New("query parse error")

const specialChars = `+-:^"~\`

// Occur is the boolean role of a clause.
type Occur int

const (
	// Should clauses are optional and only contribute to scoring.
	Should Occur = iota
	// Must clauses are required.
	Must
	// MustNot clauses exclude matching documents.
	MustNot
)

func (o Occur) prefix() string {
	switch o {
	case Must:
		return "+"
	case MustNot:
		return "-"
	default:
		return ""
	}
}

// Clause is one term or phrase of a query.
type Clause struct {
	Occur Occur
	// Field restricts the clause to one field. Empty means the searched fields.
	Field string
	// Terms holds one term, or the phrase terms in order.
	Terms  []string
	Phrase bool
	// Slop is the proximity window of a phrase; 0 requires adjacent terms.
	Slop  int
	Boost float64
}

// Query is a parsed native query.
type Query struct {
	Clauses []Clause
}

// Terms returns the distinct terms of all non-excluded clauses in order of appearance.
func (q *Query) Terms() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range q.Clauses {
		if c.Occur == MustNot {
			continue
		}
		for _, t := range c.Terms {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// String renders q back into native syntax.
func (q *Query) String() string {
	parts := make([]string, 0, len(q.Clauses))
	for _, c := range q.Clauses {
		var b strings.Builder
		b.WriteString(c.Occur.prefix())
		if c.Field != "" {
			b.WriteString(escapeTerm(c.Field))
			b.WriteByte(':')
		}
		if c.Phrase {
			b.WriteByte('"')
			b.WriteString(strings.Join(c.Terms, " "))
			b.WriteByte('"')
			if c.Slop > 0 {
				b.WriteByte('~')
				b.WriteString(strconv.Itoa(c.Slop))
			}
		} else if len(c.Terms) > 0 {
			b.WriteString(escapeTerm(c.Terms[0]))
		}
		if c.Boost != 1 {
			b.WriteByte('^')
			b.WriteString(formatWeight(c.Boost))
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, " ")
}

// Parse parses the native query syntax:
//
//	query  := clause (space clause)*
//	clause := ["+"|"-"] [field ":"] (term | '"' terms '"' ["~" int]) ["^" number]
//
// A backslash escapes the following character inside terms.
func Parse(s string) (*Query, error) {
	p := &parser{in: []rune(s)}
	q := &Query{}
	for {
		p.skipSpace()
		if p.eof() {
			break
		}
		c, err := p.clause()
		if err != nil {
			return nil, err
		}
		q.Clauses = append(q.Clauses, c)
	}
	if len(q.Clauses) == 0 {
		return nil, fmt.Errorf("%w: empty query", ErrParse)
	}
	return q, nil
}

type parser struct {
	in  []rune
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.in) }

func (p *parser) peek() rune { return p.in[p.pos] }

func (p *parser) skipSpace() {
	for !p.eof() && unicode.IsSpace(p.peek()) {
		p.pos++
	}
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s at offset %d", ErrParse, fmt.Sprintf(format, args...), p.pos)
}

func (p *parser) clause() (Clause, error) {
	c := Clause{Occur: Should, Boost: 1}
	switch p.peek() {
	case '+':
		c.Occur = Must
		p.pos++
	case '-':
		c.Occur = MustNot
		p.pos++
	}
	if p.eof() || unicode.IsSpace(p.peek()) {
		return c, p.errorf("operator without operand")
	}

	if p.peek() == '"' {
		if err := p.phrase(&c); err != nil {
			return c, err
		}
	} else {
		word, err := p.word()
		if err != nil {
			return c, err
		}
		if !p.eof() && p.peek() == ':' {
			if word == "" {
				return c, p.errorf("empty field name")
			}
			p.pos++
			c.Field = word
			if p.eof() || unicode.IsSpace(p.peek()) {
				return c, p.errorf("field %q without value", word)
			}
			if p.peek() == '"' {
				if err := p.phrase(&c); err != nil {
					return c, err
				}
			} else {
				word, err = p.word()
				if err != nil {
					return c, err
				}
				if word == "" {
					return c, p.errorf("field %q without value", c.Field)
				}
				c.Terms = []string{word}
			}
		} else {
			if word == "" {
				return c, p.errorf("unexpected %q", p.peek())
			}
			c.Terms = []string{word}
		}
	}

	if !p.eof() && p.peek() == '~' {
		return c, p.errorf("proximity is only supported on phrases")
	}
	if !p.eof() && p.peek() == '^' {
		p.pos++
		boost, err := p.number()
		if err != nil {
			return c, err
		}
		c.Boost = boost
	}
	if !p.eof() && !unicode.IsSpace(p.peek()) {
		return c, p.errorf("unexpected %q", p.peek())
	}
	return c, nil
}

// word reads a bare term up to whitespace or an unescaped special character.
func (p *parser) word() (string, error) {
	var b strings.Builder
	for !p.eof() {
		r := p.peek()
		if unicode.IsSpace(r) || r == ':' || r == '^' || r == '"' || r == '~' {
			break
		}
		if r == '\\' {
			p.pos++
			if p.eof() {
				return "", p.errorf("dangling escape")
			}
			r = p.peek()
		}
		b.WriteRune(r)
		p.pos++
	}
	return b.String(), nil
}

func (p *parser) phrase(c *Clause) error {
	p.pos++ // opening quote
	var b strings.Builder
	closed := false
	for !p.eof() {
		r := p.peek()
		p.pos++
		if r == '\\' {
			if p.eof() {
				return p.errorf("dangling escape")
			}
			b.WriteRune(p.peek())
			p.pos++
			continue
		}
		if r == '"' {
			closed = true
			break
		}
		b.WriteRune(r)
	}
	if !closed {
		return p.errorf("unterminated phrase")
	}
	terms := strings.Fields(b.String())
	if len(terms) == 0 {
		return p.errorf("empty phrase")
	}
	c.Phrase = true
	c.Terms = terms
	if !p.eof() && p.peek() == '~' {
		p.pos++
		start := p.pos
		for !p.eof() && unicode.IsDigit(p.peek()) {
			p.pos++
		}
		if start == p.pos {
			return p.errorf("missing proximity window")
		}
		slop, err := strconv.Atoi(string(p.in[start:p.pos]))
		if err != nil {
			return p.errorf("invalid proximity window: %v", err)
		}
		c.Slop = slop
	}
	return nil
}

func (p *parser) number() (float64, error) {
	start := p.pos
	for !p.eof() {
		r := p.peek()
		if unicode.IsDigit(r) || r == '.' || r == 'e' || r == 'E' || r == '-' || r == '+' {
			p.pos++
			continue
		}
		break
	}
	raw := string(p.in[start:p.pos])
	if raw == "" {
		return 0, p.errorf("missing boost")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, p.errorf("invalid boost %q", raw)
	}
	return v, nil
}
