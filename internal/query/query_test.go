package query

import (
	"errors"
	"testing"

	"github.com/hyperjump/kensaku/internal/models"
)

func TestWeightedTerms(t *testing.T) {
	fv := models.NewFeatureVector(nil)
	fv.AddTerm("raf", 0.8)
	fv.AddTerm("cranwell", 0.2)

	got := WeightedTerms(fv)
	want := "raf^0.8 cranwell^0.2"
	if got != want {
		t.Errorf("WeightedTerms = %q, want %q", got, want)
	}
	if fv.Weight("raf") != 0.8 {
		t.Error("WeightedTerms must not mutate the input vector")
	}
}

func TestWeightedTerms_NormalizesWeights(t *testing.T) {
	fv := models.NewFeatureVector(nil)
	fv.AddTerm("a", 3)
	fv.AddTerm("b", 1)

	q, err := Parse(WeightedTerms(fv))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var sum float64
	for _, c := range q.Clauses {
		sum += c.Boost
	}
	if sum < 0.999999 || sum > 1.000001 {
		t.Errorf("boosts sum to %v, want 1", sum)
	}
	if q.Clauses[0].Boost != 0.75 {
		t.Errorf("boost(a) = %v, want 0.75", q.Clauses[0].Boost)
	}
}

func TestConjunctive(t *testing.T) {
	stop := models.NewStopper("the")
	got := Conjunctive("the  raf cranwell", stop)
	if got != "+raf +cranwell" {
		t.Errorf("Conjunctive = %q", got)
	}
	q, err := Parse(got)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for _, c := range q.Clauses {
		if c.Occur != Must {
			t.Errorf("clause %v should be mandatory", c.Terms)
		}
	}
}

func TestWindow(t *testing.T) {
	stop := models.NewStopper("of")
	got := Window("bank of england", 8, stop)
	if got != `"bank england"~8` {
		t.Errorf("Window = %q", got)
	}
	q, err := Parse(got)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c := q.Clauses[0]
	if !c.Phrase || c.Slop != 8 || len(c.Terms) != 2 {
		t.Errorf("parsed clause = %+v", c)
	}
	if Window("of", 3, stop) != "" {
		t.Error("window over only stopwords should be empty")
	}
}

func TestWindow_EscapesPhraseSyntax(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{`raf c:\path`, []string{"raf", `c:\path`}},
		{`trailing\`, []string{`trailing\`}},
		{`say "hello" now`, []string{"say", `"hello"`, "now"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			q, err := Parse(Window(tt.text, 3, nil))
			if err != nil {
				t.Fatalf("Parse(Window(%q)): %v", tt.text, err)
			}
			c := q.Clauses[0]
			if !c.Phrase || c.Slop != 3 || len(c.Terms) != len(tt.want) {
				t.Fatalf("clause = %+v", c)
			}
			for i, w := range tt.want {
				if c.Terms[i] != w {
					t.Errorf("term %d = %q, want %q", i, c.Terms[i], w)
				}
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Clause
	}{
		{
			name:  "bare terms",
			input: "raf cranwell",
			want: []Clause{
				{Occur: Should, Terms: []string{"raf"}, Boost: 1},
				{Occur: Should, Terms: []string{"cranwell"}, Boost: 1},
			},
		},
		{
			name:  "operators fields and boosts",
			input: "+headline:jubilee -text:financial pub^2.5",
			want: []Clause{
				{Occur: Must, Field: "headline", Terms: []string{"jubilee"}, Boost: 1},
				{Occur: MustNot, Field: "text", Terms: []string{"financial"}, Boost: 1},
				{Occur: Should, Terms: []string{"pub"}, Boost: 2.5},
			},
		},
		{
			name:  "field phrase with slop and boost",
			input: `text:"bank england"~4^0.5`,
			want: []Clause{
				{Occur: Should, Field: "text", Terms: []string{"bank", "england"}, Phrase: true, Slop: 4, Boost: 0.5},
			},
		},
		{
			name:  "escaped characters",
			input: `x\-ray a\:b`,
			want: []Clause{
				{Occur: Should, Terms: []string{"x-ray"}, Boost: 1},
				{Occur: Should, Terms: []string{"a:b"}, Boost: 1},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.input, err)
			}
			if len(q.Clauses) != len(tt.want) {
				t.Fatalf("clauses = %+v, want %+v", q.Clauses, tt.want)
			}
			for i, want := range tt.want {
				got := q.Clauses[i]
				if got.Occur != want.Occur || got.Field != want.Field || got.Phrase != want.Phrase ||
					got.Slop != want.Slop || got.Boost != want.Boost || len(got.Terms) != len(want.Terms) {
					t.Errorf("clause %d = %+v, want %+v", i, got, want)
					continue
				}
				for j := range want.Terms {
					if got.Terms[j] != want.Terms[j] {
						t.Errorf("clause %d terms = %v, want %v", i, got.Terms, want.Terms)
					}
				}
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		`"unterminated`,
		`""`,
		"raf^",
		"raf^abc",
		"+",
		"a + b",
		"text:",
		":raf",
		"raf~2",
		`"a b"~`,
		`trailing\`,
	}
	for _, in := range inputs {
		if _, err := Parse(in); !errors.Is(err, ErrParse) {
			t.Errorf("Parse(%q) error = %v, want ErrParse", in, err)
		}
	}
}

func TestQuery_StringRoundTrip(t *testing.T) {
	in := `+headline:jubilee raf^0.5 "bank england"~3 -x\-ray`
	q, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	again, err := Parse(q.String())
	if err != nil {
		t.Fatalf("Parse(String()): %v", err)
	}
	if again.String() != q.String() {
		t.Errorf("round trip %q != %q", again.String(), q.String())
	}
	terms := q.Terms()
	if len(terms) != 4 {
		t.Errorf("Terms() = %v, want 4 terms without excluded ones", terms)
	}
}

func TestWithinWindow(t *testing.T) {
	tests := []struct {
		name      string
		positions [][]int
		slop      int
		want      bool
	}{
		{"adjacent in order", [][]int{{3}, {4}}, 0, true},
		{"gap of one needs slop one", [][]int{{3}, {5}}, 0, false},
		{"gap of one with slop one", [][]int{{3}, {5}}, 1, true},
		{"reversed needs slop two", [][]int{{4}, {3}}, 1, false},
		{"reversed with slop two", [][]int{{4}, {3}}, 2, true},
		{"picks closest occurrence", [][]int{{0, 50}, {20, 51}}, 0, true},
		{"missing term", [][]int{{1}, {}}, 10, false},
		{"single term", [][]int{{7}}, 0, true},
		{"three terms within window", [][]int{{10}, {14}, {12}}, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithinWindow(tt.positions, tt.slop); got != tt.want {
				t.Errorf("WithinWindow(%v, %d) = %v, want %v", tt.positions, tt.slop, got, tt.want)
			}
		})
	}
}
