package models

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Stopper is a set of stopwords. A nil *Stopper filters nothing.
type Stopper struct {
	words map[string]struct{}
}

// NewStopper creates a stopper from words. Words are lowercased.
func NewStopper(words ...string) *Stopper {
	s := &Stopper{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		s.Add(w)
	}
	return s
}

// LoadStopper reads one stopword per line from path.
// Blank lines and lines starting with '#' are skipped.
func LoadStopper(path string) (*Stopper, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stopword list: %w", err)
	}
	defer f.Close()

	s := NewStopper()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.Add(line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stopword list: %w", err)
	}
	return s, nil
}

// Add inserts a stopword.
func (s *Stopper) Add(word string) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return
	}
	s.words[word] = struct{}{}
}

// IsStopWord reports whether term is a stopword. Matching is case-insensitive.
func (s *Stopper) IsStopWord(term string) bool {
	if s == nil {
		return false
	}
	_, ok := s.words[strings.ToLower(term)]
	return ok
}

// Len returns the number of stopwords.
func (s *Stopper) Len() int {
	if s == nil {
		return 0
	}
	return len(s.words)
}
