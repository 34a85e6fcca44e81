package models

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// queryRecord is one query in a JSON query file.
type queryRecord struct {
	ID    string             `json:"id"`
	Text  string             `json:"text"`
	Terms map[string]float64 `json:"terms,omitempty"`
}

// LoadQueries reads a query file. Files ending in .json hold an array of
// {"id", "text", "terms"} objects; any other file has one query per line, an
// id followed by whitespace and the query text.
func LoadQueries(path string) ([]*Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open query file: %w", err)
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ReadJSONQueries(f)
	}
	return ReadQueries(f)
}

// ReadQueries parses "id text" lines. Blank lines and lines starting with '#'
// are skipped; a line with an id but no text is an error.
func ReadQueries(r io.Reader) ([]*Query, error) {
	var out []*Query
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		id, text, ok := strings.Cut(s, "\t")
		if !ok {
			id, text, ok = strings.Cut(s, " ")
		}
		text = strings.TrimSpace(text)
		if !ok || text == "" {
			return nil, fmt.Errorf("query file line %d: expected id and text", line)
		}
		out = append(out, &Query{ID: strings.TrimSpace(id), Text: text})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}
	return out, nil
}

// ReadJSONQueries parses a JSON array of queries. Queries with terms carry a
// weighted vector in the order the terms sort.
func ReadJSONQueries(r io.Reader) ([]*Query, error) {
	var records []queryRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to parse query file: %w", err)
	}
	out := make([]*Query, 0, len(records))
	for i, rec := range records {
		q := &Query{ID: rec.ID, Text: rec.Text}
		if len(rec.Terms) > 0 {
			q.Vector = NewFeatureVectorFromMap(rec.Terms)
		}
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("query %d (%s): %w", i, rec.ID, err)
		}
		out = append(out, q)
	}
	return out, nil
}
