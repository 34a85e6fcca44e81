package models

import (
	"sort"
	"time"
)

// SearchHit is a single retrieved document.
type SearchHit struct {
	DocID     int                `json:"doc_id"`
	Docno     string             `json:"docno"`
	Score     float64            `json:"score"`
	Length    float64            `json:"length,omitempty"`
	HasLength bool               `json:"-"`
	Metadata  map[string]float64 `json:"metadata,omitempty"`
	Fields    map[string]string  `json:"fields,omitempty"`
	Vector    *FeatureVector     `json:"-"`
}

// SetLength records the stored document length.
func (h *SearchHit) SetLength(length float64) {
	h.Length = length
	h.HasLength = true
}

// SetMetadataValue records a numeric metadata value under name.
func (h *SearchHit) SetMetadataValue(name string, value float64) {
	if h.Metadata == nil {
		h.Metadata = make(map[string]float64)
	}
	h.Metadata[name] = value
}

// MetadataValue returns the numeric metadata value stored under name.
func (h *SearchHit) MetadataValue(name string) (float64, bool) {
	v, ok := h.Metadata[name]
	return v, ok
}

// SearchHits is an ordered result list. Until Rank is called the order is the
// retrieval order.
type SearchHits struct {
	hits []*SearchHit
}

// NewSearchHits creates an empty result list.
func NewSearchHits() *SearchHits {
	return &SearchHits{hits: make([]*SearchHit, 0)}
}

// Add appends hit.
func (s *SearchHits) Add(hit *SearchHit) {
	s.hits = append(s.hits, hit)
}

// Len returns the number of hits.
func (s *SearchHits) Len() int {
	return len(s.hits)
}

// Hit returns the hit at position i.
func (s *SearchHits) Hit(i int) *SearchHit {
	return s.hits[i]
}

// Hits returns the hits in their current order. The slice is shared.
func (s *SearchHits) Hits() []*SearchHit {
	return s.hits
}

// Rank stably sorts hits by descending score. Equal scores keep their current
// relative order, so calling Rank twice leaves the order unchanged.
func (s *SearchHits) Rank() {
	sort.SliceStable(s.hits, func(i, j int) bool {
		return s.hits[i].Score > s.hits[j].Score
	})
}

// Truncate keeps at most n hits.
func (s *SearchHits) Truncate(n int) {
	if n >= 0 && n < len(s.hits) {
		s.hits = s.hits[:n]
	}
}

// SearchResponse is a ranked result list with its query, as returned by the
// CLI and the HTTP API.
type SearchResponse struct {
	QueryID   string       `json:"query_id,omitempty"`
	Query     string       `json:"query"`
	Model     string       `json:"model"`
	QueryTime int64        `json:"query_time_ms"`
	Total     int          `json:"total"`
	Hits      []*SearchHit `json:"hits"`
}

// NewSearchResponse builds a response from ranked hits. A nil hits yields an
// empty list.
func NewSearchResponse(queryID, query, model string, hits *SearchHits, elapsed time.Duration) *SearchResponse {
	out := make([]*SearchHit, 0)
	if hits != nil {
		out = append(out, hits.Hits()...)
	}
	return &SearchResponse{
		QueryID:   queryID,
		Query:     query,
		Model:     model,
		QueryTime: elapsed.Milliseconds(),
		Total:     len(out),
		Hits:      out,
	}
}
