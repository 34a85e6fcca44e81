// Package search executes ranked queries against an index.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/index"
	"github.com/hyperjump/kensaku/internal/metrics"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/query"
	"github.com/hyperjump/kensaku/internal/ranking"
	"github.com/hyperjump/kensaku/internal/stats"
	"github.com/hyperjump/kensaku/internal/vector"
)

// DefaultLimit is the number of hits returned when a request sets none.
const DefaultLimit = 1000

// Stage is a step of query execution.
type Stage int

const (
	StageIdle Stage = iota
	StageTranslated
	StageScored
	StageExecuted
	StageRanked
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageTranslated:
		return "translated"
	case StageScored:
		return "scored"
	case StageExecuted:
		return "executed"
	case StageRanked:
		return "ranked"
	default:
		return "unknown"
	}
}

// Request describes one ranked query.
type Request struct {
	// Query is rendered as weighted terms. Ignored when Native is set.
	Query *models.Query
	// Native is a query in native syntax.
	Native string
	Limit  int
	// Fields searched by unfielded clauses. Empty means all text fields.
	Fields []string
	// Model is a scoring specification. Empty means the engine default.
	Model string
	// StoredFields are extra stored fields copied onto hits.
	StoredFields []string
}

// Engine runs ranked queries.
type Engine struct {
	reader   index.Reader
	stats    *stats.Collection
	vectors  *vector.Reconstructor
	factory  *ranking.Factory
	logger   *zap.Logger
	metrics  *metrics.Metrics
	stopper  *models.Stopper
	model    ranking.Model
	depth    int
	docno    string
	length   string
	timeName string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMetrics records query metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithDefaultModel sets the model used when a request names none.
func WithDefaultModel(m ranking.Model) Option {
	return func(e *Engine) { e.model = m }
}

// WithTimeField sets the stored field copied into hit metadata.
func WithTimeField(name string) Option {
	return func(e *Engine) { e.timeName = name }
}

// WithDocnoField sets the stored field holding external document numbers.
func WithDocnoField(name string) Option {
	return func(e *Engine) { e.docno = name }
}

// WithLengthField sets the stored field holding document lengths.
func WithLengthField(name string) Option {
	return func(e *Engine) { e.length = name }
}

// WithCandidateDepth caps the candidates retrieved before rescoring. 0 retrieves all matches.
func WithCandidateDepth(n int) Option {
	return func(e *Engine) { e.depth = n }
}

// WithStopper sets the stopper used when building vectors from query text.
func WithStopper(s *models.Stopper) Option {
	return func(e *Engine) { e.stopper = s }
}

// NewEngine creates an engine over one index session.
func NewEngine(r index.Reader, st *stats.Collection, rc *vector.Reconstructor, f *ranking.Factory, opts ...Option) *Engine {
	e := &Engine{
		reader:   r,
		stats:    st,
		vectors:  rc,
		factory:  f,
		logger:   zap.NewNop(),
		model:    ranking.DefaultModel(),
		docno:    index.DefaultDocnoField,
		length:   index.DefaultLengthField,
		timeName: index.DefaultTimeField,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.factory == nil {
		e.factory = ranking.NewFactory(ranking.WithLogger(e.logger))
	}
	return e
}

// DefaultModel returns the model used when a request names none.
func (e *Engine) DefaultModel() ranking.Model { return e.model }

// TimeField returns the stored field copied into hit metadata.
func (e *Engine) TimeField() string { return e.timeName }

func (e *Engine) stage(s Stage, fields ...zap.Field) {
	e.logger.Debug("query stage", append([]zap.Field{zap.Stringer("stage", s)}, fields...)...)
}

// Translate renders the request as a native query string.
func (e *Engine) Translate(req *Request) string {
	if req.Native != "" {
		return req.Native
	}
	if req.Query == nil {
		return ""
	}
	return query.WeightedTerms(req.Query.FeatureVector(e.stopper))
}

type candidate struct {
	match index.Match
	score float64
}

// Search executes req and returns ranked hits. A query that cannot be parsed
// or that analyzes to nothing yields empty hits and a nil error. An invalid
// model specification or an index failure is returned as an error.
func (e *Engine) Search(ctx context.Context, req *Request) (*models.SearchHits, error) {
	start := time.Now()
	e.stage(StageIdle)

	model := e.model
	if req.Model != "" {
		m, err := e.factory.Parse(req.Model)
		if err != nil {
			e.metrics.ObserveQuery("invalid", metrics.OutcomeError, time.Since(start), 0)
			return nil, err
		}
		model = m
	}
	method := string(model.Method)

	text := e.Translate(req)
	if text == "" {
		e.logger.Warn("query has no terms", zap.String("query_id", queryID(req)))
		e.metrics.ObserveQuery(method, metrics.OutcomeDegraded, time.Since(start), 0)
		return models.NewSearchHits(), nil
	}
	q, err := query.Parse(text)
	if err != nil {
		e.logger.Warn("query parse failed",
			zap.String("query_id", queryID(req)),
			zap.String("query", text),
			zap.Error(err))
		e.metrics.ObserveQuery(method, metrics.OutcomeDegraded, time.Since(start), 0)
		return models.NewSearchHits(), nil
	}
	e.stage(StageTranslated, zap.String("query", text))

	fields := req.Fields
	if len(fields) == 0 {
		if fields, err = e.stats.Fields(); err != nil {
			e.metrics.ObserveQuery(method, metrics.OutcomeError, time.Since(start), 0)
			return nil, err
		}
	}
	coll, terms, err := e.termStats(q, fields)
	if err != nil {
		e.metrics.ObserveQuery(method, metrics.OutcomeError, time.Since(start), 0)
		return nil, err
	}
	scorer := model.Scorer()
	e.stage(StageScored, zap.String("model", model.String()))

	matches, err := e.reader.Search(ctx, q, index.SearchOptions{
		Fields:       fields,
		Limit:        e.depth,
		StoredFields: []string{e.length},
	})
	if err != nil {
		if errors.Is(err, query.ErrParse) {
			e.logger.Warn("query matched no searchable terms",
				zap.String("query_id", queryID(req)),
				zap.String("query", text))
			e.metrics.ObserveQuery(method, metrics.OutcomeDegraded, time.Since(start), 0)
			return models.NewSearchHits(), nil
		}
		e.metrics.ObserveQuery(method, metrics.OutcomeError, time.Since(start), 0)
		return nil, err
	}
	e.stage(StageExecuted, zap.Int("candidates", len(matches)))

	cands := make([]candidate, 0, len(matches))
	for _, m := range matches {
		dl, err := e.docLength(m, fields)
		if err != nil {
			e.metrics.ObserveQuery(method, metrics.OutcomeError, time.Since(start), 0)
			return nil, err
		}
		score := scorer.Score(ranking.Doc{Length: dl, Freqs: m.Freqs}, terms, coll)
		cands = append(cands, candidate{match: m, score: score})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(cands) > limit {
		cands = cands[:limit]
	}

	hits := models.NewSearchHits()
	for _, c := range cands {
		hit, err := e.enrich(c.match.DocID, req.StoredFields)
		if err != nil {
			e.metrics.ObserveQuery(method, metrics.OutcomeError, time.Since(start), 0)
			return nil, err
		}
		hit.Score = c.score
		hits.Add(hit)
	}
	hits.Rank()
	e.stage(StageRanked, zap.Int("hits", hits.Len()))
	e.metrics.ObserveQuery(method, metrics.OutcomeOK, time.Since(start), hits.Len())
	return hits, nil
}

// termStats gathers collection statistics over fields and weighted statistics
// of the analyzed positive query terms.
func (e *Engine) termStats(q *query.Query, fields []string) (ranking.CollectionStats, []ranking.TermStats, error) {
	var coll ranking.CollectionStats
	n, err := e.stats.DocumentCount()
	if err != nil {
		return coll, nil, err
	}
	tc, err := e.stats.TermCount(fields...)
	if err != nil {
		return coll, nil, err
	}
	coll.DocCount = float64(n)
	coll.TermCount = float64(tc)
	if n > 0 {
		coll.AvgDocLength = float64(tc) / float64(n)
	}

	seen := make(map[string]int)
	var terms []ranking.TermStats
	for _, c := range q.Clauses {
		if c.Occur == query.MustNot {
			continue
		}
		cf := fields
		if c.Field != "" {
			cf = []string{c.Field}
		}
		for _, raw := range c.Terms {
			for _, t := range e.reader.Analyze(raw) {
				if i, ok := seen[t]; ok {
					terms[i].Weight += c.Boost
					continue
				}
				df, err := e.stats.DocumentFrequency(t, cf...)
				if err != nil {
					return coll, nil, err
				}
				ctf, err := e.stats.TermFrequency(t, cf...)
				if err != nil {
					return coll, nil, err
				}
				seen[t] = len(terms)
				terms = append(terms, ranking.TermStats{
					Term:     t,
					Weight:   c.Boost,
					DocFreq:  float64(df),
					CollFreq: float64(ctf),
				})
			}
		}
	}
	return coll, terms, nil
}

// docLength returns the stored length loaded with a match, or the length
// reconstructed over fields when none is stored.
func (e *Engine) docLength(m index.Match, fields []string) (float64, error) {
	if v, ok := m.Stored[e.length]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
	}
	n, err := e.vectors.Length(m.DocID, fields...)
	if err != nil {
		return 0, err
	}
	return float64(n), nil
}

// enrich loads the stored values of a hit: docno, length when stored, the
// time field when numeric, plus extra fields.
func (e *Engine) enrich(docID int, extra []string) (*models.SearchHit, error) {
	names := append([]string{e.docno, e.length, e.timeName}, extra...)
	stored, err := e.reader.StoredFields(docID, names)
	if err != nil {
		return nil, err
	}
	hit := &models.SearchHit{DocID: docID, Docno: stored[e.docno]}
	if v, ok := stored[e.length]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			hit.SetLength(f)
		}
	}
	if v, ok := stored[e.timeName]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			hit.SetMetadataValue(e.timeName, f)
		}
	}
	if len(extra) > 0 {
		hit.Fields = make(map[string]string, len(extra))
		for _, name := range extra {
			if v, ok := stored[name]; ok {
				hit.Fields[name] = v
			}
		}
	}
	return hit, nil
}

func queryID(req *Request) string {
	if req.Query != nil {
		return req.Query.ID
	}
	return ""
}

// SearchQuery runs q with the engine default model.
func (e *Engine) SearchQuery(ctx context.Context, q *models.Query, limit int) (*models.SearchHits, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("search %s: %w", q.ID, err)
	}
	return e.Search(ctx, &Request{Query: q, Limit: limit})
}
