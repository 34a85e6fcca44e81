// Package session opens an index and wires the components that read it.
package session

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/index"
	"github.com/hyperjump/kensaku/internal/metrics"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/ranking"
	"github.com/hyperjump/kensaku/internal/search"
	"github.com/hyperjump/kensaku/internal/stats"
	"github.com/hyperjump/kensaku/internal/vector"
)

// luceneSimilarityPackage prefixes fully qualified similarity class names.
const luceneSimilarityPackage = "org.apache.lucene.search.similarities."

// similarities maps sidecar similarity class names to model specs. Keys are lowercase.
var similarities = map[string]string{
	"lmdirichletsimilarity":     "method:dirichlet",
	"lmjelinekmercersimilarity": "method:jelinek-mercer",
	"bm25similarity":            "method:bm25",
	"classicsimilarity":         "method:tfidf",
	"defaultsimilarity":         "method:tfidf",
}

// Session is an opened index with its statistics, reconstructor and engine.
// All parts are safe for concurrent reads.
type Session struct {
	Config   *config.Config
	Metadata index.Metadata
	Reader   *index.BleveIndex
	Stats    *stats.Collection
	Vectors  *vector.Reconstructor
	Engine   *search.Engine
	Factory  *ranking.Factory
	Stopper  *models.Stopper
	Metrics  *metrics.Metrics

	logger *zap.Logger
}

// Option configures Open.
type Option func(*Session)

// WithMetrics records query metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.Metrics = m }
}

// Open reads the index sidecar, resolves its analyzer and similarity, and opens
// the index at cfg.Index.Path read-only.
func Open(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{Config: cfg, logger: logger}
	for _, opt := range opts {
		opt(s)
	}

	md, err := index.ReadMetadata(cfg.Index.Path)
	if err != nil {
		return nil, err
	}
	s.Metadata = md

	if cfg.Index.Stopwords != "" {
		st, err := models.LoadStopper(cfg.Index.Stopwords)
		if err != nil {
			return nil, err
		}
		s.Stopper = st
	}

	analyzerName := s.resolveAnalyzer()
	analyzer, err := index.NewAnalyzer(analyzerName)
	if err != nil {
		return nil, err
	}

	s.Factory = ranking.NewFactory(ranking.WithLogger(logger))
	model, err := s.resolveModel()
	if err != nil {
		return nil, err
	}

	reader, err := index.OpenBleve(cfg.Index.Path,
		index.WithLogger(logger),
		index.WithAnalyzer(analyzer),
		index.WithMetadataFields(cfg.Index.DocnoField, cfg.Index.LengthField, cfg.Index.TimeField),
	)
	if err != nil {
		return nil, err
	}
	s.Reader = reader
	s.Stats = stats.New(reader, stats.WithLogger(logger))
	s.Vectors = vector.New(reader, logger, vector.WithCacheSize(cfg.Index.VectorCacheSize))
	s.Engine = search.NewEngine(reader, s.Stats, s.Vectors, s.Factory,
		search.WithLogger(logger),
		search.WithMetrics(s.Metrics),
		search.WithDefaultModel(model),
		search.WithDocnoField(cfg.Index.DocnoField),
		search.WithLengthField(cfg.Index.LengthField),
		search.WithTimeField(cfg.Index.TimeField),
		search.WithCandidateDepth(cfg.Index.CandidateDepth),
		search.WithStopper(s.Stopper),
	)

	logger.Info("index session opened",
		zap.String("path", cfg.Index.Path),
		zap.String("analyzer", analyzerName),
		zap.Stringer("model", model),
	)
	return s, nil
}

// Close releases the index.
func (s *Session) Close() error {
	if s.Reader == nil {
		return nil
	}
	return s.Reader.Close()
}

func (s *Session) resolveAnalyzer() string {
	value, ok := s.Metadata.Get(index.MetaAnalyzer)
	if !ok || value == "" {
		return index.AnalyzerStandard
	}
	name, ok := index.ResolveAnalyzer(value)
	if !ok {
		s.logger.Warn("unknown analyzer in index metadata, using standard", zap.String("analyzer", value))
		return index.AnalyzerStandard
	}
	return name
}

// resolveModel picks the default model: config first, then the sidecar
// similarity, then dirichlet.
func (s *Session) resolveModel() (ranking.Model, error) {
	if spec := s.Config.Search.DefaultModel; spec != "" {
		m, err := s.Factory.Parse(spec)
		if err != nil {
			return ranking.Model{}, fmt.Errorf("search.default_model: %w", err)
		}
		return m, nil
	}
	value, ok := s.Metadata.Get(index.MetaSimilarity)
	if !ok || value == "" {
		return ranking.DefaultModel(), nil
	}
	spec, ok := ResolveSimilarity(value)
	if !ok {
		s.logger.Warn("unknown similarity in index metadata, using default", zap.String("similarity", value))
		return ranking.DefaultModel(), nil
	}
	m, err := s.Factory.Parse(spec)
	if err != nil {
		s.logger.Warn("invalid similarity in index metadata, using default",
			zap.String("similarity", value), zap.Error(err))
		return ranking.DefaultModel(), nil
	}
	return m, nil
}

// ResolveSimilarity maps a sidecar similarity value to a model spec. It accepts
// Lucene similarity class names, bare method names and full specs.
func ResolveSimilarity(value string) (string, bool) {
	v := strings.TrimSpace(value)
	class := strings.TrimPrefix(strings.ToLower(v), luceneSimilarityPackage)
	if spec, ok := similarities[class]; ok {
		return spec, true
	}
	if strings.Contains(v, ":") {
		return v, true
	}
	if ranking.KnownMethod(v) {
		return "method:" + strings.ToLower(v), true
	}
	return "", false
}
