package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/index"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/ranking"
	"github.com/hyperjump/kensaku/internal/search"
	"github.com/hyperjump/kensaku/internal/storage"
)

type searchRequest struct {
	QueryID string             `json:"query_id"`
	Query   string             `json:"query"`
	Terms   map[string]float64 `json:"terms,omitempty"`
	Native  string             `json:"native,omitempty"`
	Limit   int                `json:"limit"`
	Fields  []string           `json:"fields,omitempty"`
	Model   string             `json:"model,omitempty"`
	Stored  []string           `json:"stored_fields,omitempty"`
	// RunID archives the result list under this run when an archive is configured.
	RunID string `json:"run_id,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var in searchRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	q := &models.Query{ID: in.QueryID, Text: in.Query}
	if len(in.Terms) > 0 {
		q.Vector = models.NewFeatureVectorFromMap(in.Terms)
	}
	if in.Native == "" {
		if err := q.Validate(); err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	limit := s.limit(in.Limit)
	s.logger.Debug("search request", zap.String("query_id", in.QueryID), zap.String("query", in.Query), zap.Int("limit", limit))

	start := time.Now()
	hits, err := s.session.Engine.Search(r.Context(), &search.Request{
		Query:        q,
		Native:       in.Native,
		Limit:        limit,
		Fields:       in.Fields,
		Model:        in.Model,
		StoredFields: in.Stored,
	})
	if err != nil {
		if errors.Is(err, ranking.ErrInvalidSpec) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	model := s.session.Engine.DefaultModel().String()
	if in.Model != "" {
		if m, err := s.session.Factory.Parse(in.Model); err == nil {
			model = m.String()
		}
	}
	if in.RunID != "" && s.archive != nil {
		if err := s.archive.CreateRun(r.Context(), in.RunID, model); err != nil {
			s.logger.Warn("failed to archive run", zap.String("run_id", in.RunID), zap.Error(err))
		} else if err := s.archive.SaveRun(r.Context(), in.RunID, in.QueryID, hits); err != nil {
			s.logger.Warn("failed to archive run", zap.String("run_id", in.RunID), zap.Error(err))
		}
	}
	text := in.Query
	if in.Native != "" {
		text = in.Native
	}
	s.respondJSON(w, http.StatusOK, models.NewSearchResponse(in.QueryID, text, model, hits, time.Since(start)))
}

func (s *Server) limit(requested int) int {
	return s.session.Config.Search.ClampLimit(requested)
}

func fieldsParam(r *http.Request) []string {
	raw := r.URL.Query().Get("fields")
	if raw == "" {
		return nil
	}
	var out []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap, err := s.session.Stats.Snapshot(fieldsParam(r)...)
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"statistics": snap,
		"model":      s.session.Engine.DefaultModel().String(),
	}
	cfg := s.session.Config
	if usage, err := storage.MeasureUsage(cfg.Index.Path, cfg.Archive.DatabasePath); err == nil {
		resp["disk_usage"] = usage
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTerm(w http.ResponseWriter, r *http.Request) {
	term := chi.URLParam(r, "term")
	fields := fieldsParam(r)
	df, err := s.session.Stats.DocumentFrequency(term, fields...)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	tf, err := s.session.Stats.TermFrequency(term, fields...)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"term":               term,
		"document_frequency": df,
		"term_frequency":     tf,
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	docno := chi.URLParam(r, "docno")
	hit, err := s.session.Engine.Hit(docno, s.session.Stopper)
	if err != nil {
		s.respondLookupError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, hit)
}

func (s *Server) handleDocumentVector(w http.ResponseWriter, r *http.Request) {
	docno := chi.URLParam(r, "docno")
	hit, err := s.session.Engine.Hit(docno, s.session.Stopper)
	if err != nil {
		s.respondLookupError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"docno":  docno,
		"doc_id": hit.DocID,
		"length": hit.Vector.Length(),
		"terms":  hit.Vector.Map(),
	})
}

func (s *Server) handleDocumentText(w http.ResponseWriter, r *http.Request) {
	docno := chi.URLParam(r, "docno")
	id, err := s.session.Engine.DocID(docno)
	if err != nil {
		s.respondLookupError(w, err)
		return
	}
	var text string
	if field := r.URL.Query().Get("field"); field != "" {
		text, err = s.session.Vectors.Text(id, field)
	} else {
		text, err = s.session.Vectors.FullText(id)
	}
	if err != nil {
		s.respondLookupError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"docno": docno, "text": text})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		s.respondError(w, http.StatusNotImplemented, "run archive not enabled")
		return
	}
	runs, err := s.archive.ListRuns(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*storage.Run{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		s.respondError(w, http.StatusNotImplemented, "run archive not enabled")
		return
	}
	runID, queryID := chi.URLParam(r, "run"), chi.URLParam(r, "query")
	hits, err := s.archive.LoadRun(r.Context(), runID, queryID)
	if err != nil {
		if errors.Is(err, storage.ErrRunNotFound) {
			s.respondError(w, http.StatusNotFound, "run not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, models.NewSearchResponse(queryID, "", "", hits, 0))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, index.ErrDocumentNotFound) {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.logger.Error("document lookup failed", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
