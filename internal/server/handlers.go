package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/geesthacht-opendata/internal/ckan/aggregator"
	"github.com/geesthacht-opendata/pkg/ckan/models"
	"github.com/go-chi/chi/v5"
)

type searchResponse struct {
	Count   int              `json:"count"`
	Results []models.Package `json:"results"`
}

type structuredResourceResponse struct {
	Kind        string      `json:"kind"`
	ContentType string      `json:"content_type"`
	Data        interface{} `json:"data"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSearch never fails: an empty list means nothing was found or every
// portal was down.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	results := s.client.Search(r.Context(), r.URL.Query().Get("q"))
	s.respondJSON(w, http.StatusOK, searchResponse{Count: len(results), Results: results})
}

func (s *Server) handleSearchMultiTerm(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	terms := query["term"]
	for _, list := range query["terms"] {
		terms = append(terms, strings.Split(list, ",")...)
	}

	results := s.client.SearchMultiTerm(r.Context(), terms)
	s.respondJSON(w, http.StatusOK, searchResponse{Count: len(results), Results: results})
}

func (s *Server) handleGetPackage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pkg, err := s.client.GetPackageDetails(r.Context(), id)
	if err != nil {
		s.logger.Warn("Package lookup failed", "id", id, "error", err)
		status := http.StatusNotFound
		if errors.Is(err, aggregator.ErrEndpointUnavailable) {
			status = http.StatusBadGateway
		}
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, pkg)
}

// handleFetchResource returns structured resources as JSON and passes text
// resources through unchanged with their upstream content type.
func (s *Server) handleFetchResource(w http.ResponseWriter, r *http.Request) {
	resourceURL := r.URL.Query().Get("url")
	if resourceURL == "" {
		s.respondError(w, http.StatusBadRequest, "url parameter is required")
		return
	}

	content, err := s.client.FetchResourceContent(r.Context(), resourceURL)
	if err != nil {
		s.logger.Warn("Resource fetch failed", "url", resourceURL, "error", err)
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	if content.Kind == aggregator.KindStructured {
		s.respondJSON(w, http.StatusOK, structuredResourceResponse{
			Kind:        content.Kind.String(),
			ContentType: content.ContentType,
			Data:        content.Data,
		})
		return
	}

	contentType := content.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Kind", content.Kind.String())
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content.Raw); err != nil {
		s.logger.Debug("Writing resource body failed", "error", err)
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("Encoding response failed", "error", err)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
