package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rulecast/internal/contract"
	"rulecast/internal/ingestion"
	"rulecast/internal/services"
	"rulecast/internal/storyboard"
	"rulecast/internal/textutil"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (s *Server) health(c *gin.Context) {
	payload := Health{
		Status:          "ok",
		ContractVersion: s.pipeline.Contract().Version,
		Catalog:         s.catalog != nil,
	}
	if s.recorder != nil {
		payload.Ingestions = s.recorder.Snapshot().Ingestions
	}
	respondOK(c, payload)
}

func (s *Server) contract(c *gin.Context) {
	respondOK(c, s.pipeline.Contract())
}

func (s *Server) reloadContract(c *gin.Context) {
	if s.contractPath == "" {
		respondError(c, http.StatusConflict, ErrorBody{Code: codeNotReloadable, Message: "no contract file configured; the built-in rules are active"})
		return
	}
	active, swapped, err := s.pipeline.ReloadContract(s.contractPath)
	switch {
	case errors.Is(err, contract.ErrVersionRegression):
		respondError(c, http.StatusConflict, ErrorBody{Code: codeRegression, Message: err.Error()})
		return
	case errors.Is(err, services.ErrConfiguration):
		respondError(c, http.StatusUnprocessableEntity, ErrorBody{Code: services.CodeOf(err), Message: err.Error()})
		return
	case err != nil:
		s.handleError(c, err)
		return
	}
	respondOK(c, ContractReload{Reloaded: swapped, Version: active.Version, Source: active.Source})
}

func (s *Server) createManifest(c *gin.Context) {
	doc, err := ingestion.DecodeDocument(c.Request.Body)
	if err != nil {
		s.handleError(c, err)
		return
	}
	outcome, err := s.pipeline.Ingest(c.Request.Context(), doc)
	if err != nil {
		status, body := mapError(err)
		body.IngestionID = outcome.IngestionID
		if status >= http.StatusInternalServerError {
			s.handleError(c, err)
			return
		}
		respondError(c, status, body)
		return
	}
	c.Header("Location", "/v1/manifests/"+outcome.DocumentID)
	respondCreated(c, IngestResponse{
		IngestionID: outcome.IngestionID,
		DocumentID:  outcome.DocumentID,
		Location:    outcome.Location,
		DurationMs:  outcome.Duration.Milliseconds(),
		Manifest:    outcome.Manifest,
	})
}

func (s *Server) listManifests(c *gin.Context) {
	if s.catalog == nil {
		respondOK(c, []ManifestSummary{})
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	records, err := s.catalog.List(c.Request.Context(), limit)
	if err != nil {
		s.handleError(c, err)
		return
	}
	out := make([]ManifestSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, FromManifestRecord(rec))
	}
	respondOK(c, out)
}

func (s *Server) getManifest(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	m, err := s.store.Load(c.Request.Context(), id)
	if err != nil {
		s.handleError(c, err)
		return
	}
	respondOK(c, m)
}

func (s *Server) manifestHistory(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	if s.catalog == nil {
		respondError(c, http.StatusServiceUnavailable, ErrorBody{Code: codeUnavailable, Message: "catalog is not configured"})
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	attempts, err := s.catalog.History(c.Request.Context(), id, limit)
	if err != nil {
		s.handleError(c, err)
		return
	}
	if len(attempts) == 0 {
		respondError(c, http.StatusNotFound, ErrorBody{Code: codeNotFound, Message: "no ingestions recorded for " + id})
		return
	}
	out := make([]AttemptView, 0, len(attempts))
	for _, attempt := range attempts {
		out = append(out, FromAttempt(attempt))
	}
	respondOK(c, out)
}

func (s *Server) manifestStoryboard(c *gin.Context) {
	id, ok := documentID(c)
	if !ok {
		return
	}
	m, err := s.store.Load(c.Request.Context(), id)
	if err != nil {
		s.handleError(c, err)
		return
	}
	payload := storyboard.PayloadFromManifest(m)
	payload.Resolution.Policy = c.Query("resolution")
	s.compile(c, payload)
}

func (s *Server) compileStoryboard(c *gin.Context) {
	payload, err := storyboard.DecodePayload(c.Request.Body)
	if err != nil {
		s.handleError(c, err)
		return
	}
	s.compile(c, payload)
}

func (s *Server) compile(c *gin.Context, payload storyboard.Payload) {
	board, err := s.compiler.Compile(payload)
	if err != nil {
		s.handleError(c, err)
		return
	}
	respondOK(c, board)
}

func documentID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if !textutil.ValidIdentifier(id) {
		respondError(c, http.StatusBadRequest, ErrorBody{Code: services.CodeInputInvalid, Message: "invalid document id"})
		return "", false
	}
	return id, true
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > maxListLimit {
		respondError(c, http.StatusBadRequest, ErrorBody{Code: codeBadRequest, Message: "limit must be between 1 and " + strconv.Itoa(maxListLimit)})
		return 0, false
	}
	return limit, true
}
