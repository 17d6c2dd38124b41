// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the summary engine over HTTP: issue listing, sync
// and streaming summary generation, persisted summary retrieval, and prompt
// preview. Implements: prd006-service (R1-R5);
//
//	docs/ARCHITECTURE § HTTP Surface.
package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/issue-digest/internal/issuestore"
	"github.com/pdiddy/issue-digest/internal/pipeline"
	"github.com/pdiddy/issue-digest/internal/synthesize"
	"github.com/pdiddy/issue-digest/pkg/types"
)

// Server wires the issue store and pipeline orchestrator to HTTP handlers.
type Server struct {
	store *issuestore.Store
	orch  *pipeline.Orchestrator
	cfg   types.ServerConfig
}

// New builds a server from its collaborators.
func New(store *issuestore.Store, orch *pipeline.Orchestrator, cfg types.ServerConfig) *Server {
	return &Server{store: store, orch: orch, cfg: cfg}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/health", s.handleHealth)

	api := r.Group("/api")
	{
		api.GET("/issues", s.handleListIssues)
		api.GET("/issues/:scraperKey/:issueID", s.handleGetIssue)
		api.GET("/issues/:scraperKey/:issueID/prompt", s.handleDefaultPrompt)
		api.GET("/issues/:scraperKey/:issueID/summary", s.handleGetSummary)
		api.POST("/issues/:scraperKey/:issueID/summary", s.handleGenerate)
		api.GET("/issues/:scraperKey/:issueID/summary/stream", s.handleGenerateStream)
	}

	return r
}

// Run starts the HTTP server on the configured address.
func (s *Server) Run() error {
	addr := s.cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	return s.Router().Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListIssues(c *gin.Context) {
	records, err := s.store.ListIssues(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []issuestore.IssueRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"issues": records})
}

func (s *Server) handleGetIssue(c *gin.Context) {
	rec, err := s.store.GetIssue(c.Request.Context(), c.Param("scraperKey"), c.Param("issueID"))
	if err != nil {
		if errors.Is(err, issuestore.ErrIssueNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "issue not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// handleDefaultPrompt previews the synthesis instruction a run would use,
// without making any model call (prd004 R2.4).
func (s *Server) handleDefaultPrompt(c *gin.Context) {
	ctx := c.Request.Context()
	scraperKey, issueID := c.Param("scraperKey"), c.Param("issueID")

	rec, err := s.store.GetIssue(ctx, scraperKey, issueID)
	if err != nil {
		if errors.Is(err, issuestore.ErrIssueNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "issue not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	docs, err := s.store.Documents(ctx, scraperKey, issueID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	prompt := synthesize.DefaultSynthesisPrompt(
		rec.Info.Journal, rec.Info, len(docs), c.Query("field_context"))
	c.JSON(http.StatusOK, gin.H{"prompt": prompt})
}

// handleGetSummary returns the persisted summary for an issue. The user_id
// query parameter selects a per-viewer slot; omitting it selects the shared
// slot — the two never alias (prd007 R1.2).
func (s *Server) handleGetSummary(c *gin.Context) {
	userID := optionalUserID(c.Query("user_id"))

	stored, err := s.store.GetSummary(c.Request.Context(),
		c.Param("scraperKey"), c.Param("issueID"), userID)
	if err != nil {
		if errors.Is(err, issuestore.ErrSummaryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "summary not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stored)
}

// generateRequest is the body of a sync generation request. All fields are
// optional; an empty body generates the shared summary with default prompts.
type generateRequest struct {
	UserID       string `json:"user_id"`
	CustomPrompt string `json:"custom_prompt"`
	FieldContext string `json:"field_context"`
}

// handleGenerate runs the pipeline synchronously and returns the full result.
// Persistence failure is logged but never fails the response: the caller paid
// for the model calls and gets the summary regardless (prd007 R3.1).
func (s *Server) handleGenerate(c *gin.Context) {
	ctx := c.Request.Context()
	scraperKey, issueID := c.Param("scraperKey"), c.Param("issueID")

	var body generateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
	}

	req, ok := s.buildRequest(c, scraperKey, issueID, body.CustomPrompt, body.FieldContext)
	if !ok {
		return
	}

	result, err := s.orch.Run(ctx, req)
	if err != nil {
		c.JSON(statusForRunError(err), gin.H{"error": err.Error()})
		return
	}

	userID := optionalUserID(body.UserID)
	if err := s.store.SaveSummary(ctx, scraperKey, issueID, userID, result); err != nil {
		log.Printf("persisting summary for %s/%s: %v", scraperKey, issueID, err)
	}

	c.JSON(http.StatusOK, result)
}

// buildRequest resolves the issue and its extractable documents into a
// pipeline request, writing the error response itself when that fails.
func (s *Server) buildRequest(c *gin.Context, scraperKey, issueID, customPrompt, fieldContext string) (pipeline.Request, bool) {
	ctx := c.Request.Context()

	rec, err := s.store.GetIssue(ctx, scraperKey, issueID)
	if err != nil {
		if errors.Is(err, issuestore.ErrIssueNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "issue not found"})
			return pipeline.Request{}, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return pipeline.Request{}, false
	}

	docs, err := s.store.Documents(ctx, scraperKey, issueID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return pipeline.Request{}, false
	}

	return pipeline.Request{
		Documents:    docs,
		Journal:      rec.Info.Journal,
		Issue:        rec.Info,
		CustomPrompt: customPrompt,
		FieldContext: fieldContext,
	}, true
}

// statusForRunError maps pipeline failures to HTTP statuses: precondition
// failures are the client's problem, model failures are upstream's.
func statusForRunError(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrNoDocuments), errors.Is(err, pipeline.ErrNoExtractions):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

// optionalUserID maps an empty identity to the shared slot.
func optionalUserID(raw string) *string {
	if raw == "" {
		return nil
	}
	return &raw
}
