// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/issue-digest/internal/pipeline"
)

// handleGenerateStream runs the pipeline and relays its events over SSE.
// Event names mirror pipeline.EventType; payloads are the event data as JSON.
// A client disconnect stops the relay but not the run: in-flight model calls
// finish, the event channel is drained, and the completed result is still
// persisted (prd006 R4.2).
func (s *Server) handleGenerateStream(c *gin.Context) {
	scraperKey, issueID := c.Param("scraperKey"), c.Param("issueID")

	req, ok := s.buildRequest(c, scraperKey, issueID,
		c.Query("custom_prompt"), c.Query("field_context"))
	if !ok {
		return
	}
	userID := optionalUserID(c.Query("user_id"))

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	clientGone := c.Request.Context().Done()
	runCtx := context.WithoutCancel(c.Request.Context())
	events := s.orch.RunStream(runCtx, req)

	// The channel is buffered for the whole run and closes after the terminal
	// event, so draining here always terminates.
	writing := true
	for ev := range events {
		if data, isComplete := ev.Data.(pipeline.CompleteData); isComplete && data.Result != nil {
			if err := s.store.SaveSummary(runCtx, scraperKey, issueID, userID, data.Result); err != nil {
				log.Printf("persisting summary for %s/%s: %v", scraperKey, issueID, err)
			}
		}

		if writing {
			select {
			case <-clientGone:
				writing = false
			default:
				c.SSEvent(string(ev.Type), ev.Data)
				c.Writer.Flush()
			}
		}
	}
}
