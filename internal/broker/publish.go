package broker

import (
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/coachpo/logbroker/internal/brokererr"
	"github.com/coachpo/logbroker/internal/channel"
	"github.com/coachpo/logbroker/internal/envelope"
	"github.com/coachpo/logbroker/internal/jsonenc"
)

// publishRequest is the publish endpoint's request body (spec §4.5).
type publishRequest struct {
	Service     string          `json:"service"`
	WorkspaceID string          `json:"workspace_id"`
	WorkflowID  string          `json:"workflow_id,omitempty"`
	FunctionID  string          `json:"function_id,omitempty"`
	LogData     json.RawMessage `json:"logData"`
}

type publishResponse struct {
	Success   bool   `json:"success"`
	Channel   string `json:"channel"`
	Delivered int    `json:"delivered"`
	Timestamp int64  `json:"timestamp"`
}

type rateLimitedBody struct {
	Error string `json:"error"`
}

// handlePublish implements POST /api/logs/publish and its POST /test/logs
// alias (spec §4.5): derive the target channel by resource precedence,
// require the declared service to equal the channel's service component and
// authorize it against the supplied token, then publish through the registry.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, brokererr.BadRequest("malformed request body"))
		return
	}
	req.Service = strings.TrimSpace(req.Service)
	req.WorkspaceID = strings.TrimSpace(req.WorkspaceID)
	if req.Service == "" || req.WorkspaceID == "" || len(req.LogData) == 0 {
		writeErr(w, brokererr.BadRequest("service, workspace_id, and logData are required"))
		return
	}

	target := resolveChannel(req)
	name, ok := channel.Parse(target)
	if !ok {
		writeErr(w, brokererr.BadRequest("resolved channel name is malformed"))
		return
	}

	token := r.Header.Get("X-Service-Token")
	if !s.limiter.Allow(token) {
		_ = jsonenc.WriteJSON(w, http.StatusTooManyRequests, rateLimitedBody{Error: "rate_limited"})
		return
	}

	if name.Service != req.Service || !s.auth.Authorize(token, req.Service, target) {
		writeErr(w, brokererr.UnauthorizedService("declared service is not authorized to publish on this channel"))
		return
	}

	env := envelope.Envelope{
		ID:          s.ids.NewID(),
		Channel:     target,
		Payload:     req.LogData,
		PublishedAt: s.clock.Now(),
	}
	result := s.registry.Publish(target, env)

	_ = jsonenc.WriteJSON(w, http.StatusOK, publishResponse{
		Success:   true,
		Channel:   target,
		Delivered: result.Delivered,
		Timestamp: env.PublishedAt.UnixMilli(),
	})
}

// resolveChannel applies the resource precedence rule (spec §4.5):
// function_id takes precedence over workflow_id, and the function case's
// channel service component is always the literal "function" regardless of
// the declared service, so a declared service of anything else fails
// authorization against it.
func resolveChannel(req publishRequest) string {
	switch {
	case req.FunctionID != "":
		return channel.Build("function", req.WorkspaceID, req.FunctionID)
	case req.WorkflowID != "":
		return channel.Build(req.Service, req.WorkspaceID, req.WorkflowID)
	default:
		return channel.Build(req.Service, req.WorkspaceID, "")
	}
}
