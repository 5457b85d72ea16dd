package broker

import (
	"net/http"

	"github.com/coachpo/logbroker/internal/jsonenc"
	"github.com/coachpo/logbroker/internal/registry"
)

type healthBody struct {
	Status      string            `json:"status"`
	Connections int               `json:"connections"`
	Channels    int               `json:"channels"`
	Uptime      int64             `json:"uptime"`
	Stats       registry.Counters `json:"stats"`
}

// handleHealth implements GET /health (spec §4.6).
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = jsonenc.WriteJSON(w, http.StatusOK, healthBody{
		Status:      "healthy",
		Connections: s.registry.ActiveConnections(),
		Channels:    s.registry.ChannelCount(),
		Uptime:      s.clock.Now().Sub(s.started).Milliseconds(),
		Stats:       s.registry.Stats(),
	})
}

type statsBody struct {
	Channels []channelStats    `json:"channels"`
	Counters registry.Counters `json:"counters"`
}

type channelStats struct {
	Channel         string            `json:"channel"`
	SubscriberCount int               `json:"subscriberCount"`
	Subscribers     []subscriberStats `json:"subscribers"`
}

type subscriberStats struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId"`
	ConnectedAt  int64  `json:"connectedAt"`
	LogsSent     int64  `json:"logsSent"`
}

// handleStats implements GET /admin/logs/stats (spec §4.6): a snapshot of
// every channel's subscriber set plus the process-wide counters.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snapshots := s.registry.ChannelSnapshots()
	channels := make([]channelStats, 0, len(snapshots))
	for _, snap := range snapshots {
		subs := make([]subscriberStats, 0, len(snap.Subscribers))
		for _, sub := range snap.Subscribers {
			subs = append(subs, subscriberStats{
				ConnectionID: sub.ConnectionID,
				UserID:       sub.UserID,
				ConnectedAt:  sub.ConnectedAt.UnixMilli(),
				LogsSent:     sub.MessagesSent,
			})
		}
		channels = append(channels, channelStats{
			Channel:         snap.Channel,
			SubscriberCount: snap.SubscriberCount,
			Subscribers:     subs,
		})
	}
	_ = jsonenc.WriteJSON(w, http.StatusOK, statsBody{
		Channels: channels,
		Counters: s.registry.Stats(),
	})
}

type channelCountBody struct {
	Channel     string `json:"channel"`
	Subscribers int    `json:"subscribers"`
}

// handleChannelCount implements GET /api/logs/channels/{channel}/count, an
// additive read-only endpoint not present in spec.md (SPEC_FULL §4
// "Additive design choices", §6.3).
func (s *Server) handleChannelCount(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("channel")
	_ = jsonenc.WriteJSON(w, http.StatusOK, channelCountBody{
		Channel:     name,
		Subscribers: s.registry.SubscriberCount(name),
	})
}
