// Package envelope defines the immutable message envelope the broker fans
// out to subscribers, and the SSE wire shapes it is rendered as.
package envelope

import (
	"time"

	json "github.com/goccy/go-json"
)

// Envelope is the unit fanned out to subscribers. It is immutable once
// minted and may be referenced by multiple subscriber queues at once (spec
// §3).
type Envelope struct {
	ID          string
	Channel     string
	Payload     json.RawMessage
	PublishedAt time.Time
}

// dataRecord is the JSON body of an SSE data record (spec §6.1.1).
type dataRecord struct {
	Channel   string          `json:"channel"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	ID        string          `json:"id"`
}

// EncodeData renders the envelope's data-record JSON body, to be written
// after an "id: <id>\ndata: " prefix.
func (e Envelope) EncodeData() ([]byte, error) {
	return json.Marshal(dataRecord{
		Channel:   e.Channel,
		Data:      e.Payload,
		Timestamp: e.PublishedAt.UnixMilli(),
		ID:        e.ID,
	})
}

// ConnectionRecord is the JSON body of the initial handshake record (spec
// §6.1.2), emitted once immediately after headers.
type ConnectionRecord struct {
	Type         string   `json:"type"`
	Status       string   `json:"status"`
	Channels     []string `json:"channels"`
	UserID       string   `json:"userId"`
	ConnectionID string   `json:"connectionId"`
	Timestamp    int64    `json:"timestamp"`
}

// EncodeConnectionRecord renders a handshake record's JSON body.
func EncodeConnectionRecord(channels []string, userID, connectionID string, at time.Time) ([]byte, error) {
	if channels == nil {
		channels = []string{}
	}
	return json.Marshal(ConnectionRecord{
		Type:         "connection",
		Status:       "connected",
		Channels:     channels,
		UserID:       userID,
		ConnectionID: connectionID,
		Timestamp:    at.UnixMilli(),
	})
}
