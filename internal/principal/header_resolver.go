package principal

import (
	"net/http"
	"strings"

	"github.com/coachpo/logbroker/internal/brokererr"
)

// HeaderResolver is the reference Resolver implementation: it reads
// X-User-Id and derives workspace/permission membership from sibling
// headers. Real deployments plug in a workspace-aware resolver backed by
// their identity provider; this implementation exists to keep the broker
// runnable standalone and to give the test suite a deterministic seam.
type HeaderResolver struct{}

// Resolve implements Resolver.
func (HeaderResolver) Resolve(r *http.Request) (Principal, error) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		return Principal{}, brokererr.Unauthenticated("missing X-User-Id")
	}
	workspaces := splitCommaHeader(r.Header.Get("X-Workspaces"))
	permissions := splitCommaHeader(r.Header.Get("X-Permissions"))
	return New(userID, workspaces, permissions), nil
}

func splitCommaHeader(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
