// Package principal defines the authenticated identity of a subscriber and
// the interface the broker consumes to resolve it from an incoming HTTP
// request. Identity and workspace-membership resolution are external
// collaborators: the core only consumes this interface (spec §2.2).
package principal

import (
	"net/http"
	"strings"
)

// Principal is the opaque, immutable identity resolved for a subscribe
// request. It is held for the lifetime of the stream.
type Principal struct {
	UserID      string
	Workspaces  map[string]struct{}
	Permissions map[string]struct{}
}

// HasWorkspace reports whether the principal belongs to workspace id. It
// implements channel.WorkspaceSet.
func (p Principal) HasWorkspace(id string) bool {
	_, ok := p.Workspaces[id]
	return ok
}

// HasPermission reports whether the principal carries the named permission.
func (p Principal) HasPermission(name string) bool {
	_, ok := p.Permissions[name]
	return ok
}

// New constructs a Principal from plain slices, deduplicating into sets.
func New(userID string, workspaces, permissions []string) Principal {
	p := Principal{
		UserID:      userID,
		Workspaces:  toSet(workspaces),
		Permissions: toSet(permissions),
	}
	return p
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

// Resolver resolves the Principal for an incoming HTTP request's headers.
// Implementations are external to the core; the core only consumes this
// interface. A non-nil error means resolution failed and the caller must
// respond with brokererr.Unauthenticated.
type Resolver interface {
	Resolve(r *http.Request) (Principal, error)
}

// ResolverFunc adapts a function to a Resolver.
type ResolverFunc func(r *http.Request) (Principal, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(r *http.Request) (Principal, error) { return f(r) }
