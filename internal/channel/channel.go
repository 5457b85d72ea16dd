// Package channel parses and authorizes the colon-delimited channel names
// the broker fans records out by.
package channel

import "strings"

// Name is a parsed channel name of the shape
// logs:<service>:<workspace>:<resource?>. Components are opaque strings
// compared byte-exact; the delimiter is fixed.
type Name struct {
	Raw         string
	Service     string
	Workspace   string
	Resource    string
	HasResource bool
}

const prefix = "logs"

// Parse splits raw on ':' with a maximum of four components and validates
// the required shape. It returns ok=false for anything malformed: wrong
// prefix, or an empty service/workspace component.
func Parse(raw string) (Name, bool) {
	parts := strings.SplitN(raw, ":", 4)
	if len(parts) < 3 {
		return Name{}, false
	}
	if parts[0] != prefix {
		return Name{}, false
	}
	service := parts[1]
	workspace := parts[2]
	if service == "" || workspace == "" {
		return Name{}, false
	}
	n := Name{Raw: raw, Service: service, Workspace: workspace}
	if len(parts) == 4 {
		if parts[3] == "" {
			return Name{}, false
		}
		n.Resource = parts[3]
		n.HasResource = true
	}
	return n, true
}

// Build renders the canonical channel string for the given components.
func Build(service, workspace, resource string) string {
	if resource == "" {
		return prefix + ":" + service + ":" + workspace
	}
	return prefix + ":" + service + ":" + workspace + ":" + resource
}

// WorkspaceSet is the minimal view of a Principal the authorization check
// needs: the set of workspace ids the caller belongs to.
type WorkspaceSet interface {
	HasWorkspace(id string) bool
}

// AuthorizeSubscribe reports whether a principal belonging to workspaces may
// subscribe to the given raw channel name. Resource-level access is not
// checked here; the workspace membership check is the only gate (spec
// §4.1). Malformed channel names are rejected.
func AuthorizeSubscribe(raw string, workspaces WorkspaceSet) bool {
	n, ok := Parse(raw)
	if !ok {
		return false
	}
	return workspaces.HasWorkspace(n.Workspace)
}

// FilterAuthorized parses and deduplicates requested, dropping anything
// malformed or unauthorized, and returns the authorized subset in first-seen
// order.
func FilterAuthorized(requested []string, workspaces WorkspaceSet) []string {
	seen := make(map[string]struct{}, len(requested))
	authorized := make([]string, 0, len(requested))
	for _, raw := range requested {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		if AuthorizeSubscribe(raw, workspaces) {
			authorized = append(authorized, raw)
		}
	}
	return authorized
}
