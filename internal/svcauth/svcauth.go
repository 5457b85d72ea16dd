// Package svcauth defines the Service Authenticator interface the publish
// path consumes and a reference token-map implementation. This is an
// external collaborator per spec §2.3: the core holds no secrets itself.
package svcauth

import "strings"

// Authenticator decides whether a publish request may post to a channel,
// given the service token supplied on the request and the service name the
// publish body declared.
type Authenticator interface {
	Authorize(token, declaredService, channel string) bool
}

// TokenMap is the reference Authenticator: a static map from service token
// to the service name it is allowed to publish as. A deployment configures
// this from its own secret store; the core never holds the map's origin.
type TokenMap map[string]string

// Authorize reports true iff token maps to exactly declaredService. The
// channel argument is accepted for interface symmetry with more elaborate
// authenticators (e.g. ones that also check per-channel ACLs) but the
// reference implementation does not consult it beyond what the caller
// already encoded into declaredService.
func (m TokenMap) Authorize(token, declaredService, _ string) bool {
	if token == "" || declaredService == "" {
		return false
	}
	service, ok := m[token]
	if !ok {
		return false
	}
	return service == declaredService
}

// ParseTokenMap parses a "token1=service1,token2=service2" style
// configuration string into a TokenMap, as loaded from config/env.
func ParseTokenMap(raw string) TokenMap {
	m := make(TokenMap)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		token := strings.TrimSpace(kv[0])
		service := strings.TrimSpace(kv[1])
		if token == "" || service == "" {
			continue
		}
		m[token] = service
	}
	return m
}
