package ratelimit

import (
	"strings"
)

// unlimited is returned for the health and metrics endpoints.
var unlimited = EndpointConfig{}

// MatchEndpoint matches a request path and method to an endpoint configuration.
// Returns the matching EndpointConfig or nil if no match is found. Exact and
// wildcard matches ("/applications/*/process") win over prefix matches
// ("/applications/").
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if method == "GET" && (path == "/health" || path == "/metrics") {
		cfg := unlimited
		return &cfg
	}

	for i := range configs {
		config := &configs[i]
		if config.Method == method && matchSegments(config.Path, path) {
			return config
		}
	}

	for i := range configs {
		config := &configs[i]
		if config.Method == method && strings.HasSuffix(config.Path, "/") && strings.HasPrefix(path, config.Path) {
			return config
		}
	}

	return nil
}

// matchSegments compares pattern and path segment by segment; "*" matches
// any single non-empty segment.
func matchSegments(pattern, path string) bool {
	if pattern == path {
		return true
	}
	want := strings.Split(strings.Trim(pattern, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return false
	}
	for i, seg := range want {
		if seg == "*" {
			if got[i] == "" {
				return false
			}
			continue
		}
		if seg != got[i] {
			return false
		}
	}
	return true
}

// Key returns the limiter key for a request. Requests matching the same
// endpoint pattern share a bucket, so a client cannot dodge the limit by
// varying path parameters.
func Key(clientID, path, method string, config *EndpointConfig) string {
	if config != nil && config.Path != "" {
		return clientID + ":" + config.Path + ":" + method
	}
	return clientID + ":" + path + ":" + method
}
