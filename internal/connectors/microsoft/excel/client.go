// Package excel reads Excel Online worksheets through Microsoft Graph.
package excel

import (
	"net/url"
	"strings"

	"github.com/vinhhap/airbyte-custom-connectors/internal/connectors/microsoft"
	"github.com/vinhhap/airbyte-custom-connectors/internal/core/ports/driven"
)

// Client resolves workbook locations and reads worksheet values through a
// GraphRequester. It holds no state between calls; nothing is cached.
type Client struct {
	graph   driven.GraphRequester
	baseURL string
}

// NewClient creates a client for the Graph endpoint at baseURL.
// An empty baseURL selects the public v1.0 endpoint.
func NewClient(graph driven.GraphRequester, baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = microsoft.DefaultGraphBaseURL
	}
	return &Client{graph: graph, baseURL: baseURL}
}

// escape percent-encodes a single path segment, including '/' and ':'.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// escapePath percent-encodes a path while keeping its '/' separators.
func escapePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = escape(s)
	}
	return strings.Join(segments, "/")
}

func selectFields(fields string) url.Values {
	return url.Values{"$select": {fields}}
}
