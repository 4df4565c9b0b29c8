package driven

import (
	"context"
	"net/url"
)

// TokenProvider supplies bearer tokens for outgoing requests.
type TokenProvider interface {
	// GetToken returns a valid access token.
	GetToken(ctx context.Context) (string, error)
}

// GraphRequester issues JSON requests against Microsoft Graph.
// Implementations handle authentication, retries and error normalisation.
type GraphRequester interface {
	RequestJSON(ctx context.Context, method, rawURL string, params url.Values) (map[string]any, error)
}
