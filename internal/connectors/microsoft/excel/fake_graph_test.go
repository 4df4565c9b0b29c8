package excel

import (
	"context"
	"net/http"
	"net/url"

	"github.com/vinhhap/airbyte-custom-connectors/internal/connectors/microsoft"
)

const testBaseURL = "https://graph.test/v1.0"

type fakeCall struct {
	url    string
	params url.Values
}

type fakeResponse struct {
	payload map[string]any
	err     error
}

// fakeGraph answers requests by exact URL. Unknown URLs are not found.
type fakeGraph struct {
	responses map[string]fakeResponse
	calls     []fakeCall
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{responses: make(map[string]fakeResponse)}
}

func (f *fakeGraph) on(rawURL string, payload map[string]any) *fakeGraph {
	f.responses[rawURL] = fakeResponse{payload: payload}
	return f
}

func (f *fakeGraph) fail(rawURL string, err error) *fakeGraph {
	f.responses[rawURL] = fakeResponse{err: err}
	return f
}

func (f *fakeGraph) RequestJSON(
	_ context.Context, _ string, rawURL string, params url.Values,
) (map[string]any, error) {
	f.calls = append(f.calls, fakeCall{url: rawURL, params: params})
	if r, ok := f.responses[rawURL]; ok {
		return r.payload, r.err
	}
	return nil, notFoundError(rawURL)
}

func (f *fakeGraph) urls() []string {
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.url)
	}
	return out
}

func notFoundError(rawURL string) error {
	return &microsoft.GraphError{StatusCode: http.StatusNotFound, URL: rawURL, Code: "itemNotFound", NotFound: true}
}

func forbiddenError(rawURL string) error {
	return &microsoft.GraphError{StatusCode: http.StatusForbidden, URL: rawURL, Code: "accessDenied"}
}
