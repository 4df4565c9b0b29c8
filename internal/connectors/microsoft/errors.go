package microsoft

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Error types for Microsoft Graph API responses.
var (
	// ErrUnauthorised indicates the access token is invalid or expired.
	ErrUnauthorised = errors.New("microsoft: unauthorised")

	// ErrForbidden indicates the app lacks permission for the requested resource.
	ErrForbidden = errors.New("microsoft: forbidden")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("microsoft: not found")

	// ErrRateLimited indicates the request was throttled by Microsoft Graph.
	ErrRateLimited = errors.New("microsoft: rate limited")

	// ErrBadRequest indicates the request was malformed.
	ErrBadRequest = errors.New("microsoft: bad request")

	// ErrServerError indicates a server-side error from Microsoft Graph.
	ErrServerError = errors.New("microsoft: server error")
)

// maxBodyExcerpt is the number of characters of a raw error body kept in messages.
const maxBodyExcerpt = 2000

// WrapError converts an HTTP status code to an appropriate error.
func WrapError(statusCode int) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorised
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusBadRequest:
		return ErrBadRequest
	default:
		if statusCode >= 500 {
			return ErrServerError
		}
		return nil
	}
}

// IsRetryable checks if the status code is transient and the request can be retried.
func IsRetryable(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// GraphError is a non-retryable error response from Microsoft Graph.
type GraphError struct {
	StatusCode      int
	URL             string
	Code            string
	Message         string
	RequestID       string
	ClientRequestID string
	// BodyExcerpt holds the truncated raw body when no structured error was returned.
	BodyExcerpt string
	// NotFound is set for 404 responses and itemNotFound error codes.
	NotFound bool

	detail string
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("graph API error %d for %s: %s", e.StatusCode, e.URL, e.detail)
}

// Unwrap exposes the status-class sentinel, e.g. ErrNotFound.
func (e *GraphError) Unwrap() error {
	if e.NotFound {
		return ErrNotFound
	}
	return WrapError(e.StatusCode)
}

// IsNotFound reports whether err is a Graph not-found error.
func IsNotFound(err error) bool {
	var ge *GraphError
	return errors.As(err, &ge) && ge.NotFound
}

// graphErrorBody is the standard Graph error envelope.
type graphErrorBody struct {
	Error *struct {
		Code    any `json:"code"`
		Message any `json:"message"`
	} `json:"error"`
}

// NewGraphError builds a GraphError from a failed response and its body.
func NewGraphError(resp *http.Response, body []byte, rawURL string) *GraphError {
	ge := &GraphError{
		StatusCode:      resp.StatusCode,
		URL:             rawURL,
		RequestID:       requestID(resp.Header),
		ClientRequestID: resp.Header.Get("client-request-id"),
	}

	if code, message, ok := parseErrorBody(resp.Header, body); ok {
		ge.Code = code
		ge.Message = message
	} else {
		ge.BodyExcerpt = bodyExcerpt(body)
	}

	ge.NotFound = resp.StatusCode == http.StatusNotFound || ge.Code == "itemNotFound"
	ge.detail = ExtractErrorMessage(resp, body)
	return ge
}

// ExtractErrorMessage renders the diagnostic message for a failed Graph response.
//
// Structured errors render as "code - message | request_id=... | client_request_id=...".
// Anything else falls back to the raw body, truncated to 2000 characters, followed by
// " | request_id=... client_request_id=...".
func ExtractErrorMessage(resp *http.Response, body []byte) string {
	var suffix []string
	if id := requestID(resp.Header); id != "" {
		suffix = append(suffix, "request_id="+id)
	}
	if id := resp.Header.Get("client-request-id"); id != "" {
		suffix = append(suffix, "client_request_id="+id)
	}

	if code, message, ok := parseErrorBody(resp.Header, body); ok {
		var parts []string
		for _, p := range []string{code, message} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		return strings.Join(append([]string{strings.Join(parts, " - ")}, suffix...), " | ")
	}

	excerpt := bodyExcerpt(body)
	if len(suffix) > 0 {
		return excerpt + " | " + strings.Join(suffix, " ")
	}
	return excerpt
}

// parseErrorBody extracts code and message from a JSON Graph error envelope.
// ok is false unless at least one of them is non-empty.
func parseErrorBody(h http.Header, body []byte) (code, message string, ok bool) {
	if !strings.Contains(h.Get("Content-Type"), "application/json") {
		return "", "", false
	}
	var env graphErrorBody
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil || env.Error == nil {
		return "", "", false
	}
	code, message = errorField(env.Error.Code), errorField(env.Error.Message)
	if code == "" && message == "" {
		return "", "", false
	}
	return code, message, true
}

// errorField renders a non-string error field the way it appeared in the body.
func errorField(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

func requestID(h http.Header) string {
	if id := h.Get("request-id"); id != "" {
		return id
	}
	return h.Get("x-ms-request-id")
}

func bodyExcerpt(body []byte) string {
	text := strings.TrimSpace(string(body))
	if utf8.RuneCountInString(text) <= maxBodyExcerpt {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxBodyExcerpt]) + "…"
}

// RequestFailedError reports a request that kept failing at the transport level
// until retries were exhausted.
type RequestFailedError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("graph request failed after %d attempts for %s: %v", e.Attempts, e.URL, e.Err)
}

func (e *RequestFailedError) Unwrap() error { return e.Err }

// AuthenticationError reports a failed client-credentials exchange.
type AuthenticationError struct {
	Code          string
	Description   string
	CorrelationID string
	Err           error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("acquire access token: error=%q correlation_id=%q description=%q",
		e.Code, e.CorrelationID, e.Description)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// MalformedResponseError reports a successful response whose shape is unusable.
type MalformedResponseError struct {
	URL    string
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("unexpected graph response for %s: %s", e.URL, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
