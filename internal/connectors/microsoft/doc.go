// Package microsoft provides the Microsoft Graph plumbing shared by the
// Excel Online connector.
//
// This package provides:
//   - Client-credentials token acquisition for the Microsoft identity platform
//   - A JSON request executor with retries, backoff and rate limiting
//   - Normalised errors for Microsoft Graph API responses
//
// # Authentication
//
// The connector authenticates as an application, not a user:
//   - Token URL: https://login.microsoftonline.com/{tenant}/oauth2/v2.0/token
//   - Scope: https://graph.microsoft.com/.default
//
// A token is requested before every Graph call; any reuse is left to the
// oauth2 token source.
//
// # Retries
//
// Transport failures and 429, 500, 502, 503 and 504 responses are retried.
// A numeric Retry-After header is honoured exactly. Otherwise the wait is
// min(max_backoff, initial_backoff * 2^attempt), plus up to 25% jitter for
// HTTP responses. Other 4xx responses fail immediately with a GraphError.
//
// # Error Messages
//
// Graph errors render as "code - message" when the body is a structured JSON
// error, or as the raw body truncated to 2000 characters otherwise. Request
// ids from the request-id, x-ms-request-id and client-request-id headers are
// appended in both cases.
package microsoft
