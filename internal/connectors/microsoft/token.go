package microsoft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/vinhhap/airbyte-custom-connectors/internal/core/ports/driven"
)

// Ensure ClientCredentialsProvider implements the interface.
var _ driven.TokenProvider = (*ClientCredentialsProvider)(nil)

// Microsoft identity platform constants.
const (
	// DefaultAuthorityHost is the public-cloud login endpoint.
	DefaultAuthorityHost = "https://login.microsoftonline.com"
	// DefaultScope requests every application permission granted to the app.
	DefaultScope = "https://graph.microsoft.com/.default"
)

// CredentialsConfig holds the app registration used for the client-credentials flow.
type CredentialsConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	// Scopes defaults to DefaultScope.
	Scopes []string
	// AuthorityHost defaults to DefaultAuthorityHost.
	AuthorityHost string
	// HTTPClient is used for the token exchange. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// ClientCredentialsProvider obtains app-only tokens for Microsoft Graph.
// A token may be reused until it expires; callers must not rely on that and
// ask for a token before every request.
type ClientCredentialsProvider struct {
	mu     sync.Mutex
	config *clientcredentials.Config
	client *http.Client
	token  *oauth2.Token
}

// NewClientCredentialsProvider creates a token provider for the given app registration.
func NewClientCredentialsProvider(cfg CredentialsConfig) (*ClientCredentialsProvider, error) {
	var missing []string
	for _, f := range []struct{ key, val string }{
		{"tenant_id", cfg.TenantID},
		{"client_id", cfg.ClientID},
		{"client_secret", cfg.ClientSecret},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("client credentials: missing %s", strings.Join(missing, ", "))
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{DefaultScope}
	}

	authority := strings.TrimRight(cfg.AuthorityHost, "/")
	if authority == "" {
		authority = DefaultAuthorityHost
	}

	return &ClientCredentialsProvider{
		config: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     authority + "/" + url.PathEscape(cfg.TenantID) + "/oauth2/v2.0/token",
			Scopes:       scopes,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		client: cfg.HTTPClient,
	}, nil
}

// TokenURL returns the token endpoint used for the exchange.
func (p *ClientCredentialsProvider) TokenURL() string {
	return p.config.TokenURL
}

// GetToken returns an access token, performing the exchange when needed.
// The exchange is bound to ctx and aborts when it is cancelled.
func (p *ClientCredentialsProvider) GetToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token.Valid() {
		return p.token.AccessToken, nil
	}

	tok, err := p.config.Token(p.exchangeContext(ctx))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("acquire access token: %w", ctxErr)
		}
		return "", newAuthenticationError(err)
	}
	if tok.AccessToken == "" {
		return "", &AuthenticationError{Description: "token response did not contain an access token"}
	}
	p.token = tok
	return tok.AccessToken, nil
}

func (p *ClientCredentialsProvider) exchangeContext(ctx context.Context) context.Context {
	if p.client == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, p.client)
}

// tokenErrorBody carries the Azure AD fields oauth2 does not parse.
type tokenErrorBody struct {
	CorrelationID string `json:"correlation_id"`
}

func newAuthenticationError(err error) *AuthenticationError {
	authErr := &AuthenticationError{Err: err, Description: err.Error()}

	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return authErr
	}

	authErr.Code = re.ErrorCode
	if re.ErrorDescription != "" {
		authErr.Description = re.ErrorDescription
	}

	var body tokenErrorBody
	if json.Unmarshal(re.Body, &body) == nil && body.CorrelationID != "" {
		authErr.CorrelationID = body.CorrelationID
	} else if re.Response != nil {
		authErr.CorrelationID = re.Response.Header.Get("client-request-id")
	}
	return authErr
}
