package headless

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-multierror"
	"github.com/luminus-dev/auth/headless/internal/strutils"
)

// Defaults for the Luminus identity provider.  Zero-value Config fields
// fall back to these, so most callers only need &Config{}.
const (
	// DefaultIssuer is the provider's issuer URL; its OIDC discovery
	// document lives under the issuer's .well-known path.
	DefaultIssuer = "https://luminus.nus.edu.sg/v2/auth"

	// DefaultBaseURL is the origin that relative URLs (the scraped login
	// form URL in particular) resolve against.
	DefaultBaseURL = "https://luminus.nus.edu.sg"

	// DefaultClientID is the relying party id of the Luminus web app.
	DefaultClientID = "verso"

	// DefaultRedirectURL is the callback registered for DefaultClientID.
	// The provider's terminal redirect targets it; it is never fetched.
	DefaultRedirectURL = "https://luminus.nus.edu.sg/auth/callback"

	// DefaultResponseType is the implicit-flow variant that returns the
	// id_token, an access token and a code together in the callback
	// fragment.
	DefaultResponseType = "id_token token code"
)

// SessionCookie is the provider's long-lived session cookie.  It is the
// only cookie retained after a completed callback and is what makes silent
// renewal possible.
const SessionCookie = "idsrv"

// DefaultScopes returns the fixed capability list requested with every
// authorization URL.
func DefaultScopes() []string {
	return []string{
		"profile",
		"email",
		"role",
		"openid",
		"lms.read",
		"calendar.read",
		"lms.delete",
		"lms.write",
		"calendar.write",
		"gradebook.write",
		"offline_access",
	}
}

// Config holds the provider constants for a Session.
type Config struct {
	// Issuer is the provider's issuer URL (scheme, host and optional path,
	// no query or fragment).  Discovery requests target its .well-known
	// path.
	Issuer string

	// BaseURL is the origin relative URLs resolve against.
	BaseURL string

	// ClientID is the relying party id sent with authorization requests.
	ClientID string

	// RedirectURL is the registered callback URL; the provider's terminal
	// redirect carries the token fragment on it.
	RedirectURL string

	// Scopes is the full list of scopes to request.  Unlike a typical
	// relying party config this is the complete list; "openid" must be
	// included by the caller (DefaultScopes includes it).
	Scopes []string

	// ResponseType is the implicit-flow response_type value.
	ResponseType string

	// ProviderCA is an optional CA cert PEM to trust when talking to the
	// provider.
	ProviderCA string
}

// withDefaults returns a copy of the config with every zero-value field
// replaced by its Default* value.
func (c *Config) withDefaults() *Config {
	cp := &Config{}
	if c != nil {
		*cp = *c
		cp.Scopes = append([]string(nil), c.Scopes...)
	}
	if cp.Issuer == "" {
		cp.Issuer = DefaultIssuer
	}
	if cp.BaseURL == "" {
		cp.BaseURL = DefaultBaseURL
	}
	if cp.ClientID == "" {
		cp.ClientID = DefaultClientID
	}
	if cp.RedirectURL == "" {
		cp.RedirectURL = DefaultRedirectURL
	}
	if len(cp.Scopes) == 0 {
		cp.Scopes = DefaultScopes()
	}
	if cp.ResponseType == "" {
		cp.ResponseType = DefaultResponseType
	}
	return cp
}

// Validate the session configuration.  It verifies the URLs parse with an
// http or https scheme and that the request parameters are non-empty; it
// does not verify the issuer is discoverable via an http request.
func (c *Config) Validate() error {
	const op = "headless.(Config).Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w", op, ErrNilParameter)
	}
	var result *multierror.Error
	for _, f := range []struct {
		name  string
		value string
	}{
		{"issuer", c.Issuer},
		{"base URL", c.BaseURL},
		{"redirect URL", c.RedirectURL},
	} {
		u, err := url.Parse(f.value)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %s %q is invalid: %w", op, f.name, f.value, err))
			continue
		}
		if !strutils.StrListContains([]string{"https", "http"}, u.Scheme) {
			result = multierror.Append(result, fmt.Errorf("%s: %s %q scheme is not http or https: %w", op, f.name, f.value, ErrInvalidParameter))
		}
	}
	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter))
	}
	if len(c.Scopes) == 0 {
		result = multierror.Append(result, fmt.Errorf("%s: scopes are empty: %w", op, ErrInvalidParameter))
	}
	if c.ResponseType == "" {
		result = multierror.Append(result, fmt.Errorf("%s: response type is empty: %w", op, ErrInvalidParameter))
	}
	return result.ErrorOrNil()
}

// HTTPClient builds the client used for the login protocol: a pooled
// transport trusting the optional ProviderCA, with automatic redirect
// following disabled so the protocol can step through each Location header
// itself.
func (c *Config) HTTPClient() (*http.Client, error) {
	const op = "headless.(Config).HTTPClient"
	tr := cleanhttp.DefaultPooledTransport()
	if c.ProviderCA != "" {
		certPool := x509.NewCertPool()
		if ok := certPool.AppendCertsFromPEM([]byte(c.ProviderCA)); !ok {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		tr.TLSClientConfig = &tls.Config{
			RootCAs: certPool,
		}
	}
	return &http.Client{
		Transport: tr,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}, nil
}
