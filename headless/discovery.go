package headless

import (
	"context"
	"fmt"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// authorizationEndpoint fetches the provider's OIDC discovery document and
// returns the authorization_endpoint it names.  Discovery uses the
// session's transport but not its cookie jar, so it has no side effect on
// the session and may be repeated freely.
func (s *Session) authorizationEndpoint(ctx context.Context) (string, error) {
	const op = "headless.(Session).authorizationEndpoint"
	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, s.client), s.conf.Issuer)
	if err != nil {
		return "", fmt.Errorf("%s: unable to discover provider: %w", op, err)
	}
	return provider.Endpoint().AuthURL, nil
}

// authorizationURL builds a fully parameterized authorization-endpoint URL
// with fresh state and nonce values.  The values are anti-CSRF/anti-replay
// markers only; the callback handler does not validate them against the
// values the provider echoes back.
func (s *Session) authorizationURL(ctx context.Context) (*url.URL, error) {
	const op = "headless.(Session).authorizationURL"
	endpoint, err := s.authorizationEndpoint(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	state, err := NewID(DefaultIDByteLength, WithRandomReader(s.randomReader))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate state: %w", op, err)
	}
	nonce, err := NewID(DefaultIDByteLength, WithRandomReader(s.randomReader))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate nonce: %w", op, err)
	}

	oauth2Config := oauth2.Config{
		ClientID:    s.conf.ClientID,
		RedirectURL: s.conf.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL: endpoint,
		},
		Scopes: s.conf.Scopes,
	}
	raw := oauth2Config.AuthCodeURL(state,
		oidc.Nonce(nonce),
		// AuthCodeURL hardcodes the authorization code flow; override it
		// with the provider's multi-value implicit response type.
		oauth2.SetAuthURLParam("response_type", s.conf.ResponseType),
	)
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to parse authorization URL: %w", op, err)
	}
	return u, nil
}
