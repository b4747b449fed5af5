package headless

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-hclog"
)

// Session is the long-lived, mutable unit of authorization state for one
// logical user.  It is a two-state machine: a Session starts
// unauthenticated and transitions to authenticated only inside the
// callback handler shared by Login and Renew.  On any failure the token is
// left untouched; the cookie jar may still have accumulated cookies from
// the exchanges that did complete, so callers must not assume jar
// cleanliness after a failed call.
//
// A Session is not safe for concurrent use; callers embedding it in a
// concurrent system must serialize access per Session.
type Session struct {
	conf         *Config
	client       *http.Client
	logger       hclog.Logger
	randomReader io.Reader

	token   IDToken
	cookies jar
}

// NewSession creates an unauthenticated Session.  Zero-value fields of
// conf fall back to the Luminus production defaults (see the Default*
// constants); a nil conf uses them all.  Supported options: WithLogger,
// WithRandomReader.
func NewSession(conf *Config, opt ...Option) (*Session, error) {
	const op = "headless.NewSession"
	conf = conf.withDefaults()
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	client, err := conf.HTTPClient()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	opts := getSessionOpts(opt...)
	return &Session{
		conf:         conf,
		client:       client,
		logger:       opts.withLogger,
		randomReader: opts.withRandomReader,
		cookies:      jar{},
	}, nil
}

// Token returns the session's identity token, empty until a successful
// Login or Renew.  IDToken redacts itself when printed; use string(t) for
// the raw value.
func (s *Session) Token() IDToken {
	return s.token
}

// Authenticated reports whether the session holds an identity token.
func (s *Session) Authenticated() bool {
	return s.token != ""
}

// Login performs the full headless login: it scrapes the provider's login
// page for the anti-forgery token, POSTs the credentials, follows the
// provider's redirect chain to the callback URL and reads the token set
// from its fragment.  A non-redirect response to the credential POST is
// the provider re-rendering the login form, which is the only rejection
// signal this flow gets, and surfaces as ErrInvalidCredentials.
func (s *Session) Login(ctx context.Context, username string, password string) error {
	const op = "headless.(Session).Login"
	if username == "" {
		return fmt.Errorf("%s: username is empty: %w", op, ErrInvalidParameter)
	}
	if password == "" {
		return fmt.Errorf("%s: password is empty: %w", op, ErrInvalidParameter)
	}

	info, err := s.fetchLoginPageInfo(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	base, err := url.Parse(s.conf.BaseURL)
	if err != nil {
		return fmt.Errorf("%s: unable to parse base URL %q: %w", op, s.conf.BaseURL, err)
	}
	submitURL, err := base.Parse(info.LoginURL)
	if err != nil {
		return fmt.Errorf("%s: unable to resolve login URL %q: %w", op, info.LoginURL, err)
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	form.Set(info.AntiForgery.Name, info.AntiForgery.Value)

	resp, err := s.post(ctx, submitURL, form)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	resp.Body.Close()
	if !isRedirect(resp.StatusCode) {
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	next, err := redirectLocation(resp)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err = s.get(ctx, next)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	resp.Body.Close()
	callbackURL, err := redirectLocation(resp)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.handleCallback(callbackURL); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Debug("login complete", "username", username)
	return nil
}

// Renew silently refreshes the session's token.  Because the provider's
// session cookie from an earlier Login is still in the jar, the provider
// redirects a fresh authorization request straight to the callback URL
// without re-prompting for credentials.  Renew fails with
// ErrNotAuthenticated, without any network exchange, if the session has
// never authenticated.
func (s *Session) Renew(ctx context.Context) error {
	const op = "headless.(Session).Renew"
	if s.token == "" {
		return fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}
	authURL, err := s.authorizationURL(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	resp, err := s.get(ctx, authURL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	resp.Body.Close()
	callbackURL, err := redirectLocation(resp)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.handleCallback(callbackURL); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Debug("renew complete")
	return nil
}

// handleCallback decodes the terminal redirect's URL fragment into the
// token set, stores the id_token and prunes every cookie except the
// provider's session cookie; the short-lived flow cookies accumulated
// during the redirect chain are dropped.  The state value the provider
// echoes back in the fragment is not validated.  The session is left
// untouched on any failure.
func (s *Session) handleCallback(callbackURL *url.URL) error {
	const op = "headless.(Session).handleCallback"
	if callbackURL == nil {
		return fmt.Errorf("%s: callback URL is nil: %w", op, ErrNilParameter)
	}
	fragment := callbackURL.EscapedFragment()
	if fragment == "" {
		return fmt.Errorf("%s: callback URL has no fragment: %w", op, ErrInvalidCallback)
	}
	tokens, err := url.ParseQuery(fragment)
	if err != nil {
		return fmt.Errorf("%s: callback fragment is not query-encoded: %w", op, ErrInvalidCallback)
	}
	idToken := tokens.Get("id_token")
	if idToken == "" {
		return fmt.Errorf("%s: callback fragment has no id_token: %w", op, ErrMissingIDToken)
	}
	sessionCookie, ok := s.cookies[SessionCookie]
	if !ok {
		return fmt.Errorf("%s: %q cookie was never set during the redirect chain: %w", op, SessionCookie, ErrMissingSessionCookie)
	}

	s.token = IDToken(idToken)
	s.cookies = jar{SessionCookie: sessionCookie}
	return nil
}

// sessionOptions is the set of available options for NewSession
type sessionOptions struct {
	withLogger       hclog.Logger
	withRandomReader io.Reader
}

// sessionDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func sessionDefaults() sessionOptions {
	return sessionOptions{
		withLogger:       hclog.NewNullLogger(),
		withRandomReader: rand.Reader,
	}
}

// getSessionOpts gets the defaults and applies the opt overrides passed
// in.
func getSessionOpts(opt ...Option) sessionOptions {
	opts := sessionDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
