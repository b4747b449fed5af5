package headless

import (
	"errors"
)

var (
	ErrInvalidParameter     = errors.New("invalid parameter")
	ErrNilParameter         = errors.New("nil parameter")
	ErrInvalidCACert        = errors.New("invalid CA certificate")
	ErrIDGeneratorFailed    = errors.New("id generation failed")
	ErrExpectedRedirect     = errors.New("expected a redirect response")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrLoginFormNotFound    = errors.New("cannot locate login form")
	ErrInvalidCallback      = errors.New("invalid callback")
	ErrMissingIDToken       = errors.New("id_token is missing")
	ErrNotAuthenticated     = errors.New("must login first")
	ErrInvalidCookie        = errors.New("invalid cookie")
	ErrMissingSessionCookie = errors.New("session cookie is missing")
)
