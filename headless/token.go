package headless

import (
	"encoding/json"
	"fmt"

	"gopkg.in/square/go-jose.v2/jwt"
)

// IDToken is the bearer identity token produced by a successful Login or
// Renew.
type IDToken string

// RedactedIDToken is the redacted string or json for an id_token.
const RedactedIDToken = "[REDACTED: id_token]"

// String will redact the token.
func (t IDToken) String() string {
	return RedactedIDToken
}

// MarshalJSON will redact the token.
func (t IDToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedIDToken)
}

// Claims retrieves the id_token's claims.  The signature is not verified:
// the token is presented to the institution's own APIs, which verify it
// server side, and the claims here are only useful for things like
// scheduling a Renew before expiry.
func (t IDToken) Claims(claims interface{}) error {
	const op = "headless.(IDToken).Claims"
	if len(t) == 0 {
		return fmt.Errorf("%s: id_token is empty: %w", op, ErrInvalidParameter)
	}
	if claims == nil {
		return fmt.Errorf("%s: claims interface is nil: %w", op, ErrNilParameter)
	}
	parsed, err := jwt.ParseSigned(string(t))
	if err != nil {
		return fmt.Errorf("%s: unable to parse id_token: %w", op, err)
	}
	if err := parsed.UnsafeClaimsWithoutVerification(claims); err != nil {
		return fmt.Errorf("%s: unable to retrieve id_token claims: %w", op, err)
	}
	return nil
}
