package headless_test

import (
	"context"
	"fmt"

	"github.com/luminus-dev/auth/headless"
)

func Example() {
	// A zero-value Config uses the Luminus production defaults.
	s, err := headless.NewSession(&headless.Config{})
	if err != nil {
		// handle error
	}

	// Login drives the provider's interactive login form without a
	// browser and leaves the session authenticated.
	if err := s.Login(context.Background(), "e0000001", "password"); err != nil {
		// handle error; errors.Is(err, headless.ErrInvalidCredentials)
		// means the provider rejected the username/password and the user
		// should be prompted again
	}

	// The token is redacted when printed; cast it for the raw value.
	fmt.Println("authenticated:", s.Authenticated())
	token := string(s.Token())
	_ = token // present the bearer token to the institution's APIs

	// Later, the provider's session cookie renews the token silently.
	if err := s.Renew(context.Background()); err != nil {
		// handle error
	}
}
