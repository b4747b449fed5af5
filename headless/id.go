package headless

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/hashicorp/go-uuid"
)

// DefaultIDByteLength is the number of random bytes backing the state and
// nonce values sent with an authorization request.  Rendered as hex the
// values are twice this length.
const DefaultIDByteLength = 16

// NewID generates size random bytes rendered as 2*size lowercase hex
// characters, suitable for an authorization request's state or nonce.
// Supports the WithRandomReader option for a deterministic byte source.
func NewID(size int, opt ...Option) (string, error) {
	const op = "headless.NewID"
	if size <= 0 {
		return "", fmt.Errorf("%s: size is not greater than zero: %w", op, ErrInvalidParameter)
	}
	opts := getIDOpts(opt...)
	data, err := uuid.GenerateRandomBytesWithReader(size, opts.withRandomReader)
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate id: %w", op, ErrIDGeneratorFailed)
	}
	return hex.EncodeToString(data), nil
}

// idOptions is the set of available options for NewID
type idOptions struct {
	withRandomReader io.Reader
}

// idDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func idDefaults() idOptions {
	return idOptions{
		withRandomReader: rand.Reader,
	}
}

// getIDOpts gets the defaults and applies the opt overrides passed in.
func getIDOpts(opt ...Option) idOptions {
	opts := idDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
