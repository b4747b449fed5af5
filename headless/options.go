package headless

import (
	"io"

	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil {
			continue
		}
		o(opts)
	}
}

// WithLogger provides an optional hclog.Logger for a Session.  When no
// logger is provided the Session is silent.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*sessionOptions); ok {
			o.withLogger = l
		}
	}
}

// WithRandomReader provides an optional source of random bytes for: NewID,
// NewSession.  It allows tests to supply a deterministic source for the
// authorization request's state and nonce values.
func WithRandomReader(r io.Reader) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *idOptions:
			v.withRandomReader = r
		case *sessionOptions:
			v.withRandomReader = r
		}
	}
}
