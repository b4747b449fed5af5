package headless

import (
	"bytes"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	t.Parallel()
	hexRe := regexp.MustCompile(`^[0-9a-f]+$`)
	tests := []struct {
		name      string
		size      int
		opt       []Option
		want      string
		wantErr   bool
		wantIsErr error
	}{
		{
			name: "default-size",
			size: DefaultIDByteLength,
		},
		{
			name: "small",
			size: 4,
		},
		{
			name: "deterministic-reader",
			size: 4,
			opt:  []Option{WithRandomReader(bytes.NewReader([]byte{0x00, 0x01, 0xab, 0xff}))},
			want: "0001abff",
		},
		{
			name:      "zero-size",
			size:      0,
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name:      "negative-size",
			size:      -1,
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name:      "exhausted-reader",
			size:      4,
			opt:       []Option{WithRandomReader(bytes.NewReader([]byte{0x00}))},
			wantErr:   true,
			wantIsErr: ErrIDGeneratorFailed,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := NewID(tt.size, tt.opt...)
			if tt.wantErr {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				return
			}
			require.NoError(err)
			assert.Equalf(2*tt.size, len(got), "NewID() = %v, with len of %d and wanted len of %v", got, len(got), 2*tt.size)
			assert.Regexp(hexRe, got)
			if tt.want != "" {
				assert.Equal(tt.want, got)
			}
		})
	}
}

func TestNewID_Collisions(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		got, err := NewID(DefaultIDByteLength)
		assert.NoError(err)
		assert.Falsef(seen[got], "NewID() returned %s twice", got)
		seen[got] = true
	}
}

func Test_WithRandomReader(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	r := bytes.NewReader([]byte{0x01})

	opts := getIDOpts(WithRandomReader(r))
	testOpts := idDefaults()
	testOpts.withRandomReader = r
	assert.Equal(testOpts, opts)

	sOpts := getSessionOpts(WithRandomReader(r))
	testSOpts := sessionDefaults()
	testSOpts.withRandomReader = r
	assert.Equal(testSOpts.withRandomReader, sOpts.withRandomReader)
}
