package headless

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_withDefaults(t *testing.T) {
	t.Parallel()
	t.Run("nil-config", func(t *testing.T) {
		assert := assert.New(t)
		var c *Config
		got := c.withDefaults()
		assert.Equal(DefaultIssuer, got.Issuer)
		assert.Equal(DefaultBaseURL, got.BaseURL)
		assert.Equal(DefaultClientID, got.ClientID)
		assert.Equal(DefaultRedirectURL, got.RedirectURL)
		assert.Equal(DefaultScopes(), got.Scopes)
		assert.Equal(DefaultResponseType, got.ResponseType)
	})
	t.Run("partial-config", func(t *testing.T) {
		assert := assert.New(t)
		got := (&Config{Issuer: "https://idp.example.com", ClientID: "my-client"}).withDefaults()
		assert.Equal("https://idp.example.com", got.Issuer)
		assert.Equal("my-client", got.ClientID)
		assert.Equal(DefaultBaseURL, got.BaseURL)
		assert.Equal(DefaultScopes(), got.Scopes)
	})
	t.Run("does-not-mutate-receiver", func(t *testing.T) {
		assert := assert.New(t)
		c := &Config{}
		_ = c.withDefaults()
		assert.Empty(c.Issuer)
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()
	valid := func() *Config { return (&Config{}).withDefaults() }
	tests := []struct {
		name      string
		with      func(*Config)
		wantErr   bool
		wantIsErr error
	}{
		{
			name: "valid-defaults",
			with: func(*Config) {},
		},
		{
			name:      "bad-issuer-scheme",
			with:      func(c *Config) { c.Issuer = "ldap://idp.example.com" },
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name:      "bad-base-url-scheme",
			with:      func(c *Config) { c.BaseURL = "file:///tmp" },
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name:      "bad-redirect-url-scheme",
			with:      func(c *Config) { c.RedirectURL = "not a url" },
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name:      "empty-client-id",
			with:      func(c *Config) { c.ClientID = "" },
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name:      "empty-scopes",
			with:      func(c *Config) { c.Scopes = nil },
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name:      "empty-response-type",
			with:      func(c *Config) { c.ResponseType = "" },
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			c := valid()
			tt.with(c)
			err := c.Validate()
			if tt.wantErr {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				return
			}
			require.NoError(err)
		})
	}
	t.Run("nil-config", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		var c *Config
		err := c.Validate()
		require.Error(err)
		assert.True(errors.Is(err, ErrNilParameter))
	})
	t.Run("aggregates-all-problems", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		err := (&Config{}).Validate()
		require.Error(err)
		assert.True(errors.Is(err, ErrInvalidParameter))
		// every empty field is reported, not just the first
		assert.Contains(err.Error(), "client id is empty")
		assert.Contains(err.Error(), "scopes are empty")
		assert.Contains(err.Error(), "response type is empty")
	})
}

func TestConfig_HTTPClient(t *testing.T) {
	t.Parallel()
	t.Run("never-follows-redirects", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		client, err := (&Config{}).withDefaults().HTTPClient()
		require.NoError(err)
		require.NotNil(client.CheckRedirect)
		assert.Equal(http.ErrUseLastResponse, client.CheckRedirect(nil, nil))
	})
	t.Run("valid-provider-ca", func(t *testing.T) {
		require := require.New(t)
		c := (&Config{}).withDefaults()
		c.ProviderCA = TestGenerateCA(t, []string{"localhost"})
		client, err := c.HTTPClient()
		require.NoError(err)
		require.NotNil(client.Transport)
	})
	t.Run("invalid-provider-ca", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c := (&Config{}).withDefaults()
		c.ProviderCA = "not a pem"
		_, err := c.HTTPClient()
		require.Error(err)
		assert.True(errors.Is(err, ErrInvalidCACert))
	})
}
