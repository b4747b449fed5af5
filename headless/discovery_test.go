package headless

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testProviderSession returns a session pointed at the test provider.
func testProviderSession(t *testing.T, tp *TestProvider, opt ...Option) *Session {
	t.Helper()
	require := require.New(t)
	s, err := NewSession(&Config{
		Issuer:      tp.Addr(),
		BaseURL:     tp.Addr(),
		ClientID:    "test-client-id",
		RedirectURL: tp.Addr() + "/auth/callback",
		ProviderCA:  tp.CACert(),
	}, opt...)
	require.NoError(err)
	return s
}

func TestSession_authorizationEndpoint(t *testing.T) {
	ctx := context.Background()
	tp := StartTestProvider(t)

	t.Run("discovered", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s := testProviderSession(t, tp)
		got, err := s.authorizationEndpoint(ctx)
		require.NoError(err)
		assert.Equal(tp.Addr()+"/connect/authorize", got)
	})
	t.Run("no-session-side-effect", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s := testProviderSession(t, tp)
		_, err := s.authorizationEndpoint(ctx)
		require.NoError(err)
		assert.Empty(s.cookies)
		assert.Empty(s.token)
	})
	t.Run("unreachable-issuer", func(t *testing.T) {
		require := require.New(t)
		s := testSession(t, "http://127.0.0.1:1")
		_, err := s.authorizationEndpoint(ctx)
		require.Error(err)
	})
}

func TestSession_authorizationURL(t *testing.T) {
	ctx := context.Background()
	tp := StartTestProvider(t)

	t.Run("fixed-parameters", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s := testProviderSession(t, tp)
		u, err := s.authorizationURL(ctx)
		require.NoError(err)

		assert.Equal(tp.Addr()+"/connect/authorize", u.Scheme+"://"+u.Host+u.Path)
		qv := u.Query()
		assert.Equal("test-client-id", qv.Get("client_id"))
		assert.Equal(tp.Addr()+"/auth/callback", qv.Get("redirect_uri"))
		assert.Equal(DefaultResponseType, qv.Get("response_type"))
		assert.Equal(strings.Join(DefaultScopes(), " "), qv.Get("scope"))
	})
	t.Run("state-and-nonce", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s := testProviderSession(t, tp)
		u, err := s.authorizationURL(ctx)
		require.NoError(err)

		qv := u.Query()
		state, nonce := qv.Get("state"), qv.Get("nonce")
		assert.Len(state, 2*DefaultIDByteLength)
		assert.Len(nonce, 2*DefaultIDByteLength)
		assert.Regexp("^[0-9a-f]+$", state)
		assert.Regexp("^[0-9a-f]+$", nonce)
		assert.NotEqual(state, nonce)
	})
	t.Run("deterministic-with-reader", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		seq := make([]byte, 32)
		for i := range seq {
			seq[i] = byte(i)
		}
		s := testProviderSession(t, tp, WithRandomReader(bytes.NewReader(seq)))
		u, err := s.authorizationURL(ctx)
		require.NoError(err)

		qv := u.Query()
		assert.Equal("000102030405060708090a0b0c0d0e0f", qv.Get("state"))
		assert.Equal("101112131415161718191a1b1c1d1e1f", qv.Get("nonce"))
	})
	t.Run("fresh-values-per-call", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		s := testProviderSession(t, tp)
		first, err := s.authorizationURL(ctx)
		require.NoError(err)
		second, err := s.authorizationURL(ctx)
		require.NoError(err)
		assert.NotEqual(first.Query().Get("state"), second.Query().Get("state"))
		assert.NotEqual(first.Query().Get("nonce"), second.Query().Get("nonce"))
	})
}
