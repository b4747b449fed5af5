package headless

import (
	"bytes"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"html"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/luminus-dev/auth/headless/internal/strutils"
	"github.com/stretchr/testify/require"
	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

// TestAntiForgeryField is the anti-forgery form field name the
// TestProvider issues with its login page.
const TestAntiForgeryField = "idsrv.xsrf"

// TestProvider is a local server emulating the IdentityServer-style
// provider the headless login flow talks to: discovery document,
// authorization endpoint, interactive login page carrying the embedded
// modelJson blob, form POST with an anti-forgery check, the resume
// redirect and the terminal fragment callback.  Tokens it issues are real
// ES256-signed JWTs.  Much of its shape follows the test providers used
// across HashiCorp's auth libraries.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	ecdsaPublicKey  string
	ecdsaPrivateKey string
	jwks            *jose.JSONWebKeySet

	mu                  sync.Mutex
	clientID            string
	expectedUsername    string
	expectedPassword    string
	antiForgeryValue    string
	allowedRedirectURIs []string
	replySubject        string
	customClaims        map[string]interface{}
	omitIDToken         bool
	omitSessionCookie   bool
	omitModelJSON       bool
	requestCount        int

	nextID   int
	pending  map[string]*testAuthRequest
	sessions map[string]bool

	t *testing.T
}

// testAuthRequest is the state of one in-flight authorization request,
// keyed by the signin/resume id the provider passes through its redirects.
type testAuthRequest struct {
	state       string
	nonce       string
	redirectURI string
}

// StartTestProvider creates and starts a disposable TestProvider over TLS.
// Its lifetime is tied to the test via t.Cleanup.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	require := require.New(t)

	p := &TestProvider{
		t:                t,
		expectedUsername: "e0000001",
		expectedPassword: "correct-horse",
		antiForgeryValue: "xsrf-t0k3n",
		replySubject:     "e0000001@u.nus.edu",
		pending:          map[string]*testAuthRequest{},
		sessions:         map[string]bool{},
	}
	p.ecdsaPublicKey, p.ecdsaPrivateKey = TestGenerateKeys(t)
	p.jwks = testJWKS(t, p.ecdsaPublicKey)

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(ioutil.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	cert := p.httpServer.Certificate()
	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
	require.NoError(err)
	p.caCert = buf.String()

	return p
}

// Addr returns the base URL of the test provider's running webserver.  Use
// it as both the Issuer and BaseURL of a Config under test.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// CACert returns the pem-encoded CA certificate used by the test
// provider's HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

// SigningKeys returns the test provider's pem-encoded keys used to sign
// the JWTs it issues.
func (p *TestProvider) SigningKeys() (pub, priv string) {
	return p.ecdsaPublicKey, p.ecdsaPrivateKey
}

// RequestCount returns the number of requests the provider has served.
func (p *TestProvider) RequestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requestCount
}

// SetClientID requires authorization requests to carry the given
// client_id.  When unset any client_id is accepted.
func (p *TestProvider) SetClientID(clientID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
}

// SetExpectedCreds configures the only username/password pair the login
// form accepts.
func (p *TestProvider) SetExpectedCreds(username, password string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedUsername = username
	p.expectedPassword = password
}

// ExpectedCreds returns the username/password pair the login form accepts.
func (p *TestProvider) ExpectedCreds() (username, password string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.expectedUsername, p.expectedPassword
}

// SetAntiForgeryValue configures the anti-forgery token value embedded in
// the login page and required on the login POST.
func (p *TestProvider) SetAntiForgeryValue(value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.antiForgeryValue = value
}

// SetAllowedRedirectURIs restricts the redirect_uri values the provider
// accepts.  When unset any redirect_uri is accepted.
func (p *TestProvider) SetAllowedRedirectURIs(uris []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowedRedirectURIs = uris
}

// SetCustomClaims lets you set additional claims to embed in the JWTs the
// provider issues.
func (p *TestProvider) SetCustomClaims(customClaims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = customClaims
}

// OmitIDTokens forces an error state where the callback fragment does not
// contain an id_token.
func (p *TestProvider) OmitIDTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = true
}

// OmitSessionCookie forces an error state where the provider never sets
// its idsrv session cookie during the login flow.
func (p *TestProvider) OmitSessionCookie() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitSessionCookie = true
}

// OmitModelJSON forces an error state where the login page is rendered
// without the embedded modelJson blob.
func (p *TestProvider) OmitModelJSON() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitModelJSON = true
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.t.Helper()

	p.requestCount++

	switch req.URL.Path {
	case "/.well-known/openid-configuration":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		reply := struct {
			Issuer       string `json:"issuer"`
			AuthEndpoint string `json:"authorization_endpoint"`
			JWKSURI      string `json:"jwks_uri"`
		}{
			Issuer:       p.Addr(),
			AuthEndpoint: p.Addr() + "/connect/authorize",
			JWKSURI:      p.Addr() + "/certs",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(&reply)

	case "/connect/authorize":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if resume := req.URL.Query().Get("resume"); resume != "" {
			p.handleResume(w, req, resume)
			return
		}
		p.handleAuthorize(w, req)

	case "/login":
		switch req.Method {
		case http.MethodGet:
			p.writeLoginPage(w, req.URL.Query().Get("signin"))
		case http.MethodPost:
			p.handleLoginSubmit(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}

	case "/certs":
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(p.jwks)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// handleAuthorize validates a fresh authorization request.  A request that
// presents a known idsrv cookie is redirected straight to the callback
// with a new token fragment (the silent renewal path); anything else is
// redirected to the interactive login page.
func (p *TestProvider) handleAuthorize(w http.ResponseWriter, req *http.Request) {
	qv := req.URL.Query()
	if p.clientID != "" && qv.Get("client_id") != p.clientID {
		http.Error(w, "unknown client_id", http.StatusBadRequest)
		return
	}
	if len(p.allowedRedirectURIs) > 0 && !strutils.StrListContains(p.allowedRedirectURIs, qv.Get("redirect_uri")) {
		http.Error(w, "redirect_uri is not allowed", http.StatusBadRequest)
		return
	}
	if !strings.Contains(qv.Get("response_type"), "id_token") {
		http.Error(w, "unsupported response_type", http.StatusBadRequest)
		return
	}
	if qv.Get("state") == "" || qv.Get("nonce") == "" {
		http.Error(w, "missing state or nonce", http.StatusBadRequest)
		return
	}

	authReq := &testAuthRequest{
		state:       qv.Get("state"),
		nonce:       qv.Get("nonce"),
		redirectURI: qv.Get("redirect_uri"),
	}

	if c, err := req.Cookie(SessionCookie); err == nil && p.sessions[c.Value] {
		p.writeCallbackRedirect(w, req, authReq)
		return
	}

	p.nextID++
	id := fmt.Sprintf("signin-%d", p.nextID)
	p.pending[id] = authReq
	http.SetCookie(w, &http.Cookie{Name: "SignInMessage." + id, Value: "flow", Path: "/"})
	http.Redirect(w, req, p.Addr()+"/login?signin="+url.QueryEscape(id), http.StatusFound)
}

// handleLoginSubmit checks the anti-forgery field and the credentials.  A
// rejected login re-renders the login page with a 200, which is exactly
// the signal the real provider gives.
func (p *TestProvider) handleLoginSubmit(w http.ResponseWriter, req *http.Request) {
	id := req.URL.Query().Get("signin")
	if _, ok := p.pending[id]; !ok {
		http.Error(w, "unknown signin id", http.StatusBadRequest)
		return
	}
	if err := req.ParseForm(); err != nil {
		http.Error(w, "malformed form body", http.StatusBadRequest)
		return
	}
	if req.PostForm.Get(TestAntiForgeryField) != p.antiForgeryValue {
		http.Error(w, "anti-forgery token mismatch", http.StatusForbidden)
		return
	}
	if req.PostForm.Get("username") != p.expectedUsername || req.PostForm.Get("password") != p.expectedPassword {
		p.writeLoginPage(w, id)
		return
	}

	if !p.omitSessionCookie {
		p.nextID++
		session := fmt.Sprintf("sess-%d", p.nextID)
		p.sessions[session] = true
		http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: session, Path: "/", HttpOnly: true})
	}
	// a short-lived flow cookie the client is expected to prune later
	http.SetCookie(w, &http.Cookie{Name: "FedAuth." + id, Value: "partial", Path: "/"})
	http.Redirect(w, req, p.Addr()+"/connect/authorize?resume="+url.QueryEscape(id), http.StatusFound)
}

// handleResume completes a pending authorization request after a
// successful login by redirecting to the callback with the token fragment.
func (p *TestProvider) handleResume(w http.ResponseWriter, req *http.Request, id string) {
	authReq, ok := p.pending[id]
	if !ok {
		http.Error(w, "unknown resume id", http.StatusBadRequest)
		return
	}
	if !p.omitSessionCookie {
		if c, err := req.Cookie(SessionCookie); err != nil || !p.sessions[c.Value] {
			http.Error(w, "no provider session", http.StatusUnauthorized)
			return
		}
	}
	delete(p.pending, id)
	p.writeCallbackRedirect(w, req, authReq)
}

// writeCallbackRedirect issues the terminal redirect: the callback URL
// with the token set encoded into its fragment.
func (p *TestProvider) writeCallbackRedirect(w http.ResponseWriter, req *http.Request, authReq *testAuthRequest) {
	jwtData := p.signJWT(authReq.nonce)

	fragment := url.Values{}
	if !p.omitIDToken {
		fragment.Set("id_token", jwtData)
	}
	fragment.Set("access_token", jwtData)
	fragment.Set("token_type", "Bearer")
	fragment.Set("expires_in", "3600")
	fragment.Set("state", authReq.state)

	http.Redirect(w, req, authReq.redirectURI+"#"+fragment.Encode(), http.StatusFound)
}

// signJWT issues an ES256-signed id_token bound to the request's nonce.
func (p *TestProvider) signJWT(nonce string) string {
	p.t.Helper()
	now := time.Now()
	stdClaims := jwt.Claims{
		Subject:   p.replySubject,
		Issuer:    p.Addr(),
		Audience:  jwt.Audience{p.clientID},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
		Expiry:    jwt.NewNumericDate(now.Add(1 * time.Hour)),
	}
	privateClaims := map[string]interface{}{
		"nonce": nonce,
	}
	for k, v := range p.customClaims {
		privateClaims[k] = v
	}
	return TestSignJWT(p.t, p.ecdsaPrivateKey, stdClaims, privateClaims)
}

// writeLoginPage renders the interactive login page with the embedded,
// entity-encoded modelJson blob.
func (p *TestProvider) writeLoginPage(w http.ResponseWriter, id string) {
	model := ""
	if !p.omitModelJSON {
		blob, err := json.Marshal(map[string]interface{}{
			"loginUrl": "/login?signin=" + url.QueryEscape(id),
			"antiForgery": map[string]string{
				"name":  TestAntiForgeryField,
				"value": p.antiForgeryValue,
			},
		})
		if err != nil {
			p.t.Fatalf("unable to marshal login page model: %v", err)
		}
		model = fmt.Sprintf("<script id=%q type=\"application/json\">\n%s\n</script>", modelJSONID, html.EscapeString(string(blob)))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>Sign In</title></head>
<body>
%s
<form method="post" action="/login?signin=%s">
<input type="text" name="username">
<input type="password" name="password">
<input type="hidden" name=%q value=%q>
<button type="submit">Sign In</button>
</form>
</body>
</html>`, model, html.EscapeString(id), TestAntiForgeryField, p.antiForgeryValue)
}

// testJWKS converts a pem-encoded public key into JWKS data suitable for a
// verification endpoint response.
func testJWKS(t *testing.T, pubKey string) *jose.JSONWebKeySet {
	t.Helper()
	require := require.New(t)

	block, _ := pem.Decode([]byte(pubKey))
	require.NotNil(block)

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(err)

	return &jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key: pub,
			},
		},
	}
}
