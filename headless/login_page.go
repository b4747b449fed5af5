package headless

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/yhat/scrape"
	xhtml "golang.org/x/net/html"
)

// modelJSONID is the id of the element the provider embeds its login page
// model into.
const modelJSONID = "modelJson"

// antiForgeryToken is the hidden form field scraped from the login page.
// It is echoed back exactly once, on the login POST it was issued for.
type antiForgeryToken struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// loginPageInfo is the JSON blob the provider renders into the login page.
// The field names are the provider's literal camelCase names.
type loginPageInfo struct {
	AntiForgery antiForgeryToken `json:"antiForgery"`
	LoginURL    string           `json:"loginUrl"`
}

// fetchLoginPageInfo follows the authorization redirect to the provider's
// interactive login page and extracts the embedded model blob from it.
func (s *Session) fetchLoginPageInfo(ctx context.Context) (*loginPageInfo, error) {
	const op = "headless.(Session).fetchLoginPageInfo"
	authURL, err := s.authorizationURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := s.get(ctx, authURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	loginURL, err := redirectLocation(resp)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	page, err := s.get(ctx, loginURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer page.Body.Close()
	if page.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: login page returned status %d: %w", op, page.StatusCode, ErrLoginFormNotFound)
	}
	info, err := parseLoginPage(page.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return info, nil
}

// parseLoginPage locates the element with id "modelJson" in the login page
// markup, entity-decodes its trimmed text and decodes the result as JSON.
// The provider HTML-encodes the blob's quotes and ampersands; when the
// blob sits inside a script element the markup parser leaves those
// entities intact, so they are decoded explicitly here.
func parseLoginPage(body io.Reader) (*loginPageInfo, error) {
	const op = "headless.parseLoginPage"
	root, err := xhtml.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to parse login page markup: %w", op, ErrLoginFormNotFound)
	}
	node, ok := scrape.Find(root, scrape.ById(modelJSONID))
	if !ok {
		return nil, fmt.Errorf("%s: no embedded JSON on login page: %w", op, ErrLoginFormNotFound)
	}
	raw := html.UnescapeString(strings.TrimSpace(scrape.Text(node)))

	var info loginPageInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return nil, fmt.Errorf("%s: unable to decode login page JSON: %w", op, ErrLoginFormNotFound)
	}
	if info.LoginURL == "" || info.AntiForgery.Name == "" {
		return nil, fmt.Errorf("%s: login page JSON is incomplete: %w", op, ErrLoginFormNotFound)
	}
	return &info, nil
}
