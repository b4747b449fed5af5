package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// get issues a GET with redirects disabled and the jar attached, then
// merges any Set-Cookie headers on the response back into the jar.  The
// caller owns the response body.
func (s *Session) get(ctx context.Context, u *url.URL) (*http.Response, error) {
	const op = "headless.(Session).get"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	return s.do(req)
}

// post issues an application/x-www-form-urlencoded POST with the same
// redirect and cookie handling as get.
func (s *Session) post(ctx context.Context, u *url.URL, form url.Values) (*http.Response, error) {
	const op = "headless.(Session).post"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func (s *Session) do(req *http.Request) (*http.Response, error) {
	const op = "headless.(Session).do"
	if len(s.cookies) > 0 {
		req.Header.Set("Cookie", s.cookies.header())
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", op, err)
	}
	if err := s.cookies.merge(resp.Header.Values("Set-Cookie")); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Debug("exchange", "method", req.Method, "url", req.URL.Redacted(), "status", resp.StatusCode)
	return resp, nil
}

// redirectLocation requires resp to carry a Location header and resolves
// its value, relative values included, against the request URL.
func redirectLocation(resp *http.Response) (*url.URL, error) {
	const op = "headless.redirectLocation"
	u, err := resp.Location()
	switch {
	case errors.Is(err, http.ErrNoLocation):
		return nil, fmt.Errorf("%s: response has no Location header: %w", op, ErrExpectedRedirect)
	case err != nil:
		return nil, fmt.Errorf("%s: unable to parse Location header: %w", op, err)
	}
	return u, nil
}

func isRedirect(statusCode int) bool {
	return statusCode >= 300 && statusCode <= 399
}
