package headless

import (
	"fmt"
	"sort"
	"strings"
)

// jar is an explicit in-memory cookie jar: a mapping of cookie name to
// value.  The login protocol disables the transport's automatic redirect
// handling so it can inspect every intermediate Location header, which
// rules out a client-managed http.CookieJar; instead every exchange merges
// the response's Set-Cookie headers here and attaches the jar's header
// value on the next request.
type jar map[string]string

// merge parses each raw Set-Cookie header value as a single
// name=value[; attributes...] assignment, ignoring the attributes, and
// upserts the name/value pair.  Later headers win on a name collision.
func (j jar) merge(setCookies []string) error {
	const op = "headless.(jar).merge"
	for _, raw := range setCookies {
		assignment := raw
		if i := strings.Index(assignment, ";"); i >= 0 {
			assignment = assignment[:i]
		}
		name, value, found := strings.Cut(assignment, "=")
		name = strings.TrimSpace(name)
		if !found || name == "" {
			return fmt.Errorf("%s: malformed Set-Cookie value %q: %w", op, raw, ErrInvalidCookie)
		}
		j[name] = strings.TrimSpace(value)
	}
	return nil
}

// header renders the jar as a single Cookie request header value of the
// form "name1=value1; name2=value2; ".  The rendering is sorted by name so
// it is stable; only the name/value pairs are significant to the provider.
func (j jar) header() string {
	names := make([]string, 0, len(j))
	for name := range j {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s=%s; ", name, j[name])
	}
	return b.String()
}
