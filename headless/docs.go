/*
headless is a package for programmatic logins against an identity provider
that only offers an interactive, form-based login page.  It implements the
OIDC implicit flow the Luminus web application uses, but drives the
provider's login form directly instead of a browser: the authorization
redirect chain is followed manually, the anti-forgery token is scraped out
of the rendered login page, and the tokens are read from the terminal
redirect's URL fragment.

Primary types provided by the package

* Session: the long-lived unit of authorization state.  A Session starts
unauthenticated; Login (username/password) or Renew (using the provider's
session cookie from an earlier Login) transition it to authenticated and
populate its IDToken.

* Config: the provider constants (issuer, client id, scopes, redirect URL).
The zero value falls back to the Luminus production defaults, so most
callers only need &Config{}.

* IDToken: the bearer identity token produced by a successful Login or
Renew.  It redacts itself when printed or marshaled.

The package also exports a TestProvider (see StartTestProvider) which
emulates the provider's discovery document, login page and redirect chain,
so the whole flow can be exercised in tests without network access.
*/
package headless
