// auth provides packages for authenticating against the Luminus identity
// provider without a browser.
//
// See the headless package for the resource-owner (username/password)
// implicit-flow login client and its silent renewal support.
package auth
