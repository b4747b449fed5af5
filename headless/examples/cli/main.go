// An example CLI that logs into the provider with a username/password
// prompt, prints the identity token, and can keep it fresh with silent
// renewals.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/luminus-dev/auth/headless"
	"golang.org/x/term"
)

func main() {
	issuer := flag.String("issuer", "", "provider issuer URL (default: the Luminus provider)")
	baseURL := flag.String("base-url", "", "origin relative URLs resolve against (default: the Luminus origin)")
	clientID := flag.String("client-id", "", "relying party client id (default: the Luminus web app's)")
	redirectURL := flag.String("redirect-url", "", "registered callback URL (default: the Luminus web app's)")
	renewEvery := flag.Duration("renew-every", 0, "keep running and silently renew the token at this interval")
	debug := flag.Bool("debug", false, "log each protocol exchange")
	flag.Parse()

	logger := hclog.NewNullLogger()
	if *debug {
		logger = hclog.New(&hclog.LoggerOptions{
			Name:  "headless-cli",
			Level: hclog.Debug,
		})
	}

	s, err := headless.NewSession(&headless.Config{
		Issuer:      *issuer,
		BaseURL:     *baseURL,
		ClientID:    *clientID,
		RedirectURL: *redirectURL,
	}, headless.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to create session: %s\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	stdin := bufio.NewReader(os.Stdin)
	for {
		username, password, err := promptCreds(stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "unable to read credentials: %s\n", err)
			os.Exit(1)
		}
		err = s.Login(ctx, username, password)
		if err == nil {
			break
		}
		if errors.Is(err, headless.ErrInvalidCredentials) {
			fmt.Fprintln(os.Stderr, "invalid credentials, please try again")
			continue
		}
		fmt.Fprintf(os.Stderr, "login failed: %s\n", err)
		os.Exit(1)
	}
	printToken(s)

	if *renewEvery <= 0 {
		return
	}
	for range time.Tick(*renewEvery) {
		if err := s.Renew(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "renew failed: %s\n", err)
			os.Exit(1)
		}
		printToken(s)
	}
}

func promptCreds(stdin *bufio.Reader) (username, password string, err error) {
	fmt.Print("username: ")
	username, err = stdin.ReadString('\n')
	if err != nil {
		return "", "", err
	}
	fmt.Print("password: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(username), string(raw), nil
}

func printToken(s *headless.Session) {
	var claims struct {
		Subject string `json:"sub"`
		Expiry  int64  `json:"exp"`
	}
	if err := s.Token().Claims(&claims); err != nil {
		fmt.Fprintf(os.Stderr, "unable to read token claims: %s\n", err)
	} else {
		fmt.Printf("authenticated as %s until %s\n", claims.Subject, time.Unix(claims.Expiry, 0).Format(time.RFC3339))
	}
	fmt.Println(string(s.Token()))
}
