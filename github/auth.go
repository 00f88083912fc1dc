package github

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	gh "github.com/google/go-github/v62/github"
	"golang.org/x/oauth2"
)

const acceptHeader = "application/vnd.github.v3+json"

// AppsTransport authenticates requests as a GitHub App using a short lived
// JWT signed with the app's private key. It is only good for the /app
// endpoints; use an InstallationTokenSource for everything else.
type AppsTransport struct {
	tr    http.RoundTripper
	key   *rsa.PrivateKey
	appID int64
}

// NewAppsTransportKeyFromFile returns an AppsTransport using a private key
// read from a PEM file.
func NewAppsTransportKeyFromFile(tr http.RoundTripper, appID int64, privateKeyFile string) (*AppsTransport, error) {
	privateKey, err := os.ReadFile(privateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("could not read private key: %w", err)
	}
	return NewAppsTransport(tr, appID, privateKey)
}

// NewAppsTransport returns an AppsTransport using a PEM encoded private key.
func NewAppsTransport(tr http.RoundTripper, appID int64, privateKey []byte) (*AppsTransport, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKey)
	if err != nil {
		return nil, fmt.Errorf("could not parse private key: %w", err)
	}
	return NewAppsTransportFromPrivateKey(tr, appID, key), nil
}

// NewAppsTransportFromPrivateKey returns an AppsTransport using key.
func NewAppsTransportFromPrivateKey(tr http.RoundTripper, appID int64, key *rsa.PrivateKey) *AppsTransport {
	if tr == nil {
		tr = http.DefaultTransport
	}
	return &AppsTransport{tr: tr, key: key, appID: appID}
}

// RoundTrip implements http.RoundTripper.
func (t *AppsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// GitHub rejects fractional timestamps.
	iss := time.Now().Add(-30 * time.Second).Truncate(time.Second)
	exp := iss.Add(2 * time.Minute)
	claims := &jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(iss),
		ExpiresAt: jwt.NewNumericDate(exp),
		Issuer:    strconv.FormatInt(t.appID, 10),
	}

	ss, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(t.key)
	if err != nil {
		return nil, fmt.Errorf("could not sign jwt: %w", err)
	}

	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+ss)
	req.Header.Add("Accept", acceptHeader)
	return t.tr.RoundTrip(req)
}

// AppID returns the app the transport authenticates as.
func (t *AppsTransport) AppID() int64 {
	return t.appID
}

type installationTokenSource struct {
	apps           *gh.Client
	installationID int64
}

// NewInstallationTokenSource returns a token source that exchanges the
// app's JWT for installation access tokens. Tokens are cached until shortly
// before they expire.
func NewInstallationTokenSource(apps *AppsTransport, installationID int64, opts ...Option) (oauth2.TokenSource, error) {
	c := gh.NewClient(&http.Client{Transport: apps})
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return oauth2.ReuseTokenSource(nil, &installationTokenSource{apps: c, installationID: installationID}), nil
}

func (s *installationTokenSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tok, _, err := s.apps.Apps.CreateInstallationToken(ctx, s.installationID, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create installation token for %d: %w", s.installationID, err)
	}
	return &oauth2.Token{
		AccessToken: tok.GetToken(),
		Expiry:      tok.GetExpiresAt().Time,
	}, nil
}

// StaticToken returns a token source for a personal access token.
func StaticToken(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
}

// NewHTTPClient returns an http.Client that authorizes every request with a
// token from src and sends it through base.
func NewHTTPClient(src oauth2.TokenSource, base http.RoundTripper) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: src,
			Base:   base,
		},
	}
}
