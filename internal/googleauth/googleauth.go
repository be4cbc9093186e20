package googleauth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scopes cover Drive file access plus read-only Classroom listings.
var Scopes = []string{
	"https://www.googleapis.com/auth/drive",
	"https://www.googleapis.com/auth/drive.readonly",
	"https://www.googleapis.com/auth/classroom.courses.readonly",
	"https://www.googleapis.com/auth/classroom.announcements.readonly",
	"https://www.googleapis.com/auth/classroom.courseworkmaterials.readonly",
	"https://www.googleapis.com/auth/classroom.coursework.me.readonly",
	"https://www.googleapis.com/auth/classroom.topics.readonly",
	"https://www.googleapis.com/auth/classroom.rosters.readonly",
}

// Provider hands out bearer tokens backed by an OAuth installed-app flow.
// Tokens are cached in TokenFile and refreshed transparently; when no usable
// token exists it walks the user through the consent screen once.
type Provider struct {
	CredentialsFile string
	TokenFile       string

	mu sync.Mutex
	ts oauth2.TokenSource
}

func New(credentialsFile, tokenFile string) *Provider {
	return &Provider{CredentialsFile: credentialsFile, TokenFile: tokenFile}
}

// TokenSource returns a refreshing token source, running the interactive
// consent flow if the cache holds nothing usable.
func (p *Provider) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ts != nil {
		return p.ts, nil
	}

	b, err := os.ReadFile(p.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("googleauth: read client credentials: %w", err)
	}
	conf, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("googleauth: parse client credentials: %w", err)
	}

	tok, err := tokenFromFile(p.TokenFile)
	if err != nil {
		log.Printf("no cached Google token, starting sign-in flow")
		tok, err = tokenFromWeb(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err := saveToken(p.TokenFile, tok); err != nil {
			log.Printf("warn: could not cache token: %v", err)
		}
	}

	p.ts = &persistingSource{
		inner: oauth2.ReuseTokenSource(tok, conf.TokenSource(ctx, tok)),
		file:  p.TokenFile,
		last:  tok.AccessToken,
	}
	return p.ts, nil
}

// Token returns a bearer token string for raw REST calls.
func (p *Provider) Token(ctx context.Context) (string, error) {
	ts, err := p.TokenSource(ctx)
	if err != nil {
		return "", err
	}
	tok, err := ts.Token()
	if err != nil {
		return "", fmt.Errorf("googleauth: get token: %w", err)
	}
	return tok.AccessToken, nil
}

// persistingSource writes refreshed tokens back to the cache file so the
// next run skips the consent screen.
type persistingSource struct {
	inner oauth2.TokenSource
	file  string

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.inner.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	changed := tok.AccessToken != s.last
	if changed {
		s.last = tok.AccessToken
	}
	s.mu.Unlock()
	if changed {
		if err := saveToken(s.file, tok); err != nil {
			log.Printf("warn: could not cache refreshed token: %v", err)
		}
	}
	return tok, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("googleauth: parse token cache %s: %w", path, err)
	}
	return tok, nil
}

func tokenFromWeb(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	authURL := conf.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Open the following link in your browser, then paste the authorization code:\n%v\n> ", authURL)

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return nil, fmt.Errorf("googleauth: read authorization code: %w", err)
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("googleauth: exchange authorization code: %w", err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}
