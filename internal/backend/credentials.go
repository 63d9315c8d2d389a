package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// CredentialProvider supplies the bearer token for API calls. Token storage
// and refresh live outside this package.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
	// Invalidate is called after the API rejected the current token.
	Invalidate()
}

// ErrNoCredentials is returned when no usable token is available.
var ErrNoCredentials = errors.New("no credentials")

// StaticToken is a fixed token. Invalidate drops it for good.
type StaticToken struct {
	mu      sync.Mutex
	token   string
	invalid bool
}

// NewStaticToken wraps token. An empty token sends unauthenticated requests.
func NewStaticToken(token string) *StaticToken {
	return &StaticToken{token: strings.TrimSpace(token)}
}

func (s *StaticToken) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.invalid {
		return "", ErrNoCredentials
	}
	return s.token, nil
}

func (s *StaticToken) Invalidate() {
	s.mu.Lock()
	s.invalid = true
	s.mu.Unlock()
}

// FileToken reads the token from a file written by the login flow. After
// Invalidate it refuses to hand out a token until the file is rewritten.
type FileToken struct {
	Path string

	mu          sync.Mutex
	cached      string
	loadedAt    time.Time
	invalidated time.Time
}

func (f *FileToken) Token(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, err := os.Stat(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoCredentials
		}
		return "", fmt.Errorf("stat token file: %w", err)
	}
	if !f.invalidated.IsZero() && !info.ModTime().After(f.invalidated) {
		return "", ErrNoCredentials
	}
	if f.cached != "" && !info.ModTime().After(f.loadedAt) {
		return f.cached, nil
	}

	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", ErrNoCredentials
	}
	f.cached = token
	f.loadedAt = info.ModTime()
	f.invalidated = time.Time{}
	return token, nil
}

func (f *FileToken) Invalidate() {
	f.mu.Lock()
	f.cached = ""
	f.invalidated = time.Now()
	f.mu.Unlock()
}
