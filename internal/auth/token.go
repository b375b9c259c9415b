// Package auth provides access-token acquisition for the LLM backend.
//
// Some deployments authenticate with short-lived tokens minted by an
// external command (e.g. "gcloud auth print-access-token") instead of a
// static API key. TokenSource runs that command and caches the result until
// it ages out.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ErrNoCommand indicates an empty token command.
var ErrNoCommand = errors.New("token command is empty")

// TokenSource fetches and caches an access token from an external command.
// Safe for concurrent use.
type TokenSource struct {
	command []string
	ttl     time.Duration

	mu      sync.Mutex
	token   string
	fetched time.Time

	// now is swapped in tests.
	now func() time.Time
}

// NewCommandTokenSource creates a TokenSource running the given command
// line. The command's stdout, trimmed, is the token.
func NewCommandTokenSource(command string, ttl time.Duration) (*TokenSource, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, ErrNoCommand
	}
	return &TokenSource{
		command: fields,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// Token returns a cached token, refreshing it via the command when the
// cached one is older than the TTL.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Sub(s.fetched) < s.ttl {
		return s.token, nil
	}

	cmd := exec.CommandContext(ctx, s.command[0], s.command[1:]...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("token command failed: %s: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("token command failed: %w", err)
	}

	token := strings.TrimSpace(string(out))
	if token == "" {
		return "", errors.New("token command produced no output")
	}

	s.token = token
	s.fetched = s.now()
	return token, nil
}
