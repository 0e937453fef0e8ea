// Package session resolves the current identity for a sync pass.
//
// A Session is resolved fresh on every pass and passed into the coordinator
// as an immutable value; no component holds a mutable "current identity" flag.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Mode classifies what the current identity supports.
type Mode string

const (
	// Unauthenticated means no valid session; a sync pass must not run.
	Unauthenticated Mode = "unauthenticated"
	// LocalOnly means aggregation may run but nothing is persisted remotely.
	LocalOnly Mode = "local_only"
	// RemoteCapable means the session is backed by the remote store.
	RemoteCapable Mode = "remote_capable"
)

// Session is the immutable identity snapshot for one sync pass.
type Session struct {
	Mode        Mode
	IdentityKey string
}

// Resolver produces the session for the current pass.
type Resolver interface {
	Resolve(ctx context.Context) (Session, error)
}

// TokenSource supplies the current raw session token. An empty token with a
// nil error means no session is established.
type TokenSource func(ctx context.Context) (string, error)

// Config holds token verification parameters.
type Config struct {
	Secret string
	Issuer string
}

// ErrInvalidToken wraps parsing/validation errors.
var ErrInvalidToken = errors.New("invalid session token")

// TokenResolver validates session tokens from a TokenSource.
type TokenResolver struct {
	cfg    Config
	tokens TokenSource
}

// NewTokenResolver creates a resolver that verifies HS256 tokens.
func NewTokenResolver(cfg Config, tokens TokenSource) *TokenResolver {
	return &TokenResolver{cfg: cfg, tokens: tokens}
}

var _ Resolver = (*TokenResolver)(nil)

// Resolve reads the current token and classifies the session. A missing,
// expired, or malformed token yields Unauthenticated rather than an error:
// the caller reports it as a pass failure, not a crash.
func (r *TokenResolver) Resolve(ctx context.Context) (Session, error) {
	token, err := r.tokens(ctx)
	if err != nil {
		return Session{Mode: Unauthenticated}, fmt.Errorf("reading session token: %w", err)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Session{Mode: Unauthenticated}, nil
	}

	claims, err := parseClaims(token, r.cfg)
	if err != nil {
		return Session{Mode: Unauthenticated}, nil
	}

	if claims.LocalOnly {
		return Session{Mode: LocalOnly, IdentityKey: claims.Subject}, nil
	}
	return Session{Mode: RemoteCapable, IdentityKey: claims.Subject}, nil
}

// tokenClaims is the payload extracted from a session token.
type tokenClaims struct {
	Subject   string
	LocalOnly bool
	ExpiresAt time.Time
}

func parseClaims(token string, cfg Config) (*tokenClaims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithIssuer(cfg.Issuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return nil, ErrInvalidToken
	}
	localOnly, _ := claims["local_only"].(bool)

	out := &tokenClaims{Subject: subject, LocalOnly: localOnly}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// FileTokenSource reads the session token from a file on every pass. A
// missing file means no session is established yet.
func FileTokenSource(path string) TokenSource {
	return func(context.Context) (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", nil
			}
			return "", fmt.Errorf("reading token file: %w", err)
		}
		return string(data), nil
	}
}

// Static returns a resolver that always yields the given session. Used for
// dev mode and tests.
func Static(s Session) Resolver {
	return staticResolver{s: s}
}

type staticResolver struct{ s Session }

func (r staticResolver) Resolve(context.Context) (Session, error) {
	return r.s, nil
}
