package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testSecret = "test-secret"
	testIssuer = "vitalsync-auth"
)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["iss"]; !ok {
		claims["iss"] = testIssuer
	}
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func resolverFor(token string) *TokenResolver {
	return NewTokenResolver(
		Config{Secret: testSecret, Issuer: testIssuer},
		func(context.Context) (string, error) { return token, nil },
	)
}

// TestResolveRemoteCapable verifies a valid token yields a remote-capable
// session carrying the subject as identity key.
func TestResolveRemoteCapable(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"sub": "user-42"})

	s, err := resolverFor(token).Resolve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Mode != RemoteCapable {
		t.Errorf("mode = %s, want %s", s.Mode, RemoteCapable)
	}
	if s.IdentityKey != "user-42" {
		t.Errorf("identity = %q, want user-42", s.IdentityKey)
	}
}

// TestResolveLocalOnly verifies the local_only claim downgrades persistence.
func TestResolveLocalOnly(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"sub": "device-7", "local_only": true})

	s, err := resolverFor(token).Resolve(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Mode != LocalOnly {
		t.Errorf("mode = %s, want %s", s.Mode, LocalOnly)
	}
}

// TestResolveUnauthenticated covers missing, expired, tampered, and
// subject-less tokens: all classify as unauthenticated without erroring.
func TestResolveUnauthenticated(t *testing.T) {
	expired := signToken(t, jwt.MapClaims{"sub": "user-42", "exp": time.Now().Add(-time.Hour).Unix()})
	noSubject := signToken(t, jwt.MapClaims{})
	wrongIssuer := signToken(t, jwt.MapClaims{"sub": "user-42", "iss": "someone-else"})

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not.a.token"},
		{"expired", expired},
		{"no subject", noSubject},
		{"wrong issuer", wrongIssuer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := resolverFor(tt.token).Resolve(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.Mode != Unauthenticated {
				t.Errorf("mode = %s, want %s", s.Mode, Unauthenticated)
			}
		})
	}
}

// TestStatic verifies the fixed resolver used in dev mode.
func TestStatic(t *testing.T) {
	r := Static(Session{Mode: RemoteCapable, IdentityKey: "dev"})
	s, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s.Mode != RemoteCapable || s.IdentityKey != "dev" {
		t.Errorf("session = %+v", s)
	}
}
