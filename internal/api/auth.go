package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"

	"github.com/AlchemistMonkey02/Geotree-server/internal/plantation"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Role   string
}

// Claims are the bearer token claims issued by the auth service.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens. Issuing tokens is the auth
// service's job.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator returns an Authenticator for the shared secret.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Verify parses a token and returns its principal.
func (a *Authenticator) Verify(token string) (Principal, error) {
	if len(a.secret) == 0 {
		return Principal{}, eris.New("auth: no signing secret configured")
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Principal{}, eris.Wrap(err, "auth: parse token")
	}
	if claims.Subject == "" {
		return Principal{}, eris.New("auth: token has no subject")
	}
	return Principal{UserID: claims.Subject, Role: claims.Role}, nil
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored by requireAuth.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// requireAuth rejects requests without a valid bearer token.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			s.fail(w, r, plantation.Unauthorized("missing bearer token"))
			return
		}
		p, err := s.auth.Verify(strings.TrimSpace(token))
		if err != nil {
			s.fail(w, r, plantation.Unauthorized("invalid or expired token"))
			return
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
	})
}

// requireRole admits principals whose role satisfies allowed. It must run
// after requireAuth.
func (s *Server) requireRole(allowed func(role string) bool, msg string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFrom(r.Context())
			if !ok {
				s.fail(w, r, plantation.Unauthorized("missing bearer token"))
				return
			}
			if !allowed(p.Role) {
				s.fail(w, r, plantation.Forbidden(msg))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
