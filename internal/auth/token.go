// Package auth establishes the identity of websocket peers from JWT bearer tokens.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Config defines fields used for parsing from environment variables
type Config struct {
	Secret      string        `env:"JWT_SECRET,required"`
	Issuer      string        `env:"JWT_ISSUER" envDefault:"private-chat"`
	TokenHeader string        `env:"JWT_HEADER" envDefault:"Authorization"`
	QueryKey    string        `env:"JWT_QUERY_KEY" envDefault:"token"`
	TTL         time.Duration `env:"JWT_TTL" envDefault:"24h"`
}

// Identity is the authenticated user behind a connection
type Identity struct {
	UserID   int64
	Username string
}

// Claims is the structure of the data stored inside the JWT
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Verifier issues and validates HS256 tokens
type Verifier struct {
	cfg Config
}

func NewVerifier(cfg Config) *Verifier {
	return &Verifier{cfg: cfg}
}

// Issue creates a signed token for the user
func (v *Verifier) Issue(id Identity) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   strconv.FormatInt(id.UserID, 10),
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(v.cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    v.cfg.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(v.cfg.Secret))
}

// Verify parses the token and checks its signature, issuer and expiration
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(v.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(v.cfg.Issuer))
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	id, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil || id < 1 {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: id, Username: claims.Username}, nil
}

// ExtractToken gets token from the configured header (with optional "Bearer " prefix) or query parameter
func (v *Verifier) ExtractToken(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get(v.cfg.TokenHeader)); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return strings.TrimSpace(r.URL.Query().Get(v.cfg.QueryKey))
}

type contextKey string

const identityKey contextKey = "identity"

// NewContext returns ctx carrying authenticated identity
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns identity stored by NewContext, ok is false for anonymous requests
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
