package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification errors surfaced to the guard. Anything else coming out
// of the JWT library is collapsed into ErrInvalidToken.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims is the verified output of the identity provider: an opaque
// subject id, the email it vouches for, and the expiry.
type Claims struct {
	AuthID    string
	Email     string
	ExpiresAt time.Time
}

// TokenVerifier verifies an externally issued bearer token. The core
// trusts its output; it never mints tokens itself.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// JWTConfig holds JWT verification configuration
type JWTConfig struct {
	SecretKey string
	Issuer    string
	Audience  string
}

// JWTVerifier validates HS256 tokens from the identity provider.
type JWTVerifier struct {
	config JWTConfig
	parser *jwt.Parser
}

// NewJWTVerifier creates a new JWT verifier
func NewJWTVerifier(config JWTConfig) (*JWTVerifier, error) {
	if config.SecretKey == "" {
		return nil, fmt.Errorf("jwt secret key is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	return &JWTVerifier{
		config: config,
		parser: jwt.NewParser(opts...),
	}, nil
}

type jwtClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verify validates the token signature and registered claims.
func (v *JWTVerifier) Verify(_ context.Context, token string) (*Claims, error) {
	parsed, err := v.parser.ParseWithClaims(token, &jwtClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(v.config.SecretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	out := &Claims{
		AuthID: claims.Subject,
		Email:  claims.Email,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
