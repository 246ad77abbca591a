package token

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"findlost/internal/domain"
)

// DefaultTTL is the session token lifetime.
const DefaultTTL = 24 * time.Hour

// ErrInvalidToken covers every verification failure: expired, malformed, or
// mis-signed. Callers treat all of them uniformly as unauthenticated.
var ErrInvalidToken = errors.New("invalid token")

// Service issues and verifies HMAC-SHA256 session tokens with a single
// process-wide secret. The service signs and verifies its own tokens; no
// external party ever sees the secret.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService builds a token service. A zero ttl falls back to DefaultTTL.
func NewService(secret string, ttl time.Duration) *Service {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// TTL returns the configured token lifetime.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token carrying the supplied identity payload verbatim, plus
// issued-at and expiry claims. The payload shape is not validated.
func (s *Service) Issue(payload map[string]any) (string, error) {
	claims := jwt.MapClaims{}
	for k, v := range payload {
		claims[k] = v
	}
	now := time.Now().UTC()
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(s.ttl).Unix()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

// Verify checks signature and expiry and returns the decoded claims. Any
// failure surfaces as ErrInvalidToken; the cause is not distinguished.
func (s *Service) Verify(raw string) (map[string]any, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IdentityFromClaims extracts the caller identity from decoded claims.
func IdentityFromClaims(claims map[string]any) domain.Identity {
	return domain.Identity{
		Email: stringClaim(claims, "email"),
		Name:  stringClaim(claims, "name"),
		Photo: stringClaim(claims, "photo"),
	}
}

func stringClaim(claims map[string]any, key string) string {
	v, _ := claims[key].(string)
	return v
}
