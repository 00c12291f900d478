// Package tokengenerator mints and parses the HS256 access tokens accepted by
// the settings service. Production deployments receive tokens from the
// identity provider; this package is used for local development and tests.
package tokengenerator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ExtraClaims mirrors client.ExtraClaims
type ExtraClaims struct {
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// Claims struct for JWT claims
type Claims struct {
	LoginID     string      `json:"login_id"`
	SessionID   string      `json:"sid,omitempty"`
	ExtraClaims ExtraClaims `json:"extra_claims,omitempty"`
	jwt.RegisteredClaims
}

// JwtTokenGenerator signs tokens with a shared secret
type JwtTokenGenerator struct {
	Secret   string
	Issuer   string
	Audience string
	now      func() time.Time
}

// NewJwtTokenGenerator creates a new JwtTokenGenerator
func NewJwtTokenGenerator(secret, issuer, audience string) *JwtTokenGenerator {
	return &JwtTokenGenerator{
		Secret:   secret,
		Issuer:   issuer,
		Audience: audience,
		now:      time.Now,
	}
}

// GenerateToken creates a token for loginID. An empty sessionID gets a fresh
// random one so each minted token is its own challenge session.
func (g *JwtTokenGenerator) GenerateToken(loginID uuid.UUID, sessionID string, expiry time.Duration, extra ExtraClaims) (string, time.Time, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	now := g.now().UTC()
	claims := Claims{
		LoginID:     loginID.String(),
		SessionID:   sessionID,
		ExtraClaims: extra,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Minute)),
			Issuer:    g.Issuer,
			Subject:   loginID.String(),
			ID:        uuid.NewString(),
			Audience:  jwt.ClaimStrings{g.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(g.Secret))
	if err != nil {
		slog.Error("Failed sign JWT Claim string!", "err", err)
		return "", time.Time{}, err
	}
	return ss, claims.ExpiresAt.Time, nil
}

// ParseToken parses and validates a token string
func (g *JwtTokenGenerator) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(g.Secret), nil
	}, jwt.WithIssuer(g.Issuer), jwt.WithAudience(g.Audience))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("failed_parse_token_claims")
	}
	return claims, nil
}
