// internal/auth/tokens.go
package auth

import (
	"time"

	"github.com/golang-jwt/jwt"

	"oikos-server/internal/common/config"
	"oikos-server/internal/common/errors"
)

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID   string `json:"userID"`
	UserType string `json:"userType,omitempty"`
	jwt.StandardClaims
}

// TokenIssuer signs and validates session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewTokenIssuer(cfg config.AuthConfig) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(cfg.JWTSecret),
		ttl:    time.Duration(cfg.TokenTTL) * time.Minute,
		issuer: cfg.Issuer,
	}
}

// Generate issues a signed HS256 token for the user.
func (t *TokenIssuer) Generate(userID, userType string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		UserType: userType,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(t.ttl).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    t.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Validate parses and verifies a token, returning its claims.
func (t *TokenIssuer) Validate(tokenStr string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.NewAuthenticationError("unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, errors.NewAuthenticationError("invalid or expired token")
	}
	if !token.Valid {
		return nil, errors.NewAuthenticationError("invalid token")
	}

	return claims, nil
}
