package middleware

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired is returned when JWT validation fails due to expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for general token validation failures (signature, format).
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenMissingClaim is returned if a required claim (like 'sub') is missing.
	ErrTokenMissingClaim = errors.New("token missing required claim")
)

// Roles carried in the "role" claim.
const (
	RoleParent = "parent"
	RoleDriver = "driver"
	RoleAdmin  = "admin"
)

// Claims is the bearer token payload issued by the identity service.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Validator defines the interface for validating tokens.
type Validator interface {
	Validate(tokenString string) (*Claims, error)
}

// JWTValidator checks HS256 tokens signed with the shared secret.
type JWTValidator struct {
	secret []byte
	parser *jwt.Parser
}

var _ Validator = (*JWTValidator)(nil)

func NewJWTValidator(secret string) (*JWTValidator, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT validator configuration error: secret is required")
	}
	return &JWTValidator{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// Validate returns the token's claims. Errors wrap ErrTokenExpired,
// ErrTokenInvalid or ErrTokenMissingClaim.
func (v *JWTValidator) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: sub", ErrTokenMissingClaim)
	}
	if claims.Role == "" {
		return nil, fmt.Errorf("%w: role", ErrTokenMissingClaim)
	}
	return claims, nil
}
