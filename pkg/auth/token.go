// Package auth mints and verifies the HS256 access tokens that identify
// admins, drivers and customers. Identity itself lives upstream; this service
// only trusts what the token says.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/foodops-backend/pkg/config"
	"github.com/angelmondragon/foodops-backend/pkg/enums"
	"github.com/angelmondragon/foodops-backend/pkg/types"
)

// ErrInvalidToken wraps every verification failure.
var ErrInvalidToken = errors.New("invalid access token")

const clockSkew = 30 * time.Second

var signingMethod = jwt.SigningMethodHS256

type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.ActorRole
	JTI    string
}

type AccessTokenClaims struct {
	UserID uuid.UUID       `json:"user_id"`
	Role   enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}

// Actor converts verified claims into the caller identity used by services.
func (c *AccessTokenClaims) Actor() types.Actor {
	return types.Actor{ID: c.UserID, Role: c.Role}
}

func checkConfig(cfg config.JWTConfig, minting bool) error {
	switch {
	case cfg.Secret == "":
		return errors.New("auth: jwt secret is not configured")
	case minting && cfg.Issuer == "":
		return errors.New("auth: jwt issuer is not configured")
	case minting && cfg.ExpirationMinutes <= 0:
		return errors.New("auth: jwt expiration must be positive")
	}
	return nil
}

// MintAccessToken signs a token for p valid from now for the configured TTL.
// The system role is reserved for workers and is never issued.
func MintAccessToken(cfg config.JWTConfig, now time.Time, p AccessTokenPayload) (string, error) {
	if err := checkConfig(cfg, true); err != nil {
		return "", err
	}
	if p.UserID == uuid.Nil {
		return "", errors.New("auth: user id is required")
	}
	if !p.Role.IsValid() || p.Role == enums.ActorRoleSystem {
		return "", fmt.Errorf("auth: role %q cannot be issued a token", p.Role)
	}
	jti := strings.TrimSpace(p.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute
	claims := AccessTokenClaims{
		UserID: p.UserID,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    cfg.Issuer,
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry. Failures wrap
// ErrInvalidToken together with the jwt library's reason.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	if err := checkConfig(cfg, false); err != nil {
		return nil, err
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	var claims AccessTokenClaims
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	switch {
	case claims.UserID == uuid.Nil:
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	case !claims.Role.IsValid():
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return &claims, nil
}
