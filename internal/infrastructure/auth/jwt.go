package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iho/ledgerbook/internal/domain"
)

const issuer = "ledgerbook"

// Claims represents the JWT claims
type Claims struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager manages JWT token creation and validation
type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
	now           func() time.Time
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secretKey string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     []byte(secretKey),
		tokenDuration: tokenDuration,
		now:           time.Now,
	}
}

// Generate signs a token carrying claim, valid for the configured duration.
func (m *JWTManager) Generate(claim domain.Claim) (string, error) {
	return m.GenerateWithTTL(claim, m.tokenDuration)
}

// GenerateWithTTL signs a token carrying claim, valid for ttl.
func (m *JWTManager) GenerateWithTTL(claim domain.Claim, ttl time.Duration) (string, error) {
	if err := domain.ValidateID(claim.UserID); err != nil {
		return "", fmt.Errorf("user id: %w", err)
	}
	if !claim.Role.IsValid() {
		return "", fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, claim.Role)
	}

	now := m.now()
	claims := Claims{
		UserID: claim.UserID,
		Role:   claim.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   claim.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// Verify checks signature, expiry and payload and returns the role claim.
func (m *JWTManager) Verify(tokenString string) (*domain.Claim, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secretKey, nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrExpiredToken
		}
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}

	if !domain.IsValidID(claims.UserID) || !claims.Role.IsValid() {
		return nil, domain.ErrInvalidToken
	}

	return &domain.Claim{UserID: claims.UserID, Role: claims.Role}, nil
}
