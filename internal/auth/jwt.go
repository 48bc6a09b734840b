// Package auth issues and validates the two JWT token types used at
// connection time: an app token for HTTP calls, and a Centrifugo
// subscription token handed to the client so it can open the duplex
// event channel directly against the broker.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTManager handles JWT token generation and validation
type JWTManager struct {
	secretKey []byte
	issuer    string
}

// Claims represents the JWT claims for our application
type Claims struct {
	PlayerID  uuid.UUID `json:"player_id"`
	TokenType string    `json:"token_type"` // "app" or "centrifugo"
	jwt.RegisteredClaims
}

// TokenType constants
const (
	TokenTypeApp        = "app"
	TokenTypeCentrifugo = "centrifugo"
)

// NewJWTManager creates a new JWT manager
func NewJWTManager(secretKey string, issuer string) *JWTManager {
	return &JWTManager{
		secretKey: []byte(secretKey),
		issuer:    issuer,
	}
}

// GenerateAppToken generates a JWT token for API authentication
func (m *JWTManager) GenerateAppToken(playerID uuid.UUID, duration time.Duration) (string, error) {
	now := time.Now()

	claims := &Claims{
		PlayerID:  playerID,
		TokenType: TokenTypeApp,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   playerID.String(),
			Audience:  []string{"codeduel-api"},
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// GenerateCentrifugoToken generates a JWT token for Centrifugo authentication
func (m *JWTManager) GenerateCentrifugoToken(playerID uuid.UUID, duration time.Duration) (string, error) {
	now := time.Now()

	claims := &Claims{
		PlayerID:  playerID,
		TokenType: TokenTypeCentrifugo,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   playerID.String(),
			Audience:  []string{"centrifugo"},
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// ValidateToken validates a JWT token and returns the claims
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

// ValidateAppToken validates an app token and ensures it's the correct type
func (m *JWTManager) ValidateAppToken(tokenString string) (*Claims, error) {
	claims, err := m.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != TokenTypeApp {
		return nil, fmt.Errorf("invalid token type: expected %s, got %s", TokenTypeApp, claims.TokenType)
	}

	return claims, nil
}

// ValidateCentrifugoToken validates a Centrifugo token and ensures it's the correct type
func (m *JWTManager) ValidateCentrifugoToken(tokenString string) (*Claims, error) {
	claims, err := m.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.TokenType != TokenTypeCentrifugo {
		return nil, fmt.Errorf("invalid token type: expected %s, got %s", TokenTypeCentrifugo, claims.TokenType)
	}

	return claims, nil
}

// ExtractPlayerIDFromToken extracts the player ID from a token without
// full validation. Useful for logging/metrics where full security
// validation isn't needed.
func (m *JWTManager) ExtractPlayerIDFromToken(tokenString string) (uuid.UUID, error) {
	token, _, err := new(jwt.Parser).ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return uuid.Nil, fmt.Errorf("invalid token claims")
	}

	return claims.PlayerID, nil
}
