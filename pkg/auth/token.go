package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claim names carried in issued tokens. Admin and trusted-member claims
// drive the authorization policies in the HTTP layer.
const (
	ClaimUserID        = "userid"
	ClaimAdmin         = "admin"
	ClaimTrustedMember = "trusted_member"
)

// TokenLifetime is the fixed validity window of every issued token.
const TokenLifetime = 5 * time.Minute

// Claims holds the identity facts extracted from a validated token.
type Claims struct {
	UserID          string
	Email           string
	IsAdmin         bool
	IsTrustedMember bool
}

// TokenManager issues and validates signed identity assertions.
type TokenManager interface {
	Generate(userID string, email string, customClaims map[string]any) (string, error)
	Validate(tokenString string) (*Claims, error)
}

// jwtManager implements TokenManager with HMAC-SHA256 signing. The secret,
// issuer and audience are bound once at construction and immutable after.
type jwtManager struct {
	secretKey     []byte
	issuer        string
	audience      string
	tokenDuration time.Duration
}

// NewTokenManager creates a jwtManager from process configuration.
func NewTokenManager(secretKey, issuer, audience string) (TokenManager, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("JWT secret key cannot be empty")
	}
	if issuer == "" || audience == "" {
		return nil, fmt.Errorf("JWT issuer and audience cannot be empty")
	}
	return &jwtManager{
		secretKey:     []byte(secretKey),
		issuer:        issuer,
		audience:      audience,
		tokenDuration: TokenLifetime,
	}, nil
}

// Generate creates a signed token for the subject with a random unique
// token id and the supplied custom claims, each re-typed by its value kind.
func (m *jwtManager) Generate(userID string, email string, customClaims map[string]any) (string, error) {
	claims := jwt.MapClaims{}
	for key, value := range customClaims {
		claims[key] = typedClaimValue(value)
	}

	// Registered claims are set after the custom ones so callers cannot
	// clobber identity or lifetime fields.
	now := time.Now().UTC()
	claims["jti"] = uuid.NewString()
	claims["sub"] = email
	claims["email"] = email
	claims[ClaimUserID] = userID
	claims["iss"] = m.issuer
	claims["aud"] = m.audience
	claims["iat"] = jwt.NewNumericDate(now)
	claims["exp"] = jwt.NewNumericDate(now.Add(m.tokenDuration))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Validate verifies the token signature, lifetime, issuer and audience,
// and returns the identity claims it carries.
func (m *jwtManager) Validate(tokenString string) (*Claims, error) {
	mapClaims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, mapClaims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithAudience(m.audience), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	userID, _ := mapClaims[ClaimUserID].(string)
	email, _ := mapClaims["email"].(string)
	return &Claims{
		UserID:          userID,
		Email:           email,
		IsAdmin:         boolClaim(mapClaims[ClaimAdmin]),
		IsTrustedMember: boolClaim(mapClaims[ClaimTrustedMember]),
	}, nil
}

// typedClaimValue resolves a loosely typed claim value to a bool, a number
// or a string, so claims round-trip with the type the caller supplied.
func typedClaimValue(value any) any {
	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// boolClaim accepts both native booleans and the string form "true", since
// callers of the raw token endpoint may supply either.
func boolClaim(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}
