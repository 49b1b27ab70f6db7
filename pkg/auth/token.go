package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"webui-dashboard-api/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of a dashboard access token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenProvider verifies HS256 bearer tokens and applies the same email
// domain rule as the header mode.
type TokenProvider struct {
	secretKey     []byte
	allowedDomain string
}

func NewTokenProvider(secret, allowedDomain string) *TokenProvider {
	return &TokenProvider{secretKey: []byte(secret), allowedDomain: allowedDomain}
}

func (p *TokenProvider) Resolve(r *http.Request) (Identity, error) {
	if len(p.secretKey) == 0 {
		return Identity{}, utils.NewAPIError(http.StatusNotImplemented, utils.CodeNotImplemented,
			"Token authentication is not configured", ErrNotImplemented)
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return Identity{}, unauthenticated("Missing authorization header")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return Identity{}, unauthenticated("Invalid authorization header format")
	}

	claims, err := p.ValidateToken(tokenString)
	if err != nil {
		return Identity{}, unauthenticated("Invalid token: " + err.Error())
	}
	if !strings.Contains(claims.Email, "@") {
		return Identity{}, unauthenticated("Token carries no email claim")
	}
	return handleFromEmail(claims.Email, p.allowedDomain)
}

// ValidateToken 验证令牌
func (p *TokenProvider) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// GenerateToken 生成访问令牌
func (p *TokenProvider) GenerateToken(email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return signed, nil
}
