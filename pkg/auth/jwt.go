package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims holds the user identity carried by a token issued by the
// external auth service.
type TokenClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// Config holds the verification-side JWT settings. The orchestrator never
// signs tokens itself; ParseToken checks TokenIssuer against the iss
// claim of tokens minted by the auth service. TokenAudiences is carried
// here but ParseToken does not check the aud claim.
type Config struct {
	TokenIssuer    string
	TokenAudiences []string
}

func NewConfig() *Config {
	return &Config{
		TokenIssuer:    "auth-service",
		TokenAudiences: []string{"microservices"},
	}
}

var ErrNoPublicKey = errors.New("auth: no verification key loaded")

// JWTManager verifies RS256 tokens issued by the external auth service.
// It never holds a private key and cannot sign tokens; the public key is
// swapped in at runtime by internal/authkey whenever the auth service
// announces itself on the bus.
type JWTManager struct {
	config *Config
	key    atomic.Pointer[rsa.PublicKey]
}

func NewJWTManager(config *Config) *JWTManager {
	return &JWTManager{config: config}
}

// SetPublicKey installs the current verification key. Safe to call
// concurrently with ParseToken.
func (m *JWTManager) SetPublicKey(pub *rsa.PublicKey) {
	m.key.Store(pub)
}

// Ready reports whether a verification key has been loaded yet.
func (m *JWTManager) Ready() bool {
	return m.key.Load() != nil
}

// ParseToken verifies an RS256 token against the currently loaded public
// key and returns its claims. Returns ErrNoPublicKey before the auth
// service's key has ever been fetched.
func (m *JWTManager) ParseToken(tokenString string) (*TokenClaims, error) {
	pub := m.key.Load()
	if pub == nil {
		return nil, ErrNoPublicKey
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return pub, nil
	}, jwt.WithIssuer(m.config.TokenIssuer))

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
