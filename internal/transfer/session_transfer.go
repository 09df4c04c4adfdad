package transfer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims is the payload of the on-disk session cache.
type SessionClaims struct {
	Username       string `json:"username"`
	UserID         string `json:"user_id"`
	TokenType      string `json:"token_type"`
	EncryptedToken string `json:"encrypted_token"`
	jwt.RegisteredClaims
}
