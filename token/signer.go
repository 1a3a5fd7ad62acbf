package token

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer signs access tokens and resolves the key that verifies them.
type Signer interface {
	Sign(claims jwt.Claims) (string, error)
	Keyfunc(token *jwt.Token) (any, error)
	Alg() string
}

// HMACSigner signs HS256 tokens with the gateway's shared secret. Tokens carry
// a kid derived from the secret, so tokens minted before a key change are
// rejected with a clear error.
type HMACSigner struct {
	secret []byte
	keyID  string
}

func NewHMACSigner(secret string) *HMACSigner {
	sum := sha256.Sum256([]byte(secret))
	return &HMACSigner{
		secret: []byte(secret),
		keyID:  hex.EncodeToString(sum[:4]),
	}
}

func (h *HMACSigner) Sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = h.keyID
	signed, err := token.SignedString(h.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token with HMAC: %w", err)
	}
	return signed, nil
}

func (h *HMACSigner) Keyfunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	if kid, _ := token.Header["kid"].(string); kid != h.keyID {
		return nil, fmt.Errorf("unknown key id %q", kid)
	}
	return h.secret, nil
}

func (h *HMACSigner) Alg() string {
	return jwt.SigningMethodHS256.Alg()
}
