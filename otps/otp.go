// Package otps stores pending one time code requests.
package otps

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jrsteele09/go-auth-session/authmodel"
)

// Request is a pending OTP. Only the bcrypt hash of the code is kept.
type Request struct {
	ID          string
	AreaCode    string
	PhoneNumber string
	UserType    authmodel.UserType
	Purpose     string
	CodeHash    string
	ExpiresAt   time.Time
	Attempts    int
}

// Matches reports whether code is the request's code.
func (r *Request) Matches(code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(r.CodeHash), []byte(code)) == nil
}

// HashCode hashes an OTP for storage.
func HashCode(code string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	return string(bytes), err
}

// GenerateCode returns a random numeric code of the given length.
func GenerateCode(length int) (string, error) {
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate otp digit: %w", err)
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}
