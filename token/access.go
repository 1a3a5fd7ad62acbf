package token

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jrsteele09/go-auth-session/authmodel"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/internal/utils"
	"github.com/jrsteele09/go-auth-session/users"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// AccessClaims are the claims carried by a gateway access token.
type AccessClaims struct {
	AuthUserID int64
	UserType   authmodel.UserType
	Roles      []string
	SessionID  string
	ExpiresAt  time.Time
	JTI        string
}

// Creator issues and verifies access tokens.
type Creator struct {
	signer Signer
	expiry time.Duration
}

func NewCreator(signer Signer, expiry time.Duration) *Creator {
	return &Creator{
		signer: signer,
		expiry: expiry,
	}
}

// Expiry is the lifetime of issued access tokens.
func (c *Creator) Expiry() time.Duration {
	return c.expiry
}

// CreateAccessToken signs an access token for the user bound to sessionID.
func (c *Creator) CreateAccessToken(user *users.AuthUser, sessionID string) (string, error) {
	now := NowTimeFunc()
	claims := jwt.MapClaims{
		"sub":       strconv.FormatInt(user.ID, 10), // Auth user id
		"user_type": string(user.UserType),
		"roles":     user.RoleStrings(),
		"sid":       sessionID,                // Backend session the token belongs to
		"iat":       now.Unix(),               // Issued At
		"exp":       now.Add(c.expiry).Unix(), // Expiry
		"jti":       uuid.New().String(),      // Unique token ID
	}

	signed, err := c.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of rawToken and returns its claims.
func (c *Creator) Verify(rawToken string) (*AccessClaims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, errors.ErrInvalidToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{c.signer.Alg()}),
		jwt.WithTimeFunc(NowTimeFunc),
		jwt.WithExpirationRequired(),
	)
	parsed, err := parser.Parse(rawToken, c.signer.Keyfunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject", errors.ErrInvalidToken)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, errors.ErrInvalidToken
	}

	userType, _ := claims["user_type"].(string)
	sessionID, _ := claims["sid"].(string)
	jti, _ := claims["jti"].(string)

	return &AccessClaims{
		AuthUserID: userID,
		UserType:   authmodel.UserType(userType),
		Roles:      utils.ToStringSlice(claims["roles"]),
		SessionID:  sessionID,
		ExpiresAt:  exp.Time,
		JTI:        jti,
	}, nil
}
