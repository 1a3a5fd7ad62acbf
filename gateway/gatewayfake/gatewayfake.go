// Package gatewayfake is an in-memory stand-in for the auth gateway client.
package gatewayfake

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/jrsteele09/go-auth-session/authmodel"
	"github.com/jrsteele09/go-auth-session/gateway"
)

// Gateway records calls and answers with the configured responses. A nil
// response func yields a 500 StatusError.
type Gateway struct {
	mu sync.Mutex

	GenerateOTPFunc func(authmodel.OTPRequest) (*authmodel.OTPResponse, error)
	ValidateOTPFunc func(authmodel.OTPValidation) (*authmodel.TokenResponse, error)
	RefreshFunc     func(refreshToken string) (*authmodel.TokenResponse, error)
	LogoutFunc      func(accessToken string, request authmodel.LogoutRequest) error
	GetSessionFunc  func(accessToken, sessionID string) (*authmodel.SessionStatus, error)

	calls map[string]int
}

func New() *Gateway {
	return &Gateway{calls: make(map[string]int)}
}

// Calls returns how many times op was invoked.
func (g *Gateway) Calls(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[op]
}

func (g *Gateway) record(op string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[op]++
}

func unconfigured(op string) error {
	return &gateway.StatusError{Op: op, StatusCode: http.StatusInternalServerError, Message: fmt.Sprintf("%s failed: not configured", op)}
}

func (g *Gateway) GenerateOTP(_ context.Context, request authmodel.OTPRequest) (*authmodel.OTPResponse, error) {
	g.record("GenerateOTP")
	if g.GenerateOTPFunc == nil {
		return nil, unconfigured("OTP generation")
	}
	return g.GenerateOTPFunc(request)
}

func (g *Gateway) ValidateOTP(_ context.Context, validation authmodel.OTPValidation) (*authmodel.TokenResponse, error) {
	g.record("ValidateOTP")
	if g.ValidateOTPFunc == nil {
		return nil, unconfigured("OTP validation")
	}
	return g.ValidateOTPFunc(validation)
}

func (g *Gateway) Refresh(_ context.Context, refreshToken string) (*authmodel.TokenResponse, error) {
	g.record("Refresh")
	if g.RefreshFunc == nil {
		return nil, unconfigured("Token refresh")
	}
	return g.RefreshFunc(refreshToken)
}

func (g *Gateway) Logout(_ context.Context, accessToken string, request authmodel.LogoutRequest) error {
	g.record("Logout")
	if g.LogoutFunc == nil {
		return nil
	}
	return g.LogoutFunc(accessToken, request)
}

func (g *Gateway) GetSession(_ context.Context, accessToken, sessionID string) (*authmodel.SessionStatus, error) {
	g.record("GetSession")
	if g.GetSessionFunc == nil {
		return nil, unconfigured("Session validation")
	}
	return g.GetSessionFunc(accessToken, sessionID)
}
