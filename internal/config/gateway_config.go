package config

import (
	"strconv"
	"time"
)

// GatewayConfig configures the development auth gateway.
type GatewayConfig interface {
	GetSigningKey() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRefreshTokenLength() int
	GetOTPLength() int
	GetOTPExpiry() time.Duration
	GetOTPMaxAttempts() int
	GetDevOTPCode() string
}

type Gateway struct{}

var _ GatewayConfig = Gateway{}

func (Gateway) GetSigningKey() string {
	return GetEnv("JWT_SIGNING_KEY", "dev-signing-key-change-me")
}

func (Gateway) GetAccessTokenExpiry() time.Duration {
	return getDuration("ACCESS_TOKEN_EXPIRY", time.Hour)
}

func (Gateway) GetRefreshTokenExpiry() time.Duration {
	return getDuration("REFRESH_TOKEN_EXPIRY", 30*24*time.Hour)
}

func (Gateway) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}

func (Gateway) GetOTPLength() int {
	return 6
}

func (Gateway) GetOTPExpiry() time.Duration {
	return getDuration("OTP_EXPIRY", 5*time.Minute)
}

func (Gateway) GetOTPMaxAttempts() int {
	attempts, err := strconv.Atoi(GetEnv("OTP_MAX_ATTEMPTS", "5"))
	if err != nil || attempts <= 0 {
		return 5
	}
	return attempts
}

// GetDevOTPCode returns a fixed OTP for local development; empty means random codes
func (Gateway) GetDevOTPCode() string {
	return GetEnv("DEV_OTP_CODE", "")
}

func getDuration(envVar string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(GetEnv(envVar, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
