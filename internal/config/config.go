package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	GatewayConfig
	SessionConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetAuthGatewayURL() string
	GetCustomerAPIURL() string
	GetStorageDir() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

// SessionConfig holds the client-side timer settings used by session.Manager.
type SessionConfig interface {
	GetRefreshLeadTime() time.Duration
	GetMinRefreshDelay() time.Duration
	GetSessionValidationInterval() time.Duration
	GetActivityIdleTimeout() time.Duration
	GetSyncMarkerTTL() time.Duration
}

type mainConfig struct {
	EnvVars
	Cors
	Gateway
	Session
}

func New() Config {
	return mainConfig{}
}
