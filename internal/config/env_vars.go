package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	portEnvVar        = "PORT"
	appNameVar        = "APP_NAME"
	baseURLVar        = "BASE_URL"
	authGatewayURLVar = "AUTH_GATEWAY_URL"
	customerAPIURLVar = "CUSTOMER_API_URL"
	storageDirVar     = "STORAGE_DIR"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Auth Gateway")
}

// GetBaseURL returns the public base URL of the development gateway (e.g., "https://auth.example.com")
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

// GetAuthGatewayURL returns the auth gateway the session client talks to
func (EnvVars) GetAuthGatewayURL() string {
	return strings.TrimSuffix(GetEnv(authGatewayURLVar, "http://localhost:8080"), "/")
}

func (EnvVars) GetCustomerAPIURL() string {
	return strings.TrimSuffix(GetEnv(customerAPIURLVar, "http://localhost:8082"), "/")
}

// GetStorageDir returns the directory backing the persistent key/value area.
// Every process pointed at the same directory behaves like a tab of the same origin.
func (EnvVars) GetStorageDir() string {
	if dir := os.Getenv(storageDirVar); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".authsession")
	}
	return filepath.Join(home, ".authsession")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
