package config

import (
	"os"
	"strconv"
)

// Storage backends selectable via SHELFMARK_STORAGE.
const (
	StorageBackendFile   = "file"
	StorageBackendSecure = "secure"
	StorageBackendSqlite = "sqlite"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}
var _ StorageConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv("APP_NAME", "Shelfmark")
}

// GetIdentityBaseURL returns the identity endpoint root, e.g.
// "https://api.shelfmark.app".
func (EnvVars) GetIdentityBaseURL() string {
	return GetEnv("SHELFMARK_IDENTITY_URL", "http://localhost:8080")
}

func (EnvVars) GetHTTPTimeoutSeconds() int {
	timeout, err := strconv.Atoi(GetEnv("SHELFMARK_HTTP_TIMEOUT", "15"))
	if err != nil || timeout <= 0 {
		return 15
	}
	return timeout
}

func (EnvVars) GetDataFolder() string {
	return GetEnv("SHELFMARK_FOLDER", "./data")
}

func (EnvVars) GetStorageBackend() string {
	return GetEnv("SHELFMARK_STORAGE", StorageBackendFile)
}

func (EnvVars) GetSecurePassphrase() string {
	return GetEnv("SHELFMARK_PASSPHRASE", "")
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
