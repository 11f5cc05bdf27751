package config

type Config interface {
	EnvConfig
	StorageConfig
}

type EnvConfig interface {
	GetAppName() string
	GetIdentityBaseURL() string
	GetHTTPTimeoutSeconds() int
	GetEnv() string
}

type StorageConfig interface {
	GetDataFolder() string
	GetStorageBackend() string
	GetSecurePassphrase() string
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
