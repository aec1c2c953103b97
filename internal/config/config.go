package config

import "github.com/pkg/errors"

type Config interface {
	EnvConfig
	StorageConfig
	CorsConfig
	TokenConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetSmtpHost() string
	GetSmtpPort() string
	GetSmtpPassword() string
	GetSmtpAccount() string
	GetMailFrom() string
	GetEnv() string
	IsProduction() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Storage
	Cors
	Token
	Security
}

func New() Config {
	return mainConfig{}
}

// Validate fails fast on settings the service cannot run without.
func Validate(c Config) error {
	if c.IsProduction() && c.GetJWTSecret() == "" {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.GetStorageBackend() == BackendPostgres && c.GetDatabaseURL() == "" {
		return errors.New("DATABASE_URL must be set when STORAGE_BACKEND=postgres")
	}
	if _, err := c.GetTrustedProxies(); err != nil {
		return err
	}
	return nil
}
