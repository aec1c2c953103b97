package config

type TokenConfig interface {
	GetJWTSecret() string
	GetJWTIssuer() string
	GetAccessTokenExpiry() string
	GetRefreshTokenExpiry() string
	GetRememberMeExpiry() string
	GetRefreshTokenLength() int
}

type Token struct{}

var _ TokenConfig = Token{}

func (Token) GetJWTSecret() string {
	return GetEnv("JWT_SECRET", "")
}

func (Token) GetJWTIssuer() string {
	return GetEnv("JWT_ISSUER", "dietitian-server")
}

// Expiry values are duration expressions such as "7d", "12h" or "30m".

func (Token) GetAccessTokenExpiry() string {
	return GetEnv("ACCESS_TOKEN_EXPIRES_IN", "7d")
}

func (Token) GetRefreshTokenExpiry() string {
	return GetEnv("REFRESH_TOKEN_EXPIRES_IN", "7d")
}

func (Token) GetRememberMeExpiry() string {
	return GetEnv("REMEMBER_ME_EXPIRES_IN", "30d")
}

func (Token) GetRefreshTokenLength() int {
	return GetEnvInt("REFRESH_TOKEN_BYTES", 32) // 32 bytes = 256 bits
}
