package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays configuration from a .env file (if present in the
// working directory) and the process environment. Environment values win
// over .env values, which godotenv guarantees by not overriding variables
// that are already set.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	setString(&config.EndpointAddrHTTP, os.Getenv("HTTP_ADDR"))
	setString(&config.DatabaseDSN, os.Getenv("DATABASE_DSN"))
	setString(&config.SecretKey, os.Getenv("JWT_SECRET"))
	setString(&config.EncryptionPassphrase, os.Getenv("ENCRYPTION_PASSPHRASE"))
	setString(&config.EncryptionSalt, os.Getenv("ENCRYPTION_SALT"))

	if v := os.Getenv("ACCESS_TOKEN_VALIDITY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.AccessTokenValidityDuration = d
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		config.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			config.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.RateLimitBurst = n
		}
	}

	setString(&config.S3RootUser, os.Getenv("S3_ROOT_USER"))
	setString(&config.S3RootPassword, os.Getenv("S3_ROOT_PASSWORD"))
	setString(&config.S3Bucket, os.Getenv("S3_BUCKET"))
	setString(&config.S3Region, os.Getenv("S3_REGION"))
	setString(&config.S3BaseEndpoint, os.Getenv("S3_BASE_ENDPOINT"))
}
