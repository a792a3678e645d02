package config

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/flagx"
)

// JsonConfig is the intermediate DTO used only for reading JSON config
// files. Duration fields are strings in time.ParseDuration syntax ("15m").
// Empty fields leave the existing Config value untouched.
type JsonConfig struct {
	EndpointAddrHTTP            string  `json:"endpoint_addr_http"`
	DatabaseDSN                 string  `json:"database_dsn"`
	SecretKey                   string  `json:"secret_key"`
	AccessTokenValidityDuration string  `json:"access_token_validity_duration"`
	EncryptionPassphrase        string  `json:"encryption_passphrase"`
	EncryptionSalt              string  `json:"encryption_salt"`
	AllowedOrigins              string  `json:"allowed_origins"`
	RateLimitRPS                float64 `json:"rate_limit_rps"`
	RateLimitBurst              int     `json:"rate_limit_burst"`
	S3RootUser                  string  `json:"s3_root_user"`
	S3RootPassword              string  `json:"s3_root_password"`
	S3Bucket                    string  `json:"s3_bucket"`
	S3Region                    string  `json:"s3_region"`
	S3BaseEndpoint              string  `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags into the provided Config. If no flag is given, nothing is
// loaded. An unreadable or malformed file panics: a config file that was
// explicitly pointed at must be usable.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setString(&config.EncryptionPassphrase, c.EncryptionPassphrase)
	setString(&config.EncryptionSalt, c.EncryptionSalt)
	if c.AllowedOrigins != "" {
		config.AllowedOrigins = strings.Split(c.AllowedOrigins, ",")
	}
	if c.RateLimitRPS > 0 {
		config.RateLimitRPS = c.RateLimitRPS
	}
	if c.RateLimitBurst > 0 {
		config.RateLimitBurst = c.RateLimitBurst
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) {
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
