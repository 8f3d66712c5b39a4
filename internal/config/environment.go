package config

import (
	"os"
	"strconv"
	"strings"
)

// applyEnvOverrides layers flat environment variables over the loaded
// configuration. Viper's AutomaticEnv cannot see nested keys like
// "Server.Port" without a key replacer, so deployment environments set these
// well-known names instead; an unset variable leaves the config value alone.
func applyEnvOverrides(cfg *Config) {
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.AllowedHosts = getEnvAsSlice("ALLOWED_HOSTS", ",", cfg.Server.AllowedHosts)
	cfg.Server.AppURL = getEnv("APP_URL", cfg.Server.AppURL)

	cfg.MongoDB.URI = getEnv("MONGODB_URI", cfg.MongoDB.URI)
	cfg.MongoDB.Database = getEnv("MONGODB_DATABASE", cfg.MongoDB.Database)

	cfg.JWT.Secret = getEnv("JWT_SECRET", cfg.JWT.Secret)
	cfg.JWT.ExpiresIn = getEnvAsInt("JWT_EXPIRES_IN", cfg.JWT.ExpiresIn)

	cfg.Lottery.FeeRate = getEnvAsFloat("LOTTERY_FEE_RATE", cfg.Lottery.FeeRate)
	cfg.Lottery.AllowManualAnchor = getEnvAsBool("LOTTERY_ALLOW_MANUAL_ANCHOR", cfg.Lottery.AllowManualAnchor)

	cfg.Payments.Coinbase.APIKey = getEnv("COINBASE_COMMERCE_API_KEY", cfg.Payments.Coinbase.APIKey)
	cfg.Payments.Coinbase.WebhookSecret = getEnv("COINBASE_COMMERCE_WEBHOOK_SECRET", cfg.Payments.Coinbase.WebhookSecret)
	cfg.Payments.NOWPayments.APIKey = getEnv("NOWPAYMENTS_API_KEY", cfg.Payments.NOWPayments.APIKey)
	cfg.Payments.NOWPayments.IPNSecret = getEnv("NOWPAYMENTS_IPN_SECRET", cfg.Payments.NOWPayments.IPNSecret)

	cfg.Anchor.Network = getEnv("ANCHOR_NETWORK", cfg.Anchor.Network)
	cfg.Anchor.BitcoinBaseURL = getEnv("BITCOIN_API_URL", cfg.Anchor.BitcoinBaseURL)
	cfg.Anchor.EthereumRPCURL = getEnv("ETHEREUM_RPC_URL", cfg.Anchor.EthereumRPCURL)
	cfg.Anchor.StaticBlockHash = getEnv("STATIC_BLOCK_HASH", cfg.Anchor.StaticBlockHash)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
}

// getEnv retrieves an environment variable or returns a default value if not found
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value if not found
func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value if not found
func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// getEnvAsFloat retrieves an environment variable as a float or returns a default value if not found
func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatValue
}

// getEnvAsSlice retrieves an environment variable as a slice or returns a default value if not found
func getEnvAsSlice(key, sep string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return strings.Split(value, sep)
}
