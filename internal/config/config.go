package config

import (
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	MongoDB  MongoDBConfig
	JWT      JWTConfig
	Lottery  LotteryConfig
	Payments PaymentsConfig
	Anchor   AnchorConfig
	LogLevel string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	AllowedHosts []string
	AppURL       string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn int
}

// LotteryConfig holds draw-engine configuration
type LotteryConfig struct {
	// FeeRate is the platform fee fraction withheld from the prize pool when
	// the payout is created, e.g. 0.05 for 5%.
	FeeRate float64
	// AllowManualAnchor permits callers of the run operation to supply the
	// anchor value directly. Leave off in production: a manual anchor defeats
	// the unpredictability guarantee the protocol relies on.
	AllowManualAnchor bool
}

// PaymentsConfig holds payment-provider configuration
type PaymentsConfig struct {
	Coinbase    CoinbaseConfig
	NOWPayments NOWPaymentsConfig
}

// CoinbaseConfig holds Coinbase Commerce configuration
type CoinbaseConfig struct {
	APIKey        string
	WebhookSecret string
}

// NOWPaymentsConfig holds NOWPayments configuration
type NOWPaymentsConfig struct {
	APIKey    string
	IPNSecret string
}

// AnchorConfig holds blockchain anchor provider configuration
type AnchorConfig struct {
	// Network selects the anchor chain: "bitcoin", "ethereum" or "static".
	Network        string
	BitcoinBaseURL string
	EthereumRPCURL string
	// StaticBlockHash is served when Network is "static" (dev only).
	StaticBlockHash string
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	applyEnvOverrides(&config)

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	viper.SetDefault("Server.Port", "4000")
	viper.SetDefault("Server.AllowedHosts", []string{"localhost:3000"})
	viper.SetDefault("Server.AppURL", "http://localhost:3000")
	viper.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	viper.SetDefault("MongoDB.Database", "cryptolotto")
	viper.SetDefault("JWT.ExpiresIn", 24*60*60) // 24 hours
	viper.SetDefault("LogLevel", "info")
	viper.SetDefault("Lottery.FeeRate", 0.05)
	viper.SetDefault("Lottery.AllowManualAnchor", false)
	viper.SetDefault("Anchor.Network", "bitcoin")
	viper.SetDefault("Anchor.BitcoinBaseURL", "https://blockchain.info")
	viper.SetDefault("Anchor.EthereumRPCURL", "https://eth.public-rpc.com")
}
