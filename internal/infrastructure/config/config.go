package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string       `mapstructure:"environment"`
	LogLevel    string       `mapstructure:"log_level"`
	Server      ServerConfig `mapstructure:"server"`
	Redis       RedisConfig  `mapstructure:"redis"`
	Solana      SolanaConfig `mapstructure:"solana"`
	Qwami       QwamiConfig  `mapstructure:"qwami"`
	Workers     WorkerConfig `mapstructure:"workers"`
}

type ServerConfig struct {
	Port            int      `mapstructure:"port"`
	Host            string   `mapstructure:"host"`
	ReadTimeout     int      `mapstructure:"read_timeout"`
	WriteTimeout    int      `mapstructure:"write_timeout"`
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	RateLimitPerMin int      `mapstructure:"rate_limit_per_min"`
}

type RedisConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	MaxRetries int    `mapstructure:"max_retries"`
	PoolSize   int    `mapstructure:"pool_size"`
}

// SolanaConfig describes the ledger network connection.
type SolanaConfig struct {
	Network           string  `mapstructure:"network"`             // devnet, testnet, mainnet-beta
	RPCEndpoint       string  `mapstructure:"rpc_endpoint"`
	Commitment        string  `mapstructure:"commitment"`          // processed, confirmed, finalized
	ConfirmTimeout    int     `mapstructure:"confirm_timeout"`     // seconds
	ConfirmPoll       int     `mapstructure:"confirm_poll_ms"`     // milliseconds
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// QwamiConfig describes the QWAMI token deployment.
type QwamiConfig struct {
	TokenMint      string  `mapstructure:"token_mint"`
	ProgramID      string  `mapstructure:"program_id"`
	AuthorityKey   string  `mapstructure:"authority_key"` // base58 secret key, server-side only
	WalletKeypair  string  `mapstructure:"wallet_keypair"` // optional local operator wallet
	TokenDecimals  int     `mapstructure:"token_decimals"`
	MaxSupply      uint64  `mapstructure:"max_supply"`
	Simulation     bool    `mapstructure:"simulation"`
	BasePriceUSD   float64 `mapstructure:"base_price_usd"`
	SolUSDPrice    float64 `mapstructure:"sol_usd_price"`
	StakingEnabled bool    `mapstructure:"staking_enabled"`
	DAOEnabled     bool    `mapstructure:"dao_enabled"`
}

type WorkerConfig struct {
	BalancePollEnabled  bool   `mapstructure:"balance_poll_enabled"`
	BalancePollSchedule string `mapstructure:"balance_poll_schedule"`
}

// Load reads configuration from config file and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set defaults
	setDefaults()

	// Read from config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Override with environment variables
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Default the RPC endpoint from the selected network
	if config.Solana.RPCEndpoint == "" {
		config.Solana.RPCEndpoint = defaultEndpoint(config.Solana.Network)
	}

	// Validate required fields
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.rate_limit_per_min", 100)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.max_retries", 3)
	viper.SetDefault("redis.pool_size", 10)

	// Solana defaults
	viper.SetDefault("solana.network", "devnet")
	viper.SetDefault("solana.commitment", "confirmed")
	viper.SetDefault("solana.confirm_timeout", 60)
	viper.SetDefault("solana.confirm_poll_ms", 500)
	viper.SetDefault("solana.requests_per_second", 10)

	// QWAMI token defaults (original tokenomics)
	viper.SetDefault("qwami.token_decimals", 9)
	viper.SetDefault("qwami.max_supply", uint64(1_000_000_000_000))
	viper.SetDefault("qwami.simulation", false)
	viper.SetDefault("qwami.base_price_usd", 0.01)
	viper.SetDefault("qwami.sol_usd_price", 150.0)
	viper.SetDefault("qwami.staking_enabled", false)
	viper.SetDefault("qwami.dao_enabled", false)

	// Worker defaults
	viper.SetDefault("workers.balance_poll_enabled", true)
	viper.SetDefault("workers.balance_poll_schedule", "@every 30s")
}

func defaultEndpoint(network string) string {
	switch network {
	case "mainnet-beta", "mainnet":
		return "https://api.mainnet-beta.solana.com"
	case "testnet":
		return "https://api.testnet.solana.com"
	default:
		return "https://api.devnet.solana.com"
	}
}

func validate(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Solana.RPCEndpoint == "" {
		return fmt.Errorf("solana RPC endpoint is required")
	}
	switch config.Solana.Commitment {
	case "processed", "confirmed", "finalized":
	default:
		return fmt.Errorf("invalid commitment level: %s", config.Solana.Commitment)
	}
	if config.Qwami.TokenDecimals < 0 || config.Qwami.TokenDecimals > 18 {
		return fmt.Errorf("invalid token decimals: %d", config.Qwami.TokenDecimals)
	}
	if config.Qwami.BasePriceUSD < 0 || config.Qwami.SolUSDPrice < 0 {
		return fmt.Errorf("price parameters cannot be negative")
	}
	return nil
}

// MintConfigured reports whether a real token mint has been set. Placeholder
// values from deployment templates count as unconfigured.
func (q QwamiConfig) MintConfigured() bool {
	return q.TokenMint != "" && !strings.HasPrefix(q.TokenMint, "PLACEHOLDER")
}

// AuthorityConfigured reports whether the mint authority key is available.
func (q QwamiConfig) AuthorityConfigured() bool {
	return q.AuthorityKey != "" && !strings.HasPrefix(q.AuthorityKey, "PLACEHOLDER")
}

// ProgramConfigured reports whether the issuing program has been deployed.
func (q QwamiConfig) ProgramConfigured() bool {
	return q.ProgramID != "" && !strings.HasPrefix(q.ProgramID, "PLACEHOLDER")
}
