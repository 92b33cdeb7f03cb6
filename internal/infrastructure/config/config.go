package config

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET, required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`

	// OfficialAccount is the username every new user is connected to.
	OfficialAccount    string `env:"OFFICIAL_ACCOUNT_USERNAME"`
	SignupRewardAmount string `env:"SIGNUP_REWARD_AMOUNT, default=0"`

	Mongo  MongoConfig
	Redis  RedisConfig
	Chain  ChainConfig
	Social SocialConfig
	Tasks  TaskConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=social"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type ChainConfig struct {
	RPCURL           string        `env:"CHAIN_RPC_URL"`
	Mnemonic         string        `env:"CHAIN_MNEMONIC"`
	DerivationScheme string        `env:"CHAIN_DERIVATION_SCHEME, default=bip44-evm"`
	AddressFormat    string        `env:"CHAIN_ADDRESS_FORMAT,    default=checksum"`
	NetworkFeeWei    string        `env:"CHAIN_NETWORK_FEE_WEI,   default=21000000000000"`
	Timeout          time.Duration `env:"CHAIN_TIMEOUT,           default=30s"`
}

// Fee parses NetworkFeeWei.
func (c ChainConfig) Fee() (*big.Int, error) {
	fee, ok := new(big.Int).SetString(c.NetworkFeeWei, 10)
	if !ok || fee.Sign() < 0 {
		return nil, fmt.Errorf("config: invalid CHAIN_NETWORK_FEE_WEI %q", c.NetworkFeeWei)
	}
	return fee, nil
}

// Enabled reports whether escrow sweeping is configured.
func (c ChainConfig) Enabled() bool {
	return c.RPCURL != "" && c.Mnemonic != ""
}

type SocialConfig struct {
	TwitterURL          string        `env:"TWITTER_BASE_URL"`
	TwitterBearerToken  string        `env:"TWITTER_BEARER_TOKEN"`
	RedditURL           string        `env:"REDDIT_BASE_URL"`
	RedditToken         string        `env:"REDDIT_TOKEN"`
	RedditUserAgent     string        `env:"REDDIT_USER_AGENT,      default=social-api/1.0"`
	FacebookURL         string        `env:"FACEBOOK_BASE_URL"`
	FacebookAccessToken string        `env:"FACEBOOK_ACCESS_TOKEN"`
	Timeout             time.Duration `env:"SOCIAL_TIMEOUT,         default=10s"`
	MaxRetries          int           `env:"SOCIAL_MAX_RETRIES,     default=2"`
	RatePerSecond       float64       `env:"SOCIAL_RATE_PER_SECOND, default=5"`
}

type TaskConfig struct {
	Workers     int `env:"TASK_WORKERS,      default=8"`
	MaxAttempts int `env:"TASK_MAX_ATTEMPTS, default=3"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	return &cfg, nil
}

// IsDevelopment reports whether the service runs in a development environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
