package config

import "time"

// Network scopes accounts and payments.
const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"
)

type ServiceConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	// Network every account and payment of this instance belongs to.
	Network string `yaml:"network"`
	// InternalSecret authenticates the mediator on /api/internal.
	InternalSecret string        `yaml:"internal_secret"`
	PaymentTTL     time.Duration `yaml:"payment_ttl"`
	ClientURL      string        `yaml:"client_url"`
	BcryptCost     int           `yaml:"bcrypt_cost"`
}

type WebhookConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	// BackoffUnit is multiplied by 2^k before retry k+1.
	BackoffUnit time.Duration `yaml:"backoff_unit"`
	UserAgent   string        `yaml:"user_agent"`
}
