package config

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wekeepgrowing/custody-gateway/pkg/config"
	"github.com/wekeepgrowing/custody-gateway/pkg/logger"
)

// ServiceName selects configs/<env>/gateway.yaml and the GATEWAY_ env prefix.
const ServiceName = "gateway"

type Config struct {
	Service  ServiceConfig  `yaml:"service"`
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Redis    RedisConfig    `yaml:"redis"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Server   ServerConfig   `yaml:"server"`
	Log      logger.Config  `yaml:"log"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"service.name":            ServiceName,
		"service.environment":     "dev",
		"service.version":         "dev",
		"service.network":         NetworkMainnet,
		"service.internal_secret": "",
		"service.payment_ttl":     24 * time.Hour,
		"service.client_url":      "*",
		"service.bcrypt_cost":     10,

		"store.driver": DriverPostgres,

		"database.host":               "localhost",
		"database.port":               5432,
		"database.name":               "gateway",
		"database.user":               "gateway",
		"database.password":           "",
		"database.ssl_mode":           "disable",
		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  30 * time.Minute,
		"database.conn_max_idle_time": 5 * time.Minute,
		"database.slow_threshold":     200 * time.Millisecond,

		"mongo.uri":             "mongodb://localhost:27017",
		"mongo.database":        "gateway",
		"mongo.connect_timeout": 10 * time.Second,

		"redis.enabled":  false,
		"redis.addr":     "localhost:6379",
		"redis.password": "",
		"redis.db":       0,
		"redis.channel":  "gateway:mediator",

		"webhook.max_attempts":    3,
		"webhook.attempt_timeout": 5 * time.Second,
		"webhook.backoff_unit":    time.Second,
		"webhook.user_agent":      "custody-gateway-webhook/1.0",

		"server.http.host":             "0.0.0.0",
		"server.http.port":             8080,
		"server.http.shutdown_timeout": 15 * time.Second,
		"server.grpc.host":             "0.0.0.0",
		"server.grpc.port":             9090,

		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stdout",
		"log.file_path":   "",
		"log.development": false,
	}
}

// LoadConfig reads the gateway configuration. The returned path is the file
// that was used, empty when running on defaults and environment only.
func LoadConfig() (*Config, string, error) {
	var cfg Config
	used, err := config.Load(ServiceName, &cfg, config.WithDefaults(defaults()))
	if err != nil {
		return nil, used, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, used, err
	}
	return &cfg, used, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Service.InternalSecret == "" {
		errs = append(errs, errors.New("service.internal_secret is required"))
	}
	if c.Service.Network != NetworkMainnet && c.Service.Network != NetworkTestnet {
		errs = append(errs, fmt.Errorf("service.network must be %q or %q", NetworkMainnet, NetworkTestnet))
	}
	if c.Service.PaymentTTL <= 0 {
		errs = append(errs, errors.New("service.payment_ttl must be positive"))
	}
	switch c.Store.Driver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not supported", c.Store.Driver))
	}
	if c.Webhook.MaxAttempts < 1 {
		errs = append(errs, errors.New("webhook.max_attempts must be at least 1"))
	}
	if c.Webhook.AttemptTimeout <= 0 {
		errs = append(errs, errors.New("webhook.attempt_timeout must be positive"))
	}
	return errors.Join(errs...)
}

// Describe renders the configuration as YAML with secrets masked.
func (c *Config) Describe() string {
	redacted := *c
	redacted.Service.InternalSecret = mask(c.Service.InternalSecret)
	redacted.Database.Password = mask(c.Database.Password)
	redacted.Redis.Password = mask(c.Redis.Password)
	redacted.Mongo.URI = mask(c.Mongo.URI)

	out, err := yaml.Marshal(&redacted)
	if err != nil {
		return fmt.Sprintf("<unrenderable config: %v>", err)
	}
	return string(out)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
