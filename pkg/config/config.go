// Package config loads service configuration from YAML files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const configDir = "configs"

// Option customises the viper instance before the configuration is read.
type Option func(v *viper.Viper)

// WithDefaults registers default values keyed by dotted path.
// Environment overrides only apply to keys that are known to viper, so every
// key a service reads should have a default.
func WithDefaults(defaults map[string]interface{}) Option {
	return func(v *viper.Viper) {
		for key, value := range defaults {
			v.SetDefault(key, value)
		}
	}
}

// Load reads the configuration of serviceName into target and returns the
// path of the file that was used, or "" when only defaults and environment
// variables applied.
//
// The file is looked up at $CONFIG_PATH (a file or a directory), then
// configs/$APP_ENV/<service>.yaml, then configs/example/<service>.yaml.
// Every key can be overridden by <SERVICE>_<SECTION>_<KEY>.
// Struct fields are matched by their yaml tag.
func Load(serviceName string, target interface{}, opts ...Option) (string, error) {
	v := viper.New()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	v.SetConfigType("yaml")
	v.SetEnvPrefix(strings.ToUpper(serviceName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, opt := range opts {
		opt(v)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if ext := filepath.Ext(configPath); ext == ".yaml" || ext == ".yml" {
		v.SetConfigFile(configPath)
	} else {
		if configPath == "" {
			configPath = filepath.Join(configDir, env)
		}
		v.SetConfigName(serviceName)
		v.AddConfigPath(configPath)
		v.AddConfigPath(filepath.Join(configDir, "example"))
	}

	used := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return "", fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		used = v.ConfigFileUsed()
	}

	if err := v.Unmarshal(target, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	}); err != nil {
		return used, fmt.Errorf("failed to decode config: %w", err)
	}

	return used, nil
}
