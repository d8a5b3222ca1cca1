package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL          string
	PGDSN           string
	Mode            string
	PageSize        int
	RateCeiling     int
	RateCooldown    time.Duration
	PollInterval    time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	ProtocolPackage string
	MarketID        string
	Groups          []string
	Errors          string
	LogLevel        string
}

// DefaultGroups is the cycle order of event groups.
var DefaultGroups = []string{"liquidation", "market_dynamics", "flash_loans", "lending"}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "continuous")
	v.SetDefault("page-size", 50)
	v.SetDefault("rate-ceiling", 40)
	v.SetDefault("rate-cooldown", time.Second)
	v.SetDefault("poll-interval", 10*time.Second)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("groups", strings.Join(DefaultGroups, ","))
	v.SetDefault("errors", "./data/projection_errors.jsonl")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:          v.GetString("rpc"),
		PGDSN:           v.GetString("pg-dsn"),
		Mode:            v.GetString("mode"),
		PageSize:        v.GetInt("page-size"),
		RateCeiling:     v.GetInt("rate-ceiling"),
		RateCooldown:    v.GetDuration("rate-cooldown"),
		PollInterval:    v.GetDuration("poll-interval"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		ProtocolPackage: v.GetString("protocol-package"),
		MarketID:        v.GetString("market-id"),
		Groups:          getStringSlice(v, "groups"),
		Errors:          v.GetString("errors"),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks the settings the run command cannot start without.
func (c Config) Validate() error {
	switch {
	case c.RPCURL == "":
		return fmt.Errorf("rpc url is required")
	case c.PGDSN == "":
		return fmt.Errorf("pg dsn is required")
	case c.ProtocolPackage == "":
		return fmt.Errorf("protocol package id is required")
	case c.MarketID == "":
		return fmt.Errorf("market id is required")
	case c.PageSize <= 0:
		return fmt.Errorf("page size must be positive")
	case c.PollInterval <= 0:
		return fmt.Errorf("poll interval must be positive")
	case len(c.Groups) == 0:
		return fmt.Errorf("at least one group is required")
	}
	for _, g := range c.Groups {
		if !isKnownGroup(g) {
			return fmt.Errorf("unknown group: %s", g)
		}
	}
	return nil
}

func isKnownGroup(name string) bool {
	for _, g := range DefaultGroups {
		if g == name {
			return true
		}
	}
	return false
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
