package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "POOLCTL"

// ReplayConfig holds configuration for replaying a request log.
type ReplayConfig struct {
	Input          string
	Receipts       string
	Errors         string
	StateFile      string
	PGDSN          string
	CheckpointName string
	RPCURL         string
	TokenDecimals  map[string]uint8
	BatchSize      int
	MetricsOut     string
	MaxRetries     int
	RetryBackoff   time.Duration
	LogLevel       string
}

// LoadReplay merges config file, environment variables, and flags into
// ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"out":             "./data/receipts.jsonl",
		"errors":          "./data/errors.jsonl",
		"checkpoint-name": "replay",
		"batch-size":      100,
		"max-retries":     3,
		"retry-backoff":   500 * time.Millisecond,
		"log-level":       "info",
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	decimals, err := ParseTokenDecimals(getStringSlice(v, "token-decimals"))
	if err != nil {
		return ReplayConfig{}, err
	}

	cfg := ReplayConfig{
		Input:          v.GetString("in"),
		Receipts:       v.GetString("out"),
		Errors:         v.GetString("errors"),
		StateFile:      v.GetString("state-file"),
		PGDSN:          v.GetString("pg-dsn"),
		CheckpointName: v.GetString("checkpoint-name"),
		RPCURL:         v.GetString("rpc"),
		TokenDecimals:  decimals,
		BatchSize:      v.GetInt("batch-size"),
		MetricsOut:     v.GetString("metrics-out"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		LogLevel:       v.GetString("log-level"),
	}
	return cfg, nil
}

// Validate checks option combinations that flags alone cannot express.
func (c ReplayConfig) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if c.PGDSN != "" && c.StateFile != "" {
		return fmt.Errorf("state-file and pg-dsn are mutually exclusive")
	}
	if c.RPCURL != "" && len(c.TokenDecimals) > 0 {
		return fmt.Errorf("rpc and token-decimals are mutually exclusive")
	}
	return nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]any) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

// ParseTokenDecimals parses token=decimals pairs.
func ParseTokenDecimals(items []string) (map[string]uint8, error) {
	if len(items) == 0 {
		return nil, nil
	}
	out := make(map[string]uint8, len(items))
	for _, item := range items {
		key, value, ok := strings.Cut(item, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("invalid token-decimals entry %q, want token=decimals", item)
		}
		d, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid decimals for %s: %w", key, err)
		}
		out[key] = uint8(d)
	}
	return out, nil
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
	return cleanStrings(strings.Split(input, ","))
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
