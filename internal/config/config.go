package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds run configuration merged from flags, env, and config file.
type Config struct {
	EventsPath string
	PGDSN      string
	Snapshot   string
	RPCURLs    []string
	LogLevel   string

	viper *viper.Viper
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("POOLSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("events", "./data/events.jsonl")
	v.SetDefault("snapshot", "./data/snapshot.jsonl")
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
		EventsPath: v.GetString("events"),
		PGDSN:      v.GetString("pg-dsn"),
		Snapshot:   v.GetString("snapshot"),
		RPCURLs:    getStringSlice(v, "rpc"),
		LogLevel:   v.GetString("log-level"),
		viper:      v,
	}

	return cfg, nil
}

// Viper exposes the merged tree so the chain configuration can load from the
// same file.
func (c Config) Viper() *viper.Viper {
	return c.viper
}

// ParseRPCURLs turns "chainid=url" pairs into a lookup map.
func ParseRPCURLs(pairs []string) (map[uint64]string, error) {
	urls := make(map[uint64]string, len(pairs))
	for _, pair := range pairs {
		id, url, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("rpc entry %q: want chainid=url", pair)
		}
		chainID, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("rpc entry %q: %w", pair, err)
		}
		url = strings.TrimSpace(url)
		if url == "" {
			return nil, fmt.Errorf("rpc entry %q: empty url", pair)
		}
		urls[chainID] = url
	}
	return urls, nil
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
