package config

import (
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

var (
	mu    sync.RWMutex
	store = newViper()
)

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	return v
}

// ReadFile merges a YAML, TOML or JSON config file into the lookup chain.
// Environment variables keep precedence over file values.
func ReadFile(path string) error {
	mu.Lock()
	defer mu.Unlock()
	store.SetConfigFile(path)
	return store.ReadInConfig()
}

func lookup(key string) (string, bool) {
	mu.RLock()
	defer mu.RUnlock()
	if !store.IsSet(key) {
		return "", false
	}
	return strings.TrimSpace(store.GetString(key)), true
}

// GetString retrieves a setting or returns a fallback when unset.
func GetString(key, fallback string) string {
	if value, ok := lookup(key); ok {
		return value
	}
	return fallback
}

// GetInt retrieves a setting as integer or returns fallback.
func GetInt(key string, fallback int) int {
	if value, ok := lookup(key); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			log.Printf("invalid value for %s: %v", key, err)
			return fallback
		}
		return parsed
	}
	return fallback
}

// GetBool retrieves a setting as bool or returns fallback.
func GetBool(key string, fallback bool) bool {
	if value, ok := lookup(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			log.Printf("invalid value for %s: %v", key, err)
			return fallback
		}
		return parsed
	}
	return fallback
}
