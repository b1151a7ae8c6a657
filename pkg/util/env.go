package util

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// LoadEnv loads the .env file for the given environment.
// ".env.development" is tried first, then a plain ".env".
func LoadEnv(env string) error {
	candidates := []string{fmt.Sprintf(".env.%s", env), ".env"}
	for _, name := range candidates {
		if _, err := os.Stat(name); err == nil {
			return godotenv.Load(name)
		}
	}
	return fmt.Errorf("no .env file found for environment %q", env)
}

// GetEnv returns the value of the environment variable, or "" if unset.
func GetEnv(key string) string {
	return os.Getenv(key)
}

// GetEnvDefault returns the value of the environment variable, or def if unset.
func GetEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// GetIntEnv returns the environment variable parsed as int64, 0 on failure.
func GetIntEnv(key string) int64 {
	return cast.ToInt64(os.Getenv(key))
}

// GetBoolEnv returns the environment variable parsed as bool, false on failure.
func GetBoolEnv(key string) bool {
	return cast.ToBool(os.Getenv(key))
}
