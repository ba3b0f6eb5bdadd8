package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// lookup returns the trimmed value of key; blank values count as unset.
func lookup(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func getEnv(key, defaultVal string) string {
	if value, ok := lookup(key); ok {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value, ok := lookup(key); ok {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value, ok := lookup(key); ok {
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return defaultVal
}

// getEnvAsDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	value, ok := lookup(key)
	if !ok {
		return defaultVal
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

func getEnvAsStringSlice(key string, defaults []string) []string {
	value, ok := lookup(key)
	if !ok {
		return defaults
	}
	parts := strings.Split(value, ",")
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == 0 {
		return defaults
	}
	return filtered
}

// ForService tags the observability service name with the executable it
// belongs to, e.g. byteristo-order-management.
func (c Config) ForService(name string) Config {
	if name == "" || strings.HasSuffix(c.Observability.ServiceName, "-"+name) {
		return c
	}
	c.Observability.ServiceName = c.Observability.ServiceName + "-" + name
	return c
}
