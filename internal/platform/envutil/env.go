package envutil

import (
	"os"
	"strconv"
	"strings"

	"github.com/yungbote/umls-graph-syncer/internal/platform/logger"
)

func GetEnv(key, defaultVal string, log *logger.Logger) string {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		if log != nil {
			log.Debug("env var not set, using default", "env_var", key, "default", defaultVal)
		}
		return defaultVal
	}
	return strings.TrimSpace(val)
}

func GetEnvAsInt(key string, defaultVal int, log *logger.Logger) int {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		if log != nil {
			log.Debug("env var not set, using default", "env_var", key, "default", defaultVal)
		}
		return defaultVal
	}
	i, err := strconv.Atoi(strings.TrimSpace(valStr))
	if err != nil {
		if log != nil {
			log.Debug("env var is not an int, using default", "env_var", key, "value", valStr, "default", defaultVal, "error", err)
		}
		return defaultVal
	}
	return i
}

func GetEnvAsBool(key string, defaultVal bool, log *logger.Logger) bool {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	b, err := strconv.ParseBool(strings.TrimSpace(valStr))
	if err != nil {
		if log != nil {
			log.Debug("env var is not a bool, using default", "env_var", key, "value", valStr, "default", defaultVal, "error", err)
		}
		return defaultVal
	}
	return b
}

// GetEnvAsSlice splits a comma-separated env var, trimming whitespace and
// dropping empty entries. Returns a copy of defaultVal when unset.
func GetEnvAsSlice(key string, defaultVal []string, log *logger.Logger) []string {
	valStr, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(valStr) == "" {
		if log != nil {
			log.Debug("env var not set, using default", "env_var", key, "default", defaultVal)
		}
		return append([]string(nil), defaultVal...)
	}
	parts := strings.Split(valStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
