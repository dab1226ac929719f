package env

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Load reads .env when present. A missing file is not an error; the process
// environment is used as is.
func Load() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("failed to load .env file: %v", err)
	}
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		logrus.Warnf("failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}

func GetEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logrus.Warnf("failed to parse %s as float, using default: %v", key, err)
		return defaultValue
	}
	return floatValue
}

func GetEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		logrus.Warnf("failed to parse %s as bool, using default: %v", key, err)
		return defaultValue
	}
	return boolValue
}

func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		logrus.Warnf("failed to parse %s as duration, using default: %v", key, err)
		return defaultValue
	}
	return d
}
