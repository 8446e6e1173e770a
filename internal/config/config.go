package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Upstream is the host backend every proxied request is forwarded to.
	UpstreamBaseURL string
	// SubscriptionKey is the fixed API-gateway key attached to our own
	// availability requests, alongside the captured session credentials.
	SubscriptionKey string

	// PolicyFile optionally overrides the built-in club policy table.
	PolicyFile string

	// CORSAllowedOrigins lists origins the control plane accepts; the host
	// application's origin must be here for the in-page companion to call us.
	CORSAllowedOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	WeatherLatitude  float64
	WeatherLongitude float64
	WeatherTimezone  string
	WeatherEnabled   bool

	// Booking-flow monitor timing. The fast poll runs while the flow is
	// active, the bootstrap poll while it is not; reconcile passes coalesce
	// within the reconcile window.
	FlowFastPoll    time.Duration
	FlowSlowPoll    time.Duration
	ReconcileWindow time.Duration

	// BookingWindowDays is how far ahead the host allows reservations.
	BookingWindowDays int

	FetchTimeout time.Duration
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8787"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		UpstreamBaseURL: getEnv("UPSTREAM_BASE_URL", "https://connect-api.bayclubs.io"),
		SubscriptionKey: getEnv("SUBSCRIPTION_KEY", ""),

		PolicyFile: getEnv("POLICY_FILE", ""),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"https://connect.bayclubs.com"}),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		WeatherLatitude:  getEnvAsFloat("WEATHER_LATITUDE", 37.5),
		WeatherLongitude: getEnvAsFloat("WEATHER_LONGITUDE", -122.1),
		WeatherTimezone:  getEnv("WEATHER_TZ", "America/Los_Angeles"),
		WeatherEnabled:   getEnvAsBool("WEATHER_ENABLED", true),

		FlowFastPoll:    getEnvAsDuration("FLOW_FAST_POLL", 200*time.Millisecond),
		FlowSlowPoll:    getEnvAsDuration("FLOW_SLOW_POLL", time.Second),
		ReconcileWindow: getEnvAsDuration("FLOW_RECONCILE_WINDOW", 16*time.Millisecond),

		BookingWindowDays: getEnvAsInt("BOOKING_WINDOW_DAYS", 3),

		FetchTimeout: getEnvAsDuration("FETCH_TIMEOUT", 20*time.Second),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsSlice retrieves a comma-separated environment variable
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
