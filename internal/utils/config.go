package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServerPort  string
	JWTSecret   string
	CORSOrigins []string
	Mongo       MongoConfig
	Logging     LoggingConfig
	Providers   ProvidersConfig
	Chat        ChatConfig
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

type LoggingConfig struct {
	Level        string
	Encoding     string
	Development  bool
	EnableCaller bool
	ServiceName  string
}

// PrimaryProviderConfig points at an OpenAI-compatible chat completion API.
type PrimaryProviderConfig struct {
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
	Retries  int
}

// SecondaryProviderConfig points at a Gemini-style generateContent API.
// Keys are tried in order when the provider rejects a credential.
type SecondaryProviderConfig struct {
	Endpoint      string
	Model         string
	APIKeys       []string
	Timeout       time.Duration
	RetriesPerKey int
}

type ProvidersConfig struct {
	Order     []string
	Primary   PrimaryProviderConfig
	Secondary SecondaryProviderConfig
}

type ChatConfig struct {
	CacheWindow         time.Duration
	SimilarityThreshold float64
	PreCallDelay        time.Duration
	RetryDelay          time.Duration
}

func LoadConfig() (*Config, error) {
	logging := LoggingConfig{
		Level:        strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
		Encoding:     strings.ToLower(envOrDefault("LOG_ENCODING", "console")),
		Development:  parseBool(envOrDefault("LOG_DEVELOPMENT", "false"), false),
		EnableCaller: parseBool(envOrDefault("LOG_CALLER", "false"), false),
		ServiceName:  envOrDefault("SERVICE_NAME", "govivu-server"),
	}

	cfg := &Config{
		ServerPort:  envOrDefault("PORT", "8080"),
		JWTSecret:   envOrDefault("JWT_SECRET", "dev-secret"),
		CORSOrigins: parseList(envOrDefault("CORS_ORIGINS", "http://localhost:5173")),
		Mongo: MongoConfig{
			URI:            envOrDefault("MONGO_URI", "mongodb://localhost:27017"),
			Database:       envOrDefault("MONGO_DATABASE", "govivu"),
			ConnectTimeout: parseDuration(envOrDefault("MONGO_CONNECT_TIMEOUT", "5s"), 5*time.Second),
		},
		Logging: logging,
		Providers: ProvidersConfig{
			Order: parseList(envOrDefault("CHAT_PROVIDER_ORDER", "primary,secondary")),
			Primary: PrimaryProviderConfig{
				Endpoint: envOrDefault("PRIMARY_AI_ENDPOINT", "https://api.openai.com/v1"),
				Model:    envOrDefault("PRIMARY_AI_MODEL", "gpt-4o-mini"),
				APIKey:   strings.TrimSpace(os.Getenv("PRIMARY_AI_KEY")),
				Timeout:  parseDuration(envOrDefault("PRIMARY_AI_TIMEOUT", "25s"), 25*time.Second),
				Retries:  parseInt(envOrDefault("PRIMARY_AI_RETRIES", "3"), 3),
			},
			Secondary: SecondaryProviderConfig{
				Endpoint:      envOrDefault("SECONDARY_AI_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta"),
				Model:         envOrDefault("SECONDARY_AI_MODEL", "gemini-2.0-flash"),
				APIKeys:       parseList(os.Getenv("SECONDARY_AI_KEYS")),
				Timeout:       parseDuration(envOrDefault("SECONDARY_AI_TIMEOUT", "30s"), 30*time.Second),
				RetriesPerKey: parseInt(envOrDefault("SECONDARY_AI_RETRIES_PER_KEY", "2"), 2),
			},
		},
		Chat: ChatConfig{
			CacheWindow:         parseDuration(envOrDefault("CHAT_CACHE_WINDOW", "360h"), 360*time.Hour),
			SimilarityThreshold: parseFloat(envOrDefault("CHAT_CACHE_THRESHOLD", "0.85"), 0.85),
			PreCallDelay:        parseDuration(envOrDefault("CHAT_PRE_CALL_DELAY", "500ms"), 500*time.Millisecond),
			RetryDelay:          parseDuration(envOrDefault("CHAT_RETRY_DELAY", "2s"), 2*time.Second),
		},
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(value string, fallback int) int {
	i, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return i
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseBool(value string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}

func parseList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}
