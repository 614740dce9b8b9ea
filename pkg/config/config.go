package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort         string
	Environment        string
	DevMode            bool
	FirebaseProject    string
	ServiceAccountJSON string
	ServiceAccountPath string
	StorageBucket      string
	ConversationID     string
	UserID             string
	TypingIdle         time.Duration
	TypingTTL          time.Duration
	MaxUploadBytes     int64
	SendRatePerMinute  int
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		FirebaseProject:    getEnv("FIREBASE_PROJECT_ID", ""),
		ServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		ServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		StorageBucket:      getEnv("STORAGE_BUCKET", ""),
		ConversationID:     getEnv("CONVERSATION_ID", "global"),
		UserID:             getEnv("CHAT_USER_ID", ""),
		TypingIdle:         time.Duration(getEnvAsInt64("TYPING_IDLE_MS", 3000)) * time.Millisecond,
		TypingTTL:          time.Duration(getEnvAsInt64("TYPING_TTL_MS", 5000)) * time.Millisecond,
		MaxUploadBytes:     getEnvAsInt64("MAX_UPLOAD_BYTES", 25*1024*1024),
		SendRatePerMinute:  int(getEnvAsInt64("SEND_RATE_PER_MINUTE", 30)),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		boolValue, err := strconv.ParseBool(strings.TrimSpace(value))
		if err == nil {
			return boolValue
		}
	}
	return defaultValue
}
