package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	GinMode        string
	MongoURI       string
	MongoDatabase  string
	RabbitMQURI    string
	RabbitExchange string
	RedisAddr      string
	RedisPassword  string
	JudgeAPIKey    string
	JudgeBaseURL   string
	JudgeModel     string
	JWTSecret      string
	LogDir         string
	ConsulAddress  string
	ServiceName    string
	ServiceID      string
	ServiceAddress string
}

var AppConfig *Config

func LoadConfig() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = &Config{
		Port:           getEnvOrDefault("PORT", "6668"),
		GinMode:        getEnvOrDefault("GIN_MODE", "debug"),
		MongoURI:       getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:  getEnvOrDefault("MONGO_DATABASE", "learning_service"),
		RabbitMQURI:    os.Getenv("RABBITMQ_URI"),
		RabbitExchange: getEnvOrDefault("RABBITMQ_EXCHANGE", "learning.events"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PWD"),
		JudgeAPIKey:    getEnvOrDefault("JUDGE_API_KEY", ""),
		JudgeBaseURL:   getEnvOrDefault("JUDGE_BASE_URL", "http://localhost:11434/v1"),
		JudgeModel:     getEnvOrDefault("JUDGE_MODEL", "qwen3:1.7b"),
		JWTSecret:      getEnvOrDefault("JWT_SECRET", "your-jwt-secret-key"),
		LogDir:         os.Getenv("LOG_DIR"),
		ConsulAddress:  os.Getenv("CONSUL_ADDR"),
		ServiceName:    getEnvOrDefault("SERVICE_NAME", "learning-service"),
		ServiceID:      getEnvOrDefault("SERVICE_ID", "learning-service-1"),
		ServiceAddress: getEnvOrDefault("SERVICE_ADDRESS", "localhost"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
