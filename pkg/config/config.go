package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// CommonConfig is the ambient configuration shared by every entry point.
type CommonConfig struct {
	HTTP     HTTPConfig
	Postgres PostgresConfig
	RabbitMQ RabbitMQConfig
}

type HTTPConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RabbitMQConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	VHost    string
}

// JWTConfig configures RS256 token verification (§6/§7). There is no
// signing key: the orchestrator only verifies tokens minted by the
// external auth service.
type JWTConfig struct {
	TokenIssuer    string
	TokenAudiences []string
}

// ServicesConfig holds the base URLs of external collaborators reached
// over plain HTTP (only the auth service's public-key endpoint today —
// Payment/Delivery/Warehouse are reached over the bus, not HTTP).
type ServicesConfig struct {
	AuthURL string
}

// OrchestratorConfig holds the environment variables specific to this
// service (§6 "Environment").
type OrchestratorConfig struct {
	WarehouseEventsBinding string
	AdminUserID            uint
	ServiceID              string
	ServiceName            string
	ServicePort            string
	AuthKeyCachePath       string
}

func LoadCommonConfig(serviceName string, port string) *CommonConfig {
	_ = godotenv.Load()

	return &CommonConfig{
		HTTP: HTTPConfig{
			Port:         GetEnv("HTTP_PORT", port),
			ReadTimeout:  GetEnvAsDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: GetEnvAsDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			Host:     GetEnv("POSTGRES_HOST", "localhost"),
			Port:     GetEnv("POSTGRES_PORT", "5432"),
			User:     GetEnv("POSTGRES_USER", "postgres"),
			Password: GetEnv("POSTGRES_PASSWORD", "postgres"),
			DBName:   GetEnv("POSTGRES_DB", serviceName),
			SSLMode:  GetEnv("POSTGRES_SSLMODE", "disable"),
		},
		RabbitMQ: RabbitMQConfig{
			Host:     GetEnv("RABBITMQ_HOST", "localhost"),
			Port:     GetEnv("RABBITMQ_PORT", "5672"),
			User:     GetEnv("RABBITMQ_USER", "guest"),
			Password: GetEnv("RABBITMQ_PASSWORD", "guest"),
			VHost:    GetEnv("RABBITMQ_VHOST", "/"),
		},
	}
}

func LoadJWTConfig(serviceName string) *JWTConfig {
	return &JWTConfig{
		TokenIssuer:    GetEnv("JWT_TOKEN_ISSUER", "auth-service"),
		TokenAudiences: strings.Split(GetEnv("JWT_TOKEN_AUDIENCES", "microservices"), ","),
	}
}

func LoadServicesConfig() *ServicesConfig {
	return &ServicesConfig{
		AuthURL: GetEnv("AUTH_SERVICE_URL", "http://localhost:8090"),
	}
}

func LoadOrchestratorConfig() *OrchestratorConfig {
	return &OrchestratorConfig{
		WarehouseEventsBinding: GetEnv("WAREHOUSE_EVENTS_BINDING", "warehouse.#"),
		AdminUserID:            uint(GetEnvAsInt("ADMIN_USER_ID", 1)),
		ServiceID:              GetEnv("SERVICE_ID", "order-orchestrator"),
		ServiceName:            GetEnv("SERVICE_NAME", "order-orchestrator"),
		ServicePort:            GetEnv("SERVICE_PORT", "8080"),
		AuthKeyCachePath:       GetEnv("AUTH_KEY_CACHE_PATH", "/var/lib/order-orchestrator/auth-key.pem"),
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := GetEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := GetEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
