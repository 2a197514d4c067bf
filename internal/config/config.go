package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Toss     TossConfig
	Admin    AdminConfig
	Features FeatureFlags
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

func (d DatabaseConfig) ConnectionString() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

type KafkaConfig struct {
	Brokers     []string
	OrdersTopic string
}

// TossConfig holds the payment gateway endpoint, credentials and resilience
// policy. SecretKey is the server-held secret used to build the Basic auth
// header; it is never exposed to callers of this service.
type TossConfig struct {
	BaseURL        string
	SecretKey      string
	AttemptTimeout time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// AdminConfig points at the role service that answers admin checks for
// cancel operations.
type AdminConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type FeatureFlags struct {
	EnableOrderCaching bool
	EnableOrderEvents  bool
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  time.Duration(getEnvInt("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT", 30)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:         getEnvString("DB_HOST", "localhost"),
			Port:         getEnvInt("DB_PORT", 5432),
			User:         getEnvString("DB_USER", "storefront"),
			Password:     getEnvString("DB_PASSWORD", "storefront"),
			Name:         getEnvString("DB_NAME", "storefront_orders"),
			SSLMode:      getEnvString("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Redis: RedisConfig{
			Host:     getEnvString("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvInt("REDIS_TTL", 300)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:     []string{getEnvString("KAFKA_BROKER", "localhost:9092")},
			OrdersTopic: getEnvString("KAFKA_ORDERS_TOPIC", "storefront.orders"),
		},
		Toss: TossConfig{
			BaseURL:        getEnvString("TOSS_BASE_URL", "https://api.tosspayments.com"),
			SecretKey:      getEnvString("TOSS_SECRET_KEY", ""),
			AttemptTimeout: time.Duration(getEnvInt("TOSS_ATTEMPT_TIMEOUT", 30)) * time.Second,
			MaxAttempts:    getEnvInt("TOSS_MAX_ATTEMPTS", 3),
			RetryBaseDelay: time.Duration(getEnvInt("TOSS_RETRY_BASE_DELAY_MS", 1000)) * time.Millisecond,
			RetryMaxDelay:  time.Duration(getEnvInt("TOSS_RETRY_MAX_DELAY_MS", 10000)) * time.Millisecond,
		},
		Admin: AdminConfig{
			BaseURL: getEnvString("ADMIN_SERVICE_URL", "http://localhost:8081"),
			APIKey:  getEnvString("ADMIN_SERVICE_API_KEY", ""),
			Timeout: time.Duration(getEnvInt("ADMIN_SERVICE_TIMEOUT", 5)) * time.Second,
		},
		Features: FeatureFlags{
			EnableOrderCaching: getEnvBool("FEATURE_ORDER_CACHING", true),
			EnableOrderEvents:  getEnvBool("FEATURE_ORDER_EVENTS", true),
		},
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
