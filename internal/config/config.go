package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName       string
	AppVersion    string
	Environment   string
	AuthJWTSecret string
	HTTPAddr      string
	NodeID        int64

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Email     EmailConfig
	WhatsApp  WhatsAppConfig
	Slack     SlackConfig
	OrderSQS  SQSConfig
	Scheduler SchedulerConfig
	Metrics   MetricsPushConfig
	RateLimit RateLimitConfig
}

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type WhatsAppConfig struct {
	Enabled  bool
	Endpoint string
	Secret   string
	Account  string
	Timeout  time.Duration
}

type SlackConfig struct {
	WebhookURL string
	Channel    string
}

type SQSConfig struct {
	Enabled   bool
	Region    string
	QueueURL  string
	AccessKey string
	SecretKey string
}

type SchedulerConfig struct {
	DispatchInterval time.Duration
	DailySpec        string
	RunOnce          bool
}

// RateLimitConfig throttles the unauthenticated calculator routes per client IP.
type RateLimitConfig struct {
	Enabled     bool
	PublicRate  float64
	PublicBurst int
}

type MetricsPushConfig struct {
	Enabled   bool
	Exporter  string
	Endpoint  string
	AuthToken string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:       getenv("APP_SERVICE", "cicilan"),
		AppVersion:    getenv("APP_VERSION", "0.1.0"),
		Environment:   getenv("ENVIRONMENT", "development"),
		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		NodeID:        int64(getenvInt("SNOWFLAKE_NODE_ID", 1)),
		OTLPEndpoint:  getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "cicilan"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		Email: EmailConfig{
			Host:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			Port:     getenvInt("SMTP_PORT", 587),
			Username: getenv("SMTP_USERNAME", ""),
			Password: getenv("SMTP_PASSWORD", ""),
			From:     getenv("SMTP_FROM", "no-reply@cicilan.local"),
			FromName: getenv("SMTP_FROM_NAME", "Cicilan"),
		},
		WhatsApp: WhatsAppConfig{
			Enabled:  getenvBool("WHATSAPP_ENABLED", false),
			Endpoint: strings.TrimSpace(getenv("WHATSAPP_API_URL", "")),
			Secret:   strings.TrimSpace(getenv("WHATSAPP_API_SECRET", "")),
			Account:  strings.TrimSpace(getenv("WHATSAPP_ACCOUNT", "")),
			Timeout:  getenvDuration("WHATSAPP_TIMEOUT", 30*time.Second),
		},
		Slack: SlackConfig{
			WebhookURL: strings.TrimSpace(getenv("SLACK_WEBHOOK_URL", "")),
			Channel:    getenv("SLACK_CHANNEL", ""),
		},
		OrderSQS: SQSConfig{
			Enabled:   getenvBool("ORDER_SQS_ENABLED", false),
			Region:    getenv("AWS_REGION", "us-east-1"),
			QueueURL:  strings.TrimSpace(getenv("ORDER_SQS_QUEUE_URL", "")),
			AccessKey: strings.TrimSpace(getenv("AWS_ACCESS_KEY_ID", "")),
			SecretKey: strings.TrimSpace(getenv("AWS_SECRET_ACCESS_KEY", "")),
		},
		Scheduler: SchedulerConfig{
			DispatchInterval: getenvDuration("SCHEDULER_DISPATCH_INTERVAL", time.Minute),
			DailySpec:        getenv("SCHEDULER_DAILY_SPEC", "0 6 * * *"),
			RunOnce:          getenvBool("SCHEDULER_RUN_ONCE", false),
		},
		Metrics: MetricsPushConfig{
			Enabled:   getenvBool("METRICS_PUSH_ENABLED", false),
			Exporter:  strings.ToLower(getenv("METRICS_PUSH_EXPORTER", "")),
			Endpoint:  strings.TrimSpace(getenv("METRICS_PUSH_ENDPOINT", "")),
			AuthToken: strings.TrimSpace(getenv("METRICS_PUSH_AUTH_TOKEN", "")),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getenvBool("RATE_LIMIT_ENABLED", false),
			PublicRate:  getenvFloat("RATE_LIMIT_PUBLIC_RATE", 5),
			PublicBurst: getenvInt("RATE_LIMIT_PUBLIC_BURST", 20),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
