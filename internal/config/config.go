package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Postgres    PostgresConfig
	Redis       RedisConfig
	Gateway     GatewayConfig
	Reservation ReservationConfig
	RabbitMQ    RabbitMQConfig
	RateLimit   RateLimitConfig
	AdminToken  string
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
	MaxConns int32
}

type GatewayConfig struct {
	BaseURL      string
	KeyID        string
	KeySecret    string
	Currency     string
	Timeout      time.Duration
	VerifyAmount bool
}

type ReservationConfig struct {
	Lease         time.Duration
	SweepInterval time.Duration
	PoolSize      int
}

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverPort, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	serverCfg := ServerConfig{
		Host: stringEnv("SERVER_HOST", "localhost"),
		Port: serverPort,
	}

	postgresPort, err := intEnv("POSTGRES_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresMaxConns, err := intEnv("POSTGRES_MAX_CONNS", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresUser := os.Getenv("POSTGRES_USER")
	if postgresUser == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
	}

	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	if postgresPassword == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
	}

	postgresDB := os.Getenv("POSTGRES_DB")
	if postgresDB == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
	}

	postgresCfg := PostgresConfig{
		User:     postgresUser,
		Password: postgresPassword,
		Name:     postgresDB,
		Host:     stringEnv("POSTGRES_HOST", "localhost"),
		Port:     postgresPort,
		SSLMode:  stringEnv("POSTGRES_SSLMODE", "disable"),
		MaxConns: int32(postgresMaxConns),
	}

	redisDB, err := intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisCfg := RedisConfig{
		Addr:     stringEnv("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	}

	keyID := os.Getenv("GATEWAY_KEY_ID")
	if keyID == "" {
		return nil, fmt.Errorf("%s: missing GATEWAY_KEY_ID", op)
	}

	keySecret := os.Getenv("GATEWAY_KEY_SECRET")
	if keySecret == "" {
		return nil, fmt.Errorf("%s: missing GATEWAY_KEY_SECRET", op)
	}

	gatewayTimeout, err := durationEnv("GATEWAY_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	verifyAmount, err := boolEnv("GATEWAY_VERIFY_AMOUNT", true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	gatewayCfg := GatewayConfig{
		BaseURL:      stringEnv("GATEWAY_BASE_URL", "https://api.razorpay.com"),
		KeyID:        keyID,
		KeySecret:    keySecret,
		Currency:     stringEnv("GATEWAY_CURRENCY", "INR"),
		Timeout:      gatewayTimeout,
		VerifyAmount: verifyAmount,
	}

	lease, err := durationEnv("RESERVATION_LEASE", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sweepInterval, err := durationEnv("SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	poolSize, err := intEnv("SLOT_POOL_SIZE", 250)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if lease <= 0 || sweepInterval <= 0 || poolSize <= 0 {
		return nil, fmt.Errorf("%s: RESERVATION_LEASE, SWEEP_INTERVAL and SLOT_POOL_SIZE must be positive", op)
	}

	rlLimit, err := intEnv("RATE_LIMIT", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rlWindow, err := durationEnv("RATE_LIMIT_WINDOW", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Config{
		Server:   serverCfg,
		Postgres: postgresCfg,
		Redis:    redisCfg,
		Gateway:  gatewayCfg,
		Reservation: ReservationConfig{
			Lease:         lease,
			SweepInterval: sweepInterval,
			PoolSize:      poolSize,
		},
		RabbitMQ: RabbitMQConfig{
			URL:      os.Getenv("RABBITMQ_URL"),
			Exchange: stringEnv("RABBITMQ_EXCHANGE", "slotsale.events"),
		},
		RateLimit: RateLimitConfig{
			Limit:  rlLimit,
			Window: rlWindow,
		},
		AdminToken: os.Getenv("ADMIN_TOKEN"),
	}, nil
}

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return v, nil
}

func boolEnv(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}

	return v, nil
}
