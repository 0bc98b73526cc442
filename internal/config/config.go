package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string
	LogLevel string

	DBDriver    string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTAccessSecret  []byte
	JWTRefreshSecret []byte
	JWTAccessTTL     time.Duration
	JWTRefreshTTL    time.Duration

	BcryptCost int

	KafkaBrokers []string
	KafkaTopic   string
}

func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	var errs []error
	intVar := func(key string, def int) int {
		n, err := EnvIntDefault(key, def)
		errs = append(errs, err)
		return n
	}
	durVar := func(key string, def time.Duration) time.Duration {
		d, err := EnvDurationDefault(key, def)
		errs = append(errs, err)
		return d
	}

	cfg := &Config{
		HTTPAddr: EnvDefault("HTTP_ADDR", ":8080"),
		LogLevel: EnvDefault("LOG_LEVEL", "info"),

		DBDriver:    EnvDefault("DB_DRIVER", "postgres"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		RedisAddr:     EnvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       intVar("REDIS_DB", 0),

		JWTAccessSecret:  []byte(os.Getenv("JWT_ACCESS_SECRET")),
		JWTRefreshSecret: []byte(os.Getenv("JWT_REFRESH_SECRET")),
		JWTAccessTTL:     durVar("JWT_ACCESS_TTL", 15*time.Minute),
		JWTRefreshTTL:    durVar("JWT_REFRESH_TTL", 7*24*time.Hour),

		BcryptCost: intVar("BCRYPT_COST", 10),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   EnvDefault("KAFKA_TOPIC", "user_events"),
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.JWTAccessSecret) == 0 {
		return errors.New("config: JWT_ACCESS_SECRET must be set")
	}
	if len(c.JWTRefreshSecret) == 0 {
		return errors.New("config: JWT_REFRESH_SECRET must be set")
	}
	if string(c.JWTAccessSecret) == string(c.JWTRefreshSecret) {
		return errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 {
		return errors.New("config: token TTLs must be positive")
	}
	if c.JWTRefreshTTL <= c.JWTAccessTTL {
		return errors.New("config: JWT_REFRESH_TTL must be longer than JWT_ACCESS_TTL")
	}
	switch c.DBDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set for postgres")
		}
	case "sqlite":
	default:
		return errors.New("config: DB_DRIVER must be postgres or sqlite")
	}
	return nil
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("config: %s=%q is not an integer", key, v)
	}
	return n, nil
}

// EnvDurationDefault accepts Go durations ("15m", "168h") or plain seconds.
func EnvDurationDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return def, fmt.Errorf("config: %s=%q is not a duration", key, v)
}
