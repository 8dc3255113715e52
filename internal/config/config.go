// Package config loads runtime settings from the environment, an optional
// .env file and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// BrokerConfig holds what every process talking to the votes channel needs.
type BrokerConfig struct {
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisDB       int

	Channel string

	LogLevel  string
	LogFormat string
}

// Config is the HTTP server configuration.
type Config struct {
	BrokerConfig

	HTTPAddr       string
	PublishTimeout time.Duration

	CookieMaxAge int
	CookieSecure bool
}

// Load reads the .env file (if any) and parses the server flags on top of the environment.
func Load(name string, args []string) (*Config, error) {
	// A missing .env is fine, variables may come from the real environment.
	_ = godotenv.Load()

	broker, err := brokerFromEnv()
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		BrokerConfig: *broker,
		HTTPAddr:     getEnv("HTTP_ADDR", "0.0.0.0:8080"),
	}
	if cfg.CookieMaxAge, err = getEnvInt("COOKIE_MAX_AGE", 0); err != nil {
		return nil, err
	}
	if cfg.CookieSecure, err = getEnvBool("COOKIE_SECURE", false); err != nil {
		return nil, err
	}
	if cfg.PublishTimeout, err = getEnvDuration("PUBLISH_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cfg.BrokerConfig.registerFlags(fs)
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.DurationVar(&cfg.PublishTimeout, "publish-timeout", cfg.PublishTimeout, "Maximum time to wait for a publish")
	fs.IntVar(&cfg.CookieMaxAge, "cookie-max-age", cfg.CookieMaxAge, "vote_id cookie Max-Age in seconds, 0 for a session cookie")
	fs.BoolVar(&cfg.CookieSecure, "cookie-secure", cfg.CookieSecure, "Mark the vote_id cookie as Secure")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadBroker is Load for processes that only subscribe to the channel.
func LoadBroker(name string, args []string) (*BrokerConfig, error) {
	_ = godotenv.Load()

	cfg, err := brokerFromEnv()
	if err != nil {
		return nil, err
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cfg.registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func brokerFromEnv() (*BrokerConfig, error) {
	cfg := &BrokerConfig{
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: os.Getenv("REDIS_USERNAME"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		Channel:       getEnv("VOTE_CHANNEL", "votes"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *BrokerConfig) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.RedisHost, "redis-host", c.RedisHost, "Redis host")
	fs.StringVar(&c.RedisPort, "redis-port", c.RedisPort, "Redis port")
	fs.StringVar(&c.RedisUsername, "redis-username", c.RedisUsername, "Redis username")
	fs.StringVar(&c.RedisPassword, "redis-password", c.RedisPassword, "Redis password")
	fs.IntVar(&c.RedisDB, "redis-db", c.RedisDB, "Redis database number")
	fs.StringVar(&c.Channel, "channel", c.Channel, "Pub/sub channel votes are published to")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format (json, console)")
}

func (c *BrokerConfig) Validate() error {
	var errs []error
	if c.RedisHost == "" {
		errs = append(errs, errors.New("redis host is required"))
	}
	if _, err := strconv.Atoi(c.RedisPort); err != nil {
		errs = append(errs, fmt.Errorf("invalid redis port %q", c.RedisPort))
	}
	if c.RedisDB < 0 {
		errs = append(errs, errors.New("redis db must not be negative"))
	}
	if c.Channel == "" {
		errs = append(errs, errors.New("vote channel is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) Validate() error {
	errs := []error{c.BrokerConfig.Validate()}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http address is required"))
	}
	if c.PublishTimeout <= 0 {
		errs = append(errs, errors.New("publish timeout must be positive"))
	}
	if c.CookieMaxAge < 0 {
		errs = append(errs, errors.New("cookie max age must not be negative"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
