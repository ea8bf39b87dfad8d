package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/infrastructure/kafka"
	"gopkg.in/yaml.v3"
)

const minSecretLength = 32

var (
	ErrMissingBackend  = errors.New("BACKEND_URL is required")
	ErrShortSecret     = fmt.Errorf("JWT_SECRET must be at least %d characters long", minSecretLength)
	ErrShortSessionKey = fmt.Errorf("SESSION_KEY must be at least %d characters long", minSecretLength)
	ErrAdminRedirect   = errors.New("login and customer home paths must not be admin pages")
)

// Config holds the storefront settings. Values come from the optional YAML
// file named by STOREFRONT_CONFIG; environment variables take precedence.
type Config struct {
	ListenAddr     string        `yaml:"listen_addr"`
	BackendURL     string        `yaml:"backend_url"`
	BackendTimeout time.Duration `yaml:"backend_timeout"`
	WebDir         string        `yaml:"web_dir"`

	SessionTTL time.Duration `yaml:"session_ttl"`
	SessionKey string        `yaml:"session_key"`
	JWTSecret  string        `yaml:"jwt_secret"`
	RedisURL   string        `yaml:"redis_url"`

	ResetAttempts int           `yaml:"reset_attempts"`
	ResetWindow   time.Duration `yaml:"reset_window"`

	DatabaseURL  string   `yaml:"database_url"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
	KafkaGroup   string   `yaml:"kafka_group"`

	CartIdleTTL time.Duration `yaml:"cart_idle_ttl"`

	LoginPath        string `yaml:"login_path"`
	DashboardPath    string `yaml:"dashboard_path"`
	CustomerHomePath string `yaml:"customer_home_path"`

	SMTPHost string `yaml:"smtp_host"`
	SMTPPort string `yaml:"smtp_port"`
	SMTPFrom string `yaml:"smtp_from"`
}

// Default returns the settings used when nothing is configured
func Default() Config {
	p := auth.DefaultPolicy()
	return Config{
		ListenAddr:       ":3000",
		BackendURL:       "http://localhost:5024/api",
		BackendTimeout:   10 * time.Second,
		WebDir:           "./web",
		SessionTTL:       auth.DefaultSessionTTL,
		ResetAttempts:    auth.DefaultResetLimit.Attempts,
		ResetWindow:      auth.DefaultResetLimit.Window,
		KafkaTopic:       "storefront-events",
		KafkaGroup:       "storefront-notifier",
		CartIdleTTL:      30 * time.Minute,
		LoginPath:        p.LoginPath,
		DashboardPath:    p.DashboardPath,
		CustomerHomePath: p.CustomerHomePath,
		SMTPHost:         "localhost",
		SMTPPort:         "1025",
		SMTPFrom:         "noreply@example.com",
	}
}

// Load builds the configuration from defaults, the YAML file and the environment
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("STOREFRONT_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.BackendURL = getEnv("BACKEND_URL", c.BackendURL)
	c.WebDir = getEnv("WEB_DIR", c.WebDir)
	c.SessionKey = getEnv("SESSION_KEY", c.SessionKey)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.KafkaTopic = getEnv("KAFKA_TOPIC", c.KafkaTopic)
	c.KafkaGroup = getEnv("KAFKA_GROUP", c.KafkaGroup)
	c.LoginPath = getEnv("LOGIN_PATH", c.LoginPath)
	c.DashboardPath = getEnv("DASHBOARD_PATH", c.DashboardPath)
	c.CustomerHomePath = getEnv("CUSTOMER_HOME_PATH", c.CustomerHomePath)
	c.SMTPHost = getEnv("SMTP_HOST", c.SMTPHost)
	c.SMTPPort = getEnv("SMTP_PORT", c.SMTPPort)
	c.SMTPFrom = getEnv("SMTP_FROM", c.SMTPFrom)

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		c.KafkaBrokers = kafka.ParseBrokers(brokers)
	}

	var err error
	if c.BackendTimeout, err = getDuration("BACKEND_TIMEOUT", c.BackendTimeout); err != nil {
		return err
	}
	if c.SessionTTL, err = getDuration("SESSION_TTL", c.SessionTTL); err != nil {
		return err
	}
	if c.CartIdleTTL, err = getDuration("CART_IDLE_TTL", c.CartIdleTTL); err != nil {
		return err
	}
	if c.ResetWindow, err = getDuration("RESET_WINDOW", c.ResetWindow); err != nil {
		return err
	}
	if c.ResetAttempts, err = getInt("RESET_ATTEMPTS", c.ResetAttempts); err != nil {
		return err
	}
	return nil
}

// Validate reports settings the storefront cannot start with
func (c Config) Validate() error {
	if strings.TrimSpace(c.BackendURL) == "" {
		return ErrMissingBackend
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < minSecretLength {
		return ErrShortSecret
	}
	if c.SessionKey != "" && len(c.SessionKey) < minSecretLength {
		return ErrShortSessionKey
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.ResetAttempts <= 0 || c.ResetWindow <= 0 {
		return errors.New("RESET_ATTEMPTS and RESET_WINDOW must be positive")
	}
	// the page guard serves its own redirect target unchecked
	for _, p := range []string{c.LoginPath, c.CustomerHomePath} {
		if auth.Classify(p) == auth.RouteAdmin {
			return fmt.Errorf("%w: %s", ErrAdminRedirect, p)
		}
	}
	return nil
}

// Policy is the page access policy built from the configured paths
func (c Config) Policy() auth.Policy {
	return auth.Policy{
		LoginPath:        c.LoginPath,
		DashboardPath:    c.DashboardPath,
		CustomerHomePath: c.CustomerHomePath,
	}
}

func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// ResetLimit is the password reset throttle
func (c Config) ResetLimit() auth.Limit {
	return auth.Limit{Attempts: c.ResetAttempts, Window: c.ResetWindow}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
