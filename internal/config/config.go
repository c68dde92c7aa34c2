package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kewsys/registry/internal/types"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Auth       AuthConfig       `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Cache      CacheConfig      `mapstructure:"cache"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	S3         S3Config         `mapstructure:"s3"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
	Pyroscope  PyroscopeConfig  `mapstructure:"pyroscope"`
	RBAC       RBACConfig       `mapstructure:"rbac"`
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
}

type AuthConfig struct {
	Secret   string        `mapstructure:"secret" validate:"required"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
	// LoginRate is the sustained login attempts per second allowed per client IP
	LoginRate  float64 `mapstructure:"login_rate"`
	LoginBurst int     `mapstructure:"login_burst"`
	// UserCacheTTL bounds how long a deactivated user may keep using a token
	UserCacheTTL time.Duration `mapstructure:"user_cache_ttl"`
}

type PostgresConfig struct {
	Host                   string `mapstructure:"host" validate:"required"`
	Port                   int    `mapstructure:"port" validate:"required"`
	User                   string `mapstructure:"user" validate:"required"`
	Password               string `mapstructure:"password"`
	DBName                 string `mapstructure:"dbname" validate:"required"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
	// ConnectTimeout bounds the startup retry loop
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required"`
}

type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	StatsTTL time.Duration `mapstructure:"stats_ttl"`
}

type PubSubConfig struct {
	Driver      types.PubSubDriver `mapstructure:"driver"`
	AuditTopic  string             `mapstructure:"audit_topic"`
	NotifyTopic string             `mapstructure:"notify_topic"`
}

type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
	TLS           bool     `mapstructure:"tls"`
	UseSASL       bool     `mapstructure:"use_sasl"`
	SASLMechanism string   `mapstructure:"sasl_mechanism"`
	SASLUser      string   `mapstructure:"sasl_user"`
	SASLPassword  string   `mapstructure:"sasl_password"`
	ClientID      string   `mapstructure:"client_id"`
}

type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type NotifyConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	// WebhookEvents limits forwarding to these events, empty forwards alerts only
	WebhookEvents     []string      `mapstructure:"webhook_events"`
	WebhookMaxRetries int           `mapstructure:"webhook_max_retries"`
	WebhookTimeout    time.Duration `mapstructure:"webhook_timeout"`
}

type S3Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	Region        string        `mapstructure:"region"`
	Bucket        string        `mapstructure:"bucket"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type PyroscopeConfig struct {
	Enabled         bool              `mapstructure:"enabled"`
	ServerAddress   string            `mapstructure:"server_address"`
	ApplicationName string            `mapstructure:"application_name"`
	BasicAuthUser   string            `mapstructure:"basic_auth_user"`
	BasicAuthPass   string            `mapstructure:"basic_auth_password"`
	SampleRate      uint32            `mapstructure:"sample_rate"`
	ProfileTypes    []string          `mapstructure:"profile_types"`
	Tags            map[string]string `mapstructure:"tags"`
}

type RBACConfig struct {
	// RolesConfigPath points at an optional JSON file overriding entity allow-lists
	RolesConfigPath string `mapstructure:"roles_config_path"`
}

func NewConfig() (*Configuration, error) {
	// .env is optional, real environment variables still win
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/kew")

	v.SetEnvPrefix("KEW")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", types.ModeLocal)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.login_rate", 1.0)
	v.SetDefault("auth.login_burst", 5)
	v.SetDefault("auth.user_cache_ttl", 30*time.Second)
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 20)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime_minutes", 30)
	v.SetDefault("postgres.connect_timeout", time.Minute)
	v.SetDefault("logging.level", types.LogLevelInfo)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.stats_ttl", time.Minute)
	v.SetDefault("pubsub.driver", types.PubSubDriverMemory)
	v.SetDefault("pubsub.audit_topic", "audit_logs")
	v.SetDefault("pubsub.notify_topic", "registry_events")
	v.SetDefault("audit.enabled", true)
	v.SetDefault("notify.enabled", true)
	v.SetDefault("notify.webhook_max_retries", 3)
	v.SetDefault("notify.webhook_timeout", 10*time.Second)
	v.SetDefault("s3.presign_expiry", 15*time.Minute)
	v.SetDefault("s3.key_prefix", "reports")
	v.SetDefault("sentry.sample_rate", 1.0)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Cache:      CacheConfig{Enabled: true, StatsTTL: time.Minute},
		PubSub: PubSubConfig{
			Driver:      types.PubSubDriverMemory,
			AuditTopic:  "audit_logs",
			NotifyTopic: "registry_events",
		},
		Audit:  AuditConfig{Enabled: true},
		Notify: NotifyConfig{Enabled: true},
		Auth: AuthConfig{
			Secret:       "local-development-secret",
			TokenTTL:     24 * time.Hour,
			LoginRate:    1,
			LoginBurst:   5,
			UserCacheTTL: 30 * time.Second,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
