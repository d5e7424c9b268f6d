package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Paddle   PaddleConfig   `mapstructure:"paddle"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
	// Mode is the gin mode: debug, release or test.
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
	// TxTimeout bounds a single unit of work (review write + aggregate recompute).
	TxTimeout time.Duration `mapstructure:"tx_timeout"`
}

// RedisConfig is optional. An empty URL disables webhook event de-duplication
// in Redis; Mongo unique indexes still guarantee idempotency.
type RedisConfig struct {
	URL      string        `mapstructure:"url"`
	EventTTL time.Duration `mapstructure:"event_ttl"`
}

// S3Config is optional. An empty bucket disables the content version archive.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration. Tokens are issued by the
// identity service; this API only verifies them.
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// PaddleConfig configures the merchant of record.
type PaddleConfig struct {
	APIKey        string `mapstructure:"api_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	// Environment is "sandbox" or "production".
	Environment     string        `mapstructure:"environment"`
	CheckoutTimeout time.Duration `mapstructure:"checkout_timeout"`
}

type LogConfig struct {
	// Mode is "dev" or "prod".
	Mode string `mapstructure:"mode"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS, paddle.webhook_secret -> PADDLE_WEBHOOK_SECRET
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	err = v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		// Running purely from env vars is fine.
		err = nil
	} else if err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	return config, config.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.uri", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("database.name", "planmarket")
	v.SetDefault("database.tx_timeout", "10s")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.event_ttl", "72h")
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("jwt.expiration", "1h")
	v.SetDefault("paddle.environment", "sandbox")
	v.SetDefault("paddle.checkout_timeout", "15s")
	v.SetDefault("log.mode", "dev")

	// AutomaticEnv only resolves keys viper already knows about, so secrets
	// without defaults are bound explicitly.
	for _, key := range []string{
		"jwt.secret",
		"paddle.api_key",
		"paddle.webhook_secret",
		"s3.endpoint",
		"s3.region",
		"s3.access_key_id",
		"s3.secret_access_key",
		"s3.bucket_name",
	} {
		_ = v.BindEnv(key)
	}
}

// Validate reports missing settings the server cannot start without.
func (c Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.Paddle.APIKey == "" {
		errs = append(errs, errors.New("paddle.api_key is required"))
	}
	if c.Paddle.WebhookSecret == "" {
		errs = append(errs, errors.New("paddle.webhook_secret is required"))
	}
	return errors.Join(errs...)
}
