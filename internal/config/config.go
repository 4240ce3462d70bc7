package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env              string        `mapstructure:"ENV"`
	Port             string        `mapstructure:"PORT"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	AdminKey         string        `mapstructure:"ADMIN_KEY"`
	CORSAllowed      string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout   time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	EstimateTimeout  time.Duration `mapstructure:"ESTIMATE_TIMEOUT"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	MaxUploadSizeMB  int64         `mapstructure:"MAX_UPLOAD_MB"`
	QuantityStrategy string        `mapstructure:"QUANTITY_STRATEGY"`

	CapitolatoURL  string `mapstructure:"CAPITOLATO_URL"`
	AnthropicKey   string `mapstructure:"ANTHROPIC_API_KEY"`
	AnthropicModel string `mapstructure:"ANTHROPIC_MODEL"`

	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// ErrMissingDatabaseURL is returned by Validate when no store is configured.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL is not set")

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("ADMIN_KEY", "")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("ESTIMATE_TIMEOUT", "10s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MAX_UPLOAD_MB", 20)
	v.SetDefault("QUANTITY_STRATEGY", "measurement")
	v.SetDefault("CAPITOLATO_URL", "")
	v.SetDefault("ANTHROPIC_API_KEY", "")
	v.SetDefault("ANTHROPIC_MODEL", "")
	v.SetDefault("MINIO_ENDPOINT", "")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_BUCKET", "pricelists")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration that makes the service unable to start.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	return nil
}
