package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Port      string        `mapstructure:"PORT"`
	JWTSecret string        `mapstructure:"JWT_SECRET"`
	TokenTTL  time.Duration `mapstructure:"TOKEN_TTL"`

	// StoreDriver selects the persistence backend: mongo, postgres or memory.
	StoreDriver   string `mapstructure:"STORE_DRIVER"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`

	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	RedisPassword   string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int           `mapstructure:"REDIS_DB"`
	ProfileCacheTTL time.Duration `mapstructure:"PROFILE_CACHE_TTL"`

	MinIOEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinIOAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinIOBucket    string `mapstructure:"MINIO_BUCKET"`
	MinIOUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`
	MinIOPublicURL string `mapstructure:"MINIO_PUBLIC_URL"`

	// UploadDir is used for objects when no MinIO endpoint is configured.
	UploadDir      string        `mapstructure:"UPLOAD_DIR"`
	UploadMaxBytes int64         `mapstructure:"UPLOAD_MAX_BYTES"`
	UploadTimeout  time.Duration `mapstructure:"UPLOAD_TIMEOUT"`

	AMQPURL        string `mapstructure:"AMQP_URL"`
	EventsExchange string `mapstructure:"EVENTS_EXCHANGE"`

	WSAllowedOrigins []string `mapstructure:"WS_ALLOWED_ORIGINS"`
}

var AppConfig *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", "168h")
	v.SetDefault("STORE_DRIVER", "mongo")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "bkpconnect")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("PROFILE_CACHE_TTL", "5m")
	v.SetDefault("MINIO_ENDPOINT", "")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_BUCKET", "bkpconnect")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("MINIO_PUBLIC_URL", "")
	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("UPLOAD_MAX_BYTES", 50*1024*1024)
	v.SetDefault("UPLOAD_TIMEOUT", "10m")
	v.SetDefault("AMQP_URL", "")
	v.SetDefault("EVENTS_EXCHANGE", "bkpconnect.events")
	v.SetDefault("WS_ALLOWED_ORIGINS", []string{})
}

// Load reads the configuration from a .env file in path and from environment variables.
// Environment variables win over the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	setDefaults(v)

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Println("Warning: .env file not found, loading from environment variables")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig loads the configuration from a .env file and environment variables.
func LoadConfig() {
	cfg, err := Load(".")
	if err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatalf("JWT_SECRET must be set")
	}
	AppConfig = cfg
}
