package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppConf struct {
	Env            string `mapstructure:"env"`
	Port           int    `mapstructure:"port"`
	ShutdownSecond int    `mapstructure:"shutdown_seconds"`
	ReadSeconds    int    `mapstructure:"read_timeout_seconds"`
	WriteSeconds   int    `mapstructure:"write_timeout_seconds"`
	CORSOrigins    string `mapstructure:"cors_origins"`
}

type MongoConf struct {
	URI            string `mapstructure:"uri"`
	Database       string `mapstructure:"database"`
	Collection     string `mapstructure:"collection"`
	ConnectSeconds int    `mapstructure:"connect_timeout_seconds"`
}

type StorageConf struct {
	Driver     string `mapstructure:"driver"` // s3 | minio
	Bucket     string `mapstructure:"bucket"`
	PublicRead bool   `mapstructure:"public_read"`
	PresignTTL int    `mapstructure:"presign_ttl_seconds"`
	Breaker    struct {
		MaxFailures  uint32 `mapstructure:"max_failures"`
		OpenSeconds  int    `mapstructure:"open_seconds"`
		HalfOpenReqs uint32 `mapstructure:"half_open_requests"`
	} `mapstructure:"breaker"`
}

type AWSConf struct {
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type MinioConf struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	UseSSL     bool   `mapstructure:"use_ssl"`
	PublicBase string `mapstructure:"public_base"`
}

type RedisConf struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type RateLimitConf struct {
	UploadPerMinute int `mapstructure:"upload_per_minute"`
	PublicPerMinute int `mapstructure:"public_per_minute"`
}

type EventsConf struct {
	Driver  string   `mapstructure:"driver"` // none | kafka | nats
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	NatsURL string   `mapstructure:"nats_url"`
	Subject string   `mapstructure:"subject"`
}

type MediaConf struct {
	PageSize    int `mapstructure:"page_size"`
	MaxUploadMB int `mapstructure:"max_upload_mb"`
}

type JWTConf struct {
	PublicKeyPath string `mapstructure:"public_key_path"`
}

type Config struct {
	App       AppConf       `mapstructure:"app"`
	Mongo     MongoConf     `mapstructure:"mongodb"`
	Storage   StorageConf   `mapstructure:"storage"`
	AWS       AWSConf       `mapstructure:"aws"`
	Minio     MinioConf     `mapstructure:"minio"`
	Redis     RedisConf     `mapstructure:"redis"`
	RateLimit RateLimitConf `mapstructure:"ratelimit"`
	Events    EventsConf    `mapstructure:"events"`
	Media     MediaConf     `mapstructure:"media"`
	JWT       JWTConf       `mapstructure:"jwt"`
	Log       struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	// derived
	ShutdownTimeout time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ConnectTimeout  time.Duration
	PresignTTL      time.Duration
	BreakerOpen     time.Duration
	MaxUploadBytes  int64
}

func (c *Config) Development() bool { return c.App.Env == "development" }

// Load reads the yaml at path. A .env next to the binary is loaded first so
// MYCLOUD_* variables can override any key (MYCLOUD_MONGODB_URI, ...).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("MYCLOUD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	derive(&cfg)
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "production")
	v.SetDefault("app.port", 8080)
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "mycloud")
	v.SetDefault("mongodb.collection", "media")
	v.SetDefault("storage.driver", "s3")
	v.SetDefault("events.driver", "none")
	v.SetDefault("events.topic", "media.events")
	v.SetDefault("events.subject", "media.events")
	v.SetDefault("redis.prefix", "mycloud:rl")
}

func derive(cfg *Config) {
	if cfg.App.ShutdownSecond == 0 {
		cfg.App.ShutdownSecond = 15
	}
	if cfg.App.ReadSeconds == 0 {
		cfg.App.ReadSeconds = 30
	}
	if cfg.App.WriteSeconds == 0 {
		cfg.App.WriteSeconds = 30
	}
	if cfg.Mongo.ConnectSeconds == 0 {
		cfg.Mongo.ConnectSeconds = 10
	}
	if cfg.Storage.PresignTTL == 0 {
		cfg.Storage.PresignTTL = 600
	}
	if cfg.Storage.Breaker.MaxFailures == 0 {
		cfg.Storage.Breaker.MaxFailures = 5
	}
	if cfg.Storage.Breaker.OpenSeconds == 0 {
		cfg.Storage.Breaker.OpenSeconds = 30
	}
	if cfg.Storage.Breaker.HalfOpenReqs == 0 {
		cfg.Storage.Breaker.HalfOpenReqs = 1
	}
	if cfg.Media.PageSize <= 0 {
		cfg.Media.PageSize = 12
	}
	if cfg.Media.MaxUploadMB <= 0 {
		cfg.Media.MaxUploadMB = 100
	}
	if cfg.RateLimit.UploadPerMinute == 0 {
		cfg.RateLimit.UploadPerMinute = 30
	}
	if cfg.RateLimit.PublicPerMinute == 0 {
		cfg.RateLimit.PublicPerMinute = 300
	}
	cfg.ShutdownTimeout = time.Duration(cfg.App.ShutdownSecond) * time.Second
	cfg.ReadTimeout = time.Duration(cfg.App.ReadSeconds) * time.Second
	cfg.WriteTimeout = time.Duration(cfg.App.WriteSeconds) * time.Second
	cfg.ConnectTimeout = time.Duration(cfg.Mongo.ConnectSeconds) * time.Second
	cfg.PresignTTL = time.Duration(cfg.Storage.PresignTTL) * time.Second
	cfg.BreakerOpen = time.Duration(cfg.Storage.Breaker.OpenSeconds) * time.Second
	cfg.MaxUploadBytes = int64(cfg.Media.MaxUploadMB) * 1024 * 1024
}
