package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// ByteSize is a size in bytes that can be written as "10MB" or "512KiB" in config.
type ByteSize uint64

func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	ApplicationName string
	AutoMigrate     bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LocalStorageConfig struct {
	Dir          string
	PublicPrefix string
}

type MinioConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	Region        string
	PublicBaseURL string
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

type StorageConfig struct {
	Driver      string
	PurgeRemote bool
	Local       LocalStorageConfig
	Minio       MinioConfig
	Cloudinary  CloudinaryConfig
}

type UploadConfig struct {
	Field       string
	MaxFileSize ByteSize
	MaxMemory   ByteSize
}

type GalleryConfig struct {
	PageSize int
}

type LoggingConfig struct {
	Level string
}

type TelemetryConfig struct {
	OTLPEndpoint   string
	ServiceName    string
	ExportInterval time.Duration
}

type WorkerConfig struct {
	Stream          string
	Group           string
	Consumer        string
	ClaimInterval   time.Duration
	CleanupAge      time.Duration
	CleanupSchedule string
}

type AppConfig struct {
	Environment string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Storage     StorageConfig
	Upload      UploadConfig
	Gallery     GalleryConfig
	Logging     LoggingConfig
	Telemetry   TelemetryConfig
	Worker      WorkerConfig
}

func Load() (*AppConfig, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("GALLERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			stringToByteSizeHookFunc(),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Storage.Driver {
	case "local", "minio", "cloudinary":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Gallery.PageSize < 1 {
		return fmt.Errorf("gallery.pagesize must be positive, got %d", c.Gallery.PageSize)
	}
	return nil
}

func stringToByteSizeHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(ByteSize(0)) {
			return data, nil
		}
		switch from.Kind() {
		case reflect.String:
			n, err := humanize.ParseBytes(data.(string))
			if err != nil {
				return nil, fmt.Errorf("parse byte size %q: %w", data, err)
			}
			return ByteSize(n), nil
		default:
			return data, nil
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "30s")
	v.SetDefault("http.writetimeout", "5m")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.maxopen", 30)
	v.SetDefault("database.maxidle", 10)
	v.SetDefault("database.connmaxlifetime", "30m")
	v.SetDefault("database.connmaxidletime", "5m")
	v.SetDefault("database.applicationname", "photogallery")
	v.SetDefault("database.automigrate", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.purgeremote", false)
	v.SetDefault("storage.local.dir", "public/uploads")
	v.SetDefault("storage.local.publicprefix", "/uploads")
	v.SetDefault("storage.minio.endpoint", "")
	v.SetDefault("storage.minio.accesskey", "")
	v.SetDefault("storage.minio.secretkey", "")
	v.SetDefault("storage.minio.bucket", "gallery-photos")
	v.SetDefault("storage.minio.usessl", false)
	v.SetDefault("storage.minio.region", "us-east-1")
	v.SetDefault("storage.minio.publicbaseurl", "")
	v.SetDefault("storage.cloudinary.cloudname", "")
	v.SetDefault("storage.cloudinary.apikey", "")
	v.SetDefault("storage.cloudinary.apisecret", "")
	v.SetDefault("storage.cloudinary.folder", "")

	v.SetDefault("upload.field", "photos")
	v.SetDefault("upload.maxfilesize", "10MB")
	v.SetDefault("upload.maxmemory", "32MiB")

	v.SetDefault("gallery.pagesize", 50)

	v.SetDefault("logging.level", "")

	v.SetDefault("telemetry.otlpendpoint", "")
	v.SetDefault("telemetry.servicename", "photogallery")
	v.SetDefault("telemetry.exportinterval", "30s")

	v.SetDefault("worker.stream", "gallery:events")
	v.SetDefault("worker.group", "gallery-workers")
	v.SetDefault("worker.consumer", "worker-1")
	v.SetDefault("worker.claiminterval", "30s")
	v.SetDefault("worker.cleanupage", "1h")
	v.SetDefault("worker.cleanupschedule", "0 0 3 * * *")
}
