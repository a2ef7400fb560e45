package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env            string        `yaml:"env" env:"ENV" env-default:"production"`
	HTTPServer     HTTPServer    `yaml:"http_server"`
	Database       Database      `yaml:"database"`
	PGSQL          PQSQL         `yaml:"pgsql"`
	SQLite         SQLite        `yaml:"sqlite"`
	Blob           Blob          `yaml:"blob"`
	MinIO          MinIO         `yaml:"minio"`
	Media          Media         `yaml:"media"`
	Redis          Redis         `yaml:"redis"`
	RateLimit      RateLimit     `yaml:"rate_limit"`
	Reconcile      Reconcile     `yaml:"reconcile"`
	JWTSecret      string        `yaml:"jwt_secret" env:"JWT_SECRET" env-default:"super_secret_key"`
	TokenTTL       time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"24h"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"30s"`
}

type HTTPServer struct {
	Address      string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:3000"`
	PublicDir    string        `yaml:"public_dir" env:"HTTP_PUBLIC_DIR" env-default:"public"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env-default:"5m"`
	WriteTimeout time.Duration `yaml:"write_timeout" env-default:"5m"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// Database selects the metadata store backend: "postgres" or "sqlite".
type Database struct {
	Driver string `yaml:"driver" env:"DB_DRIVER" env-default:"sqlite"`
}

type PQSQL struct {
	Host     string `yaml:"host" env:"PG_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"PG_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"PG_USER" env-default:"postgres"`
	Password string `yaml:"password" env:"PG_PASSWORD" env-default:"password"`
	DBName   string `yaml:"dbname" env:"PG_DBNAME" env-default:"sports_db"`
	SSLMode  string `yaml:"sslmode" env:"PG_SSLMODE" env-default:"disable"`
}

type SQLite struct {
	Path string `yaml:"path" env:"SQLITE_PATH" env-default:"data/uploads.db"`
}

// Blob selects where video artifacts live: "fs" or "minio".
type Blob struct {
	Driver       string `yaml:"driver" env:"BLOB_DRIVER" env-default:"fs"`
	Root         string `yaml:"root" env:"BLOB_ROOT" env-default:"uploads"`
	PublicPrefix string `yaml:"public_prefix" env:"BLOB_PUBLIC_PREFIX" env-default:"/uploads/"`
}

type MinIO struct {
	Endpoint        string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env:"MINIO_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"MINIO_SECRET_ACCESS_KEY"`
	BucketName      string `yaml:"bucket_name" env:"MINIO_BUCKET" env-default:"sport-videos"`
	UseSSL          bool   `yaml:"use_ssl" env:"MINIO_USE_SSL" env-default:"false"`
}

type Media struct {
	AllowedExtensions []string `yaml:"allowed_extensions" env:"MEDIA_ALLOWED_EXTENSIONS" env-separator:"," env-default:".mp4,.mov,.avi,.webm"`
	MaxFileSize       int64    `yaml:"max_file_size" env:"MEDIA_MAX_FILE_SIZE" env-default:"524288000"`
	SniffContent      bool     `yaml:"sniff_content" env:"MEDIA_SNIFF_CONTENT" env-default:"false"`
}

// Redis is optional. An empty address disables the listing cache and rate limiting.
type Redis struct {
	Address  string `yaml:"address" env:"REDIS_ADDRESS"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type RateLimit struct {
	UploadsPerMinute int64 `yaml:"uploads_per_minute" env:"RATE_LIMIT_UPLOADS" env-default:"10"`
}

type Reconcile struct {
	Interval      time.Duration `yaml:"interval" env:"RECONCILE_INTERVAL" env-default:"10m"`
	GracePeriod   time.Duration `yaml:"grace_period" env:"RECONCILE_GRACE_PERIOD" env-default:"15m"`
	PruneDangling bool          `yaml:"prune_dangling" env:"RECONCILE_PRUNE_DANGLING" env-default:"false"`

	// InProcess runs the worker inside the HTTP service instead of as cmd/reconcile-worker.
	InProcess bool `yaml:"in_process" env:"RECONCILE_IN_PROCESS" env-default:"false"`
}

// Load reads the YAML file at path and applies environment overrides.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist at path: %s", path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	var configPath string

	configPath = os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to config file")
		flag.Parse()
		configPath = *flags

		if configPath == "" {
			log.Fatal("config path must be provided")
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	return cfg
}
