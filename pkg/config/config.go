package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/cloud-wave-best-zizon/pharmacy-service/pkg/tls"
)

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	LocalMode bool   `envconfig:"LOCAL_MODE" default:"true"` // AWS 없이 로컬 실행 모드

	AWSRegion          string `envconfig:"AWS_REGION" default:"ap-northeast-2"`
	DynamoEndpoint     string `envconfig:"DYNAMODB_ENDPOINT"`
	DrugTableName      string `envconfig:"DRUG_TABLE_NAME" default:"drugs-table"`
	PharmacyTableName  string `envconfig:"PHARMACY_TABLE_NAME" default:"pharmacies-table"`
	InventoryTableName string `envconfig:"INVENTORY_TABLE_NAME" default:"inventory-table"`

	// dynamodb | postgres
	CatalogBackend string `envconfig:"CATALOG_BACKEND" default:"dynamodb"`
	PostgresDSN    string `envconfig:"POSTGRES_DSN"`

	RedisAddr       string        `envconfig:"REDIS_ADDR"`
	RedisPassword   string        `envconfig:"REDIS_PASSWORD"`
	RedisDB         int           `envconfig:"REDIS_DB" default:"0"`
	CatalogCacheTTL time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"5m"`

	KafkaBrokers   []string `envconfig:"KAFKA_BROKERS"`
	OrderTopic     string   `envconfig:"ORDER_TOPIC" default:"order-events"`
	InventoryTopic string   `envconfig:"INVENTORY_TOPIC" default:"inventory-events"`
	ConsumerGroup  string   `envconfig:"CONSUMER_GROUP" default:"pharmacy-service"`

	JWTSecret string `envconfig:"JWT_SECRET"`

	SearchTimeout     time.Duration `envconfig:"SEARCH_TIMEOUT" default:"5s"`
	SearchConcurrency int           `envconfig:"SEARCH_CONCURRENCY" default:"8"`
	DefaultPageSize   int           `envconfig:"DEFAULT_PAGE_SIZE" default:"20"`
	MaxPageSize       int           `envconfig:"MAX_PAGE_SIZE" default:"100"`
	MaxWriteRetries   int           `envconfig:"MAX_WRITE_RETRIES" default:"5"`

	tls.Settings
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	cfg.CatalogBackend = strings.ToLower(cfg.CatalogBackend)
	if cfg.JWTSecret == "" && !cfg.LocalMode {
		return nil, errors.New("JWT_SECRET is required outside local mode")
	}
	return &cfg, nil
}

func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}
