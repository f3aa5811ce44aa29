package bootstrap

import (
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "configs/config.yaml"

// Config 是所有服务共享的配置结构，按 默认值 -> YAML 文件 -> 环境变量 的顺序覆盖。
type Config struct {
	App          AppConfig          `yaml:"app"`
	Infra        InfraConfig        `yaml:"infra"`
	Messaging    MessagingConfig    `yaml:"messaging"`
	OrderStore   OrderStoreConfig   `yaml:"orderStore"`
	Inventory    InventoryConfig    `yaml:"inventory"`
	Notification NotificationConfig `yaml:"notification"`
}

type AppConfig struct {
	LogLevel string `yaml:"logLevel" envconfig:"LOG_LEVEL"`
	// HTTPPort 为 0 时使用服务自身的默认端口
	HTTPPort int `yaml:"httpPort" envconfig:"HTTP_PORT"`
}

type InfraConfig struct {
	Kafka  KafkaConfig  `yaml:"kafka"`
	Redis  RedisConfig  `yaml:"redis"`
	Jaeger JaegerConfig `yaml:"jaeger"`
}

type KafkaConfig struct {
	Brokers        string        `yaml:"brokers" envconfig:"KAFKA_BROKERS"`
	PublishTimeout time.Duration `yaml:"publishTimeout" envconfig:"KAFKA_PUBLISH_TIMEOUT"`
}

// BrokerList 把逗号分隔的 broker 地址拆分为列表。
func (k KafkaConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

type RedisConfig struct {
	Addrs string `yaml:"addrs" envconfig:"REDIS_ADDRS"`
}

type JaegerConfig struct {
	Endpoint string `yaml:"endpoint" envconfig:"JAEGER_ENDPOINT"`
}

type MessagingConfig struct {
	RetryAttempts     int           `yaml:"retryAttempts" envconfig:"RETRY_ATTEMPTS"`
	RetryInitialDelay time.Duration `yaml:"retryInitialDelay" envconfig:"RETRY_INITIAL_DELAY"`
	RetryMultiplier   float64       `yaml:"retryMultiplier" envconfig:"RETRY_MULTIPLIER"`
	Concurrency       int           `yaml:"concurrency" envconfig:"CONSUMER_CONCURRENCY"`
}

type OrderStoreConfig struct {
	KeyPrefix     string        `yaml:"keyPrefix" envconfig:"ORDER_KEY_PREFIX"`
	PrimaryTTL    time.Duration `yaml:"primaryTTL" envconfig:"ORDER_PRIMARY_TTL"`
	OpTimeout     time.Duration `yaml:"opTimeout" envconfig:"ORDER_STORE_OP_TIMEOUT"`
	CacheTTL      time.Duration `yaml:"cacheTTL" envconfig:"ORDER_CACHE_TTL"`
	CacheMaxSize  int           `yaml:"cacheMaxSize" envconfig:"ORDER_CACHE_MAX_SIZE"`
	ProbeInterval time.Duration `yaml:"probeInterval" envconfig:"ORDER_PROBE_INTERVAL"`
	ProbeTimeout  time.Duration `yaml:"probeTimeout" envconfig:"ORDER_PROBE_TIMEOUT"`
	ProbeKey      string        `yaml:"probeKey" envconfig:"ORDER_PROBE_KEY"`
}

type InventoryConfig struct {
	ResultTTL time.Duration `yaml:"resultTTL" envconfig:"INVENTORY_RESULT_TTL"`
	// ClaimTTL 单个订单检查权的有效期，应大于一次检查加发布的耗时
	ClaimTTL time.Duration `yaml:"claimTTL" envconfig:"INVENTORY_CLAIM_TTL"`
}

type NotificationConfig struct {
	OrderServiceURL string        `yaml:"orderServiceURL" envconfig:"ORDER_SERVICE_URL"`
	LookupTimeout   time.Duration `yaml:"lookupTimeout" envconfig:"ORDER_LOOKUP_TIMEOUT"`
}

// DefaultConfig 返回本地开发使用的默认配置。
func DefaultConfig() Config {
	return Config{
		App: AppConfig{LogLevel: "info"},
		Infra: InfraConfig{
			Kafka:  KafkaConfig{Brokers: "localhost:9092", PublishTimeout: 5 * time.Second},
			Redis:  RedisConfig{Addrs: "localhost:6379"},
			Jaeger: JaegerConfig{Endpoint: "http://localhost:14268/api/traces"},
		},
		Messaging: MessagingConfig{
			RetryAttempts:     3,
			RetryInitialDelay: time.Second,
			RetryMultiplier:   2,
			Concurrency:       3,
		},
		OrderStore: OrderStoreConfig{
			KeyPrefix:     "order:",
			PrimaryTTL:    7 * 24 * time.Hour,
			OpTimeout:     5 * time.Second,
			CacheTTL:      30 * time.Minute,
			CacheMaxSize:  1000,
			ProbeInterval: 30 * time.Second,
			ProbeTimeout:  2 * time.Second,
			ProbeKey:      "health-check",
		},
		Inventory: InventoryConfig{ResultTTL: 24 * time.Hour, ClaimTTL: 30 * time.Second},
		Notification: NotificationConfig{
			OrderServiceURL: "http://localhost:8080",
			LookupTimeout:   3 * time.Second,
		},
	}
}

var currentConfig atomic.Pointer[Config]

func init() {
	cfg := DefaultConfig()
	currentConfig.Store(&cfg)
}

// GetCurrentConfig 返回当前生效的配置。
func GetCurrentConfig() *Config {
	return currentConfig.Load()
}

// Init 加载 .env、YAML 配置文件和环境变量，并设置为当前配置。
// CONFIG_PATH 指定配置文件，文件不存在时只使用默认值和环境变量。
func Init() error {
	// .env 只在本地开发时存在
	_ = godotenv.Load()

	path := getEnv("CONFIG_PATH", defaultConfigPath)
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	currentConfig.Store(cfg)
	return nil
}

// LoadConfig 从 path 读取 YAML 并叠加环境变量。
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	case os.IsNotExist(err):
		// 使用默认值
	default:
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	// envconfig 会给嵌套结构体的字段加上父级前缀，这里逐个处理叶子结构体，
	// 使环境变量名与 tag 完全一致
	sections := []any{
		&cfg.App,
		&cfg.Infra.Kafka,
		&cfg.Infra.Redis,
		&cfg.Infra.Jaeger,
		&cfg.Messaging,
		&cfg.OrderStore,
		&cfg.Inventory,
		&cfg.Notification,
	}
	for _, section := range sections {
		if err := envconfig.Process("", section); err != nil {
			return nil, errors.Wrap(err, "apply environment overrides")
		}
	}
	return &cfg, nil
}

// getEnv 从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
