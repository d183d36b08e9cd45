// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 环境变量覆盖 yaml 配置时使用的前缀，例如 ORDERFLOW_INFRA_KAFKA_BROKERS
const EnvPrefix = "ORDERFLOW"

type Config struct {
	Service      ServiceConfig      `yaml:"service"`
	Infra        InfraConfig        `yaml:"infra"`
	Order        OrderConfig        `yaml:"order"`
	Notification NotificationConfig `yaml:"notification"`
	Push         PushConfig         `yaml:"push"`
}

type ServiceConfig struct {
	Name     string `yaml:"name"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"logLevel" split_words:"true"`
}

type InfraConfig struct {
	Jaeger    JaegerConfig    `yaml:"jaeger"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Mysql     MysqlConfig     `yaml:"mysql"`
	Nacos     NacosConfig     `yaml:"nacos"`
	Zookeeper ZookeeperConfig `yaml:"zookeeper"`
}

type JaegerConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sampleRatio" split_words:"true"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	OrderPlacedTopic   string   `yaml:"orderPlacedTopic" split_words:"true"`
	StatusChangedTopic string   `yaml:"statusChangedTopic" split_words:"true"`
	DeadLetterTopic    string   `yaml:"deadLetterTopic" split_words:"true"`
	ConsumerGroup      string   `yaml:"consumerGroup" split_words:"true"`
}

type RedisConfig struct {
	Addrs string `yaml:"addrs"`
}

type MysqlConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"maxOpenConns" split_words:"true"`
	MaxIdleConns    int           `yaml:"maxIdleConns" split_words:"true"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime" split_words:"true"`
	AutoMigrate     bool          `yaml:"autoMigrate" split_words:"true"`
}

type NacosConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addrs     string `yaml:"addrs"`
	Namespace string `yaml:"namespace"`
	Group     string `yaml:"group"`
}

type ZookeeperConfig struct {
	Servers        []string      `yaml:"servers"`
	SessionTimeout time.Duration `yaml:"sessionTimeout" split_words:"true"`
}

// OrderConfig 订单生命周期的行为开关
type OrderConfig struct {
	// Storage: mysql | memory
	Storage string `yaml:"storage"`
	// LockBackend: local | redis | zookeeper
	LockBackend string        `yaml:"lockBackend" split_words:"true"`
	LockTTL     time.Duration `yaml:"lockTTL" envconfig:"LOCK_TTL"`
	LockWait    time.Duration `yaml:"lockWait" split_words:"true"`

	AllowStockOverride     bool `yaml:"allowStockOverride" split_words:"true"`
	StockCheckOnAccept     bool `yaml:"stockCheckOnAccept" split_words:"true"`
	VerificationCodeLength int  `yaml:"verificationCodeLength" split_words:"true"`

	Inventory InventoryConfig `yaml:"inventory"`
}

type InventoryConfig struct {
	ServiceName string        `yaml:"serviceName" split_words:"true"`
	BaseURL     string        `yaml:"baseURL" envconfig:"BASE_URL"`
	Path        string        `yaml:"path"`
	Timeout     time.Duration `yaml:"timeout"`
	ChunkSize   int           `yaml:"chunkSize" split_words:"true"`
}

type NotificationConfig struct {
	ConsumerGroup string `yaml:"consumerGroup" split_words:"true"`
	SearchLimit   int    `yaml:"searchLimit" split_words:"true"`
}

type PushConfig struct {
	ConsumerGroup string        `yaml:"consumerGroup" split_words:"true"`
	WriteTimeout  time.Duration `yaml:"writeTimeout" split_words:"true"`
	PingInterval  time.Duration `yaml:"pingInterval" split_words:"true"`
}

// DefaultConfig 默认值，yaml 与环境变量在其之上覆盖
func DefaultConfig() Config {
	return Config{
		Service: ServiceConfig{Name: "order-service", Port: 8080, LogLevel: "info"},
		Infra: InfraConfig{
			Jaeger: JaegerConfig{SampleRatio: 1},
			Kafka: KafkaConfig{
				Brokers:            []string{"localhost:9092"},
				OrderPlacedTopic:   "order-placed",
				StatusChangedTopic: "order-status-changed",
				DeadLetterTopic:    "order-placed-dlt",
				ConsumerGroup:      "order-service",
			},
			Redis:     RedisConfig{Addrs: "localhost:6379"},
			Mysql:     MysqlConfig{MaxOpenConns: 20, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute},
			Nacos:     NacosConfig{Addrs: "localhost:8848", Group: "DEFAULT_GROUP"},
			Zookeeper: ZookeeperConfig{Servers: []string{"localhost:2181"}, SessionTimeout: 5 * time.Second},
		},
		Order: OrderConfig{
			Storage:                "memory",
			LockBackend:            "local",
			LockTTL:                10 * time.Second,
			LockWait:               5 * time.Second,
			StockCheckOnAccept:     true,
			VerificationCodeLength: 4,
			Inventory: InventoryConfig{
				ServiceName: "inventory-service",
				Path:        "/check_availability",
				Timeout:     2 * time.Second,
				ChunkSize:   50,
			},
		},
		Notification: NotificationConfig{ConsumerGroup: "notification-service", SearchLimit: 200},
		Push:         PushConfig{ConsumerGroup: "push-gateway", WriteTimeout: 10 * time.Second, PingInterval: 30 * time.Second},
	}
}

var current atomic.Pointer[Config]

// GetCurrentConfig 返回最近一次成功加载的配置
func GetCurrentConfig() *Config {
	if c := current.Load(); c != nil {
		return c
	}
	c := DefaultConfig()
	return &c
}

// LoadConfig 依次应用默认值、yaml 文件（path 为空时跳过）和环境变量
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "apply environment overrides")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	current.Store(&cfg)
	return &cfg, nil
}

// Validate 检查互相关联的配置项
func (c *Config) Validate() error {
	switch c.Order.Storage {
	case "memory":
	case "mysql":
		if c.Infra.Mysql.DSN == "" {
			return fmt.Errorf("order.storage=mysql requires infra.mysql.dsn")
		}
	default:
		return fmt.Errorf("unknown order.storage %q", c.Order.Storage)
	}
	switch c.Order.LockBackend {
	case "local", "redis", "zookeeper":
	default:
		return fmt.Errorf("unknown order.lockBackend %q", c.Order.LockBackend)
	}
	if c.Order.VerificationCodeLength < 4 || c.Order.VerificationCodeLength > 12 {
		return fmt.Errorf("order.verificationCodeLength must be within [4, 12], got %d", c.Order.VerificationCodeLength)
	}
	if c.Service.Port <= 0 {
		return fmt.Errorf("service.port must be positive")
	}
	return nil
}
