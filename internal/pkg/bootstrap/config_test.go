package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
service:
  name: order-service
  port: 9090
infra:
  kafka:
    brokers: ["kafka-1:9092", "kafka-2:9092"]
order:
  storage: memory
  lockBackend: redis
  allowStockOverride: true
  inventory:
    timeout: 3s
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "order-service.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_YAMLOverDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Service.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Infra.Kafka.Brokers)
	assert.Equal(t, "order-placed", cfg.Infra.Kafka.OrderPlacedTopic)
	assert.Equal(t, "redis", cfg.Order.LockBackend)
	assert.True(t, cfg.Order.AllowStockOverride)
	assert.True(t, cfg.Order.StockCheckOnAccept)
	assert.Equal(t, 3*time.Second, cfg.Order.Inventory.Timeout)
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_EnvOverridesYAML(t *testing.T) {
	t.Setenv("ORDERFLOW_SERVICE_PORT", "7070")
	t.Setenv("ORDERFLOW_ORDER_ALLOW_STOCK_OVERRIDE", "false")
	t.Setenv("ORDERFLOW_INFRA_KAFKA_BROKERS", "k:9092")
	t.Setenv("ORDERFLOW_ORDER_INVENTORY_BASE_URL", "http://inventory:8082")

	cfg, err := LoadConfig(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Service.Port)
	assert.False(t, cfg.Order.AllowStockOverride)
	assert.Equal(t, []string{"k:9092"}, cfg.Infra.Kafka.Brokers)
	assert.Equal(t, "http://inventory:8082", cfg.Order.Inventory.BaseURL)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "order:\n  storage: mysql\n"))
	assert.ErrorContains(t, err, "infra.mysql.dsn")

	_, err = LoadConfig(writeConfig(t, "order:\n  lockBackend: etcd\n"))
	assert.ErrorContains(t, err, "lockBackend")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
