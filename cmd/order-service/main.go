// cmd/order-service/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"

	"orderflow/internal/pkg/bootstrap"
	"orderflow/internal/pkg/httpclient"
	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/metrics"
	"orderflow/internal/pkg/mq"
	"orderflow/internal/pkg/nacos"
	"orderflow/internal/pkg/redis"
	"orderflow/internal/service/order/application"
	"orderflow/internal/service/order/domain"
	"orderflow/internal/service/order/domain/port"
	"orderflow/internal/service/order/infrastructure"
	"orderflow/internal/service/order/infrastructure/adapter"
	"orderflow/internal/service/order/interfaces"
	"orderflow/internal/zookeeper"
	"orderflow/migrations"
)

const serviceName = "order-service"

// main 是应用的"组装根" (Composition Root)：创建并组装所有依赖项，然后启动应用
func main() {
	app := &cli.App{
		Name:  serviceName,
		Usage: "in-store pickup order lifecycle",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the yaml config",
				Value:   "configs/order-service.yaml",
				EnvVars: []string{"ORDERFLOW_CONFIG"},
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := bootstrap.LoadConfig(c.String("config"))
			if err != nil {
				return err
			}
			logger.Init(cfg.Service.Name, cfg.Service.LogLevel)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and Kafka consumers",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "apply (or roll back) the MySQL schema",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "down", Usage: "roll back N migrations instead of applying"},
				},
				Action: migrate,
			},
			{
				Name:  "place",
				Usage: "publish an OrderPlaced message read from a JSON file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true},
				},
				Action: place,
			},
		},
		DefaultCommand: "serve",
	}
	if err := app.Run(os.Args); err != nil {
		logger.Ctx(context.Background()).Fatal().Err(err).Msg("order-service exited")
	}
}

func serve(c *cli.Context) error {
	cfg := bootstrap.GetCurrentConfig()
	ctx := c.Context
	info := bootstrap.AppInfo{ServiceName: cfg.Service.Name, Port: cfg.Service.Port, Config: cfg}

	repo, closeRepo, err := buildRepository(cfg)
	if err != nil {
		return err
	}
	info.Closers = append(info.Closers, closeRepo)

	locker, closeLocker, err := buildLocker(cfg)
	if err != nil {
		return err
	}
	info.Closers = append(info.Closers, closeLocker)

	// 库存服务：配置了 baseURL 直连，否则通过 Nacos 发现
	var resolver httpclient.Resolver = httpclient.StaticResolver{}
	if cfg.Infra.Nacos.Enabled {
		nc, err := nacos.NewNacosClient(cfg.Infra.Nacos.Addrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
		if err != nil {
			return err
		}
		info.Nacos = nc
		resolver = nc
	}
	tracer := otel.Tracer(serviceName)
	inv := cfg.Order.Inventory
	checker := adapter.NewInventoryHTTPAdapter(httpclient.NewClient(tracer, resolver), inv.ServiceName, inv.BaseURL, inv.Path, inv.Timeout, inv.ChunkSize)

	var publisher port.StatusPublisher
	kafkaCfg := cfg.Infra.Kafka
	if len(kafkaCfg.Brokers) > 0 {
		statusPublisher := adapter.NewStatusKafkaPublisher(mq.NewKafkaWriter(kafkaCfg.Brokers, kafkaCfg.StatusChangedTopic))
		info.Closers = append(info.Closers, func(context.Context) error { return statusPublisher.Close() })
		publisher = statusPublisher
	}

	lifecycle := application.NewOrderLifecycle(
		repo, locker, checker, publisher,
		infrastructure.NewNumericCodeGenerator(cfg.Order.VerificationCodeLength),
		tracer,
		application.Options{
			AllowStockOverride: cfg.Order.AllowStockOverride,
			StockCheckOnAccept: cfg.Order.StockCheckOnAccept,
			LockWait:           cfg.Order.LockWait,
			Metrics:            metrics.NewOrderMetrics(prometheus.DefaultRegisterer),
		},
	)

	if len(kafkaCfg.Brokers) > 0 {
		dltWriter := mq.NewKafkaWriter(kafkaCfg.Brokers, kafkaCfg.DeadLetterTopic)
		info.Closers = append(info.Closers, func(context.Context) error { return dltWriter.Close() })

		placed := interfaces.NewOrderPlacedConsumer(lifecycle).Consumer(
			mq.NewKafkaReader(kafkaCfg.Brokers, kafkaCfg.OrderPlacedTopic, kafkaCfg.ConsumerGroup),
			mq.NewFailureHandler(dltWriter),
		)
		dlt := interfaces.NewDeadLetterConsumer(
			mq.NewKafkaReader(kafkaCfg.Brokers, kafkaCfg.DeadLetterTopic, kafkaCfg.ConsumerGroup+"-dlt"),
		)
		info.Background = append(info.Background, placed.Run, dlt.Run)
	}

	handler := interfaces.NewOrderHandler(lifecycle)
	info.RegisterHandlers = func(appCtx bootstrap.AppCtx) {
		handler.RegisterRoutes(appCtx.Router)
	}
	return bootstrap.StartService(ctx, info)
}

func buildRepository(cfg *bootstrap.Config) (domain.OrderRepository, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if cfg.Order.Storage != "mysql" {
		return infrastructure.NewMemoryOrderRepository(), noop, nil
	}
	my := cfg.Infra.Mysql
	if my.AutoMigrate {
		if err := migrations.Apply(my.DSN); err != nil {
			return nil, nil, err
		}
	}
	db, err := infrastructure.OpenMySQL(my.DSN, my.MaxOpenConns, my.MaxIdleConns, my.ConnMaxLifetime)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return infrastructure.NewGormOrderRepository(db), closeDB, nil
}

func buildLocker(cfg *bootstrap.Config) (port.OrderLocker, func(context.Context) error, error) {
	switch cfg.Order.LockBackend {
	case "redis":
		client, err := redis.NewClient(cfg.Infra.Redis.Addrs)
		if err != nil {
			return nil, nil, err
		}
		locker, err := adapter.NewRedisOrderLocker(client, cfg.Order.LockTTL)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return locker, func(context.Context) error { return client.Close() }, nil
	case "zookeeper":
		conn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers, cfg.Infra.Zookeeper.SessionTimeout)
		if err != nil {
			return nil, nil, err
		}
		return zookeeper.NewOrderLocker(conn), func(context.Context) error { conn.Close(); return nil }, nil
	}
	return infrastructure.NewLocalOrderLocker(), func(context.Context) error { return nil }, nil
}

func migrate(c *cli.Context) error {
	dsn := bootstrap.GetCurrentConfig().Infra.Mysql.DSN
	if dsn == "" {
		return fmt.Errorf("infra.mysql.dsn is not configured")
	}
	if steps := c.Int("down"); steps > 0 {
		return migrations.Rollback(dsn, steps)
	}
	if err := migrations.Apply(dsn); err != nil {
		return err
	}
	logger.Ctx(c.Context).Info().Msg("✅ migrations applied")
	return nil
}

func place(c *cli.Context) error {
	cfg := bootstrap.GetCurrentConfig()
	raw, err := os.ReadFile(c.String("file"))
	if err != nil {
		return err
	}
	var evt domain.OrderPlaced
	if err := json.Unmarshal(raw, &evt); err != nil {
		return fmt.Errorf("decode %s: %w", c.String("file"), err)
	}
	if evt.PlacedAt.IsZero() {
		evt.PlacedAt = time.Now()
	}

	writer := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.OrderPlacedTopic)
	defer writer.Close()

	ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
	defer cancel()
	if err := infrastructure.NewOrderPlacedProducer(writer).Produce(ctx, &evt); err != nil {
		return err
	}
	logger.Ctx(ctx).Info().Str("order_id", evt.OrderID).Str("topic", cfg.Infra.Kafka.OrderPlacedTopic).Msg("✅ order placed message published")
	return nil
}
