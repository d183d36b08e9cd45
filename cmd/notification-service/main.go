// cmd/notification-service/main.go
package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"

	"orderflow/internal/pkg/bootstrap"
	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/mq"
	"orderflow/internal/service/notification/application"
	"orderflow/internal/service/notification/domain"
	"orderflow/internal/service/notification/infrastructure"
	"orderflow/internal/service/notification/interfaces"
	orderinfra "orderflow/internal/service/order/infrastructure"
	"orderflow/migrations"
)

const serviceName = "notification-service"

func main() {
	app := &cli.App{
		Name:  serviceName,
		Usage: "seller notification inbox fed by order status changes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "configs/notification-service.yaml", EnvVars: []string{"ORDERFLOW_CONFIG"}},
		},
		Action: serve,
	}
	if err := app.Run(os.Args); err != nil {
		logger.Ctx(context.Background()).Fatal().Err(err).Msg("notification-service exited")
	}
}

func serve(c *cli.Context) error {
	cfg, err := bootstrap.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	logger.Init(cfg.Service.Name, cfg.Service.LogLevel)

	info := bootstrap.AppInfo{ServiceName: cfg.Service.Name, Port: cfg.Service.Port, Config: cfg}

	var repo domain.Repository = infrastructure.NewMemoryNotificationRepository()
	if cfg.Order.Storage == "mysql" {
		my := cfg.Infra.Mysql
		if my.AutoMigrate {
			if err := migrations.Apply(my.DSN); err != nil {
				return err
			}
		}
		db, err := orderinfra.OpenMySQL(my.DSN, my.MaxOpenConns, my.MaxIdleConns, my.ConnMaxLifetime)
		if err != nil {
			return err
		}
		info.Closers = append(info.Closers, func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
		repo = infrastructure.NewGormNotificationRepository(db)
	}

	inbox := application.NewInboxService(repo, infrastructure.CompileCELFilter, otel.Tracer(serviceName), cfg.Notification.SearchLimit)

	kafkaCfg := cfg.Infra.Kafka
	if len(kafkaCfg.Brokers) > 0 {
		consumer := interfaces.NewStatusChangedConsumer(inbox).Consumer(
			mq.NewKafkaReader(kafkaCfg.Brokers, kafkaCfg.StatusChangedTopic, cfg.Notification.ConsumerGroup),
			mq.NewFailureHandler(nil),
		)
		info.Background = append(info.Background, consumer.Run)
	}

	handler := interfaces.NewInboxHandler(inbox)
	info.RegisterHandlers = func(appCtx bootstrap.AppCtx) {
		handler.RegisterRoutes(appCtx.Router)
	}
	return bootstrap.StartService(c.Context, info)
}
