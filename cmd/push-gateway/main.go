// cmd/push-gateway/main.go
package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v2"

	"orderflow/internal/pkg/bootstrap"
	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/mq"
	"orderflow/internal/service/push"
)

const serviceName = "push-gateway"

func main() {
	app := &cli.App{
		Name:  serviceName,
		Usage: "forward order status changes to sellers over websocket",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "configs/push-gateway.yaml", EnvVars: []string{"ORDERFLOW_CONFIG"}},
		},
		Action: serve,
	}
	if err := app.Run(os.Args); err != nil {
		logger.Ctx(context.Background()).Fatal().Err(err).Msg("push-gateway exited")
	}
}

func serve(c *cli.Context) error {
	cfg, err := bootstrap.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	logger.Init(cfg.Service.Name, cfg.Service.LogLevel)

	hub := push.NewHub(cfg.Push.PingInterval, cfg.Push.WriteTimeout)
	info := bootstrap.AppInfo{
		ServiceName: cfg.Service.Name,
		Port:        cfg.Service.Port,
		Config:      cfg,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Router.Get("/ws", hub.ServeWS)
		},
		Background: []func(context.Context) error{hub.Run},
	}

	// 每个网关节点使用独立的消费组，保证每个节点都能收到全部状态变更
	kafkaCfg := cfg.Infra.Kafka
	if len(kafkaCfg.Brokers) > 0 {
		forwarder := push.NewStatusForwarder(hub).Consumer(
			mq.NewKafkaReader(kafkaCfg.Brokers, kafkaCfg.StatusChangedTopic, cfg.Push.ConsumerGroup+"-"+hub.NodeID()),
			mq.NewFailureHandler(nil),
		)
		info.Background = append(info.Background, forwarder.Run)
	}
	return bootstrap.StartService(c.Context, info)
}
