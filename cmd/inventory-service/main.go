// cmd/inventory-service/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"orderflow/internal/pkg/bootstrap"
	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/redis"
	"orderflow/internal/service/order/domain/port"
	"orderflow/internal/service/order/infrastructure/adapter"
)

const (
	serviceName = "inventory-service"
	// stockKey 是保存各商品可用库存的 Redis hash
	stockKey = "inventory:stock"
)

var tracer = otel.Tracer(serviceName)

func main() {
	app := &cli.App{
		Name:  serviceName,
		Usage: "stock availability backed by redis",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "configs/inventory-service.yaml", EnvVars: []string{"ORDERFLOW_CONFIG"}},
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
			{Name: "serve", Usage: "run the availability API", Action: serve},
			{
				Name:      "seed",
				Usage:     "set stock levels, e.g. seed item-1=10 item-2=0",
				ArgsUsage: "itemId=quantity...",
				Action:    seed,
			},
		},
		DefaultCommand: "serve",
	}
	if err := app.Run(os.Args); err != nil {
		logger.Ctx(context.Background()).Fatal().Err(err).Msg("inventory-service exited")
	}
}

func serve(c *cli.Context) error {
	cfg := bootstrap.GetCurrentConfig()
	client, err := redis.NewClient(cfg.Infra.Redis.Addrs)
	if err != nil {
		return err
	}
	stock := &stockHandler{rdb: client.GetClient()}

	return bootstrap.StartService(c.Context, bootstrap.AppInfo{
		ServiceName: cfg.Service.Name,
		Port:        cfg.Service.Port,
		Config:      cfg,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Router.Post(cfg.Order.Inventory.Path, stock.checkAvailability)
		},
		Closers: []func(context.Context) error{func(context.Context) error { return client.Close() }},
	})
}

func seed(c *cli.Context) error {
	cfg := bootstrap.GetCurrentConfig()
	client, err := redis.NewClient(cfg.Infra.Redis.Addrs)
	if err != nil {
		return err
	}
	defer client.Close()

	values := make(map[string]any, c.NArg())
	for _, arg := range c.Args().Slice() {
		item, qty, ok := strings.Cut(arg, "=")
		n, err := strconv.Atoi(qty)
		if !ok || item == "" || err != nil || n < 0 {
			return fmt.Errorf("invalid stock entry %q, want itemId=quantity", arg)
		}
		values[item] = n
	}
	if len(values) == 0 {
		return fmt.Errorf("no stock entries given")
	}
	if err := client.GetClient().HSet(c.Context, stockKey, values).Err(); err != nil {
		return err
	}
	logger.Ctx(c.Context).Info().Int("items", len(values)).Msg("✅ stock seeded")
	return nil
}

type stockHandler struct {
	rdb goredis.Cmdable
}

// checkAvailability 一次 HMGET 读出所有被查询商品的库存；不存在的商品视为 0
func (h *stockHandler) checkAvailability(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "inventory-service.CheckAvailability")
	defer span.End()

	var req adapter.CheckAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	span.SetAttributes(attribute.Int("inventory.items", len(req.Items)))

	resp, err := h.lookup(ctx, req.Items)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stock lookup failed")
		logger.Ctx(ctx).Error().Err(err).Msg("🚨 stock lookup failed")
		http.Error(w, "inventory unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *stockHandler) lookup(ctx context.Context, items []port.StockQuery) (adapter.CheckAvailabilityResponse, error) {
	resp := adapter.CheckAvailabilityResponse{Items: make([]port.StockAvailability, 0, len(items))}
	if len(items) == 0 {
		return resp, nil
	}
	fields := make([]string, len(items))
	for i, it := range items {
		fields[i] = it.ItemID
	}
	vals, err := h.rdb.HMGet(ctx, stockKey, fields...).Result()
	if err != nil {
		return resp, err
	}
	for i, it := range items {
		level := 0
		if s, ok := vals[i].(string); ok {
			level, _ = strconv.Atoi(s)
		}
		resp.Items = append(resp.Items, port.StockAvailability{ItemID: it.ItemID, Available: level >= it.Quantity})
	}
	return resp, nil
}
