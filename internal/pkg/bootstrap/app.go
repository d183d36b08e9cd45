// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/nacos"
	"orderflow/internal/tracing"
)

type AppCtx struct {
	Router chi.Router
	Config *Config
	Nacos  *nacos.Client // 未启用服务发现时为 nil
}

// AppInfo 包含了启动一个微服务所需的所有特定信息。
type AppInfo struct {
	ServiceName string
	Port        int
	Config      *Config
	// RegisterHandlers 允许每个服务注册自己独特的 HTTP 路由
	RegisterHandlers func(appCtx AppCtx)
	// Background 在 HTTP 服务启动后运行，ctx 在收到退出信号时取消
	Background []func(ctx context.Context) error
	// Closers 在关停时按注册的逆序执行
	Closers []func(ctx context.Context) error
	// Nacos 可选，已用于服务发现的客户端会被复用来注册本服务
	Nacos *nacos.Client
}

// StartService 封装了所有微服务的通用启动和优雅关停逻辑。
func StartService(parent context.Context, info AppInfo) error {
	cfg := info.Config
	if cfg == nil {
		cfg = GetCurrentConfig()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log := logger.Ctx(ctx)

	// 1. Tracer
	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint, cfg.Infra.Jaeger.SampleRatio)
	if err != nil {
		return err
	}

	// 2. 服务注册（可选）
	namingClient := info.Nacos
	var ip string
	if cfg.Infra.Nacos.Enabled {
		if namingClient == nil {
			namingClient, err = nacos.NewNacosClient(cfg.Infra.Nacos.Addrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
			if err != nil {
				return err
			}
		}
		if ip, err = GetOutboundIP(); err != nil {
			return err
		}
		if err := namingClient.RegisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
			return err
		}
	}

	// 3. HTTP Server
	router := NewRouter(info.ServiceName)
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Router: router, Config: cfg, Nacos: namingClient})
	}
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(info.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("service", info.ServiceName).Int("port", info.Port).Msg("✅ http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	for _, run := range info.Background {
		go func(run func(context.Context) error) {
			if err := run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("background worker exited")
			}
		}(run)
	}

	// 4. 等待退出信号
	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		stop()
	}
	log.Info().Str("service", info.ServiceName).Msg("🛑 shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 5. 关停顺序：注销 -> HTTP -> 业务资源（后进先出） -> Tracer
	if namingClient != nil && cfg.Infra.Nacos.Enabled {
		if err := namingClient.DeregisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
			log.Error().Err(err).Msg("deregister from nacos")
		}
		namingClient.Close()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown http server")
	}
	for i := len(info.Closers) - 1; i >= 0; i-- {
		if err := info.Closers[i](shutdownCtx); err != nil {
			log.Error().Err(err).Msg("close resource")
		}
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown tracer provider")
	}
	log.Info().Str("service", info.ServiceName).Msg("✅ gracefully shut down")
	return runErr
}

// GetOutboundIP 获取本机对外通信使用的 IP，用于服务注册
func GetOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
