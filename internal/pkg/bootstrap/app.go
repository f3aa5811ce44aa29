// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"orderflow/internal/pkg/logger"
	"orderflow/internal/tracing"
)

const shutdownTimeout = 10 * time.Second

// Component 是一个随服务生命周期运行的后台任务（Kafka 消费者、健康探测等），
// Run 应当阻塞直到 ctx 取消。
type Component interface {
	Run(ctx context.Context) error
}

// ComponentFunc 让普通函数实现 Component。
type ComponentFunc func(ctx context.Context) error

func (f ComponentFunc) Run(ctx context.Context) error { return f(ctx) }

// AppCtx 是传给各服务 Setup 函数的公共依赖。
type AppCtx struct {
	Router *mux.Router
	Config *Config
	Tracer trace.Tracer
}

// AppInfo 包含了启动一个微服务所需的所有特定信息。
type AppInfo struct {
	ServiceName string
	Port        int
	// Setup 组装服务自身的依赖、注册 HTTP 路由，返回后台组件和关停时的清理函数
	Setup func(ctx context.Context, appCtx AppCtx) (components []Component, cleanup func(), err error)
}

// StartService 封装了所有微服务的通用启动和优雅关停逻辑。
func StartService(info AppInfo) {
	if err := Run(info); err != nil {
		logger.L().Fatal().Err(err).Str("service", info.ServiceName).Msg("service exited with error")
	}
}

// Run 启动服务并阻塞，直到收到 SIGINT/SIGTERM 或某个组件返回错误。
func Run(info AppInfo) error {
	// 1. 加载配置
	if err := Init(); err != nil {
		return errors.Wrap(err, "load config")
	}
	cfg := GetCurrentConfig()
	logger.Init(info.ServiceName, cfg.App.LogLevel)

	// 2. 初始化 Tracer
	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		return errors.Wrap(err, "init tracer provider")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. 公共路由：健康检查与监控
	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// 4. 服务自身的依赖组装
	var components []Component
	cleanup := func() {}
	if info.Setup != nil {
		var c func()
		components, c, err = info.Setup(ctx, AppCtx{Router: router, Config: cfg, Tracer: otel.Tracer(info.ServiceName)})
		if err != nil {
			return errors.Wrapf(err, "setup %s", info.ServiceName)
		}
		if c != nil {
			cleanup = c
		}
	}

	port := info.Port
	if cfg.App.HTTPPort != 0 {
		port = cfg.App.HTTPPort
	}
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 5. HTTP Server 与后台组件共享同一个生命周期
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Ctx(gctx).Info().Int("port", port).Msgf("✅ %s listening", info.ServiceName)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	for _, c := range components {
		c := c
		g.Go(func() error { return c.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.L().Info().Msgf("Shutting down service %s...", info.ServiceName)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.L().Error().Err(err).Msg("Error shutting down http server")
		}
		return nil
	})

	runErr := g.Wait()

	// 6. 按依赖的逆序清理：先关闭业务依赖，再刷新 trace
	cleanup()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.L().Error().Err(err).Msg("Error shutting down tracer provider")
	}

	logger.L().Info().Msgf("Service %s gracefully shut down.", info.ServiceName)
	return runErr
}
