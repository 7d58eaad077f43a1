package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"remix-go/internal/app"
	"remix-go/internal/config"
	"remix-go/internal/handlers/chatserver"
	"remix-go/internal/logging"
)

// chatserver 只提供订阅。多实例部署时需要开启 Kafka，
// 这样 apiserver 产生的事件才能到达每个实例的本地 Hub。
func main() {
	cfg, err := config.LoadConfig(os.Getenv("REMIX_CONFIG"))
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	defer logger.Sync()

	if !cfg.Kafka.Enabled {
		logger.Warn("Kafka 未开启，chatserver 只能收到本进程产生的事件")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Chat 服务器异常退出", zap.Error(err))
	}
	logger.Info("Chat 服务器已成功关闭")
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	r := mux.NewRouter()
	r.Handle(cfg.Server.WebSocketPath, chatserver.NewWebSocketHandler(a.Resolver, cfg.WebSocket, logger)).Methods(http.MethodGet)
	r.Handle(cfg.APIServer.MetricsPath, promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// 订阅是长连接，不设置读写超时
	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:        r,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	a.Start(gctx, g)
	g.Go(func() error {
		logger.Info("Chat 服务器启动", zap.String("addr", srv.Addr), zap.String("path", cfg.Server.WebSocketPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("Chat 服务器启动失败: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
