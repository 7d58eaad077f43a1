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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"remix-go/internal/app"
	"remix-go/internal/config"
	"remix-go/internal/handlers/apiserver"
	"remix-go/internal/handlers/chatserver"
	"remix-go/internal/logging"
	"remix-go/internal/storage"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig(os.Getenv("REMIX_CONFIG"))
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("API 服务器异常退出", zap.Error(err))
	}
	logger.Info("API 服务器已成功关闭")
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. 数据库、Redis、事件分发与服务
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// 3. 上传文件存储
	store, err := storage.NewLocalFileStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("无法初始化本地存储: %w", err)
	}

	// 4. 路由
	handler := apiserver.NewRouter(a.Resolver, apiserver.RouterOptions{
		Config:        cfg,
		FileStore:     store,
		Metrics:       promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}),
		Subscriptions: chatserver.NewWebSocketHandler(a.Resolver, cfg.WebSocket, logger),
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.APIServer.Host, cfg.APIServer.Port),
		Handler:        handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		IdleTimeout:    60 * time.Second,
	}

	// 5. 启动并在收到信号后优雅关闭
	g, gctx := errgroup.WithContext(ctx)
	a.Start(gctx, g)
	g.Go(func() error {
		logger.Info("API 服务器启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API 服务器启动失败: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("收到关闭信号，正在关闭 API 服务器...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
