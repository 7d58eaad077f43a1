// Package app 装配 apiserver 与 chatserver 共用的进程级依赖。
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	redisDriver "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"remix-go/internal/auth"
	"remix-go/internal/config"
	"remix-go/internal/content"
	"remix-go/internal/events"
	appKafka "remix-go/internal/kafka"
	kafkahandlers "remix-go/internal/kafka/handlers"
	"remix-go/internal/policy"
	appRedis "remix-go/internal/redis"
	"remix-go/internal/resolvers"
	"remix-go/internal/storage"
)

// App 持有一个进程的全部长生命周期组件。
type App struct {
	Config   config.Config
	Logger   *zap.Logger
	DB       *gorm.DB
	Registry *prometheus.Registry
	Hub      *events.Hub
	Resolver *resolvers.Resolver

	redis    *redisDriver.Client
	relay    *appKafka.Relay
	producer appKafka.MessageProducer
	consumer appKafka.MessageConsumer
}

// New 连接数据库与 Redis，并按配置决定事件是只在本地分发还是经由 Kafka 中转。
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("无法初始化数据库: %w", err)
	}
	if err := storage.AutoMigrateTables(db); err != nil {
		return nil, fmt.Errorf("数据库表迁移失败: %w", err)
	}
	logger.Info("数据库连接成功", zap.String("type", cfg.Database.Type))

	redisClient := redisDriver.NewClient(&redisDriver.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("无法连接到 Redis %s: %w", cfg.Redis.Addr, err)
	}
	logger.Info("成功连接到 Redis", zap.String("addr", cfg.Redis.Addr))
	blacklist := appRedis.NewRedisTokenBlacklist(redisClient)

	a := &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Registry: prometheus.NewRegistry(),
		Hub:      events.NewHub(cfg.WebSocket.SubscriberBuffer, logger),
		redis:    redisClient,
	}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var publisher events.Publisher = a.Hub
	if cfg.Kafka.Enabled {
		a.producer, err = appKafka.NewConfluentKafkaProducer(cfg.Kafka, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("无法创建 Kafka 生产者: %w", err)
		}
		a.consumer, err = appKafka.NewConfluentKafkaConsumer(cfg.Kafka, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("无法创建 Kafka 消费者: %w", err)
		}
		a.relay = appKafka.NewRelay(a.producer, cfg.Kafka.EventsTopic, cfg.Kafka.QueueSize, logger)
		publisher = a.relay
		logger.Info("事件经由 Kafka 中转", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.EventsTopic))
	}

	metrics := policy.NewMetrics(a.Registry)
	svc := resolvers.NewServices(db, content.NewRegistry(), publisher, blacklist, cfg.Auth, logger)
	a.Resolver = resolvers.New(svc, a.Hub,
		policy.Public(logger, metrics),
		policy.Gated(logger, metrics, auth.NewJWTVerifier(cfg.Auth, blacklist)))
	return a, nil
}

// Start 在 g 中启动 Hub、Kafka 中转与消费者，ctx 取消后它们依次退出。
func (a *App) Start(ctx context.Context, g *errgroup.Group) {
	g.Go(func() error {
		a.Hub.Run(ctx)
		return nil
	})
	if a.relay != nil {
		g.Go(func() error {
			a.relay.Run(ctx)
			return nil
		})
	}
	if a.consumer != nil {
		logic := kafkahandlers.NewEventConsumerLogic(a.Hub, a.Logger)
		groupID := appKafka.InstanceGroupID(a.Config.Kafka.ConsumerGroupPrefix)
		g.Go(func() error {
			err := a.consumer.Consume(ctx, []string{a.Config.Kafka.EventsTopic}, groupID, logic.HandleEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("Kafka 事件消费者错误: %w", err)
			}
			return nil
		})
	}
}

// Close 释放外部连接，在 Start 启动的 goroutine 全部退出后调用。
func (a *App) Close() {
	if a.consumer != nil {
		a.consumer.Close()
	}
	if a.producer != nil {
		a.producer.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn("关闭 Redis 连接失败", zap.Error(err))
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
