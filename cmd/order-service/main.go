// cmd/order-service/main.go
package main

import (
	"context"

	"github.com/pkg/errors"

	"orderflow/internal/pkg/bootstrap"
	"orderflow/internal/pkg/constants"
	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/mq"
	"orderflow/internal/pkg/redis"
	"orderflow/internal/service/order/application"
	"orderflow/internal/service/order/infrastructure/adapter"
	"orderflow/internal/service/order/infrastructure/store"
	"orderflow/internal/service/order/interfaces"
)

// main 函数是应用的"组装根" (Composition Root)
// 它只负责创建并组装所有依赖项，然后交给 bootstrap 启动。
func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.OrderServiceName,
		Port:        8080,
		Setup:       setup,
	})
}

func setup(ctx context.Context, app bootstrap.AppCtx) ([]bootstrap.Component, func(), error) {
	cfg := app.Config

	// 1. 基础设施
	redisClient, err := redis.NewClient(cfg.Infra.Redis.Addrs)
	if err != nil {
		return nil, nil, errors.Wrap(err, "init redis client")
	}
	kafkaWriter := mq.NewKafkaWriter(cfg.Infra.Kafka.BrokerList())
	publisher := mq.NewKafkaPublisher(kafkaWriter, cfg.Infra.Kafka.PublishTimeout)

	// 2. 订单存储：Redis 为主，进程内缓存兜底
	orderStore := store.NewResilientOrderStore(redisClient, store.Options{
		KeyPrefix:     cfg.OrderStore.KeyPrefix,
		PrimaryTTL:    cfg.OrderStore.PrimaryTTL,
		OpTimeout:     cfg.OrderStore.OpTimeout,
		CacheTTL:      cfg.OrderStore.CacheTTL,
		CacheMaxSize:  cfg.OrderStore.CacheMaxSize,
		ProbeInterval: cfg.OrderStore.ProbeInterval,
		ProbeTimeout:  cfg.OrderStore.ProbeTimeout,
		ProbeKey:      cfg.OrderStore.ProbeKey,
	})

	// 3. 应用服务与入站适配器
	// 提交事件发布失败时改投 order-created-dlq
	eventPublisher := adapter.NewOrderEventKafkaAdapter(mq.NewDeadLetterPublisher(publisher))
	appSvc := application.NewOrderApplicationService(orderStore, eventPublisher, app.Tracer)

	interfaces.NewOrderHandler(appSvc, app.Tracer).RegisterRoutes(app.Router)

	resultConsumer := bootstrap.NewTopicConsumer(cfg,
		constants.TopicInventoryCheckResult,
		constants.GroupOrderService,
		interfaces.NewInventoryResultHandler(appSvc).Handle,
		publisher,
	)

	components := []bootstrap.Component{orderStore, resultConsumer}
	components = append(components, bootstrap.NewDeadLetterMonitor(cfg,
		constants.GroupDeadLetterMonitor,
		interfaces.DeadLetterHandler,
		constants.TopicOrderCreated,
		constants.TopicInventoryCheckResult,
	)...)

	cleanup := func() {
		if err := kafkaWriter.Close(); err != nil {
			logger.L().Warn().Err(err).Msg("failed to close kafka writer")
		}
		if err := redisClient.Close(); err != nil {
			logger.L().Warn().Err(err).Msg("failed to close redis client")
		}
	}
	return components, cleanup, nil
}
