// cmd/inventory-service/main.go
package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"orderflow/internal/pkg/bootstrap"
	"orderflow/internal/pkg/constants"
	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/mq"
	"orderflow/internal/pkg/redis"
	"orderflow/internal/service/inventory/application"
	"orderflow/internal/service/inventory/domain"
	"orderflow/internal/service/inventory/infrastructure/adapter"
	"orderflow/internal/service/inventory/interfaces"
)

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.InventoryServiceName,
		Port:        8081,
		Setup:       setup,
	})
}

func setup(ctx context.Context, app bootstrap.AppCtx) ([]bootstrap.Component, func(), error) {
	cfg := app.Config

	redisClient, err := redis.NewClient(cfg.Infra.Redis.Addrs)
	if err != nil {
		return nil, nil, errors.Wrap(err, "init redis client")
	}
	kafkaWriter := mq.NewKafkaWriter(cfg.Infra.Kafka.BrokerList())
	publisher := mq.NewKafkaPublisher(kafkaWriter, cfg.Infra.Kafka.PublishTimeout)

	// 策略表在启动时注册，库存账本被所有 worker 共享
	stock := domain.NewStockLedger(domain.SeedStock())
	perishable := domain.NewPerishableStrategy(domain.SeedExpirations(time.Now()), time.Now)
	registry := domain.NewDefaultRegistry(stock, perishable)
	logger.Ctx(ctx).Info().Int("strategies", registry.Len()).Msg("inventory strategies registered")

	appSvc := application.NewInventoryCheckService(
		registry,
		adapter.NewResultKafkaAdapter(publisher),
		adapter.NewRedisResultLedger(redisClient, cfg.Inventory.ResultTTL, cfg.Inventory.ClaimTTL),
		app.Tracer,
	)

	consumer := bootstrap.NewTopicConsumer(cfg,
		constants.TopicOrderCreated,
		constants.GroupInventoryService,
		interfaces.NewOrderCreatedHandler(appSvc).Handle,
		publisher,
	)

	cleanup := func() {
		if err := kafkaWriter.Close(); err != nil {
			logger.L().Warn().Err(err).Msg("failed to close kafka writer")
		}
		if err := redisClient.Close(); err != nil {
			logger.L().Warn().Err(err).Msg("failed to close redis client")
		}
	}
	return []bootstrap.Component{consumer}, cleanup, nil
}
