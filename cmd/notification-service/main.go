// cmd/notification-service/main.go
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/pkg/errors"

	"orderflow/internal/pkg/bootstrap"
	"orderflow/internal/pkg/constants"
	"orderflow/internal/pkg/httpclient"
	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/mq"
	"orderflow/internal/pkg/redis"
	"orderflow/internal/service/notification/application"
	"orderflow/internal/service/notification/infrastructure/adapter"
	"orderflow/internal/service/notification/interfaces"
)

func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.NotificationServiceName,
		Port:        8082,
		Setup:       setup,
	})
}

func setup(ctx context.Context, app bootstrap.AppCtx) ([]bootstrap.Component, func(), error) {
	cfg := app.Config

	redisClient, err := redis.NewClient(cfg.Infra.Redis.Addrs)
	if err != nil {
		return nil, nil, errors.Wrap(err, "init redis client")
	}
	// 只用于把失败的结果事件转发到死信主题
	kafkaWriter := mq.NewKafkaWriter(cfg.Infra.Kafka.BrokerList())
	publisher := mq.NewKafkaPublisher(kafkaWriter, cfg.Infra.Kafka.PublishTimeout)

	// 通知同时写控制台并推送给 WebSocket 订阅者
	hub := interfaces.NewHub()
	app.Router.HandleFunc("/ws", hub.ServeWS).Methods(http.MethodGet)

	// 先读共享的 Redis，失败时再问订单服务，后者在 Redis 故障时可以用本地缓存应答
	orders := adapter.NewFallbackOrderReader(
		adapter.NewRedisOrderReader(redisClient),
		adapter.NewOrderServiceReader(httpclient.NewClient(app.Tracer), cfg.Notification.OrderServiceURL, cfg.Notification.LookupTimeout),
	)

	appSvc := application.NewNotificationService(
		orders,
		app.Tracer,
		adapter.NewConsoleSink(os.Stdout),
		hub,
	)

	consumer := bootstrap.NewTopicConsumer(cfg,
		constants.TopicInventoryCheckResult,
		constants.GroupNotificationService,
		interfaces.NewResultHandler(appSvc).Handle,
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
	return []bootstrap.Component{bootstrap.ComponentFunc(hub.Run), consumer}, cleanup, nil
}
