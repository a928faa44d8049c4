// Package messaging bootstraps the shared RabbitMQ connection from the
// common config. The publish/consume surface itself lives in
// pkg/rabbitmq and internal/bus; this package is left with just the
// connection bootstrap that internal/app needs.
package messaging

import (
	"github.com/santosdev/order-orchestrator/pkg/config"
	"github.com/santosdev/order-orchestrator/pkg/rabbitmq"
)

// InitRabbitMQ opens a RabbitMQ connection using the common config.
func InitRabbitMQ(cfg config.RabbitMQConfig) (*rabbitmq.RabbitMQ, error) {
	rmqCfg := rabbitmq.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		VHost:    cfg.VHost,
	}

	return rabbitmq.NewRabbitMQ(rmqCfg)
}
