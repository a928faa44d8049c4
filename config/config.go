// Package config assembles the orchestrator's full configuration from
// the ambient pkg/config pieces plus the service-specific environment
// variables named in SPEC_FULL.md §7.
package config

import (
	"github.com/santosdev/order-orchestrator/pkg/config"
)

type Config struct {
	HTTP         config.HTTPConfig
	Postgres     config.PostgresConfig
	RabbitMQ     config.RabbitMQConfig
	JWT          config.JWTConfig
	Services     config.ServicesConfig
	Orchestrator config.OrchestratorConfig
}

func NewConfig() (*Config, error) {
	orchestratorCfg := config.LoadOrchestratorConfig()
	commonConfig := config.LoadCommonConfig(orchestratorCfg.ServiceName, orchestratorCfg.ServicePort)
	jwtConfig := config.LoadJWTConfig(orchestratorCfg.ServiceName)
	servicesConfig := config.LoadServicesConfig()

	return &Config{
		HTTP:         commonConfig.HTTP,
		Postgres:     commonConfig.Postgres,
		RabbitMQ:     commonConfig.RabbitMQ,
		JWT:          *jwtConfig,
		Services:     *servicesConfig,
		Orchestrator: *orchestratorCfg,
	}, nil
}
