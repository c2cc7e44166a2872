package di

import (
	"molstack/application/commands/bus"
	"molstack/application/ports"
	querybus "molstack/application/queries/bus"
	"molstack/application/services"
	"molstack/domain/matching"
	"molstack/infrastructure/config"
	"molstack/interfaces/http/rest"
	"molstack/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Engine       *matching.Engine
	DocumentRepo ports.DocumentRepository
	Archive      ports.ArchiveStore
	Publisher    ports.EventPublisher
	StackService *services.StackService
	CommandBus   *bus.CommandBus
	QueryBus     *querybus.QueryBus
	Router       *rest.Router
}
