// Package di wires the application together. Providers are consumed by wire;
// wire_gen.go holds the generated initializer.
package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"molstack/application/commands"
	"molstack/application/commands/bus"
	"molstack/application/ports"
	"molstack/application/queries"
	querybus "molstack/application/queries/bus"
	"molstack/application/services"
	"molstack/domain/core/aggregates"
	"molstack/domain/core/valueobjects"
	"molstack/domain/matching"
	"molstack/domain/resolver"
	"molstack/infrastructure/config"
	"molstack/infrastructure/messaging/eventbridge"
	"molstack/infrastructure/messaging/logpublisher"
	"molstack/infrastructure/persistence/badgerdb"
	"molstack/infrastructure/persistence/dynamodb"
	"molstack/infrastructure/persistence/memory"
	"molstack/interfaces/http/rest"
	pkgerrors "molstack/pkg/errors"
	"molstack/pkg/observability"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideMetrics creates the metrics set
func ProvideMetrics(cfg *config.Config) *observability.Metrics {
	return observability.NewMetrics()
}

// ProvideMatchingEngine creates the correspondence engine
func ProvideMatchingEngine(cfg *config.Config, metrics *observability.Metrics) *matching.Engine {
	return matching.NewEngine(matching.Config{
		Budget:      cfg.MatchBudget,
		Parallelism: cfg.MatchParallelism,
	}, metrics)
}

// ProvideResolver creates the overlay resolver
func ProvideResolver(engine *matching.Engine, logger *zap.Logger, metrics *observability.Metrics) *resolver.Resolver {
	return resolver.NewResolver(engine, logger, metrics)
}

// ProvideResolutionScheduler creates the bounded resolution worker pool
func ProvideResolutionScheduler(res *resolver.Resolver, cfg *config.Config, logger *zap.Logger) *services.ResolutionScheduler {
	return services.NewResolutionScheduler(res, cfg.ResolutionWorkers, logger)
}

// ProvideDocumentRepository creates the live document registry
func ProvideDocumentRepository() ports.DocumentRepository {
	return memory.NewDocumentRepository()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideArchiveStore creates the configured archive backend
func ProvideArchiveStore(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) (ports.ArchiveStore, func(), error) {
	switch cfg.ArchiveBackend {
	case "badger":
		store, err := badgerdb.NewArchiveStore(badgerdb.Options{Path: cfg.BadgerPath}, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close archive store", zap.Error(err))
			}
		}, nil
	case "dynamodb":
		store := dynamodb.NewArchiveStore(client, cfg.DynamoDBTable, logger)
		return store, func() {}, nil
	default:
		return nopArchiveStore{}, func() {}, nil
	}
}

// ProvideEventPublisher chooses the event publisher. Production with a bus
// name publishes to EventBridge; everything else logs events.
func ProvideEventPublisher(cfg *config.Config, client *awseventbridge.Client, logger *zap.Logger) ports.EventPublisher {
	if cfg.IsProduction() && cfg.EventBusName != "" {
		return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
	}
	return logpublisher.NewPublisher(logger)
}

// ProvideStackService creates the application facade
func ProvideStackService(
	repo ports.DocumentRepository,
	archive ports.ArchiveStore,
	publisher ports.EventPublisher,
	scheduler *services.ResolutionScheduler,
	logger *zap.Logger,
) *services.StackService {
	return services.NewStackService(repo, archive, publisher, scheduler, logger)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(service *services.StackService, logger *zap.Logger) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus()
	pipeline := bus.NewPipeline(bus.LoggingMiddleware(logger))

	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{&commands.CreateDocumentCommand{}, commands.NewCreateDocumentHandler(service)},
		{&commands.DeleteDocumentCommand{}, commands.NewDeleteDocumentHandler(service)},
		{&commands.ImportDocumentCommand{}, commands.NewImportDocumentHandler(service)},
		{&commands.PushLayerCommand{}, commands.NewPushLayerHandler(service)},
		{&commands.InsertLayerCommand{}, commands.NewInsertLayerHandler(service)},
		{&commands.RemoveLayerCommand{}, commands.NewRemoveLayerHandler(service)},
		{&commands.MoveLayerCommand{}, commands.NewMoveLayerHandler(service)},
	}
	for _, reg := range registrations {
		if err := commandBus.Register(reg.cmd, pipeline.Execute(reg.handler)); err != nil {
			return nil, err
		}
	}
	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(service *services.StackService, logger *zap.Logger) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()
	logging := querybus.LoggingMiddleware(logger)

	registrations := []struct {
		query   querybus.Query
		handler querybus.QueryHandler
	}{
		{&queries.GetStructureQuery{}, queries.NewGetStructureHandler(service)},
		{&queries.ListLayersQuery{}, queries.NewListLayersHandler(service)},
		{&queries.ListDocumentsQuery{}, queries.NewListDocumentsHandler(service)},
		{&queries.ExportDocumentQuery{}, queries.NewExportDocumentHandler(service)},
	}
	for _, reg := range registrations {
		if err := queryBus.Register(reg.query, logging(reg.handler)); err != nil {
			return nil, err
		}
	}
	return queryBus, nil
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	cfg *config.Config,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(commandBus, queryBus, cfg, metrics, logger)
}

// nopArchiveStore satisfies ports.ArchiveStore when archiving is disabled
type nopArchiveStore struct{}

func (nopArchiveStore) Put(ctx context.Context, export *aggregates.Export) error {
	return nil
}

func (nopArchiveStore) Get(ctx context.Context, id valueobjects.DocumentID) (*aggregates.Export, error) {
	return nil, pkgerrors.NewNotFoundError("archiving is disabled")
}

func (nopArchiveStore) Delete(ctx context.Context, id valueobjects.DocumentID) error {
	return nil
}

func (nopArchiveStore) Close() error { return nil }
