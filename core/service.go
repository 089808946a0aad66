package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Service orchestrates the marketplace ledger: it validates operations,
// drives the settlement engine, and commits staged ChangeSets through the
// Ledger. Mutating operations run one at a time behind a single mutex, so
// every call observes either all effects of a prior call or none.
type Service struct {
	mu sync.Mutex

	config            Config
	admin             string
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorMapper       ErrorMapper
	persistenceClient any
	repositoryFactory any
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	ledger            Ledger
	settlement        SettlementEngine
	clock             LedgerClock
	idGenerator       IDGenerator
	outboxStore       OutboxStore
	activityStore     ActivityStore
}

type ServiceDependencies struct {
	Logger            Logger
	LoggerProvider    LoggerProvider
	MetricsRecorder   MetricsRecorder
	ErrorMapper       ErrorMapper
	PersistenceClient any
	RepositoryFactory any
	ConfigProvider    ConfigProvider
	OptionsResolver   OptionsResolver
	Ledger            Ledger
	Settlement        SettlementEngine
	Clock             LedgerClock
	IDGenerator       IDGenerator
	OutboxStore       OutboxStore
	ActivityStore     ActivityStore
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("marketplace", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("marketplace"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.clock == nil {
		builder.clock = UnixClock{}
	}
	if builder.idGenerator == nil {
		builder.idGenerator = UUIDGenerator{}
	}
	if builder.settlement == nil {
		builder.settlement = NewMemorySettlement()
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	admin := normalizePrincipal(finalConfig.Administrator)
	if admin == "" {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: administrator principal is required"))
	}

	if builder.ledger == nil && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			storeProvider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if storeProvider != nil {
				builder.ledger = storeProvider.Ledger()
				if builder.outboxStore == nil {
					builder.outboxStore = storeProvider.OutboxStore()
				}
				if builder.activityStore == nil {
					builder.activityStore = storeProvider.ActivityStore()
				}
			}
		} else if storeProvider, ok := builder.repositoryFactory.(StoreProvider); ok {
			builder.ledger = storeProvider.Ledger()
			if builder.outboxStore == nil {
				builder.outboxStore = storeProvider.OutboxStore()
			}
			if builder.activityStore == nil {
				builder.activityStore = storeProvider.ActivityStore()
			}
		}
	}
	if builder.ledger == nil {
		memory := NewMemoryLedger()
		if finalConfig.FeePercent != DefaultFeePercent {
			fee := finalConfig.FeePercent
			if seedErr := memory.Commit(context.Background(), ChangeSet{FeePercent: &fee}); seedErr != nil {
				return nil, mapBuildError(builder.errorMapper, seedErr)
			}
		}
		builder.ledger = memory
	}
	if builder.outboxStore == nil {
		if store, ok := builder.ledger.(OutboxStore); ok {
			builder.outboxStore = store
		}
	}
	if builder.activityStore == nil {
		builder.activityStore = NewMemoryActivityStore()
	}

	return &Service{
		config:            finalConfig,
		admin:             admin,
		logger:            logger,
		loggerProvider:    provider,
		metricsRecorder:   builder.metricsRecorder,
		errorMapper:       builder.errorMapper,
		persistenceClient: builder.persistenceClient,
		repositoryFactory: builder.repositoryFactory,
		configProvider:    builder.configProvider,
		optionsResolver:   builder.optionsResolver,
		ledger:            builder.ledger,
		settlement:        builder.settlement,
		clock:             builder.clock,
		idGenerator:       builder.idGenerator,
		outboxStore:       builder.outboxStore,
		activityStore:     builder.activityStore,
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

// Administrator returns the fee-collecting principal fixed at
// construction.
func (s *Service) Administrator() string {
	if s == nil {
		return ""
	}
	return s.admin
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:            s.logger,
		LoggerProvider:    s.loggerProvider,
		MetricsRecorder:   s.metricsRecorder,
		ErrorMapper:       s.errorMapper,
		PersistenceClient: s.persistenceClient,
		RepositoryFactory: s.repositoryFactory,
		ConfigProvider:    s.configProvider,
		OptionsResolver:   s.optionsResolver,
		Ledger:            s.ledger,
		Settlement:        s.settlement,
		Clock:             s.clock,
		IDGenerator:       s.idGenerator,
		OutboxStore:       s.outboxStore,
		ActivityStore:     s.activityStore,
	}
}

// GetListing reads a listing without authorization; absence is reported
// through the second return, not as an error.
func (s *Service) GetListing(ctx context.Context, assetID uint64) (Listing, bool, error) {
	if s == nil || s.ledger == nil {
		return Listing{}, false, fmt.Errorf("core: ledger is not configured")
	}
	listing, ok, err := s.ledger.Listing(ctx, assetID)
	if err != nil {
		return Listing{}, false, s.mapError(err)
	}
	return listing, ok, nil
}

// GetProfile reads a seller profile; absence means the principal never
// completed a sale.
func (s *Service) GetProfile(ctx context.Context, principal string) (SellerProfile, bool, error) {
	if s == nil || s.ledger == nil {
		return SellerProfile{}, false, fmt.Errorf("core: ledger is not configured")
	}
	profile, ok, err := s.ledger.Profile(ctx, normalizePrincipal(principal))
	if err != nil {
		return SellerProfile{}, false, s.mapError(err)
	}
	return profile, ok, nil
}

func (s *Service) TransactionCount(ctx context.Context) (uint64, error) {
	if s == nil || s.ledger == nil {
		return 0, fmt.Errorf("core: ledger is not configured")
	}
	count, err := s.ledger.TransactionCount(ctx)
	if err != nil {
		return 0, s.mapError(err)
	}
	return count, nil
}

func (s *Service) FeePercent(ctx context.Context) (uint64, error) {
	if s == nil || s.ledger == nil {
		return 0, fmt.Errorf("core: ledger is not configured")
	}
	percent, err := s.ledger.FeePercent(ctx)
	if err != nil {
		return 0, s.mapError(err)
	}
	return percent, nil
}

// NextAssetID reports the id the next created listing will receive.
func (s *Service) NextAssetID(ctx context.Context) (uint64, error) {
	if s == nil || s.ledger == nil {
		return 0, fmt.Errorf("core: ledger is not configured")
	}
	next, err := s.ledger.NextAssetID(ctx)
	if err != nil {
		return 0, s.mapError(err)
	}
	return next, nil
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) newEvent(name string, assetID uint64, actor string, height uint64, payload map[string]any) MarketEvent {
	event := MarketEvent{
		Name:       name,
		AssetID:    assetID,
		Actor:      actor,
		Height:     height,
		OccurredAt: time.Now().UTC(),
		Payload:    copyAnyMap(payload),
		Metadata:   map[string]any{},
	}
	if s != nil && s.idGenerator != nil {
		event.ID = s.idGenerator.NewID()
	}
	return event
}
