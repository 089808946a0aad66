package marketplace

import "github.com/goliatone/go-marketplace/core"

type Config = core.Config

type LimitsConfig = core.LimitsConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type Ledger = core.Ledger
type OutboxStore = core.OutboxStore
type ActivityStore = core.ActivityStore
type ActivityFilter = core.ActivityFilter
type ActivityRetentionPolicy = core.ActivityRetentionPolicy
type ActivityRetentionPruner = core.ActivityRetentionPruner
type SettlementEngine = core.SettlementEngine
type LedgerClock = core.LedgerClock
type IDGenerator = core.IDGenerator
type MarketEventHandler = core.MarketEventHandler
type ProjectorRegistry = core.ProjectorRegistry
type EventDispatcher = core.EventDispatcher

type Listing = core.Listing
type PurchaseRecord = core.PurchaseRecord
type SellerProfile = core.SellerProfile
type MarketEvent = core.MarketEvent
type MarketActivityEntry = core.MarketActivityEntry

type CreateListingInput = core.CreateListingInput
type UpdatePriceInput = core.UpdatePriceInput
type DeactivateListingInput = core.DeactivateListingInput

type PurchaseInput = core.PurchaseInput

type RevealKeyInput = core.RevealKeyInput

type SetFeeInput = core.SetFeeInput

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorMapper       = core.WithErrorMapper
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithLedger            = core.WithLedger
	WithSettlement        = core.WithSettlement
	WithClock             = core.WithClock
	WithIDGenerator       = core.WithIDGenerator
	WithOutboxStore       = core.WithOutboxStore
	WithActivityStore     = core.WithActivityStore
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
