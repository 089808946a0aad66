package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// SettlementEngine is the external value-transfer rail. A call either
// moves the full amount or fails; the marketplace never retries and never
// attempts compensation, it propagates the failure and commits nothing.
type SettlementEngine interface {
	Transfer(ctx context.Context, amount uint64, from, to string) error
}

// LedgerClock reports the host's monotonic height counter, used as the
// timestamp domain for listings, purchases, and profile activity.
// Implementations must never report a value smaller than one they
// already reported.
type LedgerClock interface {
	Height() uint64
}

type CreateListingInput struct {
	Owner       string
	Price       uint64
	Description string
	Category    string
	AccessKey   string
}

type UpdatePriceInput struct {
	Caller   string
	AssetID  uint64
	NewPrice uint64
}

type DeactivateListingInput struct {
	Caller  string
	AssetID uint64
}

type PurchaseInput struct {
	Buyer   string
	AssetID uint64
}

type RevealKeyInput struct {
	Buyer   string
	AssetID uint64
}

type SetFeeInput struct {
	Caller  string
	Percent uint64
}

// ChangeSet is the transient mutation buffer an operation stages while it
// validates and talks to the settlement engine. Ledger.Commit applies the
// whole buffer or none of it; a failed operation discards its buffer.
type ChangeSet struct {
	Listings       []Listing
	Credentials    []Credential
	Purchases      []PurchaseRecord
	Profiles       []SellerProfile
	AdvanceAssetID bool
	FeePercent     *uint64
	TransactionInc uint64
	Events         []MarketEvent
}

func (c ChangeSet) Empty() bool {
	return len(c.Listings) == 0 &&
		len(c.Credentials) == 0 &&
		len(c.Purchases) == 0 &&
		len(c.Profiles) == 0 &&
		!c.AdvanceAssetID &&
		c.FeePercent == nil &&
		c.TransactionInc == 0 &&
		len(c.Events) == 0
}

// Ledger is the single state manager owning the four marketplace maps and
// the global counters. Reads report explicit presence; absent is not an
// error. Commit is all-or-nothing.
type Ledger interface {
	Listing(ctx context.Context, assetID uint64) (Listing, bool, error)
	AccessKey(ctx context.Context, assetID uint64) (string, bool, error)
	PurchaseRecord(ctx context.Context, buyer string, assetID uint64) (PurchaseRecord, bool, error)
	Profile(ctx context.Context, principal string) (SellerProfile, bool, error)
	NextAssetID(ctx context.Context) (uint64, error)
	FeePercent(ctx context.Context) (uint64, error)
	TransactionCount(ctx context.Context) (uint64, error)
	Commit(ctx context.Context, changes ChangeSet) error
}

// OutboxStore exposes the dispatch side of the transactional outbox.
// Events enter through Ledger.Commit (or Enqueue for out-of-band rows)
// and leave once a dispatcher acked them.
type OutboxStore interface {
	Enqueue(ctx context.Context, event MarketEvent) error
	ClaimBatch(ctx context.Context, limit int) ([]MarketEvent, error)
	Ack(ctx context.Context, eventID string) error
	Retry(ctx context.Context, eventID string, cause error, nextAttemptAt time.Time) error
}

type MarketEventHandler interface {
	Handle(ctx context.Context, event MarketEvent) error
}

type ProjectorRegistry interface {
	Register(name string, handler MarketEventHandler)
	Handlers() []MarketEventHandler
}

type DispatchStats struct {
	Claimed   int
	Delivered int
	Retried   int
	Failed    int
}

type EventDispatcher interface {
	DispatchPending(ctx context.Context, batchSize int) (DispatchStats, error)
}

type ActivityFilter struct {
	Actor   string
	AssetID uint64
	Kind    string
	Limit   int
}

// ActivityStore keeps the audit journal projected from market events.
type ActivityStore interface {
	Record(ctx context.Context, entry MarketActivityEntry) error
	List(ctx context.Context, filter ActivityFilter) ([]MarketActivityEntry, error)
}

type StoreProvider interface {
	Ledger() Ledger
	OutboxStore() OutboxStore
	ActivityStore() ActivityStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}
