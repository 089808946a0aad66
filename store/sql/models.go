package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type listingRecord struct {
	bun.BaseModel `bun:"table:market_listings,alias:ml"`

	AssetID       uint64    `bun:"asset_id,pk"`
	Owner         string    `bun:"owner,notnull"`
	Price         uint64    `bun:"price,notnull"`
	Description   string    `bun:"description,notnull"`
	Category      string    `bun:"category,notnull"`
	Status        string    `bun:"status,notnull"`
	CreatedHeight uint64    `bun:"created_height,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type credentialRecord struct {
	bun.BaseModel `bun:"table:market_credentials,alias:mc"`

	AssetID   uint64    `bun:"asset_id,pk"`
	AccessKey string    `bun:"access_key,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type purchaseRecord struct {
	bun.BaseModel `bun:"table:market_purchases,alias:mp"`

	ID         string    `bun:"id,pk"`
	Buyer      string    `bun:"buyer,notnull"`
	AssetID    uint64    `bun:"asset_id,notnull"`
	Seller     string    `bun:"seller,notnull"`
	Amount     uint64    `bun:"amount,notnull"`
	PaidHeight uint64    `bun:"paid_height,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type profileRecord struct {
	bun.BaseModel `bun:"table:market_profiles,alias:mpf"`

	Principal          string    `bun:"principal,pk"`
	TotalSales         uint64    `bun:"total_sales,notnull"`
	Reputation         uint64    `bun:"reputation,notnull"`
	LastActivityHeight uint64    `bun:"last_activity_height,notnull"`
	CreatedAt          time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt          time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// marketStateRecord is a single-row table keyed by marketStateRowID. The
// asset-id counter, fee percent, and transaction count live together so
// Commit can advance them in the same statement batch as the row upserts.
type marketStateRecord struct {
	bun.BaseModel `bun:"table:market_state,alias:ms"`

	ID               string    `bun:"id,pk"`
	NextAssetID      uint64    `bun:"next_asset_id,notnull"`
	FeePercent       uint64    `bun:"fee_percent,notnull"`
	TransactionCount uint64    `bun:"transaction_count,notnull"`
	UpdatedAt        time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type marketOutboxRecord struct {
	bun.BaseModel `bun:"table:market_outbox,alias:mo"`

	ID          string         `bun:"id,pk"`
	EventID     string         `bun:"event_id,notnull"`
	EventName   string         `bun:"event_name,notnull"`
	AssetID     uint64         `bun:"asset_id,notnull"`
	Actor       string         `bun:"actor,notnull"`
	Height      uint64         `bun:"height,notnull"`
	Payload     map[string]any `bun:"payload,type:jsonb,notnull"`
	Metadata    map[string]any `bun:"metadata,type:jsonb,notnull"`
	Status      string         `bun:"status,notnull"`
	Attempts    int            `bun:"attempts,notnull"`
	NextAttempt *time.Time     `bun:"next_attempt_at,nullzero"`
	LastError   string         `bun:"last_error,notnull"`
	OccurredAt  time.Time      `bun:"occurred_at,notnull"`
	CreatedAt   time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type activityEntryRecord struct {
	bun.BaseModel `bun:"table:market_activity_entries,alias:mae"`

	ID        string         `bun:"id,pk"`
	EventID   string         `bun:"event_id,notnull"`
	Kind      string         `bun:"kind,notnull"`
	AssetID   uint64         `bun:"asset_id,notnull"`
	Actor     string         `bun:"actor,notnull"`
	Amount    uint64         `bun:"amount,notnull"`
	Fee       uint64         `bun:"fee,notnull"`
	Height    uint64         `bun:"height,notnull"`
	Metadata  map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
