package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidListingStatusTransition = errors.New("core: invalid listing status transition")
)

const (
	// FirstAssetID is the identifier handed to the first listing; the
	// allocator advances by one per listing and never reuses a value.
	FirstAssetID uint64 = 1

	DefaultFeePercent uint64 = 2
	MaxFeePercent     uint64 = 100

	DefaultMaxDescriptionLength = 256
	DefaultMaxCategoryLength    = 64
	DefaultMaxAccessKeyLength   = 512
)

type ListingStatus string

const (
	ListingStatusActive   ListingStatus = "active"
	ListingStatusInactive ListingStatus = "inactive"
)

// Listing is a catalog entry. CreatedAt holds the ledger clock height
// observed when the listing was created, not wall-clock time.
type Listing struct {
	AssetID     uint64
	Owner       string
	Price       uint64
	Description string
	Category    string
	Status      ListingStatus
	CreatedAt   uint64
}

// Active reports whether the listing can still be purchased. A listing
// that left the active state never returns to it.
func (l Listing) Active() bool {
	return l.Status == ListingStatusActive
}

func (l *Listing) TransitionTo(status ListingStatus) error {
	if l == nil {
		return nil
	}
	if l.Status == status {
		return nil
	}
	if !listingTransitionAllowed(l.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidListingStatusTransition, l.Status, status)
	}
	l.Status = status
	return nil
}

func listingTransitionAllowed(current, next ListingStatus) bool {
	allowed := map[ListingStatus]map[ListingStatus]struct{}{
		ListingStatusActive: {
			ListingStatusInactive: {},
		},
	}
	_, ok := allowed[current][next]
	return ok
}

// Credential pairs an opaque access key with its listing. Credentials are
// written once at listing creation and survive listing deactivation.
type Credential struct {
	AssetID   uint64
	AccessKey string
}

// PurchaseRecord snapshots a completed purchase. Amount and Seller keep
// the values observed at purchase time even if the listing changes later.
// At most one record exists per (Buyer, AssetID); a repeat purchase
// overwrites the prior record.
type PurchaseRecord struct {
	AssetID uint64
	Buyer   string
	Seller  string
	Amount  uint64
	PaidAt  uint64
}

// SellerProfile aggregates per-principal sales statistics. Reputation is
// carried but never mutated by any marketplace operation.
type SellerProfile struct {
	Principal    string
	TotalSales   uint64
	Reputation   uint64
	LastActivity uint64
}

const (
	EventListingCreated      = "market.listing.created"
	EventListingPriceUpdated = "market.listing.price_updated"
	EventListingDeactivated  = "market.listing.deactivated"
	EventPurchaseCompleted   = "market.purchase.completed"
	EventFeeUpdated          = "market.fee.updated"
)

// MarketEvent is a transactional outbox row. Events are staged in the same
// ChangeSet as the mutation that produced them, so an event exists iff its
// operation committed.
type MarketEvent struct {
	ID         string
	Name       string
	AssetID    uint64
	Actor      string
	Height     uint64
	OccurredAt time.Time
	Payload    map[string]any
	Metadata   map[string]any
}

// MarketActivityEntry is the audit-journal projection of a MarketEvent.
type MarketActivityEntry struct {
	ID        string
	EventID   string
	Kind      string
	AssetID   uint64
	Actor     string
	Amount    uint64
	Fee       uint64
	Height    uint64
	Metadata  map[string]any
	CreatedAt time.Time
}

// SplitPrice computes the fee split for a price under a fee percentage:
// fee is floor(price * percent / 100) and payout is the remainder of the
// price after the fee. Integer flooring means payout + fee never exceeds
// price; the floored remainder is simply not collected from the buyer.
func SplitPrice(price, feePercent uint64) (payout, fee uint64) {
	// Decomposed so price*percent cannot overflow for large prices.
	fee = price/100*feePercent + price%100*feePercent/100
	payout = price - fee
	return payout, fee
}

func normalizePrincipal(principal string) string {
	return strings.TrimSpace(principal)
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
