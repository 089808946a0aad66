package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-marketplace/core"
	"github.com/google/uuid"
)

func newListingRecord(listing core.Listing, now time.Time) *listingRecord {
	return &listingRecord{
		AssetID:       listing.AssetID,
		Owner:         normalizePrincipal(listing.Owner),
		Price:         listing.Price,
		Description:   listing.Description,
		Category:      listing.Category,
		Status:        string(listing.Status),
		CreatedHeight: listing.CreatedAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (r *listingRecord) toDomain() core.Listing {
	if r == nil {
		return core.Listing{}
	}
	return core.Listing{
		AssetID:     r.AssetID,
		Owner:       r.Owner,
		Price:       r.Price,
		Description: r.Description,
		Category:    r.Category,
		Status:      core.ListingStatus(r.Status),
		CreatedAt:   r.CreatedHeight,
	}
}

func newPurchaseRecord(record core.PurchaseRecord, id string, now time.Time) *purchaseRecord {
	return &purchaseRecord{
		ID:         id,
		Buyer:      normalizePrincipal(record.Buyer),
		AssetID:    record.AssetID,
		Seller:     normalizePrincipal(record.Seller),
		Amount:     record.Amount,
		PaidHeight: record.PaidAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (r *purchaseRecord) toDomain() core.PurchaseRecord {
	if r == nil {
		return core.PurchaseRecord{}
	}
	return core.PurchaseRecord{
		AssetID: r.AssetID,
		Buyer:   r.Buyer,
		Seller:  r.Seller,
		Amount:  r.Amount,
		PaidAt:  r.PaidHeight,
	}
}

func newProfileRecord(profile core.SellerProfile, now time.Time) *profileRecord {
	return &profileRecord{
		Principal:          normalizePrincipal(profile.Principal),
		TotalSales:         profile.TotalSales,
		Reputation:         profile.Reputation,
		LastActivityHeight: profile.LastActivity,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func (r *profileRecord) toDomain() core.SellerProfile {
	if r == nil {
		return core.SellerProfile{}
	}
	return core.SellerProfile{
		Principal:    r.Principal,
		TotalSales:   r.TotalSales,
		Reputation:   r.Reputation,
		LastActivity: r.LastActivityHeight,
	}
}

func newOutboxRecord(event core.MarketEvent, now time.Time) *marketOutboxRecord {
	occurredAt := event.OccurredAt.UTC()
	if occurredAt.IsZero() {
		occurredAt = now
	}
	return &marketOutboxRecord{
		ID:         uuid.NewString(),
		EventID:    strings.TrimSpace(event.ID),
		EventName:  strings.TrimSpace(event.Name),
		AssetID:    event.AssetID,
		Actor:      normalizePrincipal(event.Actor),
		Height:     event.Height,
		Payload:    copyAnyMap(event.Payload),
		Metadata:   copyAnyMap(event.Metadata),
		Status:     outboxStatusPending,
		Attempts:   0,
		LastError:  "",
		OccurredAt: occurredAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func outboxRecordToEvent(record marketOutboxRecord) core.MarketEvent {
	event := core.MarketEvent{
		ID:         record.EventID,
		Name:       record.EventName,
		AssetID:    record.AssetID,
		Actor:      record.Actor,
		Height:     record.Height,
		OccurredAt: record.OccurredAt,
		Payload:    copyAnyMap(record.Payload),
		Metadata:   copyAnyMap(record.Metadata),
	}
	event.Metadata[core.MetadataKeyOutboxAttempts] = record.Attempts
	return event
}

func (r *activityEntryRecord) toDomain() core.MarketActivityEntry {
	if r == nil {
		return core.MarketActivityEntry{}
	}
	return core.MarketActivityEntry{
		ID:        r.ID,
		EventID:   r.EventID,
		Kind:      r.Kind,
		AssetID:   r.AssetID,
		Actor:     r.Actor,
		Amount:    r.Amount,
		Fee:       r.Fee,
		Height:    r.Height,
		Metadata:  copyAnyMap(r.Metadata),
		CreatedAt: r.CreatedAt,
	}
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
