package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	outboxStatusPending    = "pending"
	outboxStatusProcessing = "processing"
	outboxStatusDelivered  = "delivered"
	outboxStatusFailed     = "failed"
)

type purchaseKey struct {
	buyer   string
	assetID uint64
}

type memoryOutboxRow struct {
	event         MarketEvent
	status        string
	attempts      int
	lastError     string
	nextAttemptAt time.Time
}

// MemoryLedger is the canonical in-process state manager: four maps and
// three counters behind one mutex. Commit applies a whole ChangeSet or,
// when validation rejects it, nothing at all. The embedded outbox rows
// make it double as the dispatch store for events it committed.
type MemoryLedger struct {
	mu          sync.Mutex
	listings    map[uint64]Listing
	credentials map[uint64]string
	purchases   map[purchaseKey]PurchaseRecord
	profiles    map[string]SellerProfile
	nextAssetID uint64
	feePercent  uint64
	txCount     uint64
	outbox      []memoryOutboxRow
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		listings:    map[uint64]Listing{},
		credentials: map[uint64]string{},
		purchases:   map[purchaseKey]PurchaseRecord{},
		profiles:    map[string]SellerProfile{},
		nextAssetID: FirstAssetID,
		feePercent:  DefaultFeePercent,
	}
}

func (m *MemoryLedger) Listing(ctx context.Context, assetID uint64) (Listing, bool, error) {
	if m == nil {
		return Listing{}, false, fmt.Errorf("core: memory ledger is not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	listing, ok := m.listings[assetID]
	return listing, ok, nil
}

func (m *MemoryLedger) AccessKey(ctx context.Context, assetID uint64) (string, bool, error) {
	if m == nil {
		return "", false, fmt.Errorf("core: memory ledger is not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.credentials[assetID]
	return key, ok, nil
}

func (m *MemoryLedger) PurchaseRecord(ctx context.Context, buyer string, assetID uint64) (PurchaseRecord, bool, error) {
	if m == nil {
		return PurchaseRecord{}, false, fmt.Errorf("core: memory ledger is not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.purchases[purchaseKey{buyer: normalizePrincipal(buyer), assetID: assetID}]
	return record, ok, nil
}

func (m *MemoryLedger) Profile(ctx context.Context, principal string) (SellerProfile, bool, error) {
	if m == nil {
		return SellerProfile{}, false, fmt.Errorf("core: memory ledger is not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[normalizePrincipal(principal)]
	return profile, ok, nil
}

func (m *MemoryLedger) NextAssetID(ctx context.Context) (uint64, error) {
	if m == nil {
		return 0, fmt.Errorf("core: memory ledger is not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextAssetID, nil
}

func (m *MemoryLedger) FeePercent(ctx context.Context) (uint64, error) {
	if m == nil {
		return 0, fmt.Errorf("core: memory ledger is not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.feePercent, nil
}

func (m *MemoryLedger) TransactionCount(ctx context.Context) (uint64, error) {
	if m == nil {
		return 0, fmt.Errorf("core: memory ledger is not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txCount, nil
}

func (m *MemoryLedger) Commit(ctx context.Context, changes ChangeSet) error {
	if m == nil {
		return fmt.Errorf("core: memory ledger is not configured")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validation precedes every write so a rejected ChangeSet leaves the
	// ledger untouched.
	for _, listing := range changes.Listings {
		if listing.AssetID == 0 {
			return fmt.Errorf("core: listing asset id is required")
		}
		if normalizePrincipal(listing.Owner) == "" {
			return fmt.Errorf("core: listing owner is required")
		}
	}
	for _, credential := range changes.Credentials {
		if credential.AssetID == 0 {
			return fmt.Errorf("core: credential asset id is required")
		}
		if strings.TrimSpace(credential.AccessKey) == "" {
			return fmt.Errorf("core: credential access key is required")
		}
	}
	for _, record := range changes.Purchases {
		if record.AssetID == 0 || normalizePrincipal(record.Buyer) == "" {
			return fmt.Errorf("core: purchase record identity is incomplete")
		}
	}
	for _, profile := range changes.Profiles {
		if normalizePrincipal(profile.Principal) == "" {
			return fmt.Errorf("core: profile principal is required")
		}
	}
	if changes.FeePercent != nil && *changes.FeePercent > MaxFeePercent {
		return fmt.Errorf("core: fee percent %d exceeds %d", *changes.FeePercent, MaxFeePercent)
	}
	for _, event := range changes.Events {
		if strings.TrimSpace(event.ID) == "" || strings.TrimSpace(event.Name) == "" {
			return fmt.Errorf("core: outbox event id and name are required")
		}
	}

	for _, listing := range changes.Listings {
		listing.Owner = normalizePrincipal(listing.Owner)
		m.listings[listing.AssetID] = listing
	}
	for _, credential := range changes.Credentials {
		m.credentials[credential.AssetID] = credential.AccessKey
	}
	for _, record := range changes.Purchases {
		record.Buyer = normalizePrincipal(record.Buyer)
		record.Seller = normalizePrincipal(record.Seller)
		m.purchases[purchaseKey{buyer: record.Buyer, assetID: record.AssetID}] = record
	}
	for _, profile := range changes.Profiles {
		profile.Principal = normalizePrincipal(profile.Principal)
		m.profiles[profile.Principal] = profile
	}
	if changes.AdvanceAssetID {
		m.nextAssetID++
	}
	if changes.FeePercent != nil {
		m.feePercent = *changes.FeePercent
	}
	m.txCount += changes.TransactionInc
	for _, event := range changes.Events {
		m.outbox = append(m.outbox, memoryOutboxRow{
			event:  cloneMarketEvent(event),
			status: outboxStatusPending,
		})
	}
	return nil
}

func (m *MemoryLedger) Enqueue(ctx context.Context, event MarketEvent) error {
	if m == nil {
		return fmt.Errorf("core: memory ledger is not configured")
	}
	if strings.TrimSpace(event.ID) == "" {
		return fmt.Errorf("core: outbox event id is required")
	}
	if strings.TrimSpace(event.Name) == "" {
		return fmt.Errorf("core: outbox event name is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outbox = append(m.outbox, memoryOutboxRow{
		event:  cloneMarketEvent(event),
		status: outboxStatusPending,
	})
	return nil
}

func (m *MemoryLedger) ClaimBatch(ctx context.Context, limit int) ([]MarketEvent, error) {
	if m == nil {
		return nil, fmt.Errorf("core: memory ledger is not configured")
	}
	if limit <= 0 {
		limit = 1
	}
	now := time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()

	claimed := make([]MarketEvent, 0, limit)
	for i := range m.outbox {
		if len(claimed) >= limit {
			break
		}
		row := &m.outbox[i]
		if row.status != outboxStatusPending {
			continue
		}
		if !row.nextAttemptAt.IsZero() && row.nextAttemptAt.After(now) {
			continue
		}
		row.status = outboxStatusProcessing
		event := cloneMarketEvent(row.event)
		event.Metadata[MetadataKeyOutboxAttempts] = row.attempts
		claimed = append(claimed, event)
	}
	return claimed, nil
}

func (m *MemoryLedger) Ack(ctx context.Context, eventID string) error {
	if m == nil {
		return fmt.Errorf("core: memory ledger is not configured")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return fmt.Errorf("core: outbox event id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.outbox {
		if m.outbox[i].event.ID != eventID {
			continue
		}
		m.outbox[i].status = outboxStatusDelivered
		return nil
	}
	return fmt.Errorf("core: outbox event %q not found", eventID)
}

func (m *MemoryLedger) Retry(ctx context.Context, eventID string, cause error, nextAttemptAt time.Time) error {
	if m == nil {
		return fmt.Errorf("core: memory ledger is not configured")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return fmt.Errorf("core: outbox event id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.outbox {
		row := &m.outbox[i]
		if row.event.ID != eventID {
			continue
		}
		row.attempts++
		if cause != nil {
			row.lastError = cause.Error()
		}
		if nextAttemptAt.IsZero() {
			row.status = outboxStatusFailed
			return nil
		}
		row.status = outboxStatusPending
		row.nextAttemptAt = nextAttemptAt.UTC()
		return nil
	}
	return fmt.Errorf("core: outbox event %q not found", eventID)
}

func cloneMarketEvent(event MarketEvent) MarketEvent {
	cloned := event
	cloned.Payload = copyAnyMap(event.Payload)
	cloned.Metadata = copyAnyMap(event.Metadata)
	return cloned
}

var (
	_ Ledger      = (*MemoryLedger)(nil)
	_ OutboxStore = (*MemoryLedger)(nil)
)
