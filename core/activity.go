package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

type ActivityRetentionPolicy struct {
	TTL    time.Duration
	RowCap int
}

type ActivityRetentionPruner interface {
	Prune(ctx context.Context, policy ActivityRetentionPolicy) (deleted int, err error)
}

// MemoryActivityStore keeps the audit journal in process, newest last.
type MemoryActivityStore struct {
	mu      sync.Mutex
	entries []MarketActivityEntry
}

func NewMemoryActivityStore() *MemoryActivityStore {
	return &MemoryActivityStore{}
}

func (s *MemoryActivityStore) Record(ctx context.Context, entry MarketActivityEntry) error {
	if s == nil {
		return fmt.Errorf("core: activity store is not configured")
	}
	if strings.TrimSpace(entry.ID) == "" {
		return fmt.Errorf("core: activity entry id is required")
	}
	if strings.TrimSpace(entry.Kind) == "" {
		return fmt.Errorf("core: activity entry kind is required")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.Metadata = copyAnyMap(entry.Metadata)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryActivityStore) List(ctx context.Context, filter ActivityFilter) ([]MarketActivityEntry, error) {
	if s == nil {
		return nil, fmt.Errorf("core: activity store is not configured")
	}
	actor := normalizePrincipal(filter.Actor)
	kind := strings.TrimSpace(filter.Kind)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]MarketActivityEntry, 0)
	for i := len(s.entries) - 1; i >= 0; i-- {
		entry := s.entries[i]
		if actor != "" && entry.Actor != actor {
			continue
		}
		if filter.AssetID != 0 && entry.AssetID != filter.AssetID {
			continue
		}
		if kind != "" && entry.Kind != kind {
			continue
		}
		entry.Metadata = copyAnyMap(entry.Metadata)
		out = append(out, entry)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryActivityStore) Prune(ctx context.Context, policy ActivityRetentionPolicy) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("core: activity store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries
	deleted := 0
	if policy.TTL > 0 {
		cutoff := time.Now().UTC().Add(-policy.TTL)
		next := make([]MarketActivityEntry, 0, len(kept))
		for _, entry := range kept {
			if entry.CreatedAt.Before(cutoff) {
				deleted++
				continue
			}
			next = append(next, entry)
		}
		kept = next
	}
	if policy.RowCap > 0 && len(kept) > policy.RowCap {
		over := len(kept) - policy.RowCap
		deleted += over
		kept = append([]MarketActivityEntry(nil), kept[over:]...)
	}
	s.entries = kept
	return deleted, nil
}

// ActivityProjector turns dispatched market events into journal entries.
type ActivityProjector struct {
	store ActivityStore
	idGen IDGenerator
	now   func() time.Time
}

func NewActivityProjector(store ActivityStore, idGen IDGenerator) (*ActivityProjector, error) {
	if store == nil {
		return nil, fmt.Errorf("core: activity store is required")
	}
	if idGen == nil {
		idGen = UUIDGenerator{}
	}
	return &ActivityProjector{
		store: store,
		idGen: idGen,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

func (p *ActivityProjector) Handle(ctx context.Context, event MarketEvent) error {
	if p == nil || p.store == nil {
		return fmt.Errorf("core: activity projector is not configured")
	}
	entry := MarketActivityEntry{
		ID:        p.idGen.NewID(),
		EventID:   strings.TrimSpace(event.ID),
		Kind:      strings.TrimSpace(event.Name),
		AssetID:   event.AssetID,
		Actor:     normalizePrincipal(event.Actor),
		Amount:    payloadUint(event.Payload, "amount"),
		Fee:       payloadUint(event.Payload, "fee"),
		Height:    event.Height,
		Metadata:  RedactSensitiveMap(event.Payload),
		CreatedAt: p.now(),
	}
	return p.store.Record(ctx, entry)
}

// payloadUint tolerates the numeric types a payload picks up on its way
// through JSON columns.
func payloadUint(payload map[string]any, key string) uint64 {
	if len(payload) == 0 {
		return 0
	}
	raw, ok := payload[key]
	if !ok {
		return 0
	}
	switch typed := raw.(type) {
	case uint64:
		return typed
	case int:
		if typed < 0 {
			return 0
		}
		return uint64(typed)
	case int64:
		if typed < 0 {
			return 0
		}
		return uint64(typed)
	case float64:
		if typed < 0 {
			return 0
		}
		return uint64(typed)
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(typed), 10, 64)
		if err == nil {
			return parsed
		}
	}
	return 0
}

var (
	_ ActivityStore           = (*MemoryActivityStore)(nil)
	_ ActivityRetentionPruner = (*MemoryActivityStore)(nil)
	_ MarketEventHandler      = (*ActivityProjector)(nil)
)
