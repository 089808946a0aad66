package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultReplayLedgerTTL = 5 * time.Minute
const defaultReplayLedgerMaxEntries = 8192

// ReplayLedger records recently observed delivery keys so at-least-once
// consumers can drop duplicates. Claim returns false when the key was
// already claimed inside its TTL window.
type ReplayLedger interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
	PurgeExpired(ctx context.Context) (int, error)
}

type MemoryReplayLedger struct {
	mu         sync.Mutex
	defaultTTL time.Duration
	maxEntries int
	entries    map[string]time.Time
	Now        func() time.Time
}

func NewMemoryReplayLedger(defaultTTL time.Duration) *MemoryReplayLedger {
	return NewMemoryReplayLedgerWithLimits(defaultTTL, defaultReplayLedgerMaxEntries)
}

func NewMemoryReplayLedgerWithLimits(defaultTTL time.Duration, maxEntries int) *MemoryReplayLedger {
	if defaultTTL <= 0 {
		defaultTTL = defaultReplayLedgerTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultReplayLedgerMaxEntries
	}
	return &MemoryReplayLedger{
		defaultTTL: defaultTTL,
		maxEntries: maxEntries,
		entries:    map[string]time.Time{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (l *MemoryReplayLedger) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if l == nil {
		return false, fmt.Errorf("core: replay ledger is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false, fmt.Errorf("core: replay key is required")
	}
	if ttl <= 0 {
		ttl = l.defaultTTL
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneExpiredLocked(now)
	if expiresAt, ok := l.entries[key]; ok {
		if now.Before(expiresAt) {
			return false, nil
		}
		delete(l.entries, key)
	}
	l.enforceCapacityLocked(now, 1)
	l.entries[key] = now.Add(ttl)
	return true, nil
}

func (l *MemoryReplayLedger) Release(_ context.Context, key string) error {
	if l == nil {
		return fmt.Errorf("core: replay ledger is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("core: replay key is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
	return nil
}

func (l *MemoryReplayLedger) PurgeExpired(_ context.Context) (int, error) {
	if l == nil {
		return 0, fmt.Errorf("core: replay ledger is not configured")
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	pruned := 0
	for key, expiresAt := range l.entries {
		if !now.Before(expiresAt) {
			delete(l.entries, key)
			pruned++
		}
	}
	return pruned, nil
}

func (l *MemoryReplayLedger) now() time.Time {
	if l != nil && l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

func (l *MemoryReplayLedger) pruneExpiredLocked(now time.Time) {
	for key, expiresAt := range l.entries {
		if !now.Before(expiresAt) {
			delete(l.entries, key)
		}
	}
}

func (l *MemoryReplayLedger) enforceCapacityLocked(now time.Time, incoming int) {
	if l.maxEntries <= 0 {
		return
	}
	target := l.maxEntries - incoming
	if target < 0 {
		target = 0
	}
	for len(l.entries) > target {
		l.evictOldestLocked(now)
	}
}

func (l *MemoryReplayLedger) evictOldestLocked(now time.Time) {
	var oldestKey string
	var oldestExpiry time.Time
	for key, expiry := range l.entries {
		if oldestKey == "" || expiry.Before(oldestExpiry) {
			oldestKey = key
			oldestExpiry = expiry
		}
	}
	if oldestKey != "" {
		delete(l.entries, oldestKey)
		return
	}
	for key := range l.entries {
		delete(l.entries, key)
		break
	}
	_ = now
}

// ReplayGuardProjector drops duplicate event deliveries before they reach the
// wrapped handler. Outbox dispatch is at-least-once, so a projector that is
// not naturally idempotent should sit behind one of these.
type ReplayGuardProjector struct {
	name   string
	next   MarketEventHandler
	ledger ReplayLedger
	ttl    time.Duration
}

func NewReplayGuardProjector(name string, next MarketEventHandler, ledger ReplayLedger, ttl time.Duration) (*ReplayGuardProjector, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("core: replay guard name is required")
	}
	if next == nil {
		return nil, fmt.Errorf("core: replay guard requires a handler to wrap")
	}
	if ledger == nil {
		ledger = NewMemoryReplayLedger(defaultReplayLedgerTTL)
	}
	return &ReplayGuardProjector{
		name:   name,
		next:   next,
		ledger: ledger,
		ttl:    ttl,
	}, nil
}

func (p *ReplayGuardProjector) Handle(ctx context.Context, event MarketEvent) error {
	if p == nil || p.next == nil {
		return fmt.Errorf("core: replay guard projector is not configured")
	}
	eventID := strings.TrimSpace(event.ID)
	if eventID == "" {
		return fmt.Errorf("core: replay guard requires an event id")
	}
	// Keys are scoped per guard so two projectors can consume the same event.
	key := p.name + ":" + eventID
	accepted, err := p.ledger.Claim(ctx, key, p.ttl)
	if err != nil {
		return fmt.Errorf("core: replay claim for event %s: %w", eventID, err)
	}
	if !accepted {
		return nil
	}
	if err := p.next.Handle(ctx, event); err != nil {
		// Release on failure so the dispatcher retry is not mistaken for a
		// replay. A claim that cannot be released expires with its TTL.
		_ = p.ledger.Release(ctx, key)
		return err
	}
	return nil
}

var (
	_ ReplayLedger       = (*MemoryReplayLedger)(nil)
	_ MarketEventHandler = (*ReplayGuardProjector)(nil)
)
