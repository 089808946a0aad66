package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// OperationalActivitySink decouples journal writes from the hot path. Record
// hands the entry to a buffered queue drained by a single goroutine; when the
// queue is saturated the entry goes straight to the fallback store so the
// caller never blocks on a slow journal.
type OperationalActivitySink struct {
	primary  ActivityStore
	fallback ActivityStore
	policy   ActivityRetentionPolicy
	pruner   ActivityRetentionPruner

	queue chan MarketActivityEntry
	now   func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewOperationalActivitySink(
	primary ActivityStore,
	fallback ActivityStore,
	policy ActivityRetentionPolicy,
	bufferSize int,
) (*OperationalActivitySink, error) {
	if primary == nil {
		return nil, fmt.Errorf("core: primary activity store is required")
	}
	if bufferSize <= 0 {
		bufferSize = 128
	}

	sink := &OperationalActivitySink{
		primary:  primary,
		fallback: fallback,
		policy:   policy,
		queue:    make(chan MarketActivityEntry, bufferSize),
		now: func() time.Time {
			return time.Now().UTC()
		},
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	if pruner, ok := primary.(ActivityRetentionPruner); ok {
		sink.pruner = pruner
	}

	go sink.run()
	return sink, nil
}

func (s *OperationalActivitySink) Record(ctx context.Context, entry MarketActivityEntry) error {
	if s == nil || s.primary == nil {
		return fmt.Errorf("core: operational activity sink is not configured")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case s.queue <- entry:
		return nil
	default:
		if s.fallback != nil {
			return s.fallback.Record(ctx, entry)
		}
		return nil
	}
}

func (s *OperationalActivitySink) List(ctx context.Context, filter ActivityFilter) ([]MarketActivityEntry, error) {
	if s == nil || s.primary == nil {
		return nil, fmt.Errorf("core: operational activity sink is not configured")
	}
	return s.primary.List(ctx, filter)
}

func (s *OperationalActivitySink) EnforceRetention(ctx context.Context) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("core: operational activity sink is not configured")
	}
	pruner := s.pruner
	if pruner == nil {
		if p, ok := s.primary.(ActivityRetentionPruner); ok {
			pruner = p
		}
	}
	if pruner == nil {
		return 0, nil
	}
	return pruner.Prune(ctx, s.policy)
}

func (s *OperationalActivitySink) Close() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh
	})
}

func (s *OperationalActivitySink) run() {
	defer close(s.doneCh)
	for {
		select {
		case <-s.stopCh:
			return
		case entry := <-s.queue:
			if err := s.primary.Record(context.Background(), entry); err != nil && s.fallback != nil {
				_ = s.fallback.Record(context.Background(), entry)
			}
		}
	}
}

var _ ActivityStore = (*OperationalActivitySink)(nil)
