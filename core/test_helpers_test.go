package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

// newMarketService builds a service against in-memory stores with a
// deterministic clock. Callers append options to override any default.
func newMarketService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	base := []Option{
		WithClock(NewStepClock(100)),
	}
	svc, err := NewService(Config{Administrator: "admin_1"}, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func fundedSettlement(t *testing.T, balances map[string]uint64) *MemorySettlement {
	t.Helper()
	settlement := NewMemorySettlement()
	for account, amount := range balances {
		if err := settlement.Deposit(account, amount); err != nil {
			t.Fatalf("deposit %d to %q: %v", amount, account, err)
		}
	}
	return settlement
}

func createActiveListing(t *testing.T, svc *Service, owner string, price uint64) Listing {
	t.Helper()
	listing, err := svc.CreateListing(context.Background(), CreateListingInput{
		Owner:       owner,
		Price:       price,
		Description: "GPS dataset",
		Category:    "transport",
		AccessKey:   "ABC",
	})
	if err != nil {
		t.Fatalf("create listing: %v", err)
	}
	return listing
}

// scriptedSettlement delegates to an in-memory rail but fails every call
// from failFromCall on (1-based). failFromCall 0 never fails.
type scriptedSettlement struct {
	mu           sync.Mutex
	inner        *MemorySettlement
	calls        int
	failFromCall int
}

func (s *scriptedSettlement) Transfer(ctx context.Context, amount uint64, from, to string) error {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	if s.failFromCall > 0 && call >= s.failFromCall {
		return fmt.Errorf("scripted settlement: transfer %d refused", call)
	}
	return s.inner.Transfer(ctx, amount, from, to)
}

func (s *scriptedSettlement) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// recordingHandler captures dispatched events; failures can be scripted
// per event name.
type recordingHandler struct {
	mu     sync.Mutex
	events []MarketEvent
	failOn map[string]error
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{failOn: map[string]error{}}
}

func (h *recordingHandler) Handle(_ context.Context, event MarketEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err, ok := h.failOn[event.Name]; ok {
		return err
	}
	h.events = append(h.events, event)
	return nil
}

func (h *recordingHandler) captured() []MarketEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]MarketEvent(nil), h.events...)
}

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

// recordingMetrics keeps counter increments keyed by metric name.
type recordingMetrics struct {
	mu       sync.Mutex
	counters map[string]int64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{counters: map[string]int64{}}
}

func (m *recordingMetrics) IncCounter(_ context.Context, name string, value int64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] += value
}

func (m *recordingMetrics) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func (m *recordingMetrics) counterValue(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}
