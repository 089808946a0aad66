package gocommand

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-command"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	marketcommand "github.com/goliatone/go-marketplace/command"
	"github.com/goliatone/go-marketplace/core"
	marketquery "github.com/goliatone/go-marketplace/query"
)

type invalidMessage struct{}

func (invalidMessage) Type() string { return "" }

type failingMessage struct{}

func (failingMessage) Type() string { return "market.command.fail" }

func (failingMessage) Validate() error { return errors.New("invalid payload") }

type dispatchMessage struct {
	ID string
}

func (dispatchMessage) Type() string { return "market.command.test" }

type queueMessage struct{}

func (queueMessage) Type() string { return "market.command.queue" }

func TestValidateMessageContract(t *testing.T) {
	if err := ValidateMessageContract(marketcommand.PurchaseMessage{
		Input: core.PurchaseInput{Buyer: "bob", AssetID: 1},
	}); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
	if err := ValidateMessageContract(invalidMessage{}); err == nil {
		t.Fatalf("expected empty type to fail contract validation")
	}
	if err := ValidateMessageContract(failingMessage{}); err == nil {
		t.Fatalf("expected Validate() failure to bubble")
	}
	if err := ValidateMessageContract(marketcommand.PurchaseMessage{}); err == nil {
		t.Fatalf("expected blank buyer to fail contract validation")
	}
}

func TestRegistryAndDispatchWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	executed := 0
	customResolverCalled := 0

	cmd := command.CommandFunc[dispatchMessage](func(context.Context, dispatchMessage) error {
		executed++
		return nil
	})

	if _, err := RegisterAndSubscribe(adapter, cmd); err != nil {
		t.Fatalf("register and subscribe: %v", err)
	}
	if err := adapter.AddResolver("custom", func(any, command.CommandMeta, *command.Registry) error {
		customResolverCalled++
		return nil
	}); err != nil {
		t.Fatalf("add resolver: %v", err)
	}
	if !adapter.HasResolver("custom") {
		t.Fatalf("expected custom resolver to be registered")
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}
	if customResolverCalled == 0 {
		t.Fatalf("expected resolver hook to run during initialization")
	}

	if err := Dispatch(context.Background(), dispatchMessage{ID: "m1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if executed != 1 {
		t.Fatalf("expected command execution count=1, got %d", executed)
	}
}

func TestSubscribeMarketRoundTrip(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	service := &stubMarketService{}

	subs, err := SubscribeMarket(adapter, service, &stubActivityReader{})
	if err != nil {
		t.Fatalf("subscribe market: %v", err)
	}
	defer subs.Unsubscribe()

	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	if err := Dispatch(context.Background(), marketcommand.PurchaseMessage{
		Input: core.PurchaseInput{Buyer: "bob", AssetID: 9},
	}); err != nil {
		t.Fatalf("dispatch purchase: %v", err)
	}
	if service.lastPurchaseAssetID != 9 {
		t.Fatalf("expected purchase delegation, got asset %d", service.lastPurchaseAssetID)
	}

	listing, err := Query[marketquery.GetListingMessage, core.Listing](
		context.Background(),
		marketquery.GetListingMessage{AssetID: 9},
	)
	if err != nil {
		t.Fatalf("query listing: %v", err)
	}
	if listing.AssetID != 9 || listing.Owner != "alice" {
		t.Fatalf("unexpected listing query result: %#v", listing)
	}

	entries, err := Query[marketquery.ListMarketActivityMessage, []core.MarketActivityEntry](
		context.Background(),
		marketquery.ListMarketActivityMessage{Filter: core.ActivityFilter{Kind: "purchase"}},
	)
	if err != nil {
		t.Fatalf("query activity: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != "purchase" {
		t.Fatalf("unexpected activity query result: %#v", entries)
	}
}

func TestSubscribeMarketRequiresService(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	if _, err := SubscribeMarket(adapter, nil, &stubActivityReader{}); err == nil {
		t.Fatalf("expected nil service error")
	}
}

func TestQueueResolverHookWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	queueRegistry := jobqueuecommand.NewRegistry()

	cmd := command.CommandFunc[queueMessage](func(context.Context, queueMessage) error { return nil })

	if err := adapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}
	if err := adapter.RegisterCommand(cmd); err != nil {
		t.Fatalf("register command: %v", err)
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}

	if _, ok := queueRegistry.Get("market.command.queue"); !ok {
		t.Fatalf("expected command to be mirrored into queue registry")
	}
}

type stubMarketService struct {
	lastPurchaseAssetID uint64
}

func (s *stubMarketService) CreateListing(context.Context, core.CreateListingInput) (core.Listing, error) {
	return core.Listing{AssetID: 1, Owner: "alice", Status: core.ListingStatusActive}, nil
}

func (s *stubMarketService) UpdatePrice(_ context.Context, in core.UpdatePriceInput) (core.Listing, error) {
	return core.Listing{AssetID: in.AssetID, Owner: "alice", Price: in.NewPrice}, nil
}

func (s *stubMarketService) DeactivateListing(_ context.Context, in core.DeactivateListingInput) (core.Listing, error) {
	return core.Listing{AssetID: in.AssetID, Owner: "alice", Status: core.ListingStatusInactive}, nil
}

func (s *stubMarketService) Purchase(_ context.Context, in core.PurchaseInput) (core.PurchaseRecord, error) {
	s.lastPurchaseAssetID = in.AssetID
	return core.PurchaseRecord{Buyer: in.Buyer, AssetID: in.AssetID, Seller: "alice"}, nil
}

func (s *stubMarketService) RevealKey(context.Context, core.RevealKeyInput) (string, error) {
	return "key-1", nil
}

func (s *stubMarketService) SetFee(_ context.Context, in core.SetFeeInput) (uint64, error) {
	return in.Percent, nil
}

func (s *stubMarketService) GetListing(_ context.Context, assetID uint64) (core.Listing, bool, error) {
	return core.Listing{AssetID: assetID, Owner: "alice", Price: 500}, true, nil
}

func (s *stubMarketService) GetProfile(_ context.Context, principal string) (core.SellerProfile, bool, error) {
	return core.SellerProfile{Principal: principal, TotalSales: 2}, true, nil
}

func (s *stubMarketService) FeePercent(context.Context) (uint64, error) {
	return core.DefaultFeePercent, nil
}

func (s *stubMarketService) TransactionCount(context.Context) (uint64, error) {
	return 3, nil
}

type stubActivityReader struct{}

func (s *stubActivityReader) List(context.Context, core.ActivityFilter) ([]core.MarketActivityEntry, error) {
	return []core.MarketActivityEntry{{ID: "act_1", EventID: "evt_1", Kind: "purchase", Actor: "bob"}}, nil
}

var _ MarketService = (*stubMarketService)(nil)
