package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/goliatone/go-marketplace/core"
)

func TestGetListingQuery_QueryDelegates(t *testing.T) {
	expected := core.Listing{
		AssetID:     1,
		Owner:       "seller_1",
		Price:       1_000_000,
		Description: "GPS dataset",
		Category:    "transport",
		Status:      core.ListingStatusActive,
	}
	called := false
	reader := stubMarketReader{
		getListingFn: func(_ context.Context, assetID uint64) (core.Listing, bool, error) {
			called = true
			if assetID != 1 {
				t.Fatalf("unexpected asset id %d", assetID)
			}
			return expected, true, nil
		},
	}

	qry := NewGetListingQuery(reader)
	result, err := qry.Query(context.Background(), GetListingMessage{AssetID: 1})
	if err != nil {
		t.Fatalf("query listing: %v", err)
	}
	if !called {
		t.Fatalf("expected market reader invocation")
	}
	if result.Owner != expected.Owner || result.Price != expected.Price {
		t.Fatalf("unexpected listing result: %#v", result)
	}
}

func TestGetListingQuery_AbsentMapsToNotFound(t *testing.T) {
	reader := stubMarketReader{
		getListingFn: func(_ context.Context, assetID uint64) (core.Listing, bool, error) {
			return core.Listing{}, false, nil
		},
	}

	_, err := NewGetListingQuery(reader).Query(context.Background(), GetListingMessage{AssetID: 9})
	if err == nil {
		t.Fatalf("expected not found error")
	}
	code, ok := core.MarketErrorCode(err)
	if !ok || code != core.CodeNotFound {
		t.Fatalf("expected not found code, got %d (ok=%v)", code, ok)
	}
}

func TestGetProfileQuery_QueryDelegates(t *testing.T) {
	expected := core.SellerProfile{
		Principal:    "seller_1",
		TotalSales:   3,
		LastActivity: 140,
	}
	called := false
	reader := stubMarketReader{
		getProfileFn: func(_ context.Context, principal string) (core.SellerProfile, bool, error) {
			called = true
			if principal != "seller_1" {
				t.Fatalf("unexpected principal %q", principal)
			}
			return expected, true, nil
		},
	}

	result, err := NewGetProfileQuery(reader).Query(context.Background(), GetProfileMessage{Principal: "seller_1"})
	if err != nil {
		t.Fatalf("query profile: %v", err)
	}
	if !called {
		t.Fatalf("expected market reader invocation")
	}
	if result.TotalSales != expected.TotalSales {
		t.Fatalf("unexpected profile result: %#v", result)
	}
}

func TestGetProfileQuery_AbsentMapsToNotFound(t *testing.T) {
	reader := stubMarketReader{
		getProfileFn: func(_ context.Context, principal string) (core.SellerProfile, bool, error) {
			return core.SellerProfile{}, false, nil
		},
	}

	_, err := NewGetProfileQuery(reader).Query(context.Background(), GetProfileMessage{Principal: "ghost"})
	if err == nil {
		t.Fatalf("expected not found error")
	}
	code, ok := core.MarketErrorCode(err)
	if !ok || code != core.CodeNotFound {
		t.Fatalf("expected not found code, got %d (ok=%v)", code, ok)
	}
}

func TestCounterQueries_Delegate(t *testing.T) {
	reader := stubMarketReader{
		feePercentFn: func(_ context.Context) (uint64, error) {
			return 7, nil
		},
		transactionCountFn: func(_ context.Context) (uint64, error) {
			return 42, nil
		},
	}

	fee, err := NewGetFeeQuery(reader).Query(context.Background(), GetFeeMessage{})
	if err != nil {
		t.Fatalf("query fee: %v", err)
	}
	if fee != 7 {
		t.Fatalf("unexpected fee result: %d", fee)
	}

	count, err := NewGetTransactionCountQuery(reader).Query(context.Background(), GetTransactionCountMessage{})
	if err != nil {
		t.Fatalf("query transaction count: %v", err)
	}
	if count != 42 {
		t.Fatalf("unexpected transaction count result: %d", count)
	}
}

func TestListMarketActivityQuery_QueryDelegates(t *testing.T) {
	expected := []core.MarketActivityEntry{
		{ID: "act_1", Kind: core.EventPurchaseCompleted, AssetID: 1, Actor: "buyer_1", Amount: 1_000_000},
	}
	called := false
	reader := stubActivityReader{
		listFn: func(_ context.Context, filter core.ActivityFilter) ([]core.MarketActivityEntry, error) {
			called = true
			if filter.Actor != "buyer_1" || filter.Limit != 10 {
				t.Fatalf("unexpected activity filter: %#v", filter)
			}
			return expected, nil
		},
	}

	result, err := NewListMarketActivityQuery(reader).Query(context.Background(), ListMarketActivityMessage{
		Filter: core.ActivityFilter{Actor: "buyer_1", Limit: 10},
	})
	if err != nil {
		t.Fatalf("query activity: %v", err)
	}
	if !called {
		t.Fatalf("expected activity reader invocation")
	}
	if len(result) != 1 || result[0].ID != "act_1" {
		t.Fatalf("unexpected activity result: %#v", result)
	}
}

func TestQueryMessageValidation(t *testing.T) {
	tests := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{
			name:    "get listing valid",
			msg:     GetListingMessage{AssetID: 1},
			wantErr: false,
		},
		{
			name:    "get listing zero asset",
			msg:     GetListingMessage{},
			wantErr: true,
		},
		{
			name:    "get profile valid",
			msg:     GetProfileMessage{Principal: "seller_1"},
			wantErr: false,
		},
		{
			name:    "get profile blank principal",
			msg:     GetProfileMessage{Principal: "   "},
			wantErr: true,
		},
		{
			name:    "get fee always valid",
			msg:     GetFeeMessage{},
			wantErr: false,
		},
		{
			name:    "get transaction count always valid",
			msg:     GetTransactionCountMessage{},
			wantErr: false,
		},
		{
			name:    "activity list valid",
			msg:     ListMarketActivityMessage{Filter: core.ActivityFilter{Limit: 50}},
			wantErr: false,
		},
		{
			name:    "activity list negative limit",
			msg:     ListMarketActivityMessage{Filter: core.ActivityFilter{Limit: -1}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type stubMarketReader struct {
	getListingFn       func(ctx context.Context, assetID uint64) (core.Listing, bool, error)
	getProfileFn       func(ctx context.Context, principal string) (core.SellerProfile, bool, error)
	feePercentFn       func(ctx context.Context) (uint64, error)
	transactionCountFn func(ctx context.Context) (uint64, error)
}

func (s stubMarketReader) GetListing(ctx context.Context, assetID uint64) (core.Listing, bool, error) {
	if s.getListingFn == nil {
		return core.Listing{}, false, fmt.Errorf("get listing not configured")
	}
	return s.getListingFn(ctx, assetID)
}

func (s stubMarketReader) GetProfile(ctx context.Context, principal string) (core.SellerProfile, bool, error) {
	if s.getProfileFn == nil {
		return core.SellerProfile{}, false, fmt.Errorf("get profile not configured")
	}
	return s.getProfileFn(ctx, principal)
}

func (s stubMarketReader) FeePercent(ctx context.Context) (uint64, error) {
	if s.feePercentFn == nil {
		return 0, fmt.Errorf("fee percent not configured")
	}
	return s.feePercentFn(ctx)
}

func (s stubMarketReader) TransactionCount(ctx context.Context) (uint64, error) {
	if s.transactionCountFn == nil {
		return 0, fmt.Errorf("transaction count not configured")
	}
	return s.transactionCountFn(ctx)
}

type stubActivityReader struct {
	listFn func(ctx context.Context, filter core.ActivityFilter) ([]core.MarketActivityEntry, error)
}

func (s stubActivityReader) List(ctx context.Context, filter core.ActivityFilter) ([]core.MarketActivityEntry, error) {
	if s.listFn == nil {
		return nil, fmt.Errorf("list activity not configured")
	}
	return s.listFn(ctx, filter)
}

var (
	_ MarketReader   = stubMarketReader{}
	_ ActivityReader = stubActivityReader{}
)
