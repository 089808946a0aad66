package core

import (
	"context"
	"testing"
)

func TestService_Purchase_SplitsPriceBetweenSellerAndAdmin(t *testing.T) {
	ctx := context.Background()
	settlement := fundedSettlement(t, map[string]uint64{"buyer_1": 1_000_000})
	svc := newMarketService(t, WithSettlement(settlement))
	listing := createActiveListing(t, svc, "seller_1", 1_000_000)
	if listing.AssetID != 1 {
		t.Fatalf("expected asset id 1, got %d", listing.AssetID)
	}

	record, err := svc.Purchase(ctx, PurchaseInput{Buyer: "buyer_1", AssetID: listing.AssetID})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if record.Amount != 1_000_000 || record.Seller != "seller_1" || record.Buyer != "buyer_1" {
		t.Fatalf("unexpected purchase record: %+v", record)
	}

	if got := settlement.BalanceOf("seller_1"); got != 980_000 {
		t.Fatalf("expected seller payout 980000, got %d", got)
	}
	if got := settlement.BalanceOf("admin_1"); got != 20_000 {
		t.Fatalf("expected admin fee 20000, got %d", got)
	}
	if got := settlement.BalanceOf("buyer_1"); got != 0 {
		t.Fatalf("expected buyer drained to 0, got %d", got)
	}

	count, err := svc.TransactionCount(ctx)
	if err != nil {
		t.Fatalf("transaction count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected transaction count 1, got %d", count)
	}

	key, err := svc.RevealKey(ctx, RevealKeyInput{Buyer: "buyer_1", AssetID: listing.AssetID})
	if err != nil {
		t.Fatalf("reveal key: %v", err)
	}
	if key != "ABC" {
		t.Fatalf("expected key ABC, got %q", key)
	}

	_, err = svc.RevealKey(ctx, RevealKeyInput{Buyer: "bystander", AssetID: listing.AssetID})
	if code, ok := MarketErrorCode(err); !ok || code != CodeUnauthorizedAccess {
		t.Fatalf("expected unauthorized access for non-buyer, got (%d, %v): %v", code, ok, err)
	}
	// Owning the listing does not grant credential access.
	_, err = svc.RevealKey(ctx, RevealKeyInput{Buyer: "seller_1", AssetID: listing.AssetID})
	if code, ok := MarketErrorCode(err); !ok || code != CodeUnauthorizedAccess {
		t.Fatalf("expected unauthorized access for owner, got (%d, %v): %v", code, ok, err)
	}
}

func TestService_Purchase_TreatsInactiveAndMissingIdentically(t *testing.T) {
	ctx := context.Background()
	settlement := fundedSettlement(t, map[string]uint64{"buyer_1": 10_000})
	svc := newMarketService(t, WithSettlement(settlement))
	listing := createActiveListing(t, svc, "seller_1", 1_000)

	if _, err := svc.DeactivateListing(ctx, DeactivateListingInput{Caller: "seller_1", AssetID: listing.AssetID}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	_, inactiveErr := svc.Purchase(ctx, PurchaseInput{Buyer: "buyer_1", AssetID: listing.AssetID})
	if code, ok := MarketErrorCode(inactiveErr); !ok || code != CodeNotFound {
		t.Fatalf("expected not found for inactive listing, got (%d, %v): %v", code, ok, inactiveErr)
	}

	_, missingErr := svc.Purchase(ctx, PurchaseInput{Buyer: "buyer_1", AssetID: 999})
	if code, ok := MarketErrorCode(missingErr); !ok || code != CodeNotFound {
		t.Fatalf("expected not found for missing listing, got (%d, %v): %v", code, ok, missingErr)
	}

	if got := settlement.BalanceOf("buyer_1"); got != 10_000 {
		t.Fatalf("expected buyer balance untouched, got %d", got)
	}
}

func TestService_Purchase_RejectsSelfPurchase(t *testing.T) {
	ctx := context.Background()
	settlement := fundedSettlement(t, map[string]uint64{"seller_1": 10_000})
	svc := newMarketService(t, WithSettlement(settlement))
	listing := createActiveListing(t, svc, "seller_1", 1_000)

	_, err := svc.Purchase(ctx, PurchaseInput{Buyer: "seller_1", AssetID: listing.AssetID})
	if code, ok := MarketErrorCode(err); !ok || code != CodeUnauthorizedAccess {
		t.Fatalf("expected unauthorized access, got (%d, %v): %v", code, ok, err)
	}
	if got := settlement.BalanceOf("seller_1"); got != 10_000 {
		t.Fatalf("expected seller balance untouched, got %d", got)
	}
}

func TestService_Purchase_InsufficientBalanceLeavesNoState(t *testing.T) {
	ctx := context.Background()
	settlement := fundedSettlement(t, map[string]uint64{"buyer_1": 100})
	svc := newMarketService(t, WithSettlement(settlement))
	listing := createActiveListing(t, svc, "seller_1", 1_000_000)

	_, err := svc.Purchase(ctx, PurchaseInput{Buyer: "buyer_1", AssetID: listing.AssetID})
	if code, ok := MarketErrorCode(err); !ok || code != CodeInsufficientBalance {
		t.Fatalf("expected insufficient balance, got (%d, %v): %v", code, ok, err)
	}

	if _, ok, _ := svc.GetProfile(ctx, "seller_1"); ok {
		t.Fatalf("expected no seller profile after failed purchase")
	}
	count, err := svc.TransactionCount(ctx)
	if err != nil {
		t.Fatalf("transaction count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected transaction count 0, got %d", count)
	}
	if _, err := svc.RevealKey(ctx, RevealKeyInput{Buyer: "buyer_1", AssetID: listing.AssetID}); err == nil {
		t.Fatalf("expected reveal to fail after failed purchase")
	}
	if got := settlement.BalanceOf("buyer_1"); got != 100 {
		t.Fatalf("expected buyer balance untouched, got %d", got)
	}
	if got := settlement.BalanceOf("seller_1"); got != 0 {
		t.Fatalf("expected seller balance untouched, got %d", got)
	}
}

func TestService_Purchase_SecondTransferFailureCommitsNothing(t *testing.T) {
	ctx := context.Background()
	inner := fundedSettlement(t, map[string]uint64{"buyer_1": 1_000_000})
	settlement := &scriptedSettlement{inner: inner, failFromCall: 2}
	svc := newMarketService(t, WithSettlement(settlement))
	listing := createActiveListing(t, svc, "seller_1", 1_000_000)

	_, err := svc.Purchase(ctx, PurchaseInput{Buyer: "buyer_1", AssetID: listing.AssetID})
	if code, ok := MarketErrorCode(err); !ok || code != CodeInsufficientBalance {
		t.Fatalf("expected insufficient balance, got (%d, %v): %v", code, ok, err)
	}
	if settlement.callCount() != 2 {
		t.Fatalf("expected exactly two transfer attempts, got %d", settlement.callCount())
	}

	// The payout already settled externally; the marketplace still
	// records nothing for the failed call.
	if got := inner.BalanceOf("seller_1"); got != 980_000 {
		t.Fatalf("expected payout delivered before failure, got %d", got)
	}
	if got := inner.BalanceOf("admin_1"); got != 0 {
		t.Fatalf("expected no fee collected, got %d", got)
	}
	if _, ok, _ := svc.GetProfile(ctx, "seller_1"); ok {
		t.Fatalf("expected no seller profile after failed purchase")
	}
	count, err := svc.TransactionCount(ctx)
	if err != nil {
		t.Fatalf("transaction count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected transaction count 0, got %d", count)
	}
	if _, err := svc.RevealKey(ctx, RevealKeyInput{Buyer: "buyer_1", AssetID: listing.AssetID}); err == nil {
		t.Fatalf("expected reveal to fail after failed purchase")
	}
}

func TestService_Purchase_RepeatPurchaseOverwritesRecordAndCountsEachSale(t *testing.T) {
	ctx := context.Background()
	clock := NewStepClock(100)
	settlement := fundedSettlement(t, map[string]uint64{"buyer_1": 10_000})
	svc := newMarketService(t, WithSettlement(settlement), WithClock(clock))
	listing := createActiveListing(t, svc, "seller_1", 1_000)

	first, err := svc.Purchase(ctx, PurchaseInput{Buyer: "buyer_1", AssetID: listing.AssetID})
	if err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	if first.PaidAt != 100 {
		t.Fatalf("expected first purchase at height 100, got %d", first.PaidAt)
	}

	clock.Advance(5)
	if _, err := svc.UpdatePrice(ctx, UpdatePriceInput{Caller: "seller_1", AssetID: listing.AssetID, NewPrice: 2_000}); err != nil {
		t.Fatalf("update price: %v", err)
	}
	second, err := svc.Purchase(ctx, PurchaseInput{Buyer: "buyer_1", AssetID: listing.AssetID})
	if err != nil {
		t.Fatalf("repeat purchase: %v", err)
	}
	if second.Amount != 2_000 {
		t.Fatalf("expected overwritten amount 2000, got %d", second.Amount)
	}
	if second.PaidAt != 105 {
		t.Fatalf("expected repeat purchase at height 105, got %d", second.PaidAt)
	}

	profile, ok, err := svc.GetProfile(ctx, "seller_1")
	if err != nil || !ok {
		t.Fatalf("get profile: ok=%v err=%v", ok, err)
	}
	if profile.TotalSales != 2 {
		t.Fatalf("expected total sales 2 after repeat purchase, got %d", profile.TotalSales)
	}
	if profile.LastActivity != 105 {
		t.Fatalf("expected last activity 105, got %d", profile.LastActivity)
	}
	if profile.Reputation != 0 {
		t.Fatalf("expected reputation untouched, got %d", profile.Reputation)
	}

	count, err := svc.TransactionCount(ctx)
	if err != nil {
		t.Fatalf("transaction count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected transaction count 2, got %d", count)
	}
}

func TestService_Purchase_FeeEdgesSkipEmptyTransfers(t *testing.T) {
	ctx := context.Background()

	// Free marketplace: the whole price goes to the seller.
	settlement := fundedSettlement(t, map[string]uint64{"buyer_1": 1_000})
	svc := newMarketService(t, WithSettlement(settlement))
	listing := createActiveListing(t, svc, "seller_1", 1_000)
	if _, err := svc.SetFee(ctx, SetFeeInput{Caller: "admin_1", Percent: 0}); err != nil {
		t.Fatalf("set fee 0: %v", err)
	}
	if _, err := svc.Purchase(ctx, PurchaseInput{Buyer: "buyer_1", AssetID: listing.AssetID}); err != nil {
		t.Fatalf("purchase at fee 0: %v", err)
	}
	if got := settlement.BalanceOf("seller_1"); got != 1_000 {
		t.Fatalf("expected full payout 1000, got %d", got)
	}
	if got := settlement.BalanceOf("admin_1"); got != 0 {
		t.Fatalf("expected no fee, got %d", got)
	}

	// Full fee: the whole price goes to the administrator.
	settlement = fundedSettlement(t, map[string]uint64{"buyer_1": 1_000})
	svc = newMarketService(t, WithSettlement(settlement))
	listing = createActiveListing(t, svc, "seller_1", 1_000)
	if _, err := svc.SetFee(ctx, SetFeeInput{Caller: "admin_1", Percent: 100}); err != nil {
		t.Fatalf("set fee 100: %v", err)
	}
	if _, err := svc.Purchase(ctx, PurchaseInput{Buyer: "buyer_1", AssetID: listing.AssetID}); err != nil {
		t.Fatalf("purchase at fee 100: %v", err)
	}
	if got := settlement.BalanceOf("seller_1"); got != 0 {
		t.Fatalf("expected no payout, got %d", got)
	}
	if got := settlement.BalanceOf("admin_1"); got != 1_000 {
		t.Fatalf("expected full fee 1000, got %d", got)
	}
}

func TestService_Purchase_ValidatesBuyerAndRange(t *testing.T) {
	ctx := context.Background()
	svc := newMarketService(t)
	createActiveListing(t, svc, "seller_1", 1_000)

	_, err := svc.Purchase(ctx, PurchaseInput{Buyer: "  ", AssetID: 1})
	if code, ok := MarketErrorCode(err); !ok || code != CodeInvalidInput {
		t.Fatalf("expected invalid input for blank buyer, got (%d, %v): %v", code, ok, err)
	}

	_, err = svc.RevealKey(ctx, RevealKeyInput{Buyer: "buyer_1", AssetID: 0})
	if code, ok := MarketErrorCode(err); !ok || code != CodeInvalidInput {
		t.Fatalf("expected invalid input for id zero, got (%d, %v): %v", code, ok, err)
	}
	_, err = svc.RevealKey(ctx, RevealKeyInput{Buyer: "buyer_1", AssetID: 50})
	if code, ok := MarketErrorCode(err); !ok || code != CodeInvalidInput {
		t.Fatalf("expected invalid input for unallocated id, got (%d, %v): %v", code, ok, err)
	}
}

func TestService_Purchase_CommitsOutboxEventWithSplit(t *testing.T) {
	ctx := context.Background()
	settlement := fundedSettlement(t, map[string]uint64{"buyer_1": 1_000_000})
	svc := newMarketService(t, WithSettlement(settlement))
	listing := createActiveListing(t, svc, "seller_1", 1_000_000)

	if _, err := svc.Purchase(ctx, PurchaseInput{Buyer: "buyer_1", AssetID: listing.AssetID}); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	outbox := svc.Dependencies().OutboxStore
	if outbox == nil {
		t.Fatalf("expected outbox store wired from ledger")
	}
	events, err := outbox.ClaimBatch(ctx, 10)
	if err != nil {
		t.Fatalf("claim batch: %v", err)
	}
	var purchase *MarketEvent
	for i := range events {
		if events[i].Name == EventPurchaseCompleted {
			purchase = &events[i]
		}
	}
	if purchase == nil {
		t.Fatalf("expected purchase event in outbox, got %d events", len(events))
	}
	if purchase.Actor != "buyer_1" || purchase.AssetID != listing.AssetID {
		t.Fatalf("unexpected purchase event identity: %+v", purchase)
	}
	if amount, _ := purchase.Payload["amount"].(uint64); amount != 1_000_000 {
		t.Fatalf("expected amount payload 1000000, got %v", purchase.Payload["amount"])
	}
	if fee, _ := purchase.Payload["fee"].(uint64); fee != 20_000 {
		t.Fatalf("expected fee payload 20000, got %v", purchase.Payload["fee"])
	}
	if payout, _ := purchase.Payload["payout"].(uint64); payout != 980_000 {
		t.Fatalf("expected payout payload 980000, got %v", purchase.Payload["payout"])
	}
}
