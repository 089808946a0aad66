package core

import (
	"context"
	"fmt"
	"time"
)

// Purchase settles a listing sale. The buyer pays the full asking price,
// split between the seller payout and the marketplace fee; the purchase
// record, seller profile bump, and transaction counter commit together
// only after both transfers succeeded. A failed transfer aborts the call
// with no state written.
func (s *Service) Purchase(ctx context.Context, in PurchaseInput) (record PurchaseRecord, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"buyer":    in.Buyer,
		"asset_id": in.AssetID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "purchase", err, fields)
	}()

	if s == nil || s.ledger == nil {
		err = s.mapError(fmt.Errorf("core: ledger is not configured"))
		return PurchaseRecord{}, err
	}
	if s.settlement == nil {
		err = s.mapError(fmt.Errorf("core: settlement engine is not configured"))
		return PurchaseRecord{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	buyer := normalizePrincipal(in.Buyer)
	if buyer == "" {
		err = errInvalidInput("core: buyer is required")
		return PurchaseRecord{}, err
	}

	// Absent and inactive listings fail identically; callers cannot tell
	// whether an id was ever allocated.
	listing, ok, lookupErr := s.ledger.Listing(ctx, in.AssetID)
	if lookupErr != nil {
		err = s.mapError(lookupErr)
		return PurchaseRecord{}, err
	}
	if !ok || !listing.Active() {
		err = errNotFound(fmt.Sprintf("core: asset %d is not listed", in.AssetID))
		return PurchaseRecord{}, err
	}
	next, idErr := s.ledger.NextAssetID(ctx)
	if idErr != nil {
		err = s.mapError(idErr)
		return PurchaseRecord{}, err
	}
	if in.AssetID == 0 || in.AssetID >= next {
		err = errInvalidInput(fmt.Sprintf("core: asset id %d is outside the allocated range", in.AssetID))
		return PurchaseRecord{}, err
	}
	if buyer == listing.Owner {
		err = errUnauthorizedAccess(fmt.Sprintf("core: owner cannot purchase own listing %d", in.AssetID))
		return PurchaseRecord{}, err
	}

	feePercent, feeErr := s.ledger.FeePercent(ctx)
	if feeErr != nil {
		err = s.mapError(feeErr)
		return PurchaseRecord{}, err
	}
	payout, fee := SplitPrice(listing.Price, feePercent)

	// Two independent settlement calls; the first failure aborts the
	// purchase without attempting the other transfer and without any
	// compensation for one that already went through.
	if payout > 0 {
		if transferErr := s.settlement.Transfer(ctx, payout, buyer, listing.Owner); transferErr != nil {
			err = errInsufficientBalance(fmt.Sprintf("core: payout transfer for asset %d failed: %v", in.AssetID, transferErr))
			return PurchaseRecord{}, err
		}
	}
	if fee > 0 {
		if transferErr := s.settlement.Transfer(ctx, fee, buyer, s.admin); transferErr != nil {
			err = errInsufficientBalance(fmt.Sprintf("core: fee transfer for asset %d failed: %v", in.AssetID, transferErr))
			return PurchaseRecord{}, err
		}
	}

	height := s.clock.Height()
	profile, hasProfile, profileErr := s.ledger.Profile(ctx, listing.Owner)
	if profileErr != nil {
		err = s.mapError(profileErr)
		return PurchaseRecord{}, err
	}
	if !hasProfile {
		profile = SellerProfile{Principal: listing.Owner}
	}
	profile.TotalSales++
	profile.LastActivity = height

	record = PurchaseRecord{
		AssetID: in.AssetID,
		Buyer:   buyer,
		Seller:  listing.Owner,
		Amount:  listing.Price,
		PaidAt:  height,
	}
	changes := ChangeSet{
		Purchases:      []PurchaseRecord{record},
		Profiles:       []SellerProfile{profile},
		TransactionInc: 1,
		Events: []MarketEvent{s.newEvent(EventPurchaseCompleted, in.AssetID, buyer, height, map[string]any{
			"amount": listing.Price,
			"fee":    fee,
			"payout": payout,
			"seller": listing.Owner,
		})},
	}
	if err = s.ledger.Commit(ctx, changes); err != nil {
		err = s.mapError(err)
		return PurchaseRecord{}, err
	}

	fields["seller"] = listing.Owner
	return record, nil
}

// RevealKey returns the access credential for an asset to a buyer who
// purchased it. The purchase record is the only authorization gate;
// owning the listing grants nothing here.
func (s *Service) RevealKey(ctx context.Context, in RevealKeyInput) (key string, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"buyer":    in.Buyer,
		"asset_id": in.AssetID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "reveal_key", err, fields)
	}()

	if s == nil || s.ledger == nil {
		err = s.mapError(fmt.Errorf("core: ledger is not configured"))
		return "", err
	}

	buyer := normalizePrincipal(in.Buyer)
	if buyer == "" {
		err = errInvalidInput("core: buyer is required")
		return "", err
	}
	next, idErr := s.ledger.NextAssetID(ctx)
	if idErr != nil {
		err = s.mapError(idErr)
		return "", err
	}
	if in.AssetID == 0 || in.AssetID >= next {
		err = errInvalidInput(fmt.Sprintf("core: asset id %d is outside the allocated range", in.AssetID))
		return "", err
	}
	if _, ok, recordErr := s.ledger.PurchaseRecord(ctx, buyer, in.AssetID); recordErr != nil {
		err = s.mapError(recordErr)
		return "", err
	} else if !ok {
		err = errUnauthorizedAccess(fmt.Sprintf("core: no purchase of asset %d by this principal", in.AssetID))
		return "", err
	}
	key, ok, keyErr := s.ledger.AccessKey(ctx, in.AssetID)
	if keyErr != nil {
		err = s.mapError(keyErr)
		return "", err
	}
	if !ok {
		err = errNotFound(fmt.Sprintf("core: credential for asset %d not found", in.AssetID))
		return "", err
	}
	return key, nil
}
