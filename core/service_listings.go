package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// CreateListing allocates the next asset id, stores the listing together
// with its access credential, and advances the id allocator. The three
// writes commit atomically; a rejected input leaves the ledger untouched.
func (s *Service) CreateListing(ctx context.Context, in CreateListingInput) (listing Listing, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"owner":    in.Owner,
		"category": in.Category,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "create_listing", err, fields)
	}()

	if s == nil || s.ledger == nil {
		err = s.mapError(fmt.Errorf("core: ledger is not configured"))
		return Listing{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	owner := normalizePrincipal(in.Owner)
	if owner == "" {
		err = errInvalidInput("core: listing owner is required")
		return Listing{}, err
	}
	if in.Price == 0 {
		err = errInvalidPrice("core: listing price must be positive")
		return Listing{}, err
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		err = errInvalidInput("core: listing description is required")
		return Listing{}, err
	}
	if len(description) > s.config.Limits.MaxDescriptionLength {
		err = errInvalidInput(fmt.Sprintf("core: listing description exceeds %d characters", s.config.Limits.MaxDescriptionLength))
		return Listing{}, err
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		err = errInvalidInput("core: listing category is required")
		return Listing{}, err
	}
	if len(category) > s.config.Limits.MaxCategoryLength {
		err = errInvalidInput(fmt.Sprintf("core: listing category exceeds %d characters", s.config.Limits.MaxCategoryLength))
		return Listing{}, err
	}
	// The access key is opaque. It is validated for presence and length
	// but stored byte for byte, never trimmed.
	if strings.TrimSpace(in.AccessKey) == "" {
		err = errInvalidInput("core: listing access key is required")
		return Listing{}, err
	}
	if len(in.AccessKey) > s.config.Limits.MaxAccessKeyLength {
		err = errInvalidInput(fmt.Sprintf("core: listing access key exceeds %d characters", s.config.Limits.MaxAccessKeyLength))
		return Listing{}, err
	}

	assetID, err := s.ledger.NextAssetID(ctx)
	if err != nil {
		err = s.mapError(err)
		return Listing{}, err
	}
	if existing, ok, lookupErr := s.ledger.Listing(ctx, assetID); lookupErr != nil {
		err = s.mapError(lookupErr)
		return Listing{}, err
	} else if ok && existing.Active() {
		err = errAlreadyListed(fmt.Sprintf("core: asset %d is already listed", assetID))
		return Listing{}, err
	}

	height := s.clock.Height()
	listing = Listing{
		AssetID:     assetID,
		Owner:       owner,
		Price:       in.Price,
		Description: description,
		Category:    category,
		Status:      ListingStatusActive,
		CreatedAt:   height,
	}
	changes := ChangeSet{
		Listings:       []Listing{listing},
		Credentials:    []Credential{{AssetID: assetID, AccessKey: in.AccessKey}},
		AdvanceAssetID: true,
		Events: []MarketEvent{s.newEvent(EventListingCreated, assetID, owner, height, map[string]any{
			"price":    in.Price,
			"category": category,
		})},
	}
	if err = s.ledger.Commit(ctx, changes); err != nil {
		err = s.mapError(err)
		return Listing{}, err
	}

	fields["asset_id"] = assetID
	return listing, nil
}

// UpdatePrice replaces the asking price of a listing the caller owns. All
// other fields, including the active flag and creation height, are left
// as they were.
func (s *Service) UpdatePrice(ctx context.Context, in UpdatePriceInput) (listing Listing, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"caller":   in.Caller,
		"asset_id": in.AssetID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "update_price", err, fields)
	}()

	if s == nil || s.ledger == nil {
		err = s.mapError(fmt.Errorf("core: ledger is not configured"))
		return Listing{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	caller := normalizePrincipal(in.Caller)
	if caller == "" {
		err = errInvalidInput("core: caller is required")
		return Listing{}, err
	}
	listing, err = s.lookupOwnedListing(ctx, caller, in.AssetID)
	if err != nil {
		return Listing{}, err
	}
	if in.NewPrice == 0 {
		err = errInvalidPrice("core: listing price must be positive")
		return Listing{}, err
	}

	listing.Price = in.NewPrice
	height := s.clock.Height()
	changes := ChangeSet{
		Listings: []Listing{listing},
		Events: []MarketEvent{s.newEvent(EventListingPriceUpdated, listing.AssetID, caller, height, map[string]any{
			"price": in.NewPrice,
		})},
	}
	if err = s.ledger.Commit(ctx, changes); err != nil {
		err = s.mapError(err)
		return Listing{}, err
	}
	return listing, nil
}

// DeactivateListing marks a listing inactive. The listing, its credential,
// and its purchase history remain readable; no operation reactivates it.
func (s *Service) DeactivateListing(ctx context.Context, in DeactivateListingInput) (listing Listing, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"caller":   in.Caller,
		"asset_id": in.AssetID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "deactivate_listing", err, fields)
	}()

	if s == nil || s.ledger == nil {
		err = s.mapError(fmt.Errorf("core: ledger is not configured"))
		return Listing{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	caller := normalizePrincipal(in.Caller)
	if caller == "" {
		err = errInvalidInput("core: caller is required")
		return Listing{}, err
	}
	listing, err = s.lookupOwnedListing(ctx, caller, in.AssetID)
	if err != nil {
		return Listing{}, err
	}
	if transitionErr := listing.TransitionTo(ListingStatusInactive); transitionErr != nil {
		err = s.mapError(transitionErr)
		return Listing{}, err
	}

	height := s.clock.Height()
	changes := ChangeSet{
		Listings: []Listing{listing},
		Events:   []MarketEvent{s.newEvent(EventListingDeactivated, listing.AssetID, caller, height, nil)},
	}
	if err = s.ledger.Commit(ctx, changes); err != nil {
		err = s.mapError(err)
		return Listing{}, err
	}
	return listing, nil
}

// lookupOwnedListing runs the shared range, existence, and ownership
// checks for owner-gated listing mutations.
func (s *Service) lookupOwnedListing(ctx context.Context, caller string, assetID uint64) (Listing, error) {
	next, err := s.ledger.NextAssetID(ctx)
	if err != nil {
		return Listing{}, s.mapError(err)
	}
	if assetID == 0 || assetID >= next {
		return Listing{}, errInvalidInput(fmt.Sprintf("core: asset id %d is outside the allocated range", assetID))
	}
	listing, ok, err := s.ledger.Listing(ctx, assetID)
	if err != nil {
		return Listing{}, s.mapError(err)
	}
	if !ok {
		return Listing{}, errNotFound(fmt.Sprintf("core: listing %d not found", assetID))
	}
	if listing.Owner != caller {
		return Listing{}, errUnauthorizedOwner(fmt.Sprintf("core: caller does not own listing %d", assetID))
	}
	return listing, nil
}
