package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-marketplace/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const marketStateRowID = "marketplace"

// LedgerStore persists the marketplace books in relational tables. Commit
// applies a whole ChangeSet inside one transaction so listings, access
// keys, purchases, profiles, counters, and outbox rows move together or
// not at all.
type LedgerStore struct {
	db *bun.DB
}

func NewLedgerStore(db *bun.DB) (*LedgerStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &LedgerStore{db: db}, nil
}

func (s *LedgerStore) Listing(ctx context.Context, assetID uint64) (core.Listing, bool, error) {
	if s == nil || s.db == nil {
		return core.Listing{}, false, fmt.Errorf("sqlstore: ledger store is not configured")
	}
	if assetID == 0 {
		return core.Listing{}, false, fmt.Errorf("sqlstore: asset id is required")
	}
	record := &listingRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.asset_id = ?", assetID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Listing{}, false, nil
		}
		return core.Listing{}, false, err
	}
	return record.toDomain(), true, nil
}

func (s *LedgerStore) AccessKey(ctx context.Context, assetID uint64) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, fmt.Errorf("sqlstore: ledger store is not configured")
	}
	if assetID == 0 {
		return "", false, fmt.Errorf("sqlstore: asset id is required")
	}
	record := &credentialRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.asset_id = ?", assetID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return record.AccessKey, true, nil
}

func (s *LedgerStore) PurchaseRecord(ctx context.Context, buyer string, assetID uint64) (core.PurchaseRecord, bool, error) {
	if s == nil || s.db == nil {
		return core.PurchaseRecord{}, false, fmt.Errorf("sqlstore: ledger store is not configured")
	}
	buyer = normalizePrincipal(buyer)
	if buyer == "" || assetID == 0 {
		return core.PurchaseRecord{}, false, fmt.Errorf("sqlstore: buyer and asset id are required")
	}
	record := &purchaseRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.buyer = ?", buyer).
		Where("?TableAlias.asset_id = ?", assetID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.PurchaseRecord{}, false, nil
		}
		return core.PurchaseRecord{}, false, err
	}
	return record.toDomain(), true, nil
}

func (s *LedgerStore) Profile(ctx context.Context, principal string) (core.SellerProfile, bool, error) {
	if s == nil || s.db == nil {
		return core.SellerProfile{}, false, fmt.Errorf("sqlstore: ledger store is not configured")
	}
	principal = normalizePrincipal(principal)
	if principal == "" {
		return core.SellerProfile{}, false, fmt.Errorf("sqlstore: principal is required")
	}
	record := &profileRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.principal = ?", principal).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.SellerProfile{}, false, nil
		}
		return core.SellerProfile{}, false, err
	}
	return record.toDomain(), true, nil
}

func (s *LedgerStore) NextAssetID(ctx context.Context) (uint64, error) {
	state, err := s.loadState(ctx)
	if err != nil {
		return 0, err
	}
	if state == nil {
		return core.FirstAssetID, nil
	}
	return state.NextAssetID, nil
}

func (s *LedgerStore) FeePercent(ctx context.Context) (uint64, error) {
	state, err := s.loadState(ctx)
	if err != nil {
		return 0, err
	}
	if state == nil {
		return core.DefaultFeePercent, nil
	}
	return state.FeePercent, nil
}

func (s *LedgerStore) TransactionCount(ctx context.Context) (uint64, error) {
	state, err := s.loadState(ctx)
	if err != nil {
		return 0, err
	}
	if state == nil {
		return 0, nil
	}
	return state.TransactionCount, nil
}

func (s *LedgerStore) Commit(ctx context.Context, changes core.ChangeSet) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: ledger store is not configured")
	}
	if err := validateChangeSet(changes); err != nil {
		return err
	}
	if changes.Empty() {
		return nil
	}

	now := time.Now().UTC()
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, listing := range changes.Listings {
			if err := upsertListingTx(ctx, tx, listing, now); err != nil {
				return err
			}
		}
		for _, credential := range changes.Credentials {
			if err := upsertCredentialTx(ctx, tx, credential, now); err != nil {
				return err
			}
		}
		for _, record := range changes.Purchases {
			if err := upsertPurchaseTx(ctx, tx, record, now); err != nil {
				return err
			}
		}
		for _, profile := range changes.Profiles {
			if err := upsertProfileTx(ctx, tx, profile, now); err != nil {
				return err
			}
		}
		if err := applyStateTx(ctx, tx, changes, now); err != nil {
			return err
		}
		for _, event := range changes.Events {
			record := newOutboxRecord(event, now)
			if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}

// validateChangeSet mirrors the in-memory ledger checks so a rejected
// ChangeSet never opens a transaction.
func validateChangeSet(changes core.ChangeSet) error {
	for _, listing := range changes.Listings {
		if listing.AssetID == 0 {
			return fmt.Errorf("sqlstore: listing asset id is required")
		}
		if normalizePrincipal(listing.Owner) == "" {
			return fmt.Errorf("sqlstore: listing owner is required")
		}
	}
	for _, credential := range changes.Credentials {
		if credential.AssetID == 0 {
			return fmt.Errorf("sqlstore: credential asset id is required")
		}
		if strings.TrimSpace(credential.AccessKey) == "" {
			return fmt.Errorf("sqlstore: credential access key is required")
		}
	}
	for _, record := range changes.Purchases {
		if record.AssetID == 0 || normalizePrincipal(record.Buyer) == "" {
			return fmt.Errorf("sqlstore: purchase record identity is incomplete")
		}
	}
	for _, profile := range changes.Profiles {
		if normalizePrincipal(profile.Principal) == "" {
			return fmt.Errorf("sqlstore: profile principal is required")
		}
	}
	if changes.FeePercent != nil && *changes.FeePercent > core.MaxFeePercent {
		return fmt.Errorf("sqlstore: fee percent %d exceeds %d", *changes.FeePercent, core.MaxFeePercent)
	}
	for _, event := range changes.Events {
		if strings.TrimSpace(event.ID) == "" || strings.TrimSpace(event.Name) == "" {
			return fmt.Errorf("sqlstore: outbox event id and name are required")
		}
	}
	return nil
}

func upsertListingTx(ctx context.Context, tx bun.Tx, listing core.Listing, now time.Time) error {
	existing := &listingRecord{}
	err := tx.NewSelect().
		Model(existing).
		Where("?TableAlias.asset_id = ?", listing.AssetID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err != sql.ErrNoRows {
			return err
		}
		record := newListingRecord(listing, now)
		_, insertErr := tx.NewInsert().Model(record).Exec(ctx)
		return insertErr
	}

	existing.Owner = normalizePrincipal(listing.Owner)
	existing.Price = listing.Price
	existing.Description = listing.Description
	existing.Category = listing.Category
	existing.Status = string(listing.Status)
	existing.CreatedHeight = listing.CreatedAt
	existing.UpdatedAt = now
	_, updateErr := tx.NewUpdate().
		Model(existing).
		Where("asset_id = ?", existing.AssetID).
		Exec(ctx)
	return updateErr
}

func upsertCredentialTx(ctx context.Context, tx bun.Tx, credential core.Credential, now time.Time) error {
	existing := &credentialRecord{}
	err := tx.NewSelect().
		Model(existing).
		Where("?TableAlias.asset_id = ?", credential.AssetID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err != sql.ErrNoRows {
			return err
		}
		record := &credentialRecord{
			AssetID:   credential.AssetID,
			AccessKey: credential.AccessKey,
			CreatedAt: now,
			UpdatedAt: now,
		}
		_, insertErr := tx.NewInsert().Model(record).Exec(ctx)
		return insertErr
	}

	existing.AccessKey = credential.AccessKey
	existing.UpdatedAt = now
	_, updateErr := tx.NewUpdate().
		Model(existing).
		Where("asset_id = ?", existing.AssetID).
		Exec(ctx)
	return updateErr
}

func upsertPurchaseTx(ctx context.Context, tx bun.Tx, record core.PurchaseRecord, now time.Time) error {
	buyer := normalizePrincipal(record.Buyer)
	existing := &purchaseRecord{}
	err := tx.NewSelect().
		Model(existing).
		Where("?TableAlias.buyer = ?", buyer).
		Where("?TableAlias.asset_id = ?", record.AssetID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err != sql.ErrNoRows {
			return err
		}
		inserted := newPurchaseRecord(record, uuid.NewString(), now)
		_, insertErr := tx.NewInsert().Model(inserted).Exec(ctx)
		return insertErr
	}

	existing.Seller = normalizePrincipal(record.Seller)
	existing.Amount = record.Amount
	existing.PaidHeight = record.PaidAt
	existing.UpdatedAt = now
	_, updateErr := tx.NewUpdate().
		Model(existing).
		Where("id = ?", existing.ID).
		Exec(ctx)
	return updateErr
}

func upsertProfileTx(ctx context.Context, tx bun.Tx, profile core.SellerProfile, now time.Time) error {
	principal := normalizePrincipal(profile.Principal)
	existing := &profileRecord{}
	err := tx.NewSelect().
		Model(existing).
		Where("?TableAlias.principal = ?", principal).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err != sql.ErrNoRows {
			return err
		}
		record := newProfileRecord(profile, now)
		_, insertErr := tx.NewInsert().Model(record).Exec(ctx)
		return insertErr
	}

	existing.TotalSales = profile.TotalSales
	existing.Reputation = profile.Reputation
	existing.LastActivityHeight = profile.LastActivity
	existing.UpdatedAt = now
	_, updateErr := tx.NewUpdate().
		Model(existing).
		Where("principal = ?", existing.Principal).
		Exec(ctx)
	return updateErr
}

// applyStateTx seeds the counter row when a database predates it and then
// applies the counter deltas relationally so concurrent commits serialize
// on the row instead of clobbering each other.
func applyStateTx(ctx context.Context, tx bun.Tx, changes core.ChangeSet, now time.Time) error {
	state := &marketStateRecord{}
	err := tx.NewSelect().
		Model(state).
		Where("?TableAlias.id = ?", marketStateRowID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err != sql.ErrNoRows {
			return err
		}
		state = &marketStateRecord{
			ID:          marketStateRowID,
			NextAssetID: core.FirstAssetID,
			FeePercent:  core.DefaultFeePercent,
			UpdatedAt:   now,
		}
		if _, insertErr := tx.NewInsert().Model(state).Exec(ctx); insertErr != nil {
			return insertErr
		}
	}

	if !changes.AdvanceAssetID && changes.FeePercent == nil && changes.TransactionInc == 0 {
		return nil
	}
	update := tx.NewUpdate().
		Model((*marketStateRecord)(nil)).
		Where("id = ?", marketStateRowID).
		Set("updated_at = ?", now)
	if changes.AdvanceAssetID {
		update = update.Set("next_asset_id = next_asset_id + 1")
	}
	if changes.FeePercent != nil {
		update = update.Set("fee_percent = ?", *changes.FeePercent)
	}
	if changes.TransactionInc > 0 {
		update = update.Set("transaction_count = transaction_count + ?", changes.TransactionInc)
	}
	_, err = update.Exec(ctx)
	return err
}

func (s *LedgerStore) loadState(ctx context.Context) (*marketStateRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: ledger store is not configured")
	}
	record := &marketStateRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", marketStateRowID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
