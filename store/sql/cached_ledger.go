package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/goliatone/go-marketplace/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const (
	listingCacheKeyPrefix = "go-marketplace::listing::v1"
	profileCacheKeyPrefix = "go-marketplace::profile::v1"
	feePercentCacheKey    = "go-marketplace::fee_percent::v1"
)

type cachedListing struct {
	Listing core.Listing
	Found   bool
}

type cachedProfile struct {
	Profile core.SellerProfile
	Found   bool
}

// CachedLedger puts a read-through cache in front of listing, profile,
// and fee reads. Access keys, purchase records, and the counters are
// served from the base ledger on every call: the first two gate money
// movement and the counters change on most commits, so caching them
// buys nothing but staleness.
type CachedLedger struct {
	base  core.Ledger
	cache repositorycache.CacheService
}

func NewCachedLedger(base core.Ledger, cacheService repositorycache.CacheService) (*CachedLedger, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base ledger is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: ledger cache service is required")
	}
	return &CachedLedger{base: base, cache: cacheService}, nil
}

// ListingCacheKey returns the deterministic cache key contract for
// listing reads: go-marketplace::listing::v1::<asset_id>.
func ListingCacheKey(assetID uint64) string {
	return listingCacheKeyPrefix + "::" + strconv.FormatUint(assetID, 10)
}

// ProfileCacheKey returns the deterministic cache key contract for
// profile reads: go-marketplace::profile::v1::<principal> with the
// principal URL-path escaped after normalization.
func ProfileCacheKey(principal string) (string, error) {
	principal = normalizePrincipal(principal)
	if principal == "" {
		return "", fmt.Errorf("sqlstore: principal is required")
	}
	return profileCacheKeyPrefix + "::" + url.PathEscape(principal), nil
}

// FeePercentCacheKey returns the cache key for the marketplace fee read.
func FeePercentCacheKey() string {
	return feePercentCacheKey
}

func (s *CachedLedger) Listing(ctx context.Context, assetID uint64) (core.Listing, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Listing{}, false, fmt.Errorf("sqlstore: cached ledger is not configured")
	}
	cached, err := repositorycache.GetOrFetch(ctx, s.cache, ListingCacheKey(assetID), func(ctx context.Context) (cachedListing, error) {
		listing, found, fetchErr := s.base.Listing(ctx, assetID)
		if fetchErr != nil {
			return cachedListing{}, fetchErr
		}
		return cachedListing{Listing: listing, Found: found}, nil
	})
	if err != nil {
		return core.Listing{}, false, err
	}
	return cached.Listing, cached.Found, nil
}

func (s *CachedLedger) AccessKey(ctx context.Context, assetID uint64) (string, bool, error) {
	if s == nil || s.base == nil {
		return "", false, fmt.Errorf("sqlstore: cached ledger is not configured")
	}
	return s.base.AccessKey(ctx, assetID)
}

func (s *CachedLedger) PurchaseRecord(ctx context.Context, buyer string, assetID uint64) (core.PurchaseRecord, bool, error) {
	if s == nil || s.base == nil {
		return core.PurchaseRecord{}, false, fmt.Errorf("sqlstore: cached ledger is not configured")
	}
	return s.base.PurchaseRecord(ctx, buyer, assetID)
}

func (s *CachedLedger) Profile(ctx context.Context, principal string) (core.SellerProfile, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.SellerProfile{}, false, fmt.Errorf("sqlstore: cached ledger is not configured")
	}
	cacheKey, err := ProfileCacheKey(principal)
	if err != nil {
		return core.SellerProfile{}, false, err
	}
	cached, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (cachedProfile, error) {
		profile, found, fetchErr := s.base.Profile(ctx, principal)
		if fetchErr != nil {
			return cachedProfile{}, fetchErr
		}
		return cachedProfile{Profile: profile, Found: found}, nil
	})
	if err != nil {
		return core.SellerProfile{}, false, err
	}
	return cached.Profile, cached.Found, nil
}

func (s *CachedLedger) NextAssetID(ctx context.Context) (uint64, error) {
	if s == nil || s.base == nil {
		return 0, fmt.Errorf("sqlstore: cached ledger is not configured")
	}
	return s.base.NextAssetID(ctx)
}

func (s *CachedLedger) FeePercent(ctx context.Context) (uint64, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return 0, fmt.Errorf("sqlstore: cached ledger is not configured")
	}
	return repositorycache.GetOrFetch(ctx, s.cache, FeePercentCacheKey(), func(ctx context.Context) (uint64, error) {
		return s.base.FeePercent(ctx)
	})
}

func (s *CachedLedger) TransactionCount(ctx context.Context) (uint64, error) {
	if s == nil || s.base == nil {
		return 0, fmt.Errorf("sqlstore: cached ledger is not configured")
	}
	return s.base.TransactionCount(ctx)
}

func (s *CachedLedger) Commit(ctx context.Context, changes core.ChangeSet) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached ledger is not configured")
	}
	if err := s.base.Commit(ctx, changes); err != nil {
		return err
	}

	for _, listing := range changes.Listings {
		if err := s.cache.Delete(ctx, ListingCacheKey(listing.AssetID)); err != nil {
			return err
		}
	}
	for _, profile := range changes.Profiles {
		cacheKey, err := ProfileCacheKey(profile.Principal)
		if err != nil {
			return err
		}
		if err := s.cache.Delete(ctx, cacheKey); err != nil {
			return err
		}
	}
	if changes.FeePercent != nil {
		if err := s.cache.Delete(ctx, FeePercentCacheKey()); err != nil {
			return err
		}
	}
	return nil
}

var _ core.Ledger = (*CachedLedger)(nil)
