package query

import (
	"context"
	"fmt"

	"github.com/goliatone/go-marketplace/core"
)

// MarketReader is the read surface exposed by the marketplace service.
// Absent listings and profiles are reported through the presence bool;
// the queries translate absence into not-found envelopes so transports
// never have to inspect zero values.
type MarketReader interface {
	GetListing(ctx context.Context, assetID uint64) (core.Listing, bool, error)
	GetProfile(ctx context.Context, principal string) (core.SellerProfile, bool, error)
	FeePercent(ctx context.Context) (uint64, error)
	TransactionCount(ctx context.Context) (uint64, error)
}

type ActivityReader interface {
	List(ctx context.Context, filter core.ActivityFilter) ([]core.MarketActivityEntry, error)
}

type GetListingQuery struct {
	reader MarketReader
}

func NewGetListingQuery(reader MarketReader) *GetListingQuery {
	return &GetListingQuery{reader: reader}
}

func (q *GetListingQuery) Query(ctx context.Context, msg GetListingMessage) (core.Listing, error) {
	if q == nil || q.reader == nil {
		return core.Listing{}, queryDependencyError("query: market reader is required")
	}
	listing, ok, err := q.reader.GetListing(ctx, msg.AssetID)
	if err != nil {
		return core.Listing{}, err
	}
	if !ok {
		return core.Listing{}, queryNotFoundError(fmt.Sprintf("query: listing %d not found", msg.AssetID))
	}
	return listing, nil
}

type GetProfileQuery struct {
	reader MarketReader
}

func NewGetProfileQuery(reader MarketReader) *GetProfileQuery {
	return &GetProfileQuery{reader: reader}
}

func (q *GetProfileQuery) Query(ctx context.Context, msg GetProfileMessage) (core.SellerProfile, error) {
	if q == nil || q.reader == nil {
		return core.SellerProfile{}, queryDependencyError("query: market reader is required")
	}
	profile, ok, err := q.reader.GetProfile(ctx, msg.Principal)
	if err != nil {
		return core.SellerProfile{}, err
	}
	if !ok {
		return core.SellerProfile{}, queryNotFoundError(fmt.Sprintf("query: profile for %q not found", msg.Principal))
	}
	return profile, nil
}

type GetFeeQuery struct {
	reader MarketReader
}

func NewGetFeeQuery(reader MarketReader) *GetFeeQuery {
	return &GetFeeQuery{reader: reader}
}

func (q *GetFeeQuery) Query(ctx context.Context, msg GetFeeMessage) (uint64, error) {
	if q == nil || q.reader == nil {
		return 0, queryDependencyError("query: market reader is required")
	}
	return q.reader.FeePercent(ctx)
}

type GetTransactionCountQuery struct {
	reader MarketReader
}

func NewGetTransactionCountQuery(reader MarketReader) *GetTransactionCountQuery {
	return &GetTransactionCountQuery{reader: reader}
}

func (q *GetTransactionCountQuery) Query(ctx context.Context, msg GetTransactionCountMessage) (uint64, error) {
	if q == nil || q.reader == nil {
		return 0, queryDependencyError("query: market reader is required")
	}
	return q.reader.TransactionCount(ctx)
}

type ListMarketActivityQuery struct {
	reader ActivityReader
}

func NewListMarketActivityQuery(reader ActivityReader) *ListMarketActivityQuery {
	return &ListMarketActivityQuery{reader: reader}
}

func (q *ListMarketActivityQuery) Query(
	ctx context.Context,
	msg ListMarketActivityMessage,
) ([]core.MarketActivityEntry, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: activity reader is required")
	}
	return q.reader.List(ctx, msg.Filter)
}
