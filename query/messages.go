package query

import (
	"strings"

	"github.com/goliatone/go-marketplace/core"
)

const (
	TypeGetListing          = "market.query.listing.get"
	TypeGetProfile          = "market.query.profile.get"
	TypeGetFee              = "market.query.fee.get"
	TypeGetTransactionCount = "market.query.transaction_count.get"
	TypeListMarketActivity  = "market.query.activity.list"
)

type GetListingMessage struct {
	AssetID uint64
}

func (GetListingMessage) Type() string { return TypeGetListing }

func (m GetListingMessage) Validate() error {
	if m.AssetID == 0 {
		return queryValidationError("asset_id", "asset id is required")
	}
	return nil
}

type GetProfileMessage struct {
	Principal string
}

func (GetProfileMessage) Type() string { return TypeGetProfile }

func (m GetProfileMessage) Validate() error {
	if strings.TrimSpace(m.Principal) == "" {
		return queryValidationError("principal", "principal is required")
	}
	return nil
}

type GetFeeMessage struct{}

func (GetFeeMessage) Type() string { return TypeGetFee }

func (GetFeeMessage) Validate() error { return nil }

type GetTransactionCountMessage struct{}

func (GetTransactionCountMessage) Type() string { return TypeGetTransactionCount }

func (GetTransactionCountMessage) Validate() error { return nil }

type ListMarketActivityMessage struct {
	Filter core.ActivityFilter
}

func (ListMarketActivityMessage) Type() string { return TypeListMarketActivity }

func (m ListMarketActivityMessage) Validate() error {
	if m.Filter.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	return nil
}
