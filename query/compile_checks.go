package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-marketplace/core"
)

var (
	_ gocmd.Querier[GetListingMessage, core.Listing]                       = (*GetListingQuery)(nil)
	_ gocmd.Querier[GetProfileMessage, core.SellerProfile]                 = (*GetProfileQuery)(nil)
	_ gocmd.Querier[GetFeeMessage, uint64]                                 = (*GetFeeQuery)(nil)
	_ gocmd.Querier[GetTransactionCountMessage, uint64]                    = (*GetTransactionCountQuery)(nil)
	_ gocmd.Querier[ListMarketActivityMessage, []core.MarketActivityEntry] = (*ListMarketActivityQuery)(nil)
)
