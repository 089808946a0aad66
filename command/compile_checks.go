package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[CreateListingMessage]     = (*CreateListingCommand)(nil)
	_ gocmd.Commander[UpdatePriceMessage]       = (*UpdatePriceCommand)(nil)
	_ gocmd.Commander[DeactivateListingMessage] = (*DeactivateListingCommand)(nil)
	_ gocmd.Commander[PurchaseMessage]          = (*PurchaseCommand)(nil)
	_ gocmd.Commander[RevealKeyMessage]         = (*RevealKeyCommand)(nil)
	_ gocmd.Commander[SetFeeMessage]            = (*SetFeeCommand)(nil)
)
