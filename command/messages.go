package command

import (
	"strings"

	"github.com/goliatone/go-marketplace/core"
)

const (
	TypeCreateListing     = "market.command.listing.create"
	TypeUpdatePrice       = "market.command.listing.update_price"
	TypeDeactivateListing = "market.command.listing.deactivate"
	TypePurchase          = "market.command.purchase"
	TypeRevealKey         = "market.command.key.reveal"
	TypeSetFee            = "market.command.fee.set"
)

// Messages carry cheap shape checks only. Ownership, balance, and range
// rules stay with the service, which re-validates every input.

type CreateListingMessage struct {
	Input core.CreateListingInput
}

func (CreateListingMessage) Type() string { return TypeCreateListing }

func (m CreateListingMessage) Validate() error {
	if strings.TrimSpace(m.Input.Owner) == "" {
		return commandValidationError("owner", "owner principal is required")
	}
	if m.Input.Price == 0 {
		return commandValidationError("price", "price must be greater than zero")
	}
	if strings.TrimSpace(m.Input.Description) == "" {
		return commandValidationError("description", "description is required")
	}
	if strings.TrimSpace(m.Input.Category) == "" {
		return commandValidationError("category", "category is required")
	}
	if m.Input.AccessKey == "" {
		return commandValidationError("access_key", "access key is required")
	}
	return nil
}

type UpdatePriceMessage struct {
	Input core.UpdatePriceInput
}

func (UpdatePriceMessage) Type() string { return TypeUpdatePrice }

func (m UpdatePriceMessage) Validate() error {
	if strings.TrimSpace(m.Input.Caller) == "" {
		return commandValidationError("caller", "caller principal is required")
	}
	if m.Input.AssetID == 0 {
		return commandValidationError("asset_id", "asset id is required")
	}
	if m.Input.NewPrice == 0 {
		return commandValidationError("new_price", "new price must be greater than zero")
	}
	return nil
}

type DeactivateListingMessage struct {
	Input core.DeactivateListingInput
}

func (DeactivateListingMessage) Type() string { return TypeDeactivateListing }

func (m DeactivateListingMessage) Validate() error {
	if strings.TrimSpace(m.Input.Caller) == "" {
		return commandValidationError("caller", "caller principal is required")
	}
	if m.Input.AssetID == 0 {
		return commandValidationError("asset_id", "asset id is required")
	}
	return nil
}

type PurchaseMessage struct {
	Input core.PurchaseInput
}

func (PurchaseMessage) Type() string { return TypePurchase }

func (m PurchaseMessage) Validate() error {
	if strings.TrimSpace(m.Input.Buyer) == "" {
		return commandValidationError("buyer", "buyer principal is required")
	}
	if m.Input.AssetID == 0 {
		return commandValidationError("asset_id", "asset id is required")
	}
	return nil
}

type RevealKeyMessage struct {
	Input core.RevealKeyInput
}

func (RevealKeyMessage) Type() string { return TypeRevealKey }

func (m RevealKeyMessage) Validate() error {
	if strings.TrimSpace(m.Input.Buyer) == "" {
		return commandValidationError("buyer", "buyer principal is required")
	}
	if m.Input.AssetID == 0 {
		return commandValidationError("asset_id", "asset id is required")
	}
	return nil
}

type SetFeeMessage struct {
	Input core.SetFeeInput
}

func (SetFeeMessage) Type() string { return TypeSetFee }

func (m SetFeeMessage) Validate() error {
	if strings.TrimSpace(m.Input.Caller) == "" {
		return commandValidationError("caller", "caller principal is required")
	}
	if m.Input.Percent > core.MaxFeePercent {
		return commandValidationError("percent", "fee percent must be at most 100")
	}
	return nil
}
