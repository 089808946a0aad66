package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-marketplace/core"
)

type MutatingService interface {
	CreateListing(ctx context.Context, in core.CreateListingInput) (core.Listing, error)
	UpdatePrice(ctx context.Context, in core.UpdatePriceInput) (core.Listing, error)
	DeactivateListing(ctx context.Context, in core.DeactivateListingInput) (core.Listing, error)
	Purchase(ctx context.Context, in core.PurchaseInput) (core.PurchaseRecord, error)
	RevealKey(ctx context.Context, in core.RevealKeyInput) (string, error)
	SetFee(ctx context.Context, in core.SetFeeInput) (uint64, error)
}

type CreateListingCommand struct {
	service MutatingService
}

func NewCreateListingCommand(service MutatingService) *CreateListingCommand {
	return &CreateListingCommand{service: service}
}

func (c *CreateListingCommand) Execute(ctx context.Context, msg CreateListingMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: listing service is required")
	}
	out, err := c.service.CreateListing(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdatePriceCommand struct {
	service MutatingService
}

func NewUpdatePriceCommand(service MutatingService) *UpdatePriceCommand {
	return &UpdatePriceCommand{service: service}
}

func (c *UpdatePriceCommand) Execute(ctx context.Context, msg UpdatePriceMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: listing service is required")
	}
	out, err := c.service.UpdatePrice(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeactivateListingCommand struct {
	service MutatingService
}

func NewDeactivateListingCommand(service MutatingService) *DeactivateListingCommand {
	return &DeactivateListingCommand{service: service}
}

func (c *DeactivateListingCommand) Execute(ctx context.Context, msg DeactivateListingMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: listing service is required")
	}
	out, err := c.service.DeactivateListing(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type PurchaseCommand struct {
	service MutatingService
}

func NewPurchaseCommand(service MutatingService) *PurchaseCommand {
	return &PurchaseCommand{service: service}
}

func (c *PurchaseCommand) Execute(ctx context.Context, msg PurchaseMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: purchase service is required")
	}
	out, err := c.service.Purchase(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RevealKeyCommand struct {
	service MutatingService
}

func NewRevealKeyCommand(service MutatingService) *RevealKeyCommand {
	return &RevealKeyCommand{service: service}
}

func (c *RevealKeyCommand) Execute(ctx context.Context, msg RevealKeyMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: reveal service is required")
	}
	out, err := c.service.RevealKey(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SetFeeCommand struct {
	service MutatingService
}

func NewSetFeeCommand(service MutatingService) *SetFeeCommand {
	return &SetFeeCommand{service: service}
}

func (c *SetFeeCommand) Execute(ctx context.Context, msg SetFeeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: fee service is required")
	}
	out, err := c.service.SetFee(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
