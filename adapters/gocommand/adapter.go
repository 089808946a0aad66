package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	marketcommand "github.com/goliatone/go-marketplace/command"
	"github.com/goliatone/go-marketplace/core"
	marketquery "github.com/goliatone/go-marketplace/query"
)

// MarketService is the surface the command and query handlers need from
// the marketplace service.
type MarketService interface {
	marketcommand.MutatingService
	marketquery.MarketReader
}

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) RegisterQuery(qry any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(qry)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	subscription := commanddispatcher.SubscribeQuery(qry, runnerOpts...)
	if err := adapter.RegisterQuery(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// MarketSubscriptions tracks every dispatcher subscription SubscribeMarket
// created so a host can tear the wiring down as one unit.
type MarketSubscriptions struct {
	subscriptions []commanddispatcher.Subscription
}

func (s *MarketSubscriptions) Unsubscribe() {
	if s == nil {
		return
	}
	for _, subscription := range s.subscriptions {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
	s.subscriptions = nil
}

func (s *MarketSubscriptions) add(subscription commanddispatcher.Subscription) {
	s.subscriptions = append(s.subscriptions, subscription)
}

// SubscribeMarket registers the full marketplace command and query set with
// the registry and the process dispatcher. On any failure everything
// registered so far is unsubscribed before the error returns.
func SubscribeMarket(
	adapter *RegistryAdapter,
	service MarketService,
	activity marketquery.ActivityReader,
	runnerOpts ...runner.Option,
) (*MarketSubscriptions, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if service == nil {
		return nil, fmt.Errorf("gocommand: marketplace service is required")
	}

	out := &MarketSubscriptions{}
	fail := func(err error) (*MarketSubscriptions, error) {
		out.Unsubscribe()
		return nil, err
	}

	if sub, err := RegisterAndSubscribe[marketcommand.CreateListingMessage](adapter, marketcommand.NewCreateListingCommand(service), runnerOpts...); err != nil {
		return fail(err)
	} else {
		out.add(sub)
	}
	if sub, err := RegisterAndSubscribe[marketcommand.UpdatePriceMessage](adapter, marketcommand.NewUpdatePriceCommand(service), runnerOpts...); err != nil {
		return fail(err)
	} else {
		out.add(sub)
	}
	if sub, err := RegisterAndSubscribe[marketcommand.DeactivateListingMessage](adapter, marketcommand.NewDeactivateListingCommand(service), runnerOpts...); err != nil {
		return fail(err)
	} else {
		out.add(sub)
	}
	if sub, err := RegisterAndSubscribe[marketcommand.PurchaseMessage](adapter, marketcommand.NewPurchaseCommand(service), runnerOpts...); err != nil {
		return fail(err)
	} else {
		out.add(sub)
	}
	if sub, err := RegisterAndSubscribe[marketcommand.RevealKeyMessage](adapter, marketcommand.NewRevealKeyCommand(service), runnerOpts...); err != nil {
		return fail(err)
	} else {
		out.add(sub)
	}
	if sub, err := RegisterAndSubscribe[marketcommand.SetFeeMessage](adapter, marketcommand.NewSetFeeCommand(service), runnerOpts...); err != nil {
		return fail(err)
	} else {
		out.add(sub)
	}

	if sub, err := RegisterAndSubscribeQuery[marketquery.GetListingMessage, core.Listing](adapter, marketquery.NewGetListingQuery(service), runnerOpts...); err != nil {
		return fail(err)
	} else {
		out.add(sub)
	}
	if sub, err := RegisterAndSubscribeQuery[marketquery.GetProfileMessage, core.SellerProfile](adapter, marketquery.NewGetProfileQuery(service), runnerOpts...); err != nil {
		return fail(err)
	} else {
		out.add(sub)
	}
	if sub, err := RegisterAndSubscribeQuery[marketquery.GetFeeMessage, uint64](adapter, marketquery.NewGetFeeQuery(service), runnerOpts...); err != nil {
		return fail(err)
	} else {
		out.add(sub)
	}
	if sub, err := RegisterAndSubscribeQuery[marketquery.GetTransactionCountMessage, uint64](adapter, marketquery.NewGetTransactionCountQuery(service), runnerOpts...); err != nil {
		return fail(err)
	} else {
		out.add(sub)
	}
	if sub, err := RegisterAndSubscribeQuery[marketquery.ListMarketActivityMessage, []core.MarketActivityEntry](adapter, marketquery.NewListMarketActivityQuery(activity), runnerOpts...); err != nil {
		return fail(err)
	} else {
		out.add(sub)
	}

	return out, nil
}
