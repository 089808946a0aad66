package marketplace

import (
	"fmt"
	"reflect"

	marketcommand "github.com/goliatone/go-marketplace/command"
	"github.com/goliatone/go-marketplace/core"
	marketquery "github.com/goliatone/go-marketplace/query"
)

type CommandQueryService interface {
	marketcommand.MutatingService
	marketquery.MarketReader
}

type Commands struct {
	CreateListing     *marketcommand.CreateListingCommand
	UpdatePrice       *marketcommand.UpdatePriceCommand
	DeactivateListing *marketcommand.DeactivateListingCommand
	Purchase          *marketcommand.PurchaseCommand
	RevealKey         *marketcommand.RevealKeyCommand
	SetFee            *marketcommand.SetFeeCommand
}

type Queries struct {
	GetListing          *marketquery.GetListingQuery
	GetProfile          *marketquery.GetProfileQuery
	GetFee              *marketquery.GetFeeQuery
	GetTransactionCount *marketquery.GetTransactionCountQuery
	ListMarketActivity  *marketquery.ListMarketActivityQuery
}

type Facade struct {
	service    CommandQueryService
	commands   Commands
	queries    Queries
	dispatcher *core.OutboxDispatcher
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	activityReader marketquery.ActivityReader
	dispatcher     *core.OutboxDispatcher
}

func WithFacadeActivityReader(reader marketquery.ActivityReader) FacadeOption {
	return func(options *facadeOptions) {
		options.activityReader = reader
	}
}

// WithFacadeDispatcher attaches an outbox dispatcher so hosts can drain
// staged events through the same handle that serves commands and queries.
func WithFacadeDispatcher(dispatcher *core.OutboxDispatcher) FacadeOption {
	return func(options *facadeOptions) {
		options.dispatcher = dispatcher
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("marketplace: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.activityReader
	if reader == nil {
		reader = resolveActivityReader(service)
	}

	facade := &Facade{service: service, dispatcher: cfg.dispatcher}
	facade.commands = Commands{
		CreateListing:     marketcommand.NewCreateListingCommand(service),
		UpdatePrice:       marketcommand.NewUpdatePriceCommand(service),
		DeactivateListing: marketcommand.NewDeactivateListingCommand(service),
		Purchase:          marketcommand.NewPurchaseCommand(service),
		RevealKey:         marketcommand.NewRevealKeyCommand(service),
		SetFee:            marketcommand.NewSetFeeCommand(service),
	}
	facade.queries = Queries{
		GetListing:          marketquery.NewGetListingQuery(service),
		GetProfile:          marketquery.NewGetProfileQuery(service),
		GetFee:              marketquery.NewGetFeeQuery(service),
		GetTransactionCount: marketquery.NewGetTransactionCountQuery(service),
		ListMarketActivity:  marketquery.NewListMarketActivityQuery(reader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

func (f *Facade) Dispatcher() *core.OutboxDispatcher {
	if f == nil {
		return nil
	}
	return f.dispatcher
}

// resolveActivityReader finds a reader for the activity query when the host
// did not supply one: the service itself, the activity store it was built
// with, or an ActivityStore() accessor on whatever repository factory the
// host injected.
func resolveActivityReader(service CommandQueryService) marketquery.ActivityReader {
	if service == nil {
		return nil
	}
	if reader, ok := service.(marketquery.ActivityReader); ok {
		return reader
	}
	provider, ok := service.(interface {
		Dependencies() core.ServiceDependencies
	})
	if !ok {
		return nil
	}
	deps := provider.Dependencies()
	if deps.ActivityStore != nil {
		return deps.ActivityStore
	}
	if deps.RepositoryFactory == nil {
		return nil
	}

	factoryValue := reflect.ValueOf(deps.RepositoryFactory)
	if !factoryValue.IsValid() {
		return nil
	}
	if factoryValue.Kind() == reflect.Ptr && factoryValue.IsNil() {
		return nil
	}
	method := factoryValue.MethodByName("ActivityStore")
	if !method.IsValid() || method.Type().NumIn() != 0 || method.Type().NumOut() != 1 {
		return nil
	}

	results, ok := safeReflectCall(method)
	if !ok {
		return nil
	}
	if len(results) != 1 {
		return nil
	}
	candidate := results[0]
	if !candidate.IsValid() {
		return nil
	}
	if candidate.Kind() == reflect.Ptr && candidate.IsNil() {
		return nil
	}
	reader, ok := candidate.Interface().(marketquery.ActivityReader)
	if !ok {
		return nil
	}
	return reader
}

func safeReflectCall(method reflect.Value) (_ []reflect.Value, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return method.Call(nil), true
}
