package marketplace

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-marketplace/core"
)

// ProjectorPack is a named set of event projectors a host registers as a
// unit, keyed so a pack can only land once.
type ProjectorPack struct {
	Name       string
	Projectors map[string]core.MarketEventHandler
}

type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

// ExtensionHooks collects host extensions before the runtime assembles
// them: projector packs feed the outbox dispatcher, bundles build typed
// command/query groups over the facade service.
type ExtensionHooks struct {
	mu sync.RWMutex

	projectorPacks map[string]ProjectorPack
	bundles        map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		projectorPacks: map[string]ProjectorPack{},
		bundles:        map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterProjectorPack(pack ProjectorPack) error {
	if h == nil {
		return fmt.Errorf("marketplace: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("marketplace: projector pack name is required")
	}
	if len(pack.Projectors) == 0 {
		return fmt.Errorf("marketplace: projector pack %q has no projectors", name)
	}

	normalized := ProjectorPack{
		Name:       name,
		Projectors: make(map[string]core.MarketEventHandler, len(pack.Projectors)),
	}
	for projectorName, handler := range pack.Projectors {
		projectorName = strings.TrimSpace(projectorName)
		if projectorName == "" {
			return fmt.Errorf("marketplace: projector pack %q contains an unnamed projector", name)
		}
		if handler == nil {
			return fmt.Errorf("marketplace: projector pack %q projector %q is nil", name, projectorName)
		}
		normalized.Projectors[projectorName] = handler
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.projectorPacks[name]; exists {
		return fmt.Errorf("marketplace: projector pack %q already registered", name)
	}
	h.projectorPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("marketplace: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("marketplace: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("marketplace: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("marketplace: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// ApplyProjectorPacks registers every pack projector on the registry under
// "pack/projector" so two packs can carry the same projector name without
// clobbering each other.
func (h *ExtensionHooks) ApplyProjectorPacks(registry core.ProjectorRegistry) error {
	if h == nil {
		return nil
	}
	if registry == nil {
		return fmt.Errorf("marketplace: projector registry is required")
	}

	for _, pack := range h.ProjectorPacks() {
		names := make([]string, 0, len(pack.Projectors))
		for name := range pack.Projectors {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			registry.Register(pack.Name+"/"+name, pack.Projectors[name])
		}
	}
	return nil
}

func (h *ExtensionHooks) BuildCommandQueryBundles(
	service CommandQueryService,
) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("marketplace: command/query service is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](service)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) ProjectorPacks() []ProjectorPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.projectorPacks))
	for name := range h.projectorPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ProjectorPack, 0, len(names))
	for _, name := range names {
		pack := h.projectorPacks[name]
		projectors := make(map[string]core.MarketEventHandler, len(pack.Projectors))
		for projectorName, handler := range pack.Projectors {
			projectors[projectorName] = handler
		}
		out = append(out, ProjectorPack{Name: pack.Name, Projectors: projectors})
	}
	return out
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
