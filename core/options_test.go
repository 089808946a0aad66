package core

import (
	"context"
	"testing"
)

type fixedConfigProvider struct {
	cfg Config
}

func (p *fixedConfigProvider) Load(context.Context, Config) (Config, error) {
	return p.cfg, nil
}

type fixedOptionsResolver struct {
	cfg Config
}

func (r *fixedOptionsResolver) Resolve(Config, Config, Config) (Config, error) {
	return r.cfg, nil
}

type fixedStoreProvider struct {
	ledger   *MemoryLedger
	activity *MemoryActivityStore
}

func (p *fixedStoreProvider) Ledger() Ledger               { return p.ledger }
func (p *fixedStoreProvider) OutboxStore() OutboxStore     { return p.ledger }
func (p *fixedStoreProvider) ActivityStore() ActivityStore { return p.activity }

type capturingStoreFactory struct {
	provider *fixedStoreProvider
	received any
}

func (f *capturingStoreFactory) BuildStores(persistenceClient any) (StoreProvider, error) {
	f.received = persistenceClient
	return f.provider, nil
}

func TestNewService_DefaultDependencies(t *testing.T) {
	svc, err := NewService(Config{Administrator: "admin_1"})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	deps := svc.Dependencies()
	if deps.Logger == nil {
		t.Fatalf("expected default logger")
	}
	if deps.MetricsRecorder == nil {
		t.Fatalf("expected default metrics recorder")
	}
	if deps.ErrorMapper == nil {
		t.Fatalf("expected default error mapper")
	}
	if deps.ConfigProvider == nil {
		t.Fatalf("expected default config provider")
	}
	if deps.OptionsResolver == nil {
		t.Fatalf("expected default options resolver")
	}
	if deps.Ledger == nil {
		t.Fatalf("expected default in-memory ledger")
	}
	if deps.Settlement == nil {
		t.Fatalf("expected default settlement engine")
	}
	if deps.Clock == nil {
		t.Fatalf("expected default clock")
	}
	if deps.IDGenerator == nil {
		t.Fatalf("expected default id generator")
	}
	if deps.OutboxStore == nil {
		t.Fatalf("expected outbox store wired from the memory ledger")
	}
	if deps.ActivityStore == nil {
		t.Fatalf("expected default activity store")
	}
	if got := svc.Config().ServiceName; got != "marketplace" {
		t.Fatalf("expected default config service_name=marketplace, got %q", got)
	}
	if got := svc.Administrator(); got != "admin_1" {
		t.Fatalf("expected administrator admin_1, got %q", got)
	}
}

func TestNewService_RequiresAdministrator(t *testing.T) {
	if _, err := NewService(Config{}); err == nil {
		t.Fatalf("expected construction to fail without an administrator")
	}
}

func TestNewService_WithXOverrides(t *testing.T) {
	customLogger := stubLogger{}
	customProvider := stubLoggerProvider{logger: customLogger}
	persistenceClient := &struct{ Name string }{Name: "persistence"}
	configProvider := &fixedConfigProvider{cfg: Config{ServiceName: "from-provider", Administrator: "admin_1"}}
	optionsResolver := &fixedOptionsResolver{cfg: Config{
		ServiceName:   "resolved",
		Administrator: "admin_2",
		FeePercent:    3,
		Limits: LimitsConfig{
			MaxDescriptionLength: 10,
			MaxCategoryLength:    10,
			MaxAccessKeyLength:   10,
		},
	}}
	ledger := NewMemoryLedger()
	settlement := NewMemorySettlement()
	clock := NewStepClock(7)
	metrics := newRecordingMetrics()
	activity := NewMemoryActivityStore()

	svc, err := NewService(Config{Administrator: "admin_1"},
		WithLogger(customLogger),
		WithLoggerProvider(customProvider),
		WithMetricsRecorder(metrics),
		WithPersistenceClient(persistenceClient),
		WithConfigProvider(configProvider),
		WithOptionsResolver(optionsResolver),
		WithLedger(ledger),
		WithSettlement(settlement),
		WithClock(clock),
		WithIDGenerator(&seqIDGenerator{prefix: "evt"}),
		WithActivityStore(activity),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	deps := svc.Dependencies()
	if deps.PersistenceClient != persistenceClient {
		t.Fatalf("expected custom persistence client override")
	}
	if deps.ConfigProvider != ConfigProvider(configProvider) {
		t.Fatalf("expected custom config provider override")
	}
	if deps.OptionsResolver != OptionsResolver(optionsResolver) {
		t.Fatalf("expected custom options resolver override")
	}
	if deps.Ledger != Ledger(ledger) {
		t.Fatalf("expected custom ledger override")
	}
	if deps.Settlement != SettlementEngine(settlement) {
		t.Fatalf("expected custom settlement override")
	}
	if deps.ActivityStore != ActivityStore(activity) {
		t.Fatalf("expected custom activity store override")
	}
	if got := svc.Config().ServiceName; got != "resolved" {
		t.Fatalf("expected options resolver output config, got %q", got)
	}
	if got := svc.Administrator(); got != "admin_2" {
		t.Fatalf("expected resolver-provided administrator, got %q", got)
	}
}

func TestNewService_ConfigLayeringPrecedence(t *testing.T) {
	provider := NewCfgxConfigProvider(mapRawLoader{values: map[string]any{
		"service_name":  "from-config",
		"administrator": "cfg_admin",
		"fee_percent":   5,
		"limits": map[string]any{
			"max_description_length": 128,
		},
	}})

	svc, err := NewService(Config{ServiceName: "from-runtime"}, WithConfigProvider(provider))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	cfg := svc.Config()
	if cfg.ServiceName != "from-runtime" {
		t.Fatalf("expected runtime value to override config/default, got %q", cfg.ServiceName)
	}
	if cfg.Administrator != "cfg_admin" {
		t.Fatalf("expected config layer administrator, got %q", cfg.Administrator)
	}
	if cfg.FeePercent != 5 {
		t.Fatalf("expected config layer fee 5, got %d", cfg.FeePercent)
	}
	if cfg.Limits.MaxDescriptionLength != 128 {
		t.Fatalf("expected config layer description limit 128, got %d", cfg.Limits.MaxDescriptionLength)
	}
	if cfg.Limits.MaxCategoryLength != DefaultMaxCategoryLength {
		t.Fatalf("expected default category limit, got %d", cfg.Limits.MaxCategoryLength)
	}
}

func TestNewService_SeedsLedgerFeeFromConfig(t *testing.T) {
	ctx := context.Background()
	svc, err := NewService(Config{Administrator: "admin_1", FeePercent: 7})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	percent, err := svc.FeePercent(ctx)
	if err != nil {
		t.Fatalf("fee percent: %v", err)
	}
	if percent != 7 {
		t.Fatalf("expected seeded fee 7, got %d", percent)
	}
}

func TestNewService_BuildsStoresThroughRepositoryFactory(t *testing.T) {
	provider := &fixedStoreProvider{ledger: NewMemoryLedger(), activity: NewMemoryActivityStore()}
	factory := &capturingStoreFactory{provider: provider}
	persistenceClient := &struct{ Name string }{Name: "bun"}

	svc, err := NewService(Config{Administrator: "admin_1"},
		WithPersistenceClient(persistenceClient),
		WithRepositoryFactory(factory),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if factory.received != persistenceClient {
		t.Fatalf("expected factory to receive the persistence client")
	}
	deps := svc.Dependencies()
	if deps.Ledger != Ledger(provider.ledger) {
		t.Fatalf("expected factory-built ledger")
	}
	if deps.OutboxStore != OutboxStore(provider.ledger) {
		t.Fatalf("expected factory-built outbox store")
	}
	if deps.ActivityStore != ActivityStore(provider.activity) {
		t.Fatalf("expected factory-built activity store")
	}
}
