package sqlstore

import "github.com/goliatone/go-marketplace/core"

var (
	_ core.Ledger                 = (*LedgerStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
