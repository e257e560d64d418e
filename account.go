package faregate

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/faregate/faregate/model"
)

const accountCacheTTL = 5 * time.Second

// CreateAccount registers a rider account with an opening balance.
func (f *Faregate) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	created, err := f.datasource.CreateAccount(ctx, account)
	if err != nil {
		return model.Account{}, err
	}
	return created, nil
}

// GetAccount serves the API read path through the short-lived cache. The
// ledger engine never uses this: fare validation always reads the store
// directly.
func (f *Faregate) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	key := accountCacheKey(id)
	if f.cache != nil {
		var cached *model.Account
		if err := f.cache.Get(ctx, key, &cached); err == nil && cached != nil {
			return cached, nil
		}
	}

	account, err := f.datasource.GetAccountByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if err := f.cache.Set(ctx, key, account, accountCacheTTL); err != nil {
			logrus.Warnf("failed to cache account %s: %v", id, err)
		}
	}

	return account, nil
}

// GetAllAccounts lists accounts for operational tooling.
func (f *Faregate) GetAllAccounts(ctx context.Context, limit, offset int) ([]model.Account, error) {
	return f.datasource.GetAllAccounts(ctx, limit, offset)
}

// GetLedgerRecords returns the append-only history for one account in
// commit order.
func (f *Faregate) GetLedgerRecords(ctx context.Context, accountID string) ([]model.LedgerRecord, error) {
	return f.datasource.GetLedgerRecords(ctx, accountID)
}

// GetFareTransfer fetches a committed transfer by id.
func (f *Faregate) GetFareTransfer(ctx context.Context, transferID string) (*model.FareTransfer, error) {
	return f.datasource.GetFareTransfer(ctx, transferID)
}

func accountCacheKey(id string) string {
	return fmt.Sprintf("account:%s", id)
}
