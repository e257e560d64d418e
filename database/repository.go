/*
Copyright 2025 Faregate Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"

	"github.com/faregate/faregate/model"
)

// IDataSource defines the interface for data source operations, grouping
// related functionalities.
type IDataSource interface {
	account
	ledgerRecord
	fareTransfer
}

// account defines the account store contract.
type account interface {
	CreateAccount(ctx context.Context, account model.Account) (model.Account, error)
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
	GetAllAccounts(ctx context.Context, limit, offset int) ([]model.Account, error)
	EnsureAccount(ctx context.Context, id, kind string, openingBalance int64) error
}

// ledgerRecord defines the read side of the append-only transaction log.
// Appends happen exclusively inside CommitFareTransfer.
type ledgerRecord interface {
	GetLedgerRecords(ctx context.Context, accountID string) ([]model.LedgerRecord, error)
}

// fareTransfer defines the atomic fare-transfer commit and transfer lookups.
type fareTransfer interface {
	CommitFareTransfer(ctx context.Context, transfer *model.FareTransfer, rider, operator *model.Account, payment, credit *model.LedgerRecord) error
	GetFareTransfer(ctx context.Context, transferID string) (*model.FareTransfer, error)
}
