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
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/faregate/faregate/internal/apierror"
	"github.com/faregate/faregate/model"
)

// CreateAccount inserts a new account. The caller may supply an account id
// (rider RFID uids arrive from the outside world); otherwise one is
// generated.
func (d Datasource) CreateAccount(ctx context.Context, account model.Account) (model.Account, error) {
	if account.AccountID == "" {
		account.AccountID = model.GenerateUUIDWithSuffix("acc")
	}
	if account.Kind == "" {
		account.Kind = model.AccountKindRider
	}
	account.CreatedAt = time.Now()

	metaDataJSON, err := json.Marshal(account.MetaData)
	if err != nil {
		return model.Account{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO accounts (account_id, kind, balance, version, created_at, meta_data)
		VALUES ($1, $2, $3, 0, $4, $5)
	`, account.AccountID, account.Kind, account.Balance, account.CreatedAt, metaDataJSON)
	if err != nil {
		return model.Account{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create account", err)
	}

	return account, nil
}

// GetAccountByID fetches an account, including its current version for the
// optimistic update that may follow.
func (d Datasource) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT id, account_id, kind, balance, version, created_at
		FROM accounts WHERE account_id = $1
	`, id)

	account := model.Account{}
	err := row.Scan(&account.ID, &account.AccountID, &account.Kind, &account.Balance, &account.Version, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Account with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve account", err)
	}

	return &account, nil
}

func (d Datasource) GetAllAccounts(ctx context.Context, limit, offset int) ([]model.Account, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, account_id, kind, balance, version, created_at
		FROM accounts ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve accounts", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var accounts []model.Account
	for rows.Next() {
		account := model.Account{}
		err = rows.Scan(&account.ID, &account.AccountID, &account.Kind, &account.Balance, &account.Version, &account.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan account", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating accounts", err)
	}

	return accounts, nil
}

// EnsureAccount creates the account if it does not exist yet. Used to seed
// the fixed operator account at startup and by migrations.
func (d Datasource) EnsureAccount(ctx context.Context, id, kind string, openingBalance int64) error {
	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO accounts (account_id, kind, balance, version, created_at)
		VALUES ($1, $2, $3, 0, NOW())
		ON CONFLICT (account_id) DO NOTHING
	`, id, kind, openingBalance)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to ensure account", err)
	}
	return nil
}
