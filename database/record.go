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

	"github.com/faregate/faregate/internal/apierror"
	"github.com/faregate/faregate/model"
)

// appendRecord inserts one ledger record inside the engine's transaction.
// The timestamp is assigned by the store at insert time and scanned back so
// the committed record carries the commit-time value. Never called outside
// CommitFareTransfer.
func appendRecord(ctx context.Context, tx *sql.Tx, record *model.LedgerRecord) error {
	row := tx.QueryRowContext(ctx, `
		INSERT INTO ledger_records (record_id, account_id, record_type, amount, counterparty_id, transfer_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`, record.RecordID, record.AccountID, record.RecordType, record.Amount, record.CounterpartyID, record.TransferID)

	if err := row.Scan(&record.ID, &record.CreatedAt); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to append ledger record", err)
	}
	return nil
}

// GetLedgerRecords returns an account's history in commit order.
func (d Datasource) GetLedgerRecords(ctx context.Context, accountID string) ([]model.LedgerRecord, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, record_id, account_id, record_type, amount, counterparty_id, transfer_id, created_at
		FROM ledger_records WHERE account_id = $1 ORDER BY id ASC
	`, accountID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve ledger records", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []model.LedgerRecord
	for rows.Next() {
		record := model.LedgerRecord{}
		err = rows.Scan(&record.ID, &record.RecordID, &record.AccountID, &record.RecordType,
			&record.Amount, &record.CounterpartyID, &record.TransferID, &record.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan ledger record", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error iterating ledger records", err)
	}

	return records, nil
}
