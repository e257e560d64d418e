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
	"errors"
	"fmt"

	"github.com/faregate/faregate/internal/apierror"
	"github.com/faregate/faregate/model"
)

// applyDelta adjusts an account balance by a signed amount inside the
// transfer transaction. The version guard makes the update optimistic: if a
// concurrent commit bumped the version since the caller's read, zero rows
// match and the whole unit aborts with a conflict.
func applyDelta(ctx context.Context, tx *sql.Tx, accountID string, delta, version int64) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = balance + $2, version = version + 1
		WHERE account_id = $1 AND version = $3
	`, accountID, delta, version)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update balance", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("Optimistic locking failure: account '%s' was updated by another transaction", accountID), nil)
	}

	return nil
}

// CommitFareTransfer executes the atomic unit of one tap: both balance
// deltas and both ledger records commit together or not at all. On success
// the in-memory accounts, records and transfer are updated to the committed
// state (new balances, bumped versions, store-assigned timestamps) so the
// caller returns without re-reading.
func (d Datasource) CommitFareTransfer(ctx context.Context, transfer *model.FareTransfer, rider, operator *model.Account, payment, credit *model.LedgerRecord) error {
	tx, err := d.Conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelDefault})
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}

	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if err := applyDelta(ctx, tx, rider.AccountID, -transfer.Amount, rider.Version); err != nil {
		return err
	}

	if err := applyDelta(ctx, tx, operator.AccountID, transfer.Amount, operator.Version); err != nil {
		return err
	}

	if err := appendRecord(ctx, tx, payment); err != nil {
		return err
	}

	if err := appendRecord(ctx, tx, credit); err != nil {
		return err
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO fare_transfers (transfer_id, event_id, rider_id, operator_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING created_at
	`, transfer.TransferID, transfer.EventID, transfer.RiderID, transfer.OperatorID, transfer.Amount, model.StatusApplied)
	if err := row.Scan(&transfer.CreatedAt); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record fare transfer", err)
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit transaction", err)
	}

	rider.ApplyDelta(-transfer.Amount)
	operator.ApplyDelta(transfer.Amount)
	rider.Version++
	operator.Version++

	transfer.Status = model.StatusApplied
	transfer.RiderBalance = rider.Balance
	transfer.OperatorBalance = operator.Balance

	return nil
}

// GetFareTransfer fetches a committed transfer by id.
func (d Datasource) GetFareTransfer(ctx context.Context, transferID string) (*model.FareTransfer, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT transfer_id, event_id, rider_id, operator_id, amount, status, created_at
		FROM fare_transfers WHERE transfer_id = $1
	`, transferID)

	transfer := model.FareTransfer{}
	err := row.Scan(&transfer.TransferID, &transfer.EventID, &transfer.RiderID, &transfer.OperatorID,
		&transfer.Amount, &transfer.Status, &transfer.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Transfer with ID '%s' not found", transferID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve transfer", err)
	}

	return &transfer, nil
}
