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

package model

import (
	"time"

	"github.com/faregate/faregate/internal/apierror"
)

// AccountKind distinguishes rider (prepaid) accounts from the operator
// account that accumulates fares.
const (
	AccountKindRider    = "rider"
	AccountKindOperator = "operator"
)

// Account holds a single balance in integer minor currency units. Balances
// are never represented as floats. Version is the optimistic concurrency
// token: every committed balance change increments it, and a store update
// only applies when the version still matches the one read.
type Account struct {
	ID        int64                  `json:"-"`
	AccountID string                 `json:"account_id"`
	Kind      string                 `json:"kind"`
	Balance   int64                  `json:"balance"`
	Version   int64                  `json:"-"`
	CreatedAt time.Time              `json:"created_at"`
	MetaData  map[string]interface{} `json:"meta_data,omitempty"`
}

// CanDebit reports whether the account holds at least amount. Overdraft is
// always rejected for tap processing.
func (a *Account) CanDebit(amount int64) error {
	if a.Balance < amount {
		return apierror.NewAPIError(apierror.ErrInsufficientFunds,
			"insufficient funds in rider account", map[string]interface{}{
				"account_id": a.AccountID,
				"balance":    a.Balance,
				"required":   amount,
			})
	}
	return nil
}

// ApplyDelta adjusts the in-memory balance by a signed amount. The store is
// the source of truth; this mirrors the change the commit will apply so the
// caller can return the post-commit state without re-reading.
func (a *Account) ApplyDelta(delta int64) {
	a.Balance += delta
}
