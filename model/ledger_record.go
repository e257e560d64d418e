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

import "time"

const (
	RecordTypeFarePayment = "fare_payment"
	RecordTypeFareCredit  = "fare_credit"
)

// LedgerRecord is one immutable side of a fare transfer. A committed tap
// writes exactly two: a fare_payment on the rider's history and a
// fare_credit on the operator's, each naming the other as counterparty.
// CreatedAt is assigned by the store at commit time, never by the caller.
type LedgerRecord struct {
	ID             int64     `json:"-"`
	RecordID       string    `json:"record_id"`
	AccountID      string    `json:"account_id"`
	RecordType     string    `json:"record_type"`
	Amount         int64     `json:"amount"`
	CounterpartyID string    `json:"counterparty_id"`
	TransferID     string    `json:"transfer_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewFarePayment builds the rider-side record for a transfer.
func NewFarePayment(transferID, riderID, operatorID string, amount int64) *LedgerRecord {
	return &LedgerRecord{
		RecordID:       GenerateUUIDWithSuffix("rec"),
		AccountID:      riderID,
		RecordType:     RecordTypeFarePayment,
		Amount:         amount,
		CounterpartyID: operatorID,
		TransferID:     transferID,
	}
}

// NewFareCredit builds the operator-side record for a transfer.
func NewFareCredit(transferID, riderID, operatorID string, amount int64) *LedgerRecord {
	return &LedgerRecord{
		RecordID:       GenerateUUIDWithSuffix("rec"),
		AccountID:      operatorID,
		RecordType:     RecordTypeFareCredit,
		Amount:         amount,
		CounterpartyID: riderID,
		TransferID:     transferID,
	}
}
