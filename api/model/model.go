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
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/faregate/faregate/model"
)

// RecordTap is the inbound tap notification. FareAmount is optional; zero
// means the configured default fare. Amounts arrive as decimals so clients
// cannot smuggle float rounding into the ledger: only whole currency units
// are accepted.
type RecordTap struct {
	EventID    string          `json:"event_id"`
	UID        string          `json:"uid"`
	FareAmount decimal.Decimal `json:"fare_amount"`
}

func (r RecordTap) ValidateRecordTap() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UID, validation.Required),
	)
}

// ToTapEvent converts the request into a domain tap event, rejecting
// fractional or negative fares.
func (r RecordTap) ToTapEvent() (*model.TapEvent, error) {
	amount, err := toCurrencyUnits(r.FareAmount)
	if err != nil {
		return nil, err
	}
	return &model.TapEvent{
		EventID:    r.EventID,
		UID:        r.UID,
		FareAmount: amount,
	}, nil
}

// CreateAccount registers a rider account with an optional opening balance.
type CreateAccount struct {
	AccountID      string                 `json:"account_id"`
	OpeningBalance decimal.Decimal        `json:"opening_balance"`
	MetaData       map[string]interface{} `json:"meta_data"`
}

func (c CreateAccount) ValidateCreateAccount() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.OpeningBalance, validation.By(nonNegativeDecimal)),
	)
}

// ToAccount converts the request into a domain account.
func (c CreateAccount) ToAccount() (model.Account, error) {
	balance, err := toCurrencyUnits(c.OpeningBalance)
	if err != nil {
		return model.Account{}, err
	}
	return model.Account{
		AccountID: c.AccountID,
		Kind:      model.AccountKindRider,
		Balance:   balance,
		MetaData:  c.MetaData,
	}, nil
}

func nonNegativeDecimal(value interface{}) error {
	d, ok := value.(decimal.Decimal)
	if !ok {
		return errors.New("must be a decimal amount")
	}
	if d.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}

// toCurrencyUnits converts a decimal amount into integer currency units,
// rejecting fractional values instead of rounding them.
func toCurrencyUnits(d decimal.Decimal) (int64, error) {
	if d.IsNegative() {
		return 0, errors.New("amount must not be negative")
	}
	if !d.IsInteger() {
		return 0, errors.New("amount must be a whole number of currency units")
	}
	return d.IntPart(), nil
}
