package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/faregate/faregate/model"
)

func TestValidateRecordTap(t *testing.T) {
	valid := RecordTap{UID: "rfid-8810"}
	assert.NoError(t, valid.ValidateRecordTap())

	missing := RecordTap{FareAmount: decimal.NewFromInt(20)}
	assert.Error(t, missing.ValidateRecordTap())
}

func TestRecordTap_ToTapEvent(t *testing.T) {
	tests := []struct {
		name    string
		request RecordTap
		want    int64
		wantErr bool
	}{
		{
			name:    "Whole fare",
			request: RecordTap{UID: "rfid-8810", FareAmount: decimal.NewFromInt(20)},
			want:    20,
		},
		{
			name:    "Zero fare means default",
			request: RecordTap{UID: "rfid-8810"},
			want:    0,
		},
		{
			name:    "Fractional fare rejected",
			request: RecordTap{UID: "rfid-8810", FareAmount: decimal.NewFromFloat(19.5)},
			wantErr: true,
		},
		{
			name:    "Negative fare rejected",
			request: RecordTap{UID: "rfid-8810", FareAmount: decimal.NewFromInt(-5)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := tt.request.ToTapEvent()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, event.FareAmount)
			assert.Equal(t, "rfid-8810", event.UID)
		})
	}
}

func TestCreateAccount_ToAccount(t *testing.T) {
	account, err := CreateAccount{
		AccountID:      "rfid-8810",
		OpeningBalance: decimal.NewFromInt(100),
		MetaData:       map[string]interface{}{"line": "metro-north"},
	}.ToAccount()
	assert.NoError(t, err)
	assert.Equal(t, "rfid-8810", account.AccountID)
	assert.Equal(t, model.AccountKindRider, account.Kind)
	assert.Equal(t, int64(100), account.Balance)

	_, err = CreateAccount{OpeningBalance: decimal.NewFromFloat(0.5)}.ToAccount()
	assert.Error(t, err)

	assert.Error(t, CreateAccount{OpeningBalance: decimal.NewFromInt(-1)}.ValidateCreateAccount())
}
