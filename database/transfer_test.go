package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/faregate/faregate/internal/apierror"
	"github.com/faregate/faregate/model"
)

func commitFixtures() (*model.FareTransfer, *model.Account, *model.Account, *model.LedgerRecord, *model.LedgerRecord) {
	rider := &model.Account{AccountID: "rfid-8810", Balance: 100, Version: 2}
	operator := &model.Account{AccountID: "operator", Balance: 500, Version: 7}
	transfer := &model.FareTransfer{
		TransferID: "trf_1",
		EventID:    "tap_1",
		RiderID:    rider.AccountID,
		OperatorID: operator.AccountID,
		Amount:     20,
	}
	payment := model.NewFarePayment(transfer.TransferID, rider.AccountID, operator.AccountID, transfer.Amount)
	credit := model.NewFareCredit(transfer.TransferID, rider.AccountID, operator.AccountID, transfer.Amount)
	return transfer, rider, operator, payment, credit
}

func TestCommitFareTransfer_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	transfer, rider, operator, payment, credit := commitFixtures()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts").
		WithArgs(rider.AccountID, -transfer.Amount, rider.Version).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE accounts").
		WithArgs(operator.AccountID, transfer.Amount, operator.Version).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO ledger_records").
		WithArgs(payment.RecordID, payment.AccountID, payment.RecordType, payment.Amount, payment.CounterpartyID, payment.TransferID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))
	mock.ExpectQuery("INSERT INTO ledger_records").
		WithArgs(credit.RecordID, credit.AccountID, credit.RecordType, credit.Amount, credit.CounterpartyID, credit.TransferID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(2, time.Now()))
	mock.ExpectQuery("INSERT INTO fare_transfers").
		WithArgs(transfer.TransferID, transfer.EventID, transfer.RiderID, transfer.OperatorID, transfer.Amount, model.StatusApplied).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	err = ds.CommitFareTransfer(context.Background(), transfer, rider, operator, payment, credit)
	assert.NoError(t, err)

	assert.Equal(t, model.StatusApplied, transfer.Status)
	assert.Equal(t, int64(80), rider.Balance)
	assert.Equal(t, int64(520), operator.Balance)
	assert.Equal(t, int64(3), rider.Version)
	assert.Equal(t, int64(8), operator.Version)
	assert.Equal(t, int64(80), transfer.RiderBalance)
	assert.Equal(t, int64(520), transfer.OperatorBalance)
	assert.False(t, transfer.CreatedAt.IsZero())
	assert.False(t, payment.CreatedAt.IsZero())
	assert.False(t, credit.CreatedAt.IsZero())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestCommitFareTransfer_RiderConflictRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	transfer, rider, operator, payment, credit := commitFixtures()

	mock.ExpectBegin()
	// A concurrent commit bumped the rider version: zero rows match.
	mock.ExpectExec("UPDATE accounts").
		WithArgs(rider.AccountID, -transfer.Amount, rider.Version).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = ds.CommitFareTransfer(context.Background(), transfer, rider, operator, payment, credit)
	assert.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrConflict))

	// Nothing mutated in memory when the unit aborts.
	assert.Equal(t, int64(100), rider.Balance)
	assert.Equal(t, int64(500), operator.Balance)
	assert.Equal(t, int64(2), rider.Version)
	assert.Empty(t, transfer.Status)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestCommitFareTransfer_OperatorConflictRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	transfer, rider, operator, payment, credit := commitFixtures()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts").
		WithArgs(rider.AccountID, -transfer.Amount, rider.Version).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE accounts").
		WithArgs(operator.AccountID, transfer.Amount, operator.Version).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = ds.CommitFareTransfer(context.Background(), transfer, rider, operator, payment, credit)
	assert.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrConflict))
	assert.Contains(t, err.Error(), "operator")

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestGetFareTransfer_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	rows := sqlmock.NewRows([]string{"transfer_id", "event_id", "rider_id", "operator_id", "amount", "status", "created_at"}).
		AddRow("trf_1", "tap_1", "rfid-8810", "operator", 20, model.StatusApplied, time.Now())

	mock.ExpectQuery("SELECT .* FROM fare_transfers WHERE transfer_id =").
		WithArgs("trf_1").
		WillReturnRows(rows)

	transfer, err := ds.GetFareTransfer(context.Background(), "trf_1")
	assert.NoError(t, err)
	assert.Equal(t, "trf_1", transfer.TransferID)
	assert.Equal(t, model.StatusApplied, transfer.Status)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestGetFareTransfer_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT .* FROM fare_transfers WHERE transfer_id =").
		WithArgs("trf_missing").
		WillReturnRows(sqlmock.NewRows([]string{"transfer_id", "event_id", "rider_id", "operator_id", "amount", "status", "created_at"}))

	transfer, err := ds.GetFareTransfer(context.Background(), "trf_missing")
	assert.Error(t, err)
	assert.Nil(t, transfer)
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}
