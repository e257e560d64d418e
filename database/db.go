package database

import (
	"database/sql"
	"log"
	"sync"

	_ "github.com/lib/pq"

	"github.com/faregate/faregate/config"
	"github.com/faregate/faregate/internal/cache"
)

var instance *Datasource
var once sync.Once

// Datasource is the postgres-backed store. It owns account balances and
// ledger records; the engine drives its atomic unit through
// CommitFareTransfer.
type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a process-wide datasource, initialized once at
// startup and injected into the service layer.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con, Cache: nil}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database connection error: %v", err)
		return nil, err
	}
	err = createAccountTable(db)
	if err != nil {
		return nil, err
	}
	err = createLedgerRecordTable(db)
	if err != nil {
		return nil, err
	}
	err = createFareTransferTable(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// createAccountTable creates the accounts table. Balances are BIGINT minor
// units; version is the optimistic concurrency token.
func createAccountTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id SERIAL PRIMARY KEY,
			account_id TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL DEFAULT 'rider',
			balance BIGINT NOT NULL DEFAULT 0,
			version BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			meta_data JSONB
		)
	`)
	if err != nil {
		log.Printf("Error creating accounts table: %v", err)
	}
	return err
}

// createLedgerRecordTable creates the append-only ledger_records table. Rows
// are only ever inserted, inside the engine's transaction; the serial id
// preserves commit order per account.
func createLedgerRecordTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ledger_records (
			id SERIAL PRIMARY KEY,
			record_id TEXT NOT NULL UNIQUE,
			account_id TEXT NOT NULL REFERENCES accounts(account_id),
			record_type TEXT NOT NULL CHECK (record_type IN ('fare_payment', 'fare_credit')),
			amount BIGINT NOT NULL CHECK (amount > 0),
			counterparty_id TEXT NOT NULL,
			transfer_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating ledger_records table: %v", err)
	}
	return err
}

// createFareTransferTable creates the fare_transfers table recording each
// committed tap outcome.
func createFareTransferTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS fare_transfers (
			id SERIAL PRIMARY KEY,
			transfer_id TEXT NOT NULL UNIQUE,
			event_id TEXT NOT NULL,
			rider_id TEXT NOT NULL,
			operator_id TEXT NOT NULL,
			amount BIGINT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating fare_transfers table: %v", err)
	}
	return err
}
