package model

import (
	"encoding/json"
	"time"

	"github.com/faregate/faregate/internal/apierror"
)

const (
	StatusQueued   = "QUEUED"
	StatusApplied  = "APPLIED"
	StatusRejected = "REJECTED"
)

// TapEvent is a single scan of a rider's credential. It is immutable once
// created and is not persisted by the ledger core; the intake adapter owns
// its delivery. EventID identifies one physical tap for queue-level
// deduplication; FareAmount of zero means "use the configured default fare".
type TapEvent struct {
	EventID    string    `json:"event_id"`
	UID        string    `json:"uid"`
	FareAmount int64     `json:"fare_amount"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Normalize fills the default fare and event id. A negative fare can only be
// produced by a buggy intake adapter, so it is rejected as invalid input
// rather than treated as a refund.
func (e *TapEvent) Normalize(defaultFare int64) error {
	if e.UID == "" {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "tap event is missing rider uid", nil)
	}
	if e.FareAmount < 0 {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "fare amount cannot be negative", e.FareAmount)
	}
	if e.FareAmount == 0 {
		e.FareAmount = defaultFare
	}
	if e.EventID == "" {
		e.EventID = GenerateUUIDWithSuffix("tap")
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now()
	}
	return nil
}

func (e *TapEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FareTransfer is the committed outcome of one tap: the value moved, the two
// accounts involved, and the commit timestamp supplied by the store.
type FareTransfer struct {
	TransferID      string    `json:"transfer_id"`
	EventID         string    `json:"event_id"`
	RiderID         string    `json:"rider_id"`
	OperatorID      string    `json:"operator_id"`
	Amount          int64     `json:"amount"`
	Status          string    `json:"status"`
	RiderBalance    int64     `json:"rider_balance"`
	OperatorBalance int64     `json:"operator_balance"`
	CreatedAt       time.Time `json:"created_at"`
}
