package faregate

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/faregate/faregate/config"
	"github.com/faregate/faregate/internal/apierror"
	"github.com/faregate/faregate/internal/lock"
	"github.com/faregate/faregate/internal/notification"
	"github.com/faregate/faregate/model"
)

var tracer = otel.Tracer("faregate.tap")

const (
	riderLockTimeout = time.Minute
	riderLockWait    = 10 * time.Second
)

func logAndRecordError(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	logrus.Error(msg, err)
	return err
}

// acquireRiderLock serializes tap bursts for one rider before they contend
// in the store. The operator account is deliberately not locked: every tap
// touches it, and the versioned commit resolves that contention.
func (f *Faregate) acquireRiderLock(ctx context.Context, event *model.TapEvent) (*lock.Locker, error) {
	locker := lock.NewLocker(f.redis, fmt.Sprintf("tap-lock:%s", event.UID), model.GenerateUUIDWithSuffix("loc"))
	if err := locker.WaitLock(ctx, riderLockTimeout, riderLockWait); err != nil {
		return nil, err
	}
	return locker, nil
}

// ProcessTap executes the atomic fare transfer for one tap event:
// validate the rider's funds, debit the rider, credit the operator and
// append both ledger records, all inside one store transaction. A version
// conflict aborts the unit and the whole validate-apply sequence is retried
// from fresh reads, bounded by the configured attempt budget.
func (f *Faregate) ProcessTap(ctx context.Context, event *model.TapEvent) (*model.FareTransfer, error) {
	ctx, span := tracer.Start(ctx, "Processing tap")
	defer span.End()

	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	if err := event.Normalize(cfg.Fare.DefaultAmount); err != nil {
		return nil, logAndRecordError(span, "invalid tap event: ", err)
	}

	locker, err := f.acquireRiderLock(ctx, event)
	if err != nil {
		return nil, logAndRecordError(span, "rider lock error: ",
			apierror.NewAPIError(apierror.ErrTransient, "could not acquire rider lock", err))
	}
	defer func(locker *lock.Locker, ctx context.Context) {
		if err := locker.Unlock(ctx); err != nil {
			logrus.Error("lock error ", err)
		}
	}(locker, ctx)

	transfer, err := f.applyTapWithRetry(ctx, event, cfg)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logrus.Infof("Processed fare for %s", event.UID)
	f.postTapActions(ctx, transfer)
	return transfer, nil
}

// applyTapWithRetry drives the optimistic retry loop. Only store conflicts
// are retried; every other failure is final for this tap. Exhausting the
// attempt budget surfaces a transient failure so the intake collaborator can
// replay the event if it supports redelivery.
func (f *Faregate) applyTapWithRetry(ctx context.Context, event *model.TapEvent, cfg *config.Configuration) (*model.FareTransfer, error) {
	var transfer *model.FareTransfer

	operation := func() error {
		t, err := f.applyTap(ctx, event, cfg)
		if err != nil {
			if apierror.Is(err, apierror.ErrConflict) {
				return err
			}
			return backoff.Permanent(err)
		}
		transfer = t
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(cfg.Transfer.MaxRetryAttempts)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if apierror.Is(err, apierror.ErrConflict) {
			return nil, apierror.NewAPIError(apierror.ErrTransient,
				fmt.Sprintf("fare transfer for %s aborted after %d attempts", event.UID, cfg.Transfer.MaxRetryAttempts+1), err)
		}
		return nil, err
	}

	return transfer, nil
}

// applyTap runs one Validating -> Applying pass from a fresh read. Balances
// are re-read on every attempt: a conflicted commit means they may have
// changed, and reusing stale reads would let concurrent taps double-spend.
func (f *Faregate) applyTap(ctx context.Context, event *model.TapEvent, cfg *config.Configuration) (*model.FareTransfer, error) {
	rider, err := f.datasource.GetAccountByID(ctx, event.UID)
	if err != nil {
		return nil, err
	}

	operator, err := f.datasource.GetAccountByID(ctx, cfg.Fare.OperatorAccount)
	if err != nil {
		if apierror.Is(err, apierror.ErrNotFound) {
			// The operator account is seeded by migrations; its absence is a
			// deployment fault, not a rider error.
			return nil, apierror.NewAPIError(apierror.ErrInternalServer,
				fmt.Sprintf("operator account '%s' is missing", cfg.Fare.OperatorAccount), err)
		}
		return nil, err
	}

	if err := rider.CanDebit(event.FareAmount); err != nil {
		return nil, err
	}

	transfer := &model.FareTransfer{
		TransferID: model.GenerateUUIDWithSuffix("trf"),
		EventID:    event.EventID,
		RiderID:    rider.AccountID,
		OperatorID: operator.AccountID,
		Amount:     event.FareAmount,
	}
	payment := model.NewFarePayment(transfer.TransferID, rider.AccountID, operator.AccountID, event.FareAmount)
	credit := model.NewFareCredit(transfer.TransferID, rider.AccountID, operator.AccountID, event.FareAmount)

	if err := f.datasource.CommitFareTransfer(ctx, transfer, rider, operator, payment, credit); err != nil {
		return nil, err
	}

	return transfer, nil
}

// postTapActions emits the applied webhook off the request path.
func (f *Faregate) postTapActions(_ context.Context, transfer *model.FareTransfer) {
	go func() {
		err := SendWebhook(NewWebhook{
			Event:   getEventFromStatus(transfer.Status),
			Payload: transfer,
		})
		if err != nil {
			notification.NotifyError(err)
		}
	}()
}

// RejectTap reports a non-retryable tap failure: the distinct per-kind log
// line and the rejection webhook. No balances were touched by the aborted
// unit, so there is nothing to roll back.
func (f *Faregate) RejectTap(_ context.Context, event *model.TapEvent, cause error) error {
	logrus.WithField("error_kind", string(apierror.CodeOf(cause))).
		Errorf("Transaction failure for %s: %v", event.UID, cause)

	return SendWebhook(NewWebhook{
		Event: getEventFromStatus(model.StatusRejected),
		Payload: map[string]interface{}{
			"event_id": event.EventID,
			"uid":      event.UID,
			"amount":   event.FareAmount,
			"reason":   cause.Error(),
		},
	})
}

// QueueTap normalizes the event and hands it to the tap queue for
// asynchronous processing. The queue deduplicates on the event id, so a
// redelivered event does not enqueue a second charge.
func (f *Faregate) QueueTap(ctx context.Context, event *model.TapEvent) (*model.TapEvent, error) {
	ctx, span := tracer.Start(ctx, "Queuing tap")
	defer span.End()

	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	if err := event.Normalize(cfg.Fare.DefaultAmount); err != nil {
		return nil, logAndRecordError(span, "invalid tap event: ", err)
	}

	if err := f.queue.Enqueue(ctx, event); err != nil {
		notification.NotifyError(err)
		logrus.Errorf("Error queuing tap: %v", err)
		return nil, err
	}

	return event, nil
}
