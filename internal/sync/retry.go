package sync

import (
	"context"
	"time"

	"github.com/aisocialapp/appcore/internal/apperr"
	"github.com/aisocialapp/appcore/internal/platform"
)

const (
	retryAttempts  = 3
	retryBaseDelay = 250 * time.Millisecond
)

// retryTransport runs op, retrying transport failures with doubling
// delays. Deterministic failures return immediately. Only idempotent
// operations may pass through here; non-idempotent inserts must carry an
// idempotency key instead.
func retryTransport(ctx context.Context, op func() error) error {
	delay := retryBaseDelay
	var err error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return apperr.Wrap(apperr.KindTransport, "retry canceled", ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}
		if err = op(); err == nil {
			return nil
		}
		if !apperr.IsRetryable(err) {
			return err
		}
	}
	return err
}

// selectRetry is Select with the transport retry policy applied.
func (s *Syncer) selectRetry(ctx context.Context, q platform.Query) ([]platform.Record, error) {
	var records []platform.Record
	err := retryTransport(ctx, func() error {
		var opErr error
		records, opErr = s.gw.Select(ctx, q)
		return opErr
	})
	return records, err
}
