package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aisocialapp/appcore/internal/apperr"
)

func TestRetryTransportRetriesTransientFailures(t *testing.T) {
	attempts := 0
	err := retryTransport(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return apperr.New(apperr.KindTransport, "flaky")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryTransportGivesUpAfterAttempts(t *testing.T) {
	attempts := 0
	err := retryTransport(context.Background(), func() error {
		attempts++
		return apperr.New(apperr.KindTransport, "down")
	})
	require.Error(t, err)
	assert.Equal(t, retryAttempts, attempts)
}

func TestRetryTransportDoesNotRetryDeterministicFailures(t *testing.T) {
	attempts := 0
	err := retryTransport(context.Background(), func() error {
		attempts++
		return apperr.New(apperr.KindValidation, "bad input")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "validation failures are not transient")
}

func TestRetryTransportHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := retryTransport(ctx, func() error {
		attempts++
		cancel()
		return apperr.New(apperr.KindTransport, "flaky")
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}
