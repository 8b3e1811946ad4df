package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy(attempts int, delay time.Duration) writePolicy {
	return newWritePolicy(&Config{MaxRetries: attempts, RetryDelay: delay}, slog.Default())
}

func TestWritePolicy_Success(t *testing.T) {
	calls := 0
	err := testPolicy(3, 10*time.Millisecond).run(context.Background(), "batch", func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "should succeed on first try")
}

func TestWritePolicy_EventualSuccess(t *testing.T) {
	calls := 0
	err := testPolicy(5, time.Millisecond).run(context.Background(), "batch", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transaction conflict")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls, "should succeed on third attempt")
}

func TestWritePolicy_AllAttemptsFail(t *testing.T) {
	calls := 0
	conflict := errors.New("transaction conflict")
	err := testPolicy(3, time.Millisecond).run(context.Background(), "spans 0-9", func(context.Context) error {
		calls++
		return conflict
	})
	assert.ErrorIs(t, err, conflict)
	assert.EqualError(t, err, "failed to write spans 0-9 after 3 attempts: transaction conflict")
	assert.Equal(t, 3, calls, "should attempt exactly maxAttempts times")
}

func TestWritePolicy_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := testPolicy(10, 10*time.Millisecond).run(ctx, "batch", func(context.Context) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return errors.New("transaction conflict")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, calls, 2, "should stop when context is canceled")
}

func TestWritePolicy_Backoff(t *testing.T) {
	p := testPolicy(4, 100*time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, p.backoff(1))
	assert.Equal(t, 200*time.Millisecond, p.backoff(2))
	assert.Equal(t, 400*time.Millisecond, p.backoff(3))
}

func TestWritePolicy_InvalidAttempts(t *testing.T) {
	err := testPolicy(0, time.Millisecond).run(context.Background(), "batch", func(context.Context) error { return nil })
	assert.Equal(t, ErrInvalidMaxAttempts, err)
}
