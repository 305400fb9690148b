// internal/browser/context_utils_test.go
package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey string

const tabKey ctxKey = "tab"

func TestCombineContext(t *testing.T) {
	t.Run("values come from the session context", func(t *testing.T) {
		session := context.WithValue(context.Background(), tabKey, "target-1")
		op := context.WithValue(context.Background(), tabKey, "ignored")

		combined, cancel := CombineContext(session, op)
		defer cancel()

		assert.Equal(t, "target-1", combined.Value(tabKey))
		assert.NoError(t, combined.Err())
	})

	t.Run("operation cancel stops the combined context", func(t *testing.T) {
		op, cancelOp := context.WithCancel(context.Background())
		combined, cancel := CombineContext(context.Background(), op)
		defer cancel()

		cancelOp()
		assert.Eventually(t, func() bool { return combined.Err() != nil }, time.Second, 5*time.Millisecond)
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})

	t.Run("session cancel stops the combined context", func(t *testing.T) {
		session, cancelSession := context.WithCancel(context.Background())
		combined, cancel := CombineContext(session, context.Background())
		defer cancel()

		cancelSession()
		<-combined.Done()
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})

	t.Run("operation deadline cancels rather than expires", func(t *testing.T) {
		op, cancelOp := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancelOp()
		combined, cancel := CombineContext(context.Background(), op)
		defer cancel()

		<-combined.Done()
		assert.ErrorIs(t, combined.Err(), context.Canceled)
	})
}

func TestDetach(t *testing.T) {
	parent, cancelParent := context.WithTimeout(context.WithValue(context.Background(), tabKey, "target-1"), time.Minute)
	detached := Detach(parent)
	cancelParent()

	require.ErrorIs(t, parent.Err(), context.Canceled)
	assert.NoError(t, detached.Err())
	assert.Nil(t, detached.Done())
	_, hasDeadline := detached.Deadline()
	assert.False(t, hasDeadline)
	assert.Equal(t, "target-1", detached.Value(tabKey))

	derived, cancel := context.WithTimeout(detached, 10*time.Millisecond)
	defer cancel()
	<-derived.Done()
	assert.ErrorIs(t, derived.Err(), context.DeadlineExceeded)
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, 5*time.Second, remaining(context.Background(), 5*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	d := remaining(ctx, time.Second)
	assert.Greater(t, d, 59*time.Minute)

	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	assert.Equal(t, time.Millisecond, remaining(expired, time.Second))
}
