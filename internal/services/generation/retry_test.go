package generation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubmitBackoff(t *testing.T) {
	t.Run("Should grow quadratically per attempt", func(t *testing.T) {
		assert.Equal(t, 500*time.Millisecond, submitBackoff(1))
		assert.Equal(t, 2*time.Second, submitBackoff(2))
		assert.Equal(t, 4500*time.Millisecond, submitBackoff(3))
	})
}

func TestRetryWithBackoff(t *testing.T) {
	t.Run("Should stop after a first-try success", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff("task-1", func() error {
			calls++
			return nil
		}, 3, nil)

		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("Should recover when a later attempt succeeds", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff("task-1", func() error {
			calls++
			if calls == 1 {
				return errors.New("connection reset")
			}
			return nil
		}, 3, nil)

		assert.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("Should give up after maxAttempts and keep the cause", func(t *testing.T) {
		cause := errors.New("service unavailable")
		calls := 0
		err := retryWithBackoff("task-1", func() error {
			calls++
			return cause
		}, 3, nil)

		assert.Equal(t, 3, calls)
		assert.ErrorIs(t, err, cause)
		assert.EqualError(t, err, "failed after 3 attempts: service unavailable")
	})

	t.Run("Should narrate each attempt to the task log", func(t *testing.T) {
		var messages []string
		logger := func(taskID, msg string) {
			messages = append(messages, msg)
		}

		calls := 0
		err := retryWithBackoff("task-1", func() error {
			calls++
			if calls < 3 {
				return errors.New("connection reset")
			}
			return nil
		}, 3, logger)

		assert.NoError(t, err)
		if assert.Len(t, messages, 3) {
			assert.Contains(t, messages[0], "Attempt 1/3 failed")
			assert.Contains(t, messages[1], "Attempt 2/3 failed")
			assert.Contains(t, messages[2], "Operation succeeded on retry 3/3")
		}
	})

	t.Run("Should record the final failure in the task log", func(t *testing.T) {
		var messages []string
		logger := func(taskID, msg string) {
			messages = append(messages, msg)
		}

		err := retryWithBackoff("task-1", func() error {
			return errors.New("service unavailable")
		}, 3, logger)

		assert.Error(t, err)
		if assert.Len(t, messages, 3) {
			assert.Contains(t, messages[2], "All 3 attempts failed")
		}
	})

	t.Run("Should wait longer between each failed attempt", func(t *testing.T) {
		var stamps []time.Time
		calls := 0
		err := retryWithBackoff("task-1", func() error {
			stamps = append(stamps, time.Now())
			calls++
			if calls < 3 {
				return errors.New("connection reset")
			}
			return nil
		}, 3, nil)

		assert.NoError(t, err)
		if assert.Len(t, stamps, 3) {
			assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 500*time.Millisecond)
			assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 2*time.Second)
		}
	})

	t.Run("Should tolerate a nil task logger", func(t *testing.T) {
		err := retryWithBackoff("task-1", func() error {
			return errors.New("connection reset")
		}, 2, nil)

		assert.Error(t, err)
	})
}
