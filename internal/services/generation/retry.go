package generation

import (
	"fmt"
	"log"
	"time"
)

// submitBackoff returns the wait before retrying a failed attempt.
// Delays grow quadratically: 500ms, 2s, 4.5s.
func submitBackoff(attempt int) time.Duration {
	return time.Duration(500*attempt*attempt) * time.Millisecond
}

// retryWithBackoff runs operation up to maxAttempts times, sleeping between
// failures. taskLogger receives per-attempt messages for the task log and
// may be nil.
func retryWithBackoff(taskID string, operation func() error, maxAttempts int, taskLogger func(taskID, msg string)) error {
	note := func(msg string) {
		if taskLogger != nil {
			taskLogger(taskID, msg)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				note(fmt.Sprintf("Operation succeeded on retry %d/%d", attempt, maxAttempts))
			}
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		wait := submitBackoff(attempt)
		note(fmt.Sprintf("Attempt %d/%d failed: %v (retrying in %v)", attempt, maxAttempts, lastErr, wait))
		log.Printf("Task %s: Retry %d/%d after %v: %v", taskID, attempt, maxAttempts, wait, lastErr)
		time.Sleep(wait)
	}

	note(fmt.Sprintf("All %d attempts failed: %v", maxAttempts, lastErr))
	log.Printf("Task %s: All %d attempts failed: %v", taskID, maxAttempts, lastErr)
	return fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}
