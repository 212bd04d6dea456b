// retry.go wraps write operations with automatic retries for transient
// SQLite errors. With WAL mode and competing triggers (scheduled + manual),
// SQLITE_BUSY and SQLITE_LOCKED can surface past the busy_timeout pragma;
// those are resolved by backing off and retrying at the application level.
package storage

import (
	"math/rand"
	"strings"
	"time"
)

type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

var defaultRetryConfig = retryConfig{
	maxRetries: 3,
	baseDelay:  50 * time.Millisecond,
	maxDelay:   500 * time.Millisecond,
}

// isTransientSQLiteErr reports whether retrying can resolve the error.
func isTransientSQLiteErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range []string{
		"SQLITE_BUSY",
		"SQLITE_LOCKED",
		"IOERR_SHORT_READ",
		"database is locked",
		"database table is locked",
		"(5)",   // SQLITE_BUSY code
		"(6)",   // SQLITE_LOCKED code
		"(522)", // SQLITE_IOERR_SHORT_READ code
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// retryOnContention executes fn with exponential backoff + jitter for
// transient errors; non-transient errors return immediately.
func retryOnContention(fn func() error) error {
	cfg := defaultRetryConfig
	var lastErr error
	for attempt := 0; attempt <= cfg.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isTransientSQLiteErr(lastErr) {
			return lastErr
		}
		if attempt < cfg.maxRetries {
			delay := cfg.baseDelay << uint(attempt)
			if delay > cfg.maxDelay {
				delay = cfg.maxDelay
			}
			delay += time.Duration(rand.Int63n(int64(cfg.baseDelay)))
			time.Sleep(delay)
		}
	}
	return lastErr
}
