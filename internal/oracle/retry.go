package oracle

import (
	"context"
	"time"
)

// withRetry invokes fn up to MaxRetries+1 times with exponential backoff
// (200ms, 400ms, 800ms) between attempts, stopping early on ctx
// cancellation. No retry/backoff library appears anywhere in the retrieval
// pack, so this stays a small hand-rolled loop rather than importing one.
func withRetry(ctx context.Context, fn func() error) error {
	backoff := 200 * time.Millisecond
	var err error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
