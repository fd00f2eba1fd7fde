package util

import (
	"context"
	"time"
)

// Retry runs fn up to attempts times, sleeping delay*2^n between tries.
// The last error is returned when all attempts fail.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay << i):
		}
	}
	return err
}
