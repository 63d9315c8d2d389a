package engine

import "time"

const (
	retryBase = 2 * time.Second
	retryMax  = 5 * time.Minute
)

// RetryDelay is the default wait after the given number of failed replays:
// 2s doubling per failure, capped at 5m.
func RetryDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := retryBase
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= retryMax {
			return retryMax
		}
	}
	return delay
}
