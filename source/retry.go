// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package source

import (
	"context"
	"log/slog"
	"time"
)

// RetryWithBackoff retries an operation with exponential backoff.
// maxAttempts: maximum number of attempts (must be > 0)
// baseDelay: base delay between retries (doubles on each retry)
// Returns the error from the last attempt if all attempts fail.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("fetch succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		slog.Debug("fetch failed", "attempt", attempt, "maxAttempts", maxAttempts, "err", lastErr)

		// Don't sleep after the last attempt
		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}

	return lastErr
}

type retrying struct {
	src         Source
	maxAttempts int
	baseDelay   time.Duration
}

// WithRetry wraps src so failed fetches are retried with exponential backoff.
func WithRetry(src Source, maxAttempts int, baseDelay time.Duration) Source {
	return &retrying{src: src, maxAttempts: maxAttempts, baseDelay: baseDelay}
}

func (r *retrying) Fetch(ctx context.Context) ([][]string, error) {
	var rows [][]string
	err := RetryWithBackoff(ctx, func() error {
		var fetchErr error
		rows, fetchErr = r.src.Fetch(ctx)
		return fetchErr
	}, r.maxAttempts, r.baseDelay)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
