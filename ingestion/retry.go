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


package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// writePolicy retries repository writes with exponential backoff.
// Conflicting badger transactions from concurrent ingestions succeed on a later attempt.
type writePolicy struct {
	attempts int
	delay    time.Duration
	logger   *slog.Logger
}

func newWritePolicy(config *Config, logger *slog.Logger) writePolicy {
	return writePolicy{attempts: config.MaxRetries, delay: config.RetryDelay, logger: logger}
}

// backoff is the pause after the given failed attempt: delay * 2^(attempt-1).
func (w writePolicy) backoff(attempt int) time.Duration {
	return w.delay << (attempt - 1)
}

// run calls write until it succeeds, the attempts are used up, or ctx ends.
// The final error names what was being written.
func (w writePolicy) run(ctx context.Context, what string, write func(ctx context.Context) error) error {
	if w.attempts < 1 {
		return ErrInvalidMaxAttempts
	}

	var err error
	for attempt := 1; attempt <= w.attempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err = write(ctx); err == nil {
			if attempt > 1 {
				w.logger.Debug("write succeeded after retry", "what", what, "attempt", attempt)
			}
			return nil
		}
		if attempt == w.attempts {
			break
		}
		w.logger.Debug("write failed, retrying", "what", what, "attempt", attempt, "err", err)

		timer := time.NewTimer(w.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("failed to write %s after %d attempts: %w", what, w.attempts, err)
}
