package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	gax "github.com/googleapis/gax-go/v2"
	"google.golang.org/api/googleapi"
)

// ErrAuthExpired is returned when the API rejects the credential (HTTP 401).
var ErrAuthExpired = errors.New("authentication expired, run `mailbucket auth` again")

// RetryPolicy retries rate-limited (429) and server-side (5xx) failures with
// exponential backoff. A zero MaxAttempts means a single attempt.
type RetryPolicy struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
	Logger      *log.Logger

	// sleep is replaced in tests.
	sleep func(context.Context, time.Duration) error
}

// DefaultRetryPolicy makes five attempts in total. Delays are jittered, so
// each wait is a random duration of up to 1s, 2s, 4s and so on, capped at 16s.
func DefaultRetryPolicy(logger *log.Logger) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		Initial:     time.Second,
		Max:         16 * time.Second,
		Logger:      logger,
	}
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// attempts are used up. A 401 is mapped to ErrAuthExpired.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	bo := gax.Backoff{Initial: p.Initial, Max: p.Max, Multiplier: 2}
	sleep := p.sleep
	if sleep == nil {
		sleep = gax.Sleep
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if isStatus(err, http.StatusUnauthorized) {
			return fmt.Errorf("%w: %v", ErrAuthExpired, err)
		}
		if !retryable(err) || attempt == attempts {
			return err
		}
		delay := bo.Pause()
		if p.Logger != nil {
			p.Logger.Warn("gmail request failed, retrying", "attempt", attempt, "of", attempts, "delay", delay, "error", err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return serr
		}
	}
	return err
}

func retryable(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
}

func isStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
