package skills

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/skillskit/skills-server/internal/cloud"
)

const (
	DefaultPollInterval    = 1 * time.Second
	DefaultPollMaxAttempts = 30
	DefaultPollTimeout     = 60 * time.Second
)

var (
	errRepresentationPending = errors.New("representation is still being generated")
	errRepresentationFailed  = errors.New("representation had error status")
)

// PollPolicy bounds polling of a representation that is still being generated.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
	Timeout     time.Duration
}

// DefaultPollPolicy polls once per second, at most 30 times within a minute.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		Interval:    DefaultPollInterval,
		MaxAttempts: DefaultPollMaxAttempts,
		Timeout:     DefaultPollTimeout,
	}
}

func (p PollPolicy) withDefaults() PollPolicy {
	d := DefaultPollPolicy()
	if p.Interval <= 0 {
		p.Interval = d.Interval
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.Timeout <= 0 {
		p.Timeout = d.Timeout
	}
	return p
}

// pollRepresentation polls infoURL until the representation is ready. An
// error state stops immediately. Exhausting the policy yields a
// CodeFileProcessing error; cancellation of ctx yields ctx.Err().
func (r *FilesReader) pollRepresentation(ctx context.Context, infoURL string) (*cloud.Representation, error) {
	policy := r.poll.withDefaults()

	pollCtx, cancel := context.WithTimeout(ctx, policy.Timeout)
	defer cancel()

	var ready *cloud.Representation
	attempt := 0
	operation := func() error {
		attempt++
		info, err := r.client.Files().RepresentationInfo(pollCtx, infoURL)
		if err != nil {
			var apiErr *cloud.APIError
			if errors.As(err, &apiErr) && !apiErr.IsRetryable() {
				return backoff.Permanent(err)
			}
			return err
		}

		switch info.Status.State {
		case cloud.RepStateSuccess, cloud.RepStateViewable:
			ready = info
			return nil
		case cloud.RepStateError:
			return backoff.Permanent(errRepresentationFailed)
		case cloud.RepStateNone, cloud.RepStatePending:
			return errRepresentationPending
		default:
			return backoff.Permanent(fmt.Errorf("unknown representation status %q", info.Status.State))
		}
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(policy.Interval), uint64(policy.MaxAttempts-1)),
		pollCtx,
	)
	notify := func(err error, next time.Duration) {
		r.logger.Debug("representation not ready", "attempt", attempt, "next", next, "reason", err)
	}

	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Error("representation polling failed", "attempts", attempt, "error", err)
		return nil, NewError(CodeFileProcessing, fmt.Errorf("poll representation: %w", err))
	}
	return ready, nil
}
