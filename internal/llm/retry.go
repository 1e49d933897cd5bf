package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// defaultQuotaDelay is used when a quota rejection carries no
	// retry hint.
	defaultQuotaDelay = 25 * time.Second
	// defaultMaxAttempts bounds quota retries per payload so a service
	// that never recovers cannot livelock the run.
	defaultMaxAttempts = 8
)

// outcome classifies a single model call attempt.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeRetryable
	outcomeFatal
)

// attempt is the classified result of one model call: the response on
// success, a backoff delay when the quota was exceeded, or the error
// for anything else.
type attempt struct {
	kind  outcome
	text  string
	delay time.Duration
	err   error
}

// Invoker wraps a Client with request pacing and quota-backoff retries.
// Quota rejections retry the same payload after a delay; any other
// failure abandons the payload immediately.
type Invoker struct {
	client      Client
	pacer       *Pacer
	maxAttempts int

	// sleep and logf are injectable for deterministic tests.
	sleep func(time.Duration)
	logf  func(format string, args ...any)
}

// NewInvoker creates an Invoker sharing the given pacer across all
// invocations.
func NewInvoker(client Client, pacer *Pacer) *Invoker {
	return &Invoker{
		client:      client,
		pacer:       pacer,
		maxAttempts: defaultMaxAttempts,
		sleep:       time.Sleep,
		logf: func(format string, args ...any) {
			fmt.Printf(format+"\n", args...)
		},
	}
}

// Invoke runs one payload through the model. The same payload is
// retried on quota rejections until it succeeds or the attempt budget
// runs out; non-quota failures are returned immediately.
func (inv *Invoker) Invoke(ctx context.Context, data []byte) (string, error) {
	for n := 1; ; n++ {
		inv.pacer.Wait()

		a := inv.attemptOnce(ctx, data)
		switch a.kind {
		case outcomeSuccess:
			return a.text, nil
		case outcomeFatal:
			return "", a.err
		case outcomeRetryable:
			if n >= inv.maxAttempts {
				return "", fmt.Errorf("quota retries exhausted after %d attempts: %w", n, a.err)
			}
			inv.logf("Model rate limited, retrying in %s (attempt %d/%d)", a.delay, n, inv.maxAttempts)
			inv.sleep(a.delay)
		}
	}
}

func (inv *Invoker) attemptOnce(ctx context.Context, data []byte) attempt {
	text, err := inv.client.GenerateFromPDF(ctx, data)
	if err == nil {
		return attempt{kind: outcomeSuccess, text: text}
	}
	if delay, ok := classifyQuota(err); ok {
		return attempt{kind: outcomeRetryable, delay: delay, err: err}
	}
	return attempt{kind: outcomeFatal, err: err}
}

var retryHintRe = regexp.MustCompile(`(?i)retry in ([0-9.]+)\s*s`)

// classifyQuota reports whether err is a quota or rate-limit rejection
// and how long to back off before retrying. The delay comes from the
// service's embedded "retry in <seconds>s" hint when present.
func classifyQuota(err error) (time.Duration, bool) {
	msg := err.Error()
	lower := strings.ToLower(msg)

	quota := strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(lower, "429") ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "quota")
	if !quota {
		return 0, false
	}

	if m := retryHintRe.FindStringSubmatch(msg); m != nil {
		if secs, perr := strconv.ParseFloat(m[1], 64); perr == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second)), true
		}
	}
	return defaultQuotaDelay, true
}
