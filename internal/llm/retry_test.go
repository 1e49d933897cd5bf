package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient returns one scripted result per call, in order.
type scriptedClient struct {
	results []scriptedResult
	calls   [][]byte
}

type scriptedResult struct {
	text string
	err  error
}

func (c *scriptedClient) GenerateFromPDF(_ context.Context, data []byte) (string, error) {
	c.calls = append(c.calls, data)
	if len(c.calls) > len(c.results) {
		return "", errors.New("unscripted call")
	}
	r := c.results[len(c.calls)-1]
	return r.text, r.err
}

func (c *scriptedClient) Close() error { return nil }

func testInvoker(client Client, clock *fakeClock) *Invoker {
	inv := NewInvoker(client, pacerWithClock(60, clock))
	inv.sleep = clock.sleep
	inv.logf = func(string, ...any) {}
	return inv
}

func TestInvoke_Success(t *testing.T) {
	client := &scriptedClient{results: []scriptedResult{{text: "ok"}}}
	inv := testInvoker(client, newFakeClock())

	text, err := inv.Invoke(context.Background(), []byte("pdf"))
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Len(t, client.calls, 1)
}

func TestInvoke_RetriesSamePayloadOnQuota(t *testing.T) {
	quotaErr := errors.New("googleapi: Error 429: RESOURCE_EXHAUSTED")
	client := &scriptedClient{results: []scriptedResult{
		{err: quotaErr},
		{err: quotaErr},
		{text: "third time lucky"},
	}}
	clock := newFakeClock()
	inv := testInvoker(client, clock)

	payload := []byte("the-one-receipt")
	text, err := inv.Invoke(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", text)

	require.Len(t, client.calls, 3, "exactly one success after two quota failures")
	for i, call := range client.calls {
		assert.Equal(t, payload, call, "attempt %d must carry the same payload", i+1)
	}
}

func TestInvoke_DefaultBackoffDelay(t *testing.T) {
	client := &scriptedClient{results: []scriptedResult{
		{err: errors.New("RESOURCE_EXHAUSTED")},
		{text: "ok"},
	}}
	clock := newFakeClock()
	inv := testInvoker(client, clock)

	_, err := inv.Invoke(context.Background(), []byte("pdf"))
	require.NoError(t, err)
	assert.Contains(t, clock.sleeps, 25*time.Second)
}

func TestInvoke_HonorsEmbeddedRetryHint(t *testing.T) {
	client := &scriptedClient{results: []scriptedResult{
		{err: errors.New("RESOURCE_EXHAUSTED: please retry in 7s")},
		{text: "ok"},
	}}
	clock := newFakeClock()
	inv := testInvoker(client, clock)

	_, err := inv.Invoke(context.Background(), []byte("pdf"))
	require.NoError(t, err)
	assert.Contains(t, clock.sleeps, 7*time.Second)
}

func TestInvoke_NonQuotaErrorAbandonsImmediately(t *testing.T) {
	client := &scriptedClient{results: []scriptedResult{
		{err: errors.New("invalid argument: unsupported document")},
	}}
	inv := testInvoker(client, newFakeClock())

	_, err := inv.Invoke(context.Background(), []byte("pdf"))
	require.Error(t, err)
	assert.Len(t, client.calls, 1, "non-quota failures must not retry")
}

func TestInvoke_AttemptBudgetExhausted(t *testing.T) {
	quotaErr := errors.New("RESOURCE_EXHAUSTED")
	var results []scriptedResult
	for i := 0; i < defaultMaxAttempts+1; i++ {
		results = append(results, scriptedResult{err: quotaErr})
	}
	client := &scriptedClient{results: results}
	inv := testInvoker(client, newFakeClock())

	_, err := inv.Invoke(context.Background(), []byte("pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota retries exhausted")
	assert.Len(t, client.calls, defaultMaxAttempts)
}

func TestClassifyQuota(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantQuota bool
		wantDelay time.Duration
	}{
		{"resource exhausted", errors.New("rpc error: RESOURCE_EXHAUSTED"), true, 25 * time.Second},
		{"http 429", errors.New("googleapi: Error 429: too many requests"), true, 25 * time.Second},
		{"rate limit text", errors.New("Rate limit exceeded for model"), true, 25 * time.Second},
		{"quota text", errors.New("Quota exceeded for requests per minute"), true, 25 * time.Second},
		{"embedded hint", errors.New("RESOURCE_EXHAUSTED, retry in 12s"), true, 12 * time.Second},
		{"fractional hint", errors.New("429: Retry in 2.5 s"), true, 2500 * time.Millisecond},
		{"unrelated error", errors.New("connection refused"), false, 0},
		{"invalid argument", errors.New("INVALID_ARGUMENT: bad blob"), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay, quota := classifyQuota(tt.err)
			assert.Equal(t, tt.wantQuota, quota)
			if tt.wantQuota {
				assert.Equal(t, tt.wantDelay, delay)
			}
		})
	}
}
