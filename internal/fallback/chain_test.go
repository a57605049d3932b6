package fallback

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func models(names ...string) []Candidate[string] {
	out := make([]Candidate[string], len(names))
	for i, n := range names {
		out[i] = Candidate[string]{Name: n, Value: n}
	}
	return out
}

func TestDo_FirstSuccessWinsAndIsRemembered(t *testing.T) {
	chain := New(models("flash", "pro", "legacy"))

	var calls []string
	call := func(_ context.Context, m string) (string, error) {
		calls = append(calls, m)
		if m == "flash" {
			return "", errors.New("404 model not found")
		}
		return "ok from " + m, nil
	}

	got, err := Do(context.Background(), chain, call)
	require.NoError(t, err)
	assert.Equal(t, "ok from pro", got)
	assert.Equal(t, []string{"flash", "pro"}, calls)
	assert.Equal(t, "pro", chain.Preferred())

	calls = nil
	_, err = Do(context.Background(), chain, call)
	require.NoError(t, err)
	assert.Equal(t, []string{"pro"}, calls)
}

func TestDo_AllFail(t *testing.T) {
	var failed []string
	chain := New(models("a", "b"), WithFailureHook[string](func(name string, _ error) {
		failed = append(failed, name)
	}))
	boom := errors.New("boom")

	_, err := Do(context.Background(), chain, func(context.Context, string) (int, error) {
		return 0, boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "a: boom")
	assert.Contains(t, err.Error(), "b: boom")
	assert.Equal(t, []string{"a", "b"}, failed)
	assert.Equal(t, "a", chain.Preferred())
}

func TestDo_NoCandidates(t *testing.T) {
	_, err := Do(context.Background(), New[string](nil), func(context.Context, string) (int, error) {
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := Do(ctx, New(models("a")), func(context.Context, string) (int, error) {
		called = true
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
