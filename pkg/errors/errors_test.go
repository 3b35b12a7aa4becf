package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestError(t *testing.T) {
	e1 := New("cause1")
	e2 := New("cause2").Wrap(e1)
	e := New("dummy").Wrap(e2)
	e3 := e.Unwrap()
	assert.True(t, Is(e, e1))
	assert.True(t, Is(e, e2))
	assert.True(t, e3 == e2)
}

func TestWrapKeepsSentinel(t *testing.T) {
	sentinel := New("not found")
	other := New("forbidden")

	first := sentinel.Wrap(fmt.Errorf("key a"))
	second := sentinel.Wrap(fmt.Errorf("key b"))

	assert.True(t, Is(first, sentinel))
	assert.True(t, Is(second, sentinel))
	assert.False(t, Is(first, other))
	assert.Nil(t, sentinel.Unwrap(), "wrapping must not mutate the shared sentinel")

	rewrapped := other.Wrap(first)
	assert.True(t, Is(rewrapped, other))
	assert.True(t, Is(rewrapped, sentinel))

	assert.Equal(t, "not found: key a", first.Error())
	assert.Equal(t, "not found: unknown feed x", sentinel.WrapMessage("unknown feed %s", "x").Error())
	assert.True(t, Is(sentinel.WrapMessage("bare"), sentinel))
}

func TestWrapWithLog(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	l := zap.New(core)

	sentinel := New("storage error")
	err := sentinel.WrapWithLog(l, fmt.Errorf("bucket unavailable"), zap.String("key", "feeds/abc"))

	require.True(t, Is(err, sentinel))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "storage error", entry.Message)
	assert.Equal(t, "feeds/abc", entry.ContextMap()["key"])
}
