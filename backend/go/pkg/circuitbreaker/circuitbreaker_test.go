package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestTripsAfterConsecutiveFailures(t *testing.T) {
	cb := New(2, 1, time.Minute)

	for i := 0; i < 2; i++ {
		_, err := cb.Execute(func() (interface{}, error) { return nil, errBoom })
		assert.ErrorIs(t, err, errBoom)
	}
	assert.Equal(t, Open, cb.State())

	_, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestHalfOpenRecovers(t *testing.T) {
	cb := New(1, 1, 10*time.Millisecond)
	_, _ = cb.Execute(func() (interface{}, error) { return nil, errBoom })
	require.Equal(t, Open, cb.State())

	time.Sleep(20 * time.Millisecond)
	res, err := cb.Execute(func() (interface{}, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, Closed, cb.State())
}

func TestAllowRecordsDeferredOutcome(t *testing.T) {
	cb := New(1, 1, time.Minute)

	done, err := cb.Allow()
	require.NoError(t, err)
	assert.Equal(t, Closed, cb.State())

	done(errBoom)
	done(nil) // 只有第一次调用生效
	assert.Equal(t, Open, cb.State())

	_, err = cb.Allow()
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestWithIsSuccessful(t *testing.T) {
	cb := New(1, 1, time.Minute, WithIsSuccessful(func(err error) bool {
		return err == nil || errors.Is(err, context.Canceled)
	}))

	done, err := cb.Allow()
	require.NoError(t, err)
	done(context.Canceled)
	assert.Equal(t, Closed, cb.State())
}
