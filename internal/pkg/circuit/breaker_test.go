package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestBreaker(threshold int, cooldown time.Duration) (*Breaker, *fakeClock) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := New("test", threshold, cooldown)
	b.now = clk.now
	return b, clk
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)
	for i := 0; i < 2; i++ {
		assert.True(t, b.Allow())
		b.RecordFailure()
	}
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b, _ := newTestBreaker(2, time.Minute)
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenSingleProbe(t *testing.T) {
	b, clk := newTestBreaker(1, time.Minute)
	var transitions []string
	b.OnTransition(func(_ string, from, to State) {
		transitions = append(transitions, from.String()+">"+to.String())
	})

	b.RecordFailure()
	assert.False(t, b.Allow())

	clk.t = clk.t.Add(time.Minute)
	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
	assert.False(t, b.Allow(), "second caller must wait for the probe")

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())

	clk.t = clk.t.Add(time.Minute)
	assert.True(t, b.Allow())
	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())

	assert.Equal(t, []string{
		"CLOSED>OPEN", "OPEN>HALF-OPEN", "HALF-OPEN>OPEN", "OPEN>HALF-OPEN", "HALF-OPEN>CLOSED",
	}, transitions)
}

func TestDisabledAndNilBreakerAlwaysAllow(t *testing.T) {
	var nilBreaker *Breaker
	assert.True(t, nilBreaker.Allow())
	nilBreaker.RecordFailure()
	assert.Equal(t, StateClosed, nilBreaker.State())

	off := New("off", 0, time.Minute)
	for i := 0; i < 5; i++ {
		off.RecordFailure()
	}
	assert.True(t, off.Allow())
}
