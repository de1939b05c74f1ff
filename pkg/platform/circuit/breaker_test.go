package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerNew(t *testing.T) {
	b := New("contacts")
	assert.Equal(t, "contacts", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

// Each step is 'F' (failure) or 'S' (success); open lists the expected
// IsOpen after every step.
func TestBreakerTransitions(t *testing.T) {
	tests := []struct {
		name   string
		opts   []Option
		steps  string
		open   []bool
		opened int
		closed int
	}{
		{
			name:   "opens at the failure threshold",
			opts:   []Option{WithFailureThreshold(3)},
			steps:  "FFFF",
			open:   []bool{false, false, true, true},
			opened: 1,
		},
		{
			name:   "success resets the failure count",
			opts:   []Option{WithFailureThreshold(3)},
			steps:  "FFSFFF",
			open:   []bool{false, false, false, false, false, true},
			opened: 1,
		},
		{
			name:   "closes after consecutive successes",
			opts:   []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			steps:  "FSS",
			open:   []bool{true, true, false},
			opened: 1,
			closed: 1,
		},
		{
			name:   "failure while open resets the success count",
			opts:   []Option{WithFailureThreshold(1), WithSuccessThreshold(3)},
			steps:  "FSSFSSS",
			open:   []bool{true, true, true, true, true, true, false},
			opened: 1,
			closed: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("test", tt.opts...)
			var opened, closed int
			for i, step := range tt.steps {
				var change StateChange
				if step == 'F' {
					_, change = b.RecordFailure()
				} else {
					_, change = b.RecordSuccess()
				}
				if change.Opened {
					opened++
				}
				if change.Closed {
					closed++
				}
				assert.Equal(t, tt.open[i], b.IsOpen(), "after step %d (%c)", i, step)
			}
			assert.Equal(t, tt.opened, opened)
			assert.Equal(t, tt.closed, closed)
		})
	}
}

func TestBreakerFallbackWhileOpen(t *testing.T) {
	b := New("test", WithFailureThreshold(1))
	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)

	useFallback, change = b.RecordFailure()
	assert.True(t, useFallback)
	assert.False(t, change.Opened, "already open")

	usePrimary, _ := b.RecordSuccess()
	assert.False(t, usePrimary)
}

func TestBreakerReset(t *testing.T) {
	b := New("test", WithFailureThreshold(1))
	b.RecordFailure()
	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreakerAllowProbesAfterCooldown(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := New("contacts",
		WithFailureThreshold(1),
		WithCooldown(time.Second),
		WithClock(func() time.Time { return now }),
	)
	b.RecordFailure()
	assert.False(t, b.Allow())

	now = now.Add(999 * time.Millisecond)
	assert.False(t, b.Allow())

	now = now.Add(time.Millisecond)
	assert.True(t, b.Allow())
}
