package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeFiresInDeadlineOrder(t *testing.T) {
	f := NewFake(time.Time{})
	var order []string
	f.AfterFunc(3*time.Second, func() { order = append(order, "c") })
	f.AfterFunc(time.Second, func() { order = append(order, "a") })
	f.AfterFunc(2*time.Second, func() { order = append(order, "b") })

	f.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, 1, f.Pending())

	f.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Zero(t, f.Pending())
}

func TestFakeStoppedTimerNeverFires(t *testing.T) {
	f := NewFake(time.Time{})
	fired := false
	timer := f.AfterFunc(time.Second, func() { fired = true })

	require.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	f.Advance(time.Minute)
	assert.False(t, fired)
}

func TestFakeChainedTimersWithinOneAdvance(t *testing.T) {
	start := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
	f := NewFake(start)
	var at []time.Time
	f.AfterFunc(time.Second, func() {
		at = append(at, f.Now())
		f.AfterFunc(time.Second, func() { at = append(at, f.Now()) })
	})

	f.Advance(5 * time.Second)
	require.Len(t, at, 2)
	assert.Equal(t, start.Add(time.Second), at[0])
	assert.Equal(t, start.Add(2*time.Second), at[1])
	assert.Equal(t, start.Add(5*time.Second), f.Now())
}

func TestFakeAfterDelivers(t *testing.T) {
	f := NewFake(time.Time{})
	ch := f.After(time.Second)

	select {
	case <-ch:
		t.Fatal("fired before advance")
	default:
	}
	f.Advance(time.Second)
	select {
	case <-ch:
	default:
		t.Fatal("expected delivery after advance")
	}
}
