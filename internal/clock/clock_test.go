package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFake_AdvanceFiresDueTimersInOrder(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFake(start)

	var fired []string
	c.AfterFunc(2*time.Second, func() { fired = append(fired, "two") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "one") })
	c.AfterFunc(5*time.Second, func() { fired = append(fired, "five") })
	assert.Equal(t, 3, c.Pending())

	c.Advance(999 * time.Millisecond)
	assert.Empty(t, fired)

	c.Advance(2 * time.Second)
	assert.Equal(t, []string{"one", "two"}, fired)
	assert.Equal(t, 1, c.Pending())
	assert.Equal(t, start.Add(2999*time.Millisecond), c.Now())
}

func TestFake_Stop(t *testing.T) {
	c := NewFake(time.Now())

	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })
	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	c.Advance(time.Minute)
	assert.False(t, fired)
	assert.Equal(t, 0, c.Pending())
}

func TestFake_CallbackMayScheduleTimer(t *testing.T) {
	c := NewFake(time.Now())

	count := 0
	c.AfterFunc(time.Second, func() {
		count++
		c.AfterFunc(time.Second, func() { count++ })
	})

	c.Advance(time.Second)
	assert.Equal(t, 1, count)
	c.Advance(time.Second)
	assert.Equal(t, 2, count)
}

func TestReal(t *testing.T) {
	c := New()
	before := time.Now()
	assert.False(t, c.Now().Before(before))

	done := make(chan struct{})
	c.AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
}
