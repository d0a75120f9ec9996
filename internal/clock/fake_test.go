package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFakeFiresInDueOrder(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	var got []string

	c.AfterFunc(3*time.Second, func() { got = append(got, "c") })
	c.AfterFunc(time.Second, func() {
		got = append(got, "a")
		c.AfterFunc(time.Second, func() { got = append(got, "b") })
	})
	stopped := c.AfterFunc(2*time.Second, func() { got = append(got, "never") })
	require.True(t, stopped.Stop())
	require.False(t, stopped.Stop())

	c.Advance(2500 * time.Millisecond)
	require.Equal(t, []string{"a", "b"}, got)
	require.Equal(t, time.Unix(0, 0).Add(2500*time.Millisecond), c.Now())
	require.Equal(t, 1, c.Pending())

	c.Advance(time.Second)
	require.Equal(t, []string{"a", "b", "c"}, got)
	require.Zero(t, c.Pending())
}
