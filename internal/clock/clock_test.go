package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManual_Advance(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	c := NewManual(start)
	require.Equal(t, start, c.Now())

	next := c.Advance(90 * time.Second)
	require.Equal(t, start.Add(90*time.Second), next)
	require.Equal(t, next, c.Now())

	c.Set(start)
	require.Equal(t, start, c.Now())
}

func TestSystem_Now(t *testing.T) {
	before := time.Now()
	got := System{}.Now()
	require.False(t, got.Before(before))
}
