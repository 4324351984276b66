package gate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FirasLatrech/Whispr/internal/domain"
)

func TestAcquireUpToCap(t *testing.T) {
	g := New()

	for i := 0; i < domain.MaxConnectionsPerIP; i++ {
		require.True(t, g.Acquire("10.0.0.1"))
	}
	require.False(t, g.Acquire("10.0.0.1"))
	require.Equal(t, domain.MaxConnectionsPerIP, g.Count("10.0.0.1"))
}

func TestAddressesAreIndependent(t *testing.T) {
	g := New()

	for i := 0; i < domain.MaxConnectionsPerIP; i++ {
		require.True(t, g.Acquire("10.0.0.1"))
	}
	require.True(t, g.Acquire("10.0.0.2"))
}

func TestReleaseFreesSlot(t *testing.T) {
	g := New()

	for i := 0; i < domain.MaxConnectionsPerIP; i++ {
		g.Acquire("10.0.0.1")
	}
	require.False(t, g.Acquire("10.0.0.1"))

	g.Release("10.0.0.1")
	require.True(t, g.Acquire("10.0.0.1"))
}

func TestCountRemovedAtZeroAndNeverNegative(t *testing.T) {
	g := New()

	g.Acquire("10.0.0.1")
	g.Release("10.0.0.1")
	require.Equal(t, 0, g.Count("10.0.0.1"))

	// Extra releases must not push the count negative.
	g.Release("10.0.0.1")
	g.Release("10.0.0.1")
	require.Equal(t, 0, g.Count("10.0.0.1"))

	require.True(t, g.Acquire("10.0.0.1"))
	require.Equal(t, 1, g.Count("10.0.0.1"))
}
