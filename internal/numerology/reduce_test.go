package numerology

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReduceStaysInDomain(t *testing.T) {
	allowed := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true, 8: true, 9: true, 11: true, 22: true, 33: true}
	for n := 1; n <= 20000; n++ {
		got := Reduce(n)
		require.Truef(t, allowed[got], "Reduce(%d) = %d", n, got)
		require.Equalf(t, got, Reduce(got), "Reduce not idempotent for %d", n)
	}
}

func TestReduceKeepsMasterNumbers(t *testing.T) {
	require.Equal(t, 11, Reduce(11))
	require.Equal(t, 22, Reduce(22))
	require.Equal(t, 33, Reduce(33))
	require.Equal(t, 11, Reduce(29))
	require.Equal(t, 11, Reduce(38))
	require.Equal(t, 22, Reduce(1678))
	require.Equal(t, 1, Reduce(1990))
	require.Equal(t, 3, Reduce(30))
	require.Equal(t, 0, Reduce(0))
}

func TestForceReduceIgnoresMasterNumbers(t *testing.T) {
	require.Equal(t, 2, ForceReduce(11))
	require.Equal(t, 4, ForceReduce(22))
	require.Equal(t, 6, ForceReduce(33))
	require.Equal(t, 2, ForceReduce(38))

	for n := 0; n <= 20000; n++ {
		got := ForceReduce(n)
		require.GreaterOrEqual(t, got, 0)
		require.LessOrEqual(t, got, 9)
		if n <= 9 {
			require.Equal(t, n, got)
		}
	}
}

func TestIsMaster(t *testing.T) {
	require.True(t, IsMaster(11))
	require.True(t, IsMaster(22))
	require.True(t, IsMaster(33))
	require.False(t, IsMaster(44))
	require.False(t, IsMaster(9))
}
