package zflate

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShannonEntropyBits(t *testing.T) {
	require.Zero(t, ShannonEntropyBits(nil))
	require.Zero(t, ShannonEntropyBits(make([]byte, 100)))
	require.Equal(t, 100, ShannonEntropyBits([]byte(strings.Repeat("ab", 50))))

	all := make([]byte, 256*4)
	for i := range all {
		all[i] = byte(i)
	}
	require.Equal(t, len(all)*8, ShannonEntropyBits(all))
}

func TestClassify(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	random := make([]byte, 32<<10)
	rng.Read(random)

	// Random bytes over a small alphabet: skewed, but without repeats.
	skewed := make([]byte, 32<<10)
	for i := range skewed {
		skewed[i] = "abcdefghijklmnop"[rng.Intn(16)]
	}

	require.Equal(t, Compressible, Classify([]byte("tiny")))
	require.Equal(t, Incompressible, Classify(random))
	require.Equal(t, EntropyOnly, Classify(skewed))
	require.Equal(t, Compressible, Classify([]byte(strings.Repeat("repeat me ", 3000))))
	require.Equal(t, Compressible, Classify(make([]byte, 100)))
	require.Zero(t, repeatRatio(random))
	require.Equal(t, "entropy-only", EntropyOnly.String())
	require.Equal(t, "unknown", Class(9).String())
}
