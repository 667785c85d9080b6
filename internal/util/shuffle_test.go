package util

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShuffleOptions(t *testing.T) {
	options := []string{"alpha", "beta", "gamma", "delta"}

	for i := 0; i < 50; i++ {
		for correct := range options {
			shuffled, newCorrect := ShuffleOptions(options, correct)

			require.Len(t, shuffled, len(options))
			require.GreaterOrEqual(t, newCorrect, 0)
			require.Less(t, newCorrect, len(shuffled))

			// 正确下标跟着正确文本走
			assert.Equal(t, options[correct], shuffled[newCorrect])

			// 置换不丢不重
			seen := append([]string(nil), shuffled...)
			sort.Strings(seen)
			assert.Equal(t, []string{"alpha", "beta", "delta", "gamma"}, seen)
		}
	}

	// 原切片不被改写
	assert.Equal(t, []string{"alpha", "beta", "gamma", "delta"}, options)
}

func TestShuffleIndexes(t *testing.T) {
	for n := 0; n <= 20; n++ {
		perm := ShuffleIndexes(n)
		require.Len(t, perm, n)

		seen := make(map[int]bool, n)
		for _, idx := range perm {
			require.GreaterOrEqual(t, idx, 0)
			require.Less(t, idx, n)
			require.False(t, seen[idx])
			seen[idx] = true
		}
	}
}
