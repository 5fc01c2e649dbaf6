package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunks(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 4}, {4, 8}, {8, 10}}, Chunks(10, 3))
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}}, Chunks(2, 8))
	assert.Equal(t, [][2]int{{0, 5}}, Chunks(5, 0))
	assert.Nil(t, Chunks(0, 4))
}

func TestParallelizeCoversEveryIndexOnce(t *testing.T) {
	const n = 1000
	var hits [n]int32
	Parallelize(n, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
	})
	for i := range hits {
		assert.Equal(t, int32(1), hits[i], "index %d", i)
	}
}

func TestParallelizeWithThresholdRunsInline(t *testing.T) {
	calls := 0
	ParallelizeWithThreshold(10, 100, func(start, end int) {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
	})
	assert.Equal(t, 1, calls)

	ParallelizeWithThreshold(0, 100, func(int, int) { calls++ })
	assert.Equal(t, 1, calls)
}
