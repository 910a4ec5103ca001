package display

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func barLength(row string) int {
	return strings.Count(row, "█")
}

func TestRenderHistogramSingleFullBar(t *testing.T) {
	buckets := []Bucket{
		{Lo: 0, Hi: 1, Count: 0},
		{Lo: 1, Hi: 2, Count: 0},
		{Lo: 2, Hi: 3, Count: 5},
		{Lo: 3, Hi: 4, Count: 0},
	}
	rows := RenderHistogram(buckets, 20)
	require.Len(t, rows, 4)
	assert.Equal(t, 0, barLength(rows[0]))
	assert.Equal(t, 0, barLength(rows[1]))
	assert.Equal(t, 20, barLength(rows[2]))
	assert.Equal(t, 0, barLength(rows[3]))
}

func TestRenderHistogramProportionalBars(t *testing.T) {
	buckets := []Bucket{
		{Lo: 0, Hi: 1, Count: 10},
		{Lo: 1, Hi: 2, Count: 5},
		{Lo: 2, Hi: 3, Count: 1},
	}
	rows := RenderHistogram(buckets, 20)
	assert.Equal(t, 20, barLength(rows[0]))
	assert.Equal(t, 10, barLength(rows[1]))
	assert.Equal(t, 2, barLength(rows[2]))
}

func TestRenderHistogramAllZeroCounts(t *testing.T) {
	rows := RenderHistogram([]Bucket{{Lo: 0, Hi: 1}, {Lo: 1, Hi: 2}}, 20)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, 0, barLength(row))
	}
}

func TestMakeBucketsPartitionsRange(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	buckets := MakeBuckets(values, 4)
	require.Len(t, buckets, 4)

	var total int64
	for i, b := range buckets {
		total += b.Count
		require.Less(t, b.Lo, b.Hi)
		if i > 0 {
			assert.InDelta(t, buckets[i-1].Hi, b.Lo, 1e-12, "buckets must be contiguous")
		}
	}
	assert.Equal(t, int64(len(values)), total, "every value lands in exactly one bucket")
	assert.Equal(t, 1.0, buckets[0].Lo)
	assert.Equal(t, 8.0, buckets[3].Hi)
}

func TestMakeBucketsSingleDistinctValue(t *testing.T) {
	buckets := MakeBuckets([]float64{0.5, 0.5, 0.5}, 8)
	require.Len(t, buckets, 1)
	assert.Equal(t, int64(3), buckets[0].Count)

	rows := RenderHistogram(buckets, 20)
	require.Len(t, rows, 1)
	assert.Equal(t, 20, barLength(rows[0]), "degenerate histogram renders one full bar")
}

func TestMakeBucketsEmpty(t *testing.T) {
	assert.Nil(t, MakeBuckets(nil, 8))
	assert.Nil(t, MakeBuckets([]float64{1}, 0))
	assert.Nil(t, RenderHistogram(nil, 20))
}
