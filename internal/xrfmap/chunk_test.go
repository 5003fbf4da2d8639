package xrfmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimalChunkSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		chunkPixels int
		granY       int
		granX       int
		ny          int
		nx          int
		minChunks   int
		wantY       int
		wantX       int
	}{
		{
			name:        "square map splits into near-square blocks",
			chunkPixels: 5000, granY: 1, granX: 1, ny: 100, nx: 100, minChunks: 4,
			wantY: 50, wantX: 50,
		},
		{
			name:        "block size is a multiple of storage granularity",
			chunkPixels: 3000, granY: 10, granX: 10, ny: 200, nx: 200, minChunks: 4,
			wantY: 50, wantX: 60,
		},
		{
			name:        "wide map stretches blocks along columns",
			chunkPixels: 5000, granY: 1, granX: 1, ny: 2, nx: 1000, minChunks: 4,
			wantY: 2, wantX: 250,
		},
		{
			name:        "tall map keeps narrow blocks",
			chunkPixels: 5000, granY: 1, granX: 1, ny: 1000, nx: 2, minChunks: 4,
			wantY: 250, wantX: 2,
		},
		{
			name:        "tiny map still yields minimum chunk count",
			chunkPixels: 5000, granY: 1, granX: 1, ny: 3, nx: 3, minChunks: 4,
			wantY: 1, wantX: 2,
		},
		{
			name:        "single pixel map",
			chunkPixels: 5000, granY: 1, granX: 1, ny: 1, nx: 1, minChunks: 4,
			wantY: 1, wantX: 1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			chunkY, chunkX, err := OptimalChunkSize(tt.chunkPixels, tt.granY, tt.granX, tt.ny, tt.nx, tt.minChunks)
			require.NoError(t, err)
			assert.Equal(t, tt.wantY, chunkY, "chunkY")
			assert.Equal(t, tt.wantX, chunkX, "chunkX")
			assert.LessOrEqual(t, chunkY, tt.ny)
			assert.LessOrEqual(t, chunkX, tt.nx)
		})
	}
}

func TestOptimalChunkSizeInvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		chunkPixels int
		granY       int
		granX       int
		ny          int
		nx          int
	}{
		{name: "zero chunk pixels", chunkPixels: 0, granY: 1, granX: 1, ny: 10, nx: 10},
		{name: "zero granularity", chunkPixels: 100, granY: 0, granX: 1, ny: 10, nx: 10},
		{name: "empty map", chunkPixels: 100, granY: 1, granX: 1, ny: 0, nx: 10},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := OptimalChunkSize(tt.chunkPixels, tt.granY, tt.granX, tt.ny, tt.nx, 4)
			assert.Error(t, err)
		})
	}
}

func TestPartitionCoversEveryPixelOnce(t *testing.T) {
	t.Parallel()

	const ny, nx = 5, 7
	blocks := Partition(ny, nx, 2, 3)

	covered := make([]int, ny*nx)
	for _, b := range blocks {
		assert.LessOrEqual(t, b.Rows, 2)
		assert.LessOrEqual(t, b.Cols, 3)
		for r := b.Row0; r < b.Row0+b.Rows; r++ {
			for c := b.Col0; c < b.Col0+b.Cols; c++ {
				covered[r*nx+c]++
			}
		}
	}

	for i, n := range covered {
		assert.Equal(t, 1, n, "pixel %d covered %d times", i, n)
	}
	assert.Len(t, blocks, 9)
}

func TestPartitionClampsOversizedChunks(t *testing.T) {
	t.Parallel()

	blocks := Partition(3, 4, 100, 100)
	require.Len(t, blocks, 1)
	assert.Equal(t, Block{Row0: 0, Col0: 0, Rows: 3, Cols: 4}, blocks[0])
	assert.Equal(t, 12, blocks[0].Pixels())
}
