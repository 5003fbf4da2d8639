// Package xrfmap implements processing of XRF maps: block partitioning, mask
// handling, masked total spectra and pixel-wise spectral fitting.
//
// An XRF map is a 3-D array of shape (ny, nx, ne) where ny and nx are the image
// dimensions and ne is the number of points in each pixel's spectrum. Maps are
// processed block by block so that datasets larger than memory can be streamed
// from file.
package xrfmap

import (
	"math"

	"github.com/xrflab/xrfmap-go/internal/errors"
)

// Block is a rectangular region of map pixels, covering all spectrum points.
type Block struct {
	Row0 int // first row of the block
	Col0 int // first column of the block
	Rows int // number of rows in the block
	Cols int // number of columns in the block
}

// Pixels returns the number of pixels in the block.
func (b Block) Pixels() int {
	return b.Rows * b.Cols
}

// OptimalChunkSize computes the block size for a map based on the desired
// number of pixels per block and the minimum number of blocks. The returned
// size is a whole multiple of the dataset's storage chunk size (granY, granX),
// blocks are kept near square, and narrow maps fall back to stretching blocks
// along the longer axis.
func OptimalChunkSize(chunkPixels, granY, granX, ny, nx, minChunks int) (chunkY, chunkX int, err error) {
	if chunkPixels <= 0 {
		return 0, 0, errors.Newf("invalid chunk pixel count %d", chunkPixels).
			Category(errors.CategoryValidation).Build()
	}
	if granY <= 0 || granX <= 0 {
		return 0, 0, errors.Newf("invalid storage granularity (%d, %d)", granY, granX).
			Category(errors.CategoryValidation).Build()
	}
	if ny <= 0 || nx <= 0 {
		return 0, 0, errors.Newf("invalid map shape (%d, %d)", ny, nx).
			Category(errors.CategoryValidation).Build()
	}
	if minChunks <= 0 {
		minChunks = 1
	}

	// Make sure the map splits into at least minChunks blocks, each holding at
	// least one pixel.
	totalPixels := ny * nx
	if totalPixels > minChunks {
		chunkPixels = min(chunkPixels, totalPixels/minChunks)
	}
	if chunkPixels < 1 {
		chunkPixels = 1
	}

	// Near-square blocks aligned to storage granularity.
	chunkX = int(math.Ceil(math.Sqrt(float64(chunkPixels))/float64(granX))) * granX
	chunkX = min(chunkX, nx)
	chunkY = int(math.Ceil(float64(chunkPixels)/float64(chunkX)/float64(granY))) * granY
	if chunkY > ny {
		// The map has few rows, stretch the block horizontally instead.
		chunkY = ny
		chunkX = int(math.Ceil(float64(chunkPixels)/float64(chunkY)/float64(granX))) * granX
		chunkX = min(chunkX, nx)
	}

	return chunkY, chunkX, nil
}

// Partition splits a (ny, nx) map into blocks of at most (chunkY, chunkX)
// pixels. Every pixel belongs to exactly one block.
func Partition(ny, nx, chunkY, chunkX int) []Block {
	chunkY = min(chunkY, ny)
	chunkX = min(chunkX, nx)

	nBlocksY := (ny + chunkY - 1) / chunkY
	nBlocksX := (nx + chunkX - 1) / chunkX

	blocks := make([]Block, 0, nBlocksY*nBlocksX)
	for by := 0; by < nBlocksY; by++ {
		for bx := 0; bx < nBlocksX; bx++ {
			row0 := by * chunkY
			col0 := bx * chunkX
			blocks = append(blocks, Block{
				Row0: row0,
				Col0: col0,
				Rows: min(chunkY, ny-row0),
				Cols: min(chunkX, nx-col0),
			})
		}
	}
	return blocks
}
