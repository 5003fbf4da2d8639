package xrfmap

import (
	"context"
	"sync"
	"time"

	"github.com/xrflab/xrfmap-go/internal/errors"
)

// TotalSpectrum sums the spectra of all unmasked pixels of the map. The mask
// may be nil to include every pixel. The map is processed block by block on a
// worker pool.
func TotalSpectrum(ctx context.Context, src BlockSource, mask *Mask, opts Options) ([]float64, error) {
	opts = opts.normalized()
	ny, nx, ne := src.Shape()

	if mask != nil && (mask.Rows != ny || mask.Cols != nx) {
		return nil, errors.Newf("mask shape (%d, %d) does not match map shape (%d, %d)",
			mask.Rows, mask.Cols, ny, nx).
			Category(errors.CategoryMask).
			Build()
	}

	chunkY, chunkX, err := OptimalChunkSize(opts.ChunkPixels, 1, 1, ny, nx, opts.MinChunks)
	if err != nil {
		return nil, err
	}
	blocks := Partition(ny, nx, chunkY, chunkX)

	start := time.Now()
	opts.Logger.Debug("computing total spectrum",
		"rows", ny, "cols", nx, "points", ne,
		"blocks", len(blocks), "workers", opts.Workers)

	if opts.Progress != nil {
		opts.Progress.Start(len(blocks))
		defer opts.Progress.Finish()
	}

	blockChan := make(chan Block, len(blocks))
	for _, b := range blocks {
		blockChan <- b
	}
	close(blockChan)

	partialChan := make(chan []float64, opts.Workers)
	errorChan := make(chan error, 1)

	var wg sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range blockChan {
				if ctx.Err() != nil {
					return
				}
				data, err := src.ReadBlock(b)
				if err != nil {
					select {
					case errorChan <- err:
					default:
					}
					return
				}
				partialChan <- sumBlock(data, b, mask, ne)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(partialChan)
	}()

	total := make([]float64, ne)
	completed := 0
	for partial := range partialChan {
		for i, v := range partial {
			total[i] += v
		}
		completed++
		if opts.Progress != nil {
			opts.Progress.Report(completed, len(blocks))
		}
	}

	select {
	case err := <-errorChan:
		opts.Metrics.CountError("total_spectrum")
		return nil, err
	default:
	}

	if ctx.Err() != nil {
		return nil, errors.New(ctx.Err()).Category(errors.CategoryCancellation).Build()
	}

	opts.Metrics.AddPixels("total_spectrum", ny*nx)
	opts.Metrics.ObserveTotalSpectrum(time.Since(start))
	opts.Logger.Debug("total spectrum done", "duration", time.Since(start))

	return total, nil
}

// sumBlock sums the spectra of the block's unmasked pixels.
func sumBlock(data []float64, b Block, mask *Mask, ne int) []float64 {
	sum := make([]float64, ne)
	for r := 0; r < b.Rows; r++ {
		for c := 0; c < b.Cols; c++ {
			if mask != nil && !mask.At(b.Row0+r, b.Col0+c) {
				continue
			}
			off := (r*b.Cols + c) * ne
			for i := 0; i < ne; i++ {
				sum[i] += data[off+i]
			}
		}
	}
	return sum
}
