package xrfmap

import (
	"context"
	"math"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/xrflab/xrfmap-go/internal/errors"
)

// ExtraPlanes is the number of per-pixel output values appended after the
// emission line areas: background area, R-factor, counts in the fit window and
// counts in the full spectrum.
const ExtraPlanes = 4

// Indices of the extra planes, relative to the last line plane.
const (
	PlaneBackground = iota
	PlaneRFactor
	PlaneSelectedCounts
	PlaneTotalCounts
)

// FitConfig describes a pixel-wise fit: the emission line model matrix over
// the fit window and the optional SNIP background parameters.
type FitConfig struct {
	// Model holds one column per emission line, one row per spectrum point of
	// the fit window.
	Model *mat.Dense
	// WinStart and WinEnd select the spectrum points used for fitting,
	// WinEnd exclusive. WinEnd-WinStart must equal the model's row count.
	WinStart int
	WinEnd   int
	// Snip enables background subtraction before fitting when non-nil.
	Snip *SnipParams
}

// MapFitResult holds the per-pixel fit output. Each pixel has Lines emission
// line areas followed by the ExtraPlanes values.
type MapFitResult struct {
	Rows  int
	Cols  int
	Lines int
	Data  []float64 // (Rows*Cols) * (Lines+ExtraPlanes), row-major by pixel
}

// Planes returns the number of output values per pixel.
func (r *MapFitResult) Planes() int {
	return r.Lines + ExtraPlanes
}

// At returns the plane value for the pixel at (row, col).
func (r *MapFitResult) At(row, col, plane int) float64 {
	return r.Data[(row*r.Cols+col)*r.Planes()+plane]
}

// Plane extracts one output plane as a (Rows*Cols) row-major image.
func (r *MapFitResult) Plane(plane int) []float64 {
	out := make([]float64, r.Rows*r.Cols)
	stride := r.Planes()
	for i := range out {
		out[i] = r.Data[i*stride+plane]
	}
	return out
}

// FitMap fits every pixel of the map against the emission line model using
// non-negative least squares, optionally subtracting a SNIP background first.
// Blocks are fitted in parallel on a worker pool.
func FitMap(ctx context.Context, src BlockSource, cfg FitConfig, opts Options) (*MapFitResult, error) {
	opts = opts.normalized()
	ny, nx, ne := src.Shape()

	if cfg.Model == nil {
		return nil, errors.ValidationError("fit model matrix is required")
	}
	nWin, nLines := cfg.Model.Dims()
	if cfg.WinStart < 0 || cfg.WinEnd > ne || cfg.WinStart >= cfg.WinEnd {
		return nil, errors.Newf("invalid fit window [%d, %d) for spectrum of %d points",
			cfg.WinStart, cfg.WinEnd, ne).
			Category(errors.CategoryValidation).
			Build()
	}
	if cfg.WinEnd-cfg.WinStart != nWin {
		return nil, errors.Newf("fit window has %d points but model matrix has %d rows",
			cfg.WinEnd-cfg.WinStart, nWin).
			Category(errors.CategoryValidation).
			MapContext(ny, nx, ne).
			Build()
	}

	chunkY, chunkX, err := OptimalChunkSize(opts.ChunkPixels, 1, 1, ny, nx, opts.MinChunks)
	if err != nil {
		return nil, err
	}
	blocks := Partition(ny, nx, chunkY, chunkX)

	start := time.Now()
	opts.Metrics.FitStarted()
	defer opts.Metrics.FitFinished()

	opts.Logger.Info("starting pixel-wise fit",
		"rows", ny, "cols", nx, "points", ne, "lines", nLines,
		"blocks", len(blocks), "workers", opts.Workers, "snip", cfg.Snip != nil)

	if opts.Progress != nil {
		opts.Progress.Start(len(blocks))
		defer opts.Progress.Finish()
	}

	result := &MapFitResult{
		Rows:  ny,
		Cols:  nx,
		Lines: nLines,
		Data:  make([]float64, ny*nx*(nLines+ExtraPlanes)),
	}

	type blockResult struct {
		block Block
		data  []float64 // pixels * planes
	}

	blockChan := make(chan Block, len(blocks))
	for _, b := range blocks {
		blockChan <- b
	}
	close(blockChan)

	resultChan := make(chan blockResult, opts.Workers)
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
				blockStart := time.Now()
				data, err := src.ReadBlock(b)
				if err != nil {
					select {
					case errorChan <- err:
					default:
					}
					return
				}
				fitted, err := fitBlock(data, b, ne, cfg)
				if err != nil {
					select {
					case errorChan <- err:
					default:
					}
					return
				}
				opts.Metrics.ObserveBlockFit(time.Since(blockStart))
				resultChan <- blockResult{block: b, data: fitted}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	planes := result.Planes()
	completed := 0
	for br := range resultChan {
		b := br.block
		for r := 0; r < b.Rows; r++ {
			for c := 0; c < b.Cols; c++ {
				srcOff := (r*b.Cols + c) * planes
				dstOff := ((b.Row0+r)*nx + b.Col0 + c) * planes
				copy(result.Data[dstOff:dstOff+planes], br.data[srcOff:srcOff+planes])
			}
		}
		completed++
		if opts.Progress != nil {
			opts.Progress.Report(completed, len(blocks))
		}
		opts.Metrics.AddPixels("fit", b.Pixels())
	}

	select {
	case err := <-errorChan:
		opts.Metrics.CountError("fit")
		return nil, err
	default:
	}

	if ctx.Err() != nil {
		return nil, errors.New(ctx.Err()).Category(errors.CategoryCancellation).Build()
	}

	opts.Metrics.ObserveMapFit(time.Since(start))
	opts.Logger.Info("pixel-wise fit done", "duration", time.Since(start))

	return result, nil
}

// fitBlock fits every pixel of one block. The returned slice holds
// pixels * (lines+ExtraPlanes) values in block row-major order.
func fitBlock(data []float64, b Block, ne int, cfg FitConfig) ([]float64, error) {
	_, nLines := cfg.Model.Dims()
	planes := nLines + ExtraPlanes
	out := make([]float64, b.Rows*b.Cols*planes)

	for r := 0; r < b.Rows; r++ {
		for c := 0; c < b.Cols; c++ {
			off := (r*b.Cols + c) * ne
			spec := data[off : off+ne]
			pixel, err := fitPixel(spec, cfg)
			if err != nil {
				return nil, err
			}
			copy(out[(r*b.Cols+c)*planes:], pixel)
		}
	}
	return out, nil
}

// fitPixel fits a single spectrum. The output layout is
// [line areas..., bg_sum, r_factor, sel_cnt, total_cnt].
func fitPixel(spec []float64, cfg FitConfig) ([]float64, error) {
	_, nLines := cfg.Model.Dims()
	sel := spec[cfg.WinStart:cfg.WinEnd]

	y := make([]float64, len(sel))
	bgSum := 0.0
	if cfg.Snip != nil {
		bg := SnipBackground(sel, *cfg.Snip)
		for i := range y {
			// Keep the signal non-negative for NNLS.
			y[i] = math.Max(sel[i]-bg[i], 0)
			bgSum += bg[i]
		}
	} else {
		copy(y, sel)
	}

	weights, _, err := NNLS(cfg.Model, y)
	if err != nil {
		return nil, err
	}

	out := make([]float64, nLines+ExtraPlanes)
	copy(out, weights)
	out[nLines+PlaneBackground] = bgSum
	out[nLines+PlaneRFactor] = rFactor(y, cfg.Model, weights)
	out[nLines+PlaneSelectedCounts] = sum(sel)
	out[nLines+PlaneTotalCounts] = sum(spec)
	return out, nil
}

// rFactor is the absolute residual of the fit normalized by the total signal.
func rFactor(y []float64, model *mat.Dense, weights []float64) float64 {
	var fit mat.VecDense
	fit.MulVec(model, mat.NewVecDense(len(weights), weights))

	num, den := 0.0, 0.0
	for i, v := range y {
		num += math.Abs(v - fit.AtVec(i))
		den += math.Abs(v)
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func sum(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s
}
