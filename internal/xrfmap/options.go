package xrfmap

import (
	"log/slog"
	"runtime"

	"github.com/xrflab/xrfmap-go/internal/observability"
)

// Options controls how a map is partitioned and processed.
type Options struct {
	ChunkPixels int // desired pixels per block, default 5000
	MinChunks   int // minimum number of blocks, default 4
	Workers     int // worker goroutines, 0 for NumCPU

	Progress ProgressReporter          // optional progress reporting
	Logger   *slog.Logger              // optional logger
	Metrics  *observability.XRFMetrics // optional metrics, nil-safe
}

const (
	defaultChunkPixels = 5000
	defaultMinChunks   = 4
	maxWorkers         = 8
)

// normalized fills in defaults and clamps the worker count.
func (o Options) normalized() Options {
	if o.ChunkPixels <= 0 {
		o.ChunkPixels = defaultChunkPixels
	}
	if o.MinChunks <= 0 {
		o.MinChunks = defaultMinChunks
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	o.Workers = clampInt(o.Workers, 1, maxWorkers)
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// clampInt ensures a value is between min and max (inclusive)
func clampInt(value, minValue, maxValue int) int {
	if value < minValue {
		return minValue
	}
	if value > maxValue {
		return maxValue
	}
	return value
}
