package xrfmap

import (
	"github.com/xrflab/xrfmap-go/internal/errors"
)

// BlockSource provides streamed, block-wise access to an XRF map of shape
// (ny, nx, ne). Implementations must be safe for concurrent ReadBlock calls.
type BlockSource interface {
	// Shape returns the map dimensions: image rows, image columns and the
	// number of points in each pixel's spectrum.
	Shape() (ny, nx, ne int)
	// ReadBlock reads the pixels of the given block, all spectrum points per
	// pixel, in row-major order. The returned slice has b.Rows*b.Cols*ne
	// elements.
	ReadBlock(b Block) ([]float64, error)
}

// MemorySource is a BlockSource over an in-memory map. Used for small maps
// and in tests.
type MemorySource struct {
	Ny, Nx, Ne int
	Data       []float64 // row-major (ny, nx, ne)
}

// NewMemorySource wraps row-major map data in a BlockSource.
func NewMemorySource(ny, nx, ne int, data []float64) (*MemorySource, error) {
	if len(data) != ny*nx*ne {
		return nil, errors.Newf("map data has %d elements, expected %d for shape (%d, %d, %d)",
			len(data), ny*nx*ne, ny, nx, ne).
			Category(errors.CategoryValidation).
			Build()
	}
	return &MemorySource{Ny: ny, Nx: nx, Ne: ne, Data: data}, nil
}

// Shape implements BlockSource.
func (s *MemorySource) Shape() (ny, nx, ne int) {
	return s.Ny, s.Nx, s.Ne
}

// ReadBlock implements BlockSource.
func (s *MemorySource) ReadBlock(b Block) ([]float64, error) {
	if b.Row0 < 0 || b.Col0 < 0 || b.Row0+b.Rows > s.Ny || b.Col0+b.Cols > s.Nx {
		return nil, errors.Newf("block (%d, %d, %dx%d) outside map shape (%d, %d)",
			b.Row0, b.Col0, b.Rows, b.Cols, s.Ny, s.Nx).
			Category(errors.CategoryValidation).
			Build()
	}

	out := make([]float64, b.Rows*b.Cols*s.Ne)
	for r := 0; r < b.Rows; r++ {
		for c := 0; c < b.Cols; c++ {
			srcOff := ((b.Row0+r)*s.Nx + b.Col0 + c) * s.Ne
			dstOff := (r*b.Cols + c) * s.Ne
			copy(out[dstOff:dstOff+s.Ne], s.Data[srcOff:srcOff+s.Ne])
		}
	}
	return out, nil
}
