// Package output writes fit results as text matrices and TIFF elemental maps.
package output

import (
	"bufio"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"github.com/xrflab/xrfmap-go/internal/errors"
	"github.com/xrflab/xrfmap-go/internal/fitparams"
	"github.com/xrflab/xrfmap-go/internal/xrfmap"
)

// Extra plane names appended after the emission line maps, matching the
// per-pixel fit output layout.
var extraPlaneNames = []string{"background", "r_factor", "sel_cnt", "total_cnt"}

// PlaneNames returns the output plane names for a fit: one per emission line
// followed by the extra planes.
func PlaneNames(lines []fitparams.Line) []string {
	names := make([]string, 0, len(lines)+len(extraPlaneNames))
	for _, l := range lines {
		names = append(names, l.Name)
	}
	return append(names, extraPlaneNames...)
}

// WriteMaps writes one file per output plane of the fit result. Text matrices
// go to output_txt_<prefix>/ and TIFF maps to output_tiff_<prefix>/ under
// dir. It returns the paths written.
func WriteMaps(dir, prefix, channel string, result *xrfmap.MapFitResult, lines []fitparams.Line, saveTxt, saveTiff bool) ([]string, error) {
	if len(lines) != result.Lines {
		return nil, errors.Newf("fit result has %d line planes but %d line names",
			result.Lines, len(lines)).
			Category(errors.CategoryOutput).
			Build()
	}

	names := PlaneNames(lines)
	var written []string

	writePlanes := func(subdir, ext string, write func(path string, plane []float64) error) error {
		outDir := filepath.Join(dir, fmt.Sprintf("%s_%s", subdir, prefix))
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return errors.Newf("creating output directory %s: %w", outDir, err).
				Category(errors.CategoryOutput).
				Build()
		}
		for p, name := range names {
			path := filepath.Join(outDir, fileName(channel, name, ext))
			if err := write(path, result.Plane(p)); err != nil {
				return err
			}
			written = append(written, path)
		}
		return nil
	}

	if saveTxt {
		if err := writePlanes("output_txt", "txt", func(path string, plane []float64) error {
			return writeTxt(path, plane, result.Rows, result.Cols)
		}); err != nil {
			return nil, err
		}
	}
	if saveTiff {
		if err := writePlanes("output_tiff", "tiff", func(path string, plane []float64) error {
			return writeTiff(path, plane, result.Rows, result.Cols)
		}); err != nil {
			return nil, err
		}
	}

	return written, nil
}

// WriteSpectrum writes a total spectrum as two-column text: point index and
// counts.
func WriteSpectrum(path string, spectrum []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Newf("creating spectrum file %s: %w", path, err).
			Category(errors.CategoryOutput).
			Build()
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i, v := range spectrum {
		fmt.Fprintf(w, "%d %.6e\n", i, v)
	}
	return w.Flush()
}

func fileName(channel, plane, ext string) string {
	plane = strings.ReplaceAll(plane, " ", "_")
	return fmt.Sprintf("%s_%s.%s", channel, plane, ext)
}

// writeTxt writes a plane as a whitespace separated matrix.
func writeTxt(path string, plane []float64, rows, cols int) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Newf("creating %s: %w", path, err).
			Category(errors.CategoryOutput).
			Build()
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c > 0 {
				if err := w.WriteByte(' '); err != nil {
					return err
				}
			}
			fmt.Fprintf(w, "%.6e", plane[r*cols+c])
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return w.Flush()
}

// writeTiff writes a plane as a 16-bit grayscale TIFF, scaled to the plane's
// value range.
func writeTiff(path string, plane []float64, rows, cols int) error {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range plane {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	scale := 0.0
	if hi > lo {
		scale = 65535.0 / (hi - lo)
	}

	img := image.NewGray16(image.Rect(0, 0, cols, rows))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := uint16((plane[r*cols+c] - lo) * scale)
			// Gray16 is big-endian in the pixel buffer.
			off := img.PixOffset(c, r)
			img.Pix[off] = uint8(v >> 8)
			img.Pix[off+1] = uint8(v)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Newf("creating %s: %w", path, err).
			Category(errors.CategoryOutput).
			Build()
	}
	defer f.Close()

	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return errors.Newf("encoding %s: %w", path, err).
			Category(errors.CategoryOutput).
			Build()
	}
	return nil
}
