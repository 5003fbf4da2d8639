package xrfmap

import (
	"encoding/csv"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "image/png"

	_ "golang.org/x/image/tiff"

	"github.com/xrflab/xrfmap-go/internal/errors"
)

// Mask marks which map pixels take part in processing. Data holds one value
// per pixel in row-major order, nonzero means the pixel is included.
type Mask struct {
	Rows int
	Cols int
	Data []uint8
}

// NewMask returns an all-zero mask of the given shape.
func NewMask(rows, cols int) *Mask {
	return &Mask{Rows: rows, Cols: cols, Data: make([]uint8, rows*cols)}
}

// At reports whether the pixel at (row, col) is included.
func (m *Mask) At(row, col int) bool {
	return m.Data[row*m.Cols+col] != 0
}

// Set marks the pixel at (row, col) as included.
func (m *Mask) Set(row, col int) {
	m.Data[row*m.Cols+col] = 1
}

// Count returns the number of included pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v != 0 {
			n++
		}
	}
	return n
}

// Selection is a rectangular pixel region selected for processing.
type Selection struct {
	Row0 int
	Col0 int
	Rows int
	Cols int
}

// RectFromCorners builds a Selection from two corner positions given in any
// order. Both corners are inclusive.
func RectFromCorners(p1Row, p1Col, p2Row, p2Col int) Selection {
	r0, r1 := min(p1Row, p2Row), max(p1Row, p2Row)
	c0, c1 := min(p1Col, p2Col), max(p1Col, p2Col)
	return Selection{Row0: r0, Col0: c0, Rows: r1 - r0 + 1, Cols: c1 - c0 + 1}
}

// BuildMask combines an optional file mask and an optional selection into the
// mask used for processing. With only a selection, pixels inside the rectangle
// are included. With both, mask pixels outside the selection are dropped. The
// result is binary. A nil result means no masking at all.
func BuildMask(rows, cols int, sel *Selection, fileMask *Mask) (*Mask, error) {
	if fileMask != nil && (fileMask.Rows != rows || fileMask.Cols != cols) {
		return nil, errors.Newf("mask shape (%d, %d) does not match map shape (%d, %d)",
			fileMask.Rows, fileMask.Cols, rows, cols).
			Category(errors.CategoryMask).
			Build()
	}
	if sel == nil && fileMask == nil {
		return nil, nil
	}

	out := NewMask(rows, cols)

	if sel != nil {
		if sel.Rows <= 0 || sel.Cols <= 0 {
			return nil, errors.Newf("empty mask selection").Category(errors.CategoryMask).Build()
		}
		for r := sel.Row0; r < sel.Row0+sel.Rows; r++ {
			for c := sel.Col0; c < sel.Col0+sel.Cols; c++ {
				if r >= 0 && r < rows && c >= 0 && c < cols {
					out.Set(r, c)
				}
			}
		}
		if fileMask != nil {
			for i := range out.Data {
				if fileMask.Data[i] == 0 {
					out.Data[i] = 0
				}
			}
		}
		return out, nil
	}

	// File mask only, normalized to binary.
	for i, v := range fileMask.Data {
		if v != 0 {
			out.Data[i] = 1
		}
	}
	return out, nil
}

// LoadMaskFile reads a mask from a TIFF, PNG or CSV file. For image formats
// any pixel with nonzero luminance is included.
func LoadMaskFile(path string) (*Mask, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv":
		return loadMaskCSV(path)
	case ".txt":
		return loadMaskTxt(path)
	case ".tif", ".tiff", ".png":
		return loadMaskImage(path)
	default:
		return nil, errors.Newf("unsupported mask file format %q", ext).
			Category(errors.CategoryMask).
			Context("file_extension", ext).
			Build()
	}
}

func loadMaskImage(path string) (*Mask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryMask).Build()
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Newf("decoding mask image: %w", err).
			Category(errors.CategoryMask).
			Build()
	}

	bounds := img.Bounds()
	m := NewMask(bounds.Dy(), bounds.Dx())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if r|g|b != 0 {
				m.Set(y-bounds.Min.Y, x-bounds.Min.X)
			}
		}
	}
	return m, nil
}

func loadMaskCSV(path string) (*Mask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryMask).Build()
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Newf("reading mask CSV: %w", err).
			Category(errors.CategoryMask).
			Build()
	}
	return maskFromFields(records, path)
}

// loadMaskTxt reads a whitespace separated numeric matrix, the format the
// text artifact writer emits. Blank lines are skipped.
func loadMaskTxt(path string) (*Mask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryMask).Build()
	}

	var records [][]string
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		records = append(records, fields)
	}
	return maskFromFields(records, path)
}

// maskFromFields builds a binary mask from rows of numeric fields. Nonzero
// values mark included pixels.
func maskFromFields(records [][]string, path string) (*Mask, error) {
	if len(records) == 0 {
		return nil, errors.Newf("mask file %s is empty", filepath.Base(path)).
			Category(errors.CategoryMask).
			Build()
	}

	rows, cols := len(records), len(records[0])
	m := NewMask(rows, cols)
	for r, record := range records {
		if len(record) != cols {
			return nil, errors.Newf("mask file has ragged rows: row %d has %d fields, expected %d",
				r, len(record), cols).
				Category(errors.CategoryMask).
				Build()
		}
		for c, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, errors.Newf("mask value at (%d, %d): %w", r, c, err).
					Category(errors.CategoryMask).
					Build()
			}
			if v != 0 {
				m.Set(r, c)
			}
		}
	}
	return m, nil
}
