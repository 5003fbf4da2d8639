package xrfmap

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/xrflab/xrfmap-go/internal/errors"
)

func TestRectFromCorners(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                       string
		p1Row, p1Col, p2Row, p2Col int
		want                       Selection
	}{
		{
			name:  "top-left to bottom-right",
			p1Row: 1, p1Col: 2, p2Row: 3, p2Col: 5,
			want: Selection{Row0: 1, Col0: 2, Rows: 3, Cols: 4},
		},
		{
			name:  "corners given in reverse order",
			p1Row: 3, p1Col: 5, p2Row: 1, p2Col: 2,
			want: Selection{Row0: 1, Col0: 2, Rows: 3, Cols: 4},
		},
		{
			name:  "single pixel",
			p1Row: 2, p1Col: 2, p2Row: 2, p2Col: 2,
			want: Selection{Row0: 2, Col0: 2, Rows: 1, Cols: 1},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, RectFromCorners(tt.p1Row, tt.p1Col, tt.p2Row, tt.p2Col))
		})
	}
}

func TestBuildMaskSelectionOnly(t *testing.T) {
	t.Parallel()

	sel := RectFromCorners(1, 1, 2, 3)
	m, err := BuildMask(4, 5, &sel, nil)
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.Equal(t, 6, m.Count())
	assert.True(t, m.At(1, 1))
	assert.True(t, m.At(2, 3))
	assert.False(t, m.At(0, 0))
	assert.False(t, m.At(3, 4))
}

func TestBuildMaskIntersection(t *testing.T) {
	t.Parallel()

	fileMask := NewMask(4, 5)
	fileMask.Set(0, 0)
	fileMask.Set(1, 1)
	fileMask.Set(2, 2)

	sel := RectFromCorners(1, 1, 2, 3)
	m, err := BuildMask(4, 5, &sel, fileMask)
	require.NoError(t, err)
	require.NotNil(t, m)

	// Only pixels inside both the selection and the file mask survive.
	assert.Equal(t, 2, m.Count())
	assert.True(t, m.At(1, 1))
	assert.True(t, m.At(2, 2))
	assert.False(t, m.At(0, 0))
}

func TestBuildMaskFileOnlyNormalizesToBinary(t *testing.T) {
	t.Parallel()

	fileMask := NewMask(2, 2)
	fileMask.Data = []uint8{0, 7, 255, 0}

	m, err := BuildMask(2, 2, nil, fileMask)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, []uint8{0, 1, 1, 0}, m.Data)
}

func TestBuildMaskEdgeCases(t *testing.T) {
	t.Parallel()

	t.Run("no selection and no file mask yields nil", func(t *testing.T) {
		t.Parallel()
		m, err := BuildMask(4, 5, nil, nil)
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("file mask shape mismatch", func(t *testing.T) {
		t.Parallel()
		_, err := BuildMask(4, 5, nil, NewMask(3, 3))
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryMask))
	})

	t.Run("empty selection", func(t *testing.T) {
		t.Parallel()
		_, err := BuildMask(4, 5, &Selection{Row0: 0, Col0: 0, Rows: 0, Cols: 2}, nil)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryMask))
	})

	t.Run("selection partly outside the map is clipped", func(t *testing.T) {
		t.Parallel()
		sel := RectFromCorners(3, 3, 6, 6)
		m, err := BuildMask(5, 5, &sel, nil)
		require.NoError(t, err)
		assert.Equal(t, 4, m.Count())
	})
}

func TestLoadMaskFileCSV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mask.csv")
	require.NoError(t, os.WriteFile(path, []byte("0,1,0\n1,1,0\n"), 0o644))

	m, err := LoadMaskFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Rows)
	assert.Equal(t, 3, m.Cols)
	assert.Equal(t, 3, m.Count())
	assert.True(t, m.At(0, 1))
	assert.False(t, m.At(1, 2))
}

func TestLoadMaskFileTxt(t *testing.T) {
	t.Parallel()

	// Whitespace separated matrix, the same format the text artifact writer
	// produces.
	path := filepath.Join(t.TempDir(), "mask.txt")
	require.NoError(t, os.WriteFile(path, []byte("0 1 0\n1 1 0\n"), 0o644))

	m, err := LoadMaskFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Rows)
	assert.Equal(t, 3, m.Cols)
	assert.Equal(t, 3, m.Count())
	assert.True(t, m.At(0, 1))
	assert.False(t, m.At(1, 2))
}

func TestLoadMaskFileTxtScientificNotation(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mask.txt")
	require.NoError(t, os.WriteFile(path, []byte("0.000000e+00 1.000000e+00\n1.000000e+00 0.000000e+00\n\n"), 0o644))

	m, err := LoadMaskFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Rows)
	assert.Equal(t, 2, m.Cols)
	assert.Equal(t, 2, m.Count())
	assert.True(t, m.At(0, 1))
	assert.True(t, m.At(1, 0))
}

func TestLoadMaskFileTxtRaggedRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mask.txt")
	require.NoError(t, os.WriteFile(path, []byte("0 1 0\n1 1\n"), 0o644))

	_, err := LoadMaskFile(path)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMask))
}

func TestLoadMaskFileCSVRaggedRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mask.csv")
	require.NoError(t, os.WriteFile(path, []byte("0,1,0\n1,1\n"), 0o644))

	_, err := LoadMaskFile(path)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMask))
}

func TestLoadMaskFilePNG(t *testing.T) {
	t.Parallel()

	img := image.NewGray(image.Rect(0, 0, 3, 2))
	img.Pix[1] = 255
	img.Pix[3] = 128

	path := filepath.Join(t.TempDir(), "mask.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	m, err := LoadMaskFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Rows)
	assert.Equal(t, 3, m.Cols)
	assert.Equal(t, 2, m.Count())
	assert.True(t, m.At(0, 1))
	assert.True(t, m.At(1, 0))
}

func TestLoadMaskFileTIFF(t *testing.T) {
	t.Parallel()

	img := image.NewGray(image.Rect(0, 0, 3, 2))
	img.Pix[2] = 255
	img.Pix[4] = 1

	path := filepath.Join(t.TempDir(), "mask.tiff")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, tiff.Encode(f, img, nil))
	require.NoError(t, f.Close())

	m, err := LoadMaskFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Rows)
	assert.Equal(t, 3, m.Cols)
	assert.Equal(t, 2, m.Count())
	assert.True(t, m.At(0, 2))
	assert.True(t, m.At(1, 1))
}

func TestLoadMaskFileUnsupportedFormat(t *testing.T) {
	t.Parallel()

	_, err := LoadMaskFile("mask.json")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMask))
}
