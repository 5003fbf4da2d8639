package scanfile

import (
	"path/filepath"
	"sync"

	"gonum.org/v1/hdf5"

	"github.com/xrflab/xrfmap-go/internal/errors"
	"github.com/xrflab/xrfmap-go/internal/xrfmap"
)

// MapSource streams blocks of a 3-D counts dataset. It implements
// xrfmap.BlockSource. Reads are serialized because the HDF5 library is not
// safe for concurrent access to one file handle.
type MapSource struct {
	path    string
	dsName  string
	dataset *hdf5.Dataset
	ny      int
	nx      int
	ne      int

	// owner is set when the source opened the file itself (RawDataset) and
	// must close it along with the dataset.
	owner *hdf5.File

	mu sync.Mutex
}

func openMapSource(file *hdf5.File, path, dsName string) (*MapSource, error) {
	dataset, err := file.OpenDataset(dsName)
	if err != nil {
		return nil, errors.Newf("opening dataset %s in %s: %w", dsName, filepath.Base(path), err).
			Category(errors.CategoryHDF5).
			ScanContext(path, dsName).
			Build()
	}

	space := dataset.Space()
	dims, _, err := space.SimpleExtentDims()
	space.Close()
	if err != nil {
		dataset.Close()
		return nil, errors.Newf("reading extent of dataset %s: %w", dsName, err).
			Category(errors.CategoryHDF5).
			Build()
	}
	if len(dims) != 3 {
		dataset.Close()
		return nil, errors.Newf("dataset %s in %s has %d dimensions, 3D dataset is expected",
			dsName, filepath.Base(path), len(dims)).
			Category(errors.CategoryScanFile).
			ScanContext(path, dsName).
			Build()
	}

	return &MapSource{
		path:    path,
		dsName:  dsName,
		dataset: dataset,
		ny:      int(dims[0]),
		nx:      int(dims[1]),
		ne:      int(dims[2]),
	}, nil
}

// Shape implements xrfmap.BlockSource.
func (s *MapSource) Shape() (ny, nx, ne int) {
	return s.ny, s.nx, s.ne
}

// ReadBlock implements xrfmap.BlockSource using a hyperslab selection.
func (s *MapSource) ReadBlock(b xrfmap.Block) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dataset == nil {
		return nil, errors.Newf("dataset %s is closed", s.dsName).
			Category(errors.CategoryHDF5).
			Build()
	}

	offset := []uint{uint(b.Row0), uint(b.Col0), 0}
	count := []uint{uint(b.Rows), uint(b.Cols), uint(s.ne)}

	filespace := s.dataset.Space()
	defer filespace.Close()
	if err := filespace.SelectHyperslab(offset, nil, count, nil); err != nil {
		return nil, errors.Newf("selecting block (%d, %d, %dx%d) in %s: %w",
			b.Row0, b.Col0, b.Rows, b.Cols, s.dsName, err).
			Category(errors.CategoryHDF5).
			Build()
	}

	memspace, err := hdf5.CreateSimpleDataspace(count, nil)
	if err != nil {
		return nil, errors.Newf("creating memory dataspace: %w", err).
			Category(errors.CategoryHDF5).
			Build()
	}
	defer memspace.Close()

	data := make([]float64, b.Rows*b.Cols*s.ne)
	if err := s.dataset.ReadSubset(&data, memspace, filespace); err != nil {
		return nil, errors.Newf("reading block (%d, %d, %dx%d) from %s: %w",
			b.Row0, b.Col0, b.Rows, b.Cols, s.dsName, err).
			Category(errors.CategoryHDF5).
			ScanContext(s.path, s.dsName).
			Build()
	}
	return data, nil
}

// Close releases the dataset handle.
func (s *MapSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dataset == nil {
		return nil
	}
	err := s.dataset.Close()
	s.dataset = nil
	if s.owner != nil {
		if cerr := s.owner.Close(); err == nil {
			err = cerr
		}
		s.owner = nil
	}
	return err
}

// RawDataset is a lazy reference to a counts dataset inside an HDF5 file.
// Holding the reference instead of the data lets large maps be opened only
// while they are processed.
type RawDataset struct {
	Path        string
	DatasetName string
	Shape       [3]int // (ny, nx, ne), zero until opened
}

// Open opens the referenced dataset for reading and records its shape.
func (r *RawDataset) Open() (*MapSource, error) {
	abs, err := filepath.Abs(r.Path)
	if err != nil {
		return nil, errors.New(err).Category(errors.CategoryFileIO).Build()
	}

	file, err := hdf5.OpenFile(abs, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, errors.Newf("opening %s: %w", filepath.Base(abs), err).
			Category(errors.CategoryHDF5).
			ScanContext(abs, r.DatasetName).
			Build()
	}

	src, err := openMapSource(file, abs, r.DatasetName)
	if err != nil {
		file.Close()
		return nil, err
	}
	src.owner = file
	r.Shape = [3]int{src.ny, src.nx, src.ne}
	return src, nil
}
