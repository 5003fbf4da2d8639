// Package scanfile reads XRF scan files in the HDF5 layout
// xrfmap/<channel>/counts, where <channel> is "detsum" for the summed
// spectrum and "det1".."detN" for individual detector channels. Each counts
// dataset is 3-D with shape (ny, nx, ne). Scan metadata lives in scalar
// datasets under xrfmap/scan_metadata.
package scanfile

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/hdf5"

	"github.com/xrflab/xrfmap-go/internal/errors"
)

const (
	rootGroup     = "xrfmap"
	countsDataset = "counts"
	metadataGroup = "xrfmap/scan_metadata"

	// SumChannel is the name of the summed detector channel.
	SumChannel = "detsum"
)

// ScanFile is an open XRF scan file.
type ScanFile struct {
	Path string

	file     *hdf5.File
	channels []string
	meta     Metadata
}

// Open opens and validates a scan file. The caller must Close it.
func Open(path string) (*ScanFile, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".h5" && ext != ".hdf5" {
		return nil, errors.Newf("unsupported scan file format %q, expected .h5", ext).
			Category(errors.CategoryScanFile).
			ScanContext(path, "").
			Build()
	}

	file, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, errors.Newf("opening scan file %s: %w", filepath.Base(path), err).
			Category(errors.CategoryHDF5).
			ScanContext(path, "").
			Build()
	}

	sf := &ScanFile{Path: path, file: file}

	if err := sf.findChannels(); err != nil {
		file.Close()
		return nil, err
	}
	sf.meta = readMetadata(file)

	return sf, nil
}

// findChannels enumerates detector channels under the root group.
func (sf *ScanFile) findChannels() error {
	group, err := sf.file.OpenGroup(rootGroup)
	if err != nil {
		return errors.Newf("scan file %s has no %q group, wrong file format: %w",
			filepath.Base(sf.Path), rootGroup, err).
			Category(errors.CategoryScanFile).
			ScanContext(sf.Path, rootGroup).
			Build()
	}
	defer group.Close()

	n, err := group.NumObjects()
	if err != nil {
		return errors.Newf("listing %q group: %w", rootGroup, err).
			Category(errors.CategoryHDF5).
			Build()
	}

	for i := uint(0); i < n; i++ {
		name, err := group.ObjectNameByIndex(i)
		if err != nil {
			continue
		}
		if name == SumChannel || strings.HasPrefix(name, "det") {
			// Only groups that actually carry a counts dataset are channels.
			if ds, err := sf.file.OpenDataset(channelDataset(name)); err == nil {
				ds.Close()
				sf.channels = append(sf.channels, name)
			}
		}
	}

	if len(sf.channels) == 0 {
		return errors.Newf("scan file %s contains no detector channels", filepath.Base(sf.Path)).
			Category(errors.CategoryScanFile).
			ScanContext(sf.Path, rootGroup).
			Build()
	}

	sort.Strings(sf.channels)
	return nil
}

// Channels returns the detector channel names present in the file, sorted.
func (sf *ScanFile) Channels() []string {
	return sf.channels
}

// HasChannel reports whether the file carries the named channel.
func (sf *ScanFile) HasChannel(name string) bool {
	for _, ch := range sf.channels {
		if ch == name {
			return true
		}
	}
	return false
}

// Metadata returns the scan metadata read on open.
func (sf *ScanFile) Metadata() Metadata {
	return sf.meta
}

// DataSource opens the counts dataset of a channel for block-wise reading.
// The caller must Close the returned source before closing the file.
func (sf *ScanFile) DataSource(channel string) (*MapSource, error) {
	if !sf.HasChannel(channel) {
		return nil, errors.NotFoundError("channel %q not present in scan file %s",
			channel, filepath.Base(sf.Path))
	}
	return openMapSource(sf.file, sf.Path, channelDataset(channel))
}

// Close closes the underlying HDF5 file.
func (sf *ScanFile) Close() error {
	if sf.file == nil {
		return nil
	}
	err := sf.file.Close()
	sf.file = nil
	return err
}

func channelDataset(channel string) string {
	return fmt.Sprintf("%s/%s/%s", rootGroup, channel, countsDataset)
}
