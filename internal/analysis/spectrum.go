package analysis

import (
	"context"
	"path/filepath"
	"time"

	"github.com/xrflab/xrfmap-go/internal/conf"
	"github.com/xrflab/xrfmap-go/internal/output"
	"github.com/xrflab/xrfmap-go/internal/scanfile"
	"github.com/xrflab/xrfmap-go/internal/xrfmap"
)

// SpectrumAnalysis computes the total spectrum of the scan file named in
// settings.Input.Path, restricted by the configured mask, and writes it as a
// two-column text file. Returns the path of the written file.
func SpectrumAnalysis(ctx context.Context, settings *conf.Settings) (string, error) {
	path := resolveInput(settings, settings.Input.Path)
	if err := validateScanPath(path); err != nil {
		return "", err
	}

	sf, err := scanfile.Open(path)
	if err != nil {
		return "", err
	}
	defer sf.Close()

	src, err := sf.DataSource(scanfile.SumChannel)
	if err != nil {
		return "", err
	}
	defer src.Close()

	ny, nx, _ := src.Shape()
	mask, err := buildMask(settings, ny, nx)
	if err != nil {
		return "", err
	}

	log := serviceLogger()
	selected := ny * nx
	if mask != nil {
		selected = mask.Count()
	}
	log.Info("computing total spectrum",
		"path", path,
		"map_rows", ny,
		"map_cols", nx,
		"selected_pixels", selected,
		"mask_mode", settings.Mask.Mode)

	start := time.Now()
	spectrum, err := xrfmap.TotalSpectrum(ctx, src, mask, processingOptions(settings, "total spectrum"))
	if err != nil {
		return "", err
	}

	outPath := filepath.Join(outputDir(settings), filePrefix(path)+"_total_spectrum.txt")
	if err := output.WriteSpectrum(outPath, spectrum); err != nil {
		return "", err
	}

	log.Info("total spectrum written",
		"path", outPath,
		"points", len(spectrum),
		"duration_ms", time.Since(start).Milliseconds())
	return outPath, nil
}
