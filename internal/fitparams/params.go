// Package fitparams loads JSON fitting parameter files and builds the
// emission line model matrix used for pixel-wise fitting.
//
// A parameter file describes the energy axis calibration of a detector
// channel, the detector resolution, the energy window used for fitting and
// the emission lines to fit. A file applies either to the summed channel or
// to the detector channels it names.
package fitparams

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/xrflab/xrfmap-go/internal/errors"
	"github.com/xrflab/xrfmap-go/internal/xrfmap"
)

// SumChannel is the channel name a parameter file applies to when it carries
// no explicit channel list.
const SumChannel = "sum"

// Calibration approximates the energy axis as
// e(i) = EOffset + i*ELinear + i*i*EQuadratic, in keV.
type Calibration struct {
	EOffset    float64 `json:"e_offset"`
	ELinear    float64 `json:"e_linear"`
	EQuadratic float64 `json:"e_quadratic"`
}

// Resolution models the detector peak width:
// sigma(e)^2 = (FWHMOffset/2.3548)^2 + e*epsilon*FWHMFano.
type Resolution struct {
	FWHMOffset float64 `json:"fwhm_offset"`
	FWHMFano   float64 `json:"fwhm_fanoprime"`
}

// Line is a single emission line to fit.
type Line struct {
	Name   string  `json:"name"`
	Energy float64 `json:"energy"` // keV
}

// FitRange bounds the energy window used for fitting, in keV.
type FitRange struct {
	EMin float64 `json:"emin"`
	EMax float64 `json:"emax"`
}

// Params is a parsed fitting parameter file.
type Params struct {
	IncidentEnergy float64     `json:"incident_energy"` // keV, 0 if not set
	Calibration    Calibration `json:"calibration"`
	Resolution     Resolution  `json:"resolution"`
	FitRange       FitRange    `json:"fit_range"`
	SnipWidth      float64     `json:"snip_width"`
	Lines          []Line      `json:"lines"`
	Channels       []string    `json:"channels"` // detector channels, empty for the sum
}

const (
	defaultSnipWidth = 0.5
	sigmaToFWHM      = 2.35482
	// detector energy to electron-hole pair conversion, eV
	epsilon = 2.96
)

// Parsed files keyed by path and modification time. Parameter files are tiny
// but batch runs reload them once per scan.
var paramCache = cache.New(10*time.Minute, 30*time.Minute)

// Load reads and validates a parameter file.
func Load(path string) (*Params, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryParams).
			Context("file", filepath.Base(path)).
			Build()
	}

	key := fmt.Sprintf("%s|%d", path, info.ModTime().UnixNano())
	if cached, found := paramCache.Get(key); found {
		return cached.(*Params), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryParams).
			Context("file", filepath.Base(path)).
			Build()
	}

	p := &Params{SnipWidth: defaultSnipWidth}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, errors.Newf("parsing parameter file %s: %w", filepath.Base(path), err).
			Category(errors.CategoryParams).
			Build()
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	paramCache.Set(key, p, cache.DefaultExpiration)
	return p, nil
}

// Validate checks the parameter set for values the fit cannot work with.
func (p *Params) Validate() error {
	if p.Calibration.ELinear <= 0 {
		return errors.Newf("calibration e_linear must be positive, got %g", p.Calibration.ELinear).
			Category(errors.CategoryParams).
			Build()
	}
	if len(p.Lines) == 0 {
		return errors.Newf("parameter file defines no emission lines").
			Category(errors.CategoryParams).
			Build()
	}
	seen := make(map[string]bool, len(p.Lines))
	for _, l := range p.Lines {
		if l.Name == "" {
			return errors.Newf("emission line with empty name").
				Category(errors.CategoryParams).
				Build()
		}
		if l.Energy <= 0 {
			return errors.Newf("emission line %s has non-positive energy %g", l.Name, l.Energy).
				Category(errors.CategoryParams).
				Build()
		}
		if seen[l.Name] {
			return errors.Newf("duplicate emission line %s", l.Name).
				Category(errors.CategoryParams).
				Build()
		}
		seen[l.Name] = true
	}
	if p.FitRange.EMin >= p.FitRange.EMax {
		return errors.Newf("fit range [%g, %g] keV is empty", p.FitRange.EMin, p.FitRange.EMax).
			Category(errors.CategoryParams).
			Build()
	}
	if p.IncidentEnergy < 0 {
		return errors.Newf("incident energy must not be negative, got %g", p.IncidentEnergy).
			Category(errors.CategoryParams).
			Build()
	}
	if p.SnipWidth <= 0 {
		p.SnipWidth = defaultSnipWidth
	}
	return nil
}

// AppliesTo reports whether the parameter file covers the given detector
// channel. A file without a channel list covers only the summed channel.
func (p *Params) AppliesTo(channel string) bool {
	if len(p.Channels) == 0 {
		return channel == SumChannel
	}
	for _, ch := range p.Channels {
		if ch == channel {
			return true
		}
	}
	return false
}

// EnergyAt returns the energy of a spectrum point in keV.
func (p *Params) EnergyAt(i int) float64 {
	fi := float64(i)
	return p.Calibration.EOffset + fi*p.Calibration.ELinear + fi*fi*p.Calibration.EQuadratic
}

// Window converts the energy fit range to spectrum point indices, clipped to
// the spectrum length. The end index is exclusive.
func (p *Params) Window(ne int) (start, end int, err error) {
	for i := 0; i < ne; i++ {
		e := p.EnergyAt(i)
		if e < p.FitRange.EMin {
			start = i + 1
		}
		if e <= p.FitRange.EMax {
			end = i + 1
		}
	}
	if start >= end {
		return 0, 0, errors.Newf("fit range [%g, %g] keV selects no spectrum points",
			p.FitRange.EMin, p.FitRange.EMax).
			Category(errors.CategoryParams).
			Build()
	}
	return start, end, nil
}

// Snip returns the SNIP parameters matching this calibration.
func (p *Params) Snip() *xrfmap.SnipParams {
	return &xrfmap.SnipParams{
		EOffset:    p.Calibration.EOffset,
		ELinear:    p.Calibration.ELinear,
		EQuadratic: p.Calibration.EQuadratic,
		Width:      p.SnipWidth,
	}
}
