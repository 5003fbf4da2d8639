package fitparams

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/xrflab/xrfmap-go/internal/errors"
)

// ModelMatrix builds the emission line model over the fit window
// [start, end). Each column is the unit-area Gaussian profile of one line.
// Lines at or above the incident energy cannot be excited and are excluded;
// incidentEnergy <= 0 disables the cutoff. The returned line slice matches
// the matrix columns.
func (p *Params) ModelMatrix(start, end int, incidentEnergy float64) (*mat.Dense, []Line, error) {
	lines := make([]Line, 0, len(p.Lines))
	for _, l := range p.Lines {
		if incidentEnergy > 0 && l.Energy >= incidentEnergy {
			continue
		}
		lines = append(lines, l)
	}
	if len(lines) == 0 {
		return nil, nil, errors.Newf("no emission line below the incident energy %g keV", incidentEnergy).
			Category(errors.CategoryParams).
			Context("incident_energy", incidentEnergy).
			Build()
	}

	nWin := end - start
	model := mat.NewDense(nWin, len(lines), nil)

	for j, l := range lines {
		sigma := p.sigmaAt(l.Energy)
		colSum := 0.0
		for i := 0; i < nWin; i++ {
			e := p.EnergyAt(start + i)
			d := (e - l.Energy) / sigma
			v := math.Exp(-0.5 * d * d)
			model.Set(i, j, v)
			colSum += v
		}
		if colSum == 0 {
			return nil, nil, errors.Newf("emission line %s at %g keV falls outside the fit window",
				l.Name, l.Energy).
				Category(errors.CategoryParams).
				Build()
		}
		// Unit area so fitted weights are line areas in counts.
		for i := 0; i < nWin; i++ {
			model.Set(i, j, model.At(i, j)/colSum)
		}
	}

	return model, lines, nil
}

// sigmaAt returns the detector peak sigma at the given energy in keV.
func (p *Params) sigmaAt(energy float64) float64 {
	v := p.Resolution.FWHMOffset / sigmaToFWHM
	s2 := v*v + energy*epsilon*p.Resolution.FWHMFano
	if s2 <= 0 {
		// Fall back to one spectrum point so the profile stays well defined.
		return p.Calibration.ELinear
	}
	return math.Sqrt(s2)
}
