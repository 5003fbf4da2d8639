package fitparams

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrflab/xrfmap-go/internal/errors"
)

func validParams() *Params {
	return &Params{
		IncidentEnergy: 12.0,
		Calibration:    Calibration{EOffset: 0, ELinear: 0.01, EQuadratic: 0},
		Resolution:     Resolution{FWHMOffset: 0.1, FWHMFano: 0.0001},
		FitRange:       FitRange{EMin: 2, EMax: 5},
		SnipWidth:      0.5,
		Lines: []Line{
			{Name: "Fe_K", Energy: 6.4},
			{Name: "Ca_K", Energy: 3.69},
		},
	}
}

func writeParamFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "params.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := writeParamFile(t, `{
		"incident_energy": 12.0,
		"calibration": {"e_offset": 0.0, "e_linear": 0.01, "e_quadratic": 0.0},
		"resolution": {"fwhm_offset": 0.1, "fwhm_fanoprime": 0.0001},
		"fit_range": {"emin": 2.0, "emax": 5.0},
		"lines": [
			{"name": "Ca_K", "energy": 3.69},
			{"name": "Fe_K", "energy": 6.4}
		],
		"channels": ["det1", "det2"]
	}`)

	p, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 12.0, p.IncidentEnergy, 1e-12)
	assert.InDelta(t, 0.01, p.Calibration.ELinear, 1e-12)
	assert.Len(t, p.Lines, 2)
	assert.Equal(t, []string{"det1", "det2"}, p.Channels)
	// Snip width falls back to the default when the file omits it.
	assert.InDelta(t, 0.5, p.SnipWidth, 1e-12)

	// Second load of the unchanged file is served from the cache.
	p2, err := Load(path)
	require.NoError(t, err)
	assert.Same(t, p, p2)
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryParams))
	})

	t.Run("malformed JSON", func(t *testing.T) {
		t.Parallel()
		_, err := Load(writeParamFile(t, `{"lines": [`))
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryParams))
	})

	t.Run("invalid content", func(t *testing.T) {
		t.Parallel()
		_, err := Load(writeParamFile(t, `{"calibration": {"e_linear": 0.01}, "lines": []}`))
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryParams))
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{name: "non-positive e_linear", mutate: func(p *Params) { p.Calibration.ELinear = 0 }},
		{name: "no emission lines", mutate: func(p *Params) { p.Lines = nil }},
		{name: "line without name", mutate: func(p *Params) { p.Lines[0].Name = "" }},
		{name: "line with non-positive energy", mutate: func(p *Params) { p.Lines[1].Energy = 0 }},
		{name: "duplicate line", mutate: func(p *Params) { p.Lines[1].Name = p.Lines[0].Name }},
		{name: "empty fit range", mutate: func(p *Params) { p.FitRange = FitRange{EMin: 5, EMax: 5} }},
		{name: "negative incident energy", mutate: func(p *Params) { p.IncidentEnergy = -1 }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := validParams()
			tt.mutate(p)
			err := p.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryParams))
		})
	}

	t.Run("valid set passes", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, validParams().Validate())
	})

	t.Run("non-positive snip width falls back to default", func(t *testing.T) {
		t.Parallel()
		p := validParams()
		p.SnipWidth = 0
		require.NoError(t, p.Validate())
		assert.InDelta(t, 0.5, p.SnipWidth, 1e-12)
	})
}

func TestAppliesTo(t *testing.T) {
	t.Parallel()

	p := validParams()
	assert.True(t, p.AppliesTo(SumChannel))
	assert.False(t, p.AppliesTo("det1"))

	p.Channels = []string{"det1", "det3"}
	assert.True(t, p.AppliesTo("det1"))
	assert.False(t, p.AppliesTo("det2"))
	assert.False(t, p.AppliesTo(SumChannel))
}

func TestWindow(t *testing.T) {
	t.Parallel()

	p := validParams()

	start, end, err := p.Window(1000)
	require.NoError(t, err)
	assert.Equal(t, 200, start)
	assert.Equal(t, 501, end)

	// Window clipped to a short spectrum.
	start, end, err = p.Window(300)
	require.NoError(t, err)
	assert.Equal(t, 200, start)
	assert.Equal(t, 300, end)
}

func TestWindowOutsideSpectrum(t *testing.T) {
	t.Parallel()

	p := validParams()
	p.FitRange = FitRange{EMin: 10, EMax: 20}

	_, _, err := p.Window(300)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryParams))
}

func TestEnergyAt(t *testing.T) {
	t.Parallel()

	p := validParams()
	p.Calibration = Calibration{EOffset: 0.5, ELinear: 0.01, EQuadratic: 1e-7}

	assert.InDelta(t, 0.5, p.EnergyAt(0), 1e-12)
	assert.InDelta(t, 0.5+100*0.01+100*100*1e-7, p.EnergyAt(100), 1e-12)
}

func TestSnipParameters(t *testing.T) {
	t.Parallel()

	p := validParams()
	sp := p.Snip()
	require.NotNil(t, sp)
	assert.InDelta(t, p.Calibration.ELinear, sp.ELinear, 1e-12)
	assert.InDelta(t, p.SnipWidth, sp.Width, 1e-12)
}
