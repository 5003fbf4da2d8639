package xrfmap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnipParams() SnipParams {
	return SnipParams{EOffset: 0, ELinear: 0.01, EQuadratic: 0, Width: 0.5}
}

func TestSnipBackgroundFlatSpectrum(t *testing.T) {
	t.Parallel()

	spectrum := make([]float64, 200)
	for i := range spectrum {
		spectrum[i] = 100
	}

	bg := SnipBackground(spectrum, testSnipParams())
	require.Len(t, bg, len(spectrum))

	// A featureless spectrum is its own background.
	for i, v := range bg {
		assert.InDelta(t, 100, v, 1e-6, "channel %d", i)
	}
}

func TestSnipBackgroundSuppressesPeak(t *testing.T) {
	t.Parallel()

	const n = 500
	const center, sigma, height, baseline = 250.0, 3.0, 1000.0, 100.0

	spectrum := make([]float64, n)
	for i := range spectrum {
		d := (float64(i) - center) / sigma
		spectrum[i] = baseline + height*math.Exp(-d*d/2)
	}

	bg := SnipBackground(spectrum, testSnipParams())
	require.Len(t, bg, n)

	// The background stays close to the baseline under the peak instead of
	// following it.
	assert.Less(t, bg[int(center)], baseline+height/2)
	assert.InDelta(t, baseline, bg[10], 5)
	assert.InDelta(t, baseline, bg[n-10], 5)

	var bgSum, specSum float64
	for i := range spectrum {
		assert.GreaterOrEqual(t, bg[i], 0.0)
		assert.LessOrEqual(t, bg[i], spectrum[i]+5)
		bgSum += bg[i]
		specSum += spectrum[i]
	}
	assert.Less(t, bgSum, specSum)
}

func TestSnipBackgroundEmptyInput(t *testing.T) {
	t.Parallel()
	assert.Nil(t, SnipBackground(nil, testSnipParams()))
}

func TestSnipBackgroundNegativeCountsClamped(t *testing.T) {
	t.Parallel()

	spectrum := []float64{-5, -5, -5, -5, -5, -5, -5, -5}
	bg := SnipBackground(spectrum, testSnipParams())
	for i, v := range bg {
		assert.GreaterOrEqual(t, v, 0.0, "channel %d", i)
	}
}
