package xrfmap

import "math"

// SnipParams holds the parameters of the SNIP background estimator. The energy
// axis is approximated as e(i) = EOffset + i*ELinear + i*i*EQuadratic (keV).
// Width scales the channel window that sets the background resolution.
type SnipParams struct {
	EOffset    float64
	ELinear    float64
	EQuadratic float64
	Width      float64
}

const (
	// detector energy to electron-hole pair conversion, eV
	snipEpsilon = 2.96
	// moving average window used to pre-smooth the spectrum
	snipSmoothWindow = 3
	// iterations at full window width
	snipIterations = 3
	// window shrink factor after the full-width iterations
	snipDecreaseFactor = math.Sqrt2
	// stop once the window falls below this many channels
	snipWidthThreshold = 0.5
	sigmaToFWHM        = 2.35482
)

// SnipBackground estimates the continuum background of a spectrum using the
// SNIP algorithm: the smoothed spectrum is compressed with the log-log
// operator, clipped repeatedly against the average of a shrinking symmetric
// window, and transformed back. The returned slice has the same length as the
// input and never exceeds it in total counts.
func SnipBackground(spectrum []float64, p SnipParams) []float64 {
	n := len(spectrum)
	if n == 0 {
		return nil
	}

	width := p.Width
	if width <= 0 {
		width = 0.5
	}

	// Pre-smooth with a moving average.
	bg := make([]float64, n)
	for i := range bg {
		sum, cnt := 0.0, 0
		for j := i - snipSmoothWindow/2; j <= i+snipSmoothWindow/2; j++ {
			if j >= 0 && j < n {
				sum += spectrum[j]
				cnt++
			}
		}
		bg[i] = sum / float64(cnt)
	}

	// Log-log compression keeps the clipping stable over several orders of
	// magnitude in counts.
	for i := range bg {
		if bg[i] < 0 {
			bg[i] = 0
		}
		bg[i] = math.Log(math.Log(bg[i]+1) + 1)
	}

	// Per-channel window in channels, from the detector FWHM at that energy.
	window := make([]float64, n)
	maxWindow := 0.0
	for i := range window {
		fi := float64(i)
		energy := p.EOffset + fi*p.ELinear + fi*fi*p.EQuadratic
		if energy < 0 {
			energy = 0
		}
		w := width * sigmaToFWHM * math.Sqrt(snipEpsilon*energy/1000.0)
		if p.ELinear > 0 {
			w /= p.ELinear
		}
		if w < 1 {
			w = 1
		}
		window[i] = w
		maxWindow = math.Max(maxWindow, w)
	}

	clipPass := func() {
		clipped := make([]float64, n)
		for i := range bg {
			w := int(window[i])
			lo := max(i-w, 0)
			hi := min(i+w, n-1)
			avg := (bg[lo] + bg[hi]) / 2
			clipped[i] = math.Min(bg[i], avg)
		}
		copy(bg, clipped)
	}

	for it := 0; it < snipIterations; it++ {
		clipPass()
	}

	for maxWindow >= snipWidthThreshold {
		for i := range window {
			window[i] /= snipDecreaseFactor
		}
		maxWindow /= snipDecreaseFactor
		clipPass()
	}

	// Back to the counts domain.
	for i := range bg {
		bg[i] = math.Exp(math.Exp(bg[i])-1) - 1
		if bg[i] < 0 {
			bg[i] = 0
		}
	}
	return bg
}
