package xrfmap

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminalProgressReportsCompletion(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := &TerminalProgress{Title: "fit", Out: &buf}

	p.Start(2)
	p.Report(1, 2)
	p.Report(2, 2)
	p.Finish()

	out := buf.String()
	assert.Contains(t, out, "fit 50%")
	assert.Contains(t, out, "fit 100%")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestTerminalProgressFinishKeepsLastPercent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := &TerminalProgress{Title: "fit", Out: &buf}

	// An aborted run never reports full completion; finishing the line must
	// not pretend it did.
	p.Start(4)
	p.Report(1, 4)
	p.Finish()

	out := buf.String()
	assert.Contains(t, out, "fit 25%")
	assert.NotContains(t, out, "100%")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestTerminalProgressSkipsRepeatedPercent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := &TerminalProgress{Title: "fit", Out: &buf}

	p.Start(200)
	p.Report(1, 200)
	p.Report(2, 200)
	p.Finish()

	assert.Equal(t, 1, strings.Count(buf.String(), "1%"))
}
