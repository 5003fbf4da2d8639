package scanfile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrflab/xrfmap-go/internal/errors"
)

func TestOpenRejectsWrongExtension(t *testing.T) {
	t.Parallel()

	_, err := Open("scan.csv")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryScanFile))
}

func TestChannelDataset(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "xrfmap/detsum/counts", channelDataset(SumChannel))
	assert.Equal(t, "xrfmap/det2/counts", channelDataset("det2"))
}

func TestMetadataDescribe(t *testing.T) {
	t.Parallel()

	m := Metadata{
		RunID:          42,
		IncidentEnergy: 12,
		Values: map[string]float64{
			"run_id":          42,
			"incident_energy": 12,
			"theta":           0.5,
		},
	}

	assert.Equal(t, "incident_energy: 12\nrun_id: 42\ntheta: 0.5\n", m.Describe())
}
