package analysis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xrflab/xrfmap-go/internal/conf"
	"github.com/xrflab/xrfmap-go/internal/fitparams"
	"github.com/xrflab/xrfmap-go/internal/scanfile"
)

func TestResolveInput(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{WorkingDir: "/work"}
	assert.Equal(t, filepath.Join("/work", "scan.h5"), resolveInput(settings, "scan.h5"))
	assert.Equal(t, "/abs/scan.h5", resolveInput(settings, "/abs/scan.h5"))
	assert.Equal(t, "", resolveInput(settings, ""))

	settings.WorkingDir = ""
	assert.Equal(t, "scan.h5", resolveInput(settings, "scan.h5"))
}

func TestOutputDir(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{WorkingDir: "/work"}
	assert.Equal(t, "/work", outputDir(settings))

	settings.Output.Dir = "/out"
	assert.Equal(t, "/out", outputDir(settings))

	assert.Equal(t, ".", outputDir(&conf.Settings{}))
}

func TestValidateScanPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		assert.Error(t, validateScanPath(filepath.Join(dir, "missing.h5")))
	})

	t.Run("directory", func(t *testing.T) {
		t.Parallel()
		assert.Error(t, validateScanPath(dir))
	})

	t.Run("empty file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(dir, "empty.h5")
		require.NoError(t, os.WriteFile(path, nil, 0o644))
		assert.Error(t, validateScanPath(path))
	})

	t.Run("regular file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(dir, "scan.h5")
		require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
		assert.NoError(t, validateScanPath(path))
	})
}

func TestBuildMaskModes(t *testing.T) {
	t.Parallel()

	t.Run("no mask", func(t *testing.T) {
		t.Parallel()
		settings := &conf.Settings{}
		m, err := buildMask(settings, 4, 5)
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("rectangle", func(t *testing.T) {
		t.Parallel()
		settings := &conf.Settings{}
		settings.Mask.Mode = conf.MaskModeRect
		settings.Mask.P1Row, settings.Mask.P1Col = 2, 3
		settings.Mask.P2Row, settings.Mask.P2Col = 1, 1

		m, err := buildMask(settings, 4, 5)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, 6, m.Count())
		assert.True(t, m.At(1, 1))
		assert.True(t, m.At(2, 3))
	})

	t.Run("file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "mask.csv")
		require.NoError(t, os.WriteFile(path, []byte("1,0\n0,1\n"), 0o644))

		settings := &conf.Settings{}
		settings.Mask.Mode = conf.MaskModeFile
		settings.Mask.File = path

		m, err := buildMask(settings, 2, 2)
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, 2, m.Count())
	})

	t.Run("invalid mode", func(t *testing.T) {
		t.Parallel()
		settings := &conf.Settings{}
		settings.Mask.Mode = 7
		_, err := buildMask(settings, 4, 5)
		assert.Error(t, err)
	})
}

func TestFilePrefix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "scan_0001", filePrefix("/data/scan_0001.h5"))
	assert.Equal(t, "scan", filePrefix("scan.hdf5"))
}

func TestParamFileFor(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Fit.ParamFile = "default.json"
	settings.Fit.ParamChannels = []string{"det1=det1.json", "det3=det3.json"}

	assert.Equal(t, "det1.json", paramFileFor(settings, "det1"))
	assert.Equal(t, "det3.json", paramFileFor(settings, "det3"))
	assert.Equal(t, "default.json", paramFileFor(settings, "det2"))
	assert.Equal(t, "default.json", paramFileFor(settings, scanfile.SumChannel))
}

func TestParamChannelName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, fitparams.SumChannel, paramChannelName(scanfile.SumChannel))
	assert.Equal(t, "det2", paramChannelName("det2"))
}

func TestIncidentEnergyPrecedence(t *testing.T) {
	t.Parallel()

	params := &fitparams.Params{IncidentEnergy: 10}
	meta := scanfile.Metadata{IncidentEnergy: 8}

	settings := &conf.Settings{}
	settings.Fit.IncidentEnergy = 12
	assert.InDelta(t, 12, incidentEnergy(settings, params, meta), 1e-12)

	settings.Fit.IncidentEnergy = 0
	assert.InDelta(t, 10, incidentEnergy(settings, params, meta), 1e-12)

	params.IncidentEnergy = 0
	assert.InDelta(t, 8, incidentEnergy(settings, params, meta), 1e-12)
}

func TestCollectScanFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))

	for _, name := range []string{"b.h5", "a.H5", "c.hdf5", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(sub, "d.h5"), []byte("x"), 0o644))

	scans, err := collectScanFiles(dir, false)
	require.NoError(t, err)
	require.Len(t, scans, 3)
	assert.Equal(t, filepath.Join(dir, "a.H5"), scans[0])

	scans, err = collectScanFiles(dir, true)
	require.NoError(t, err)
	assert.Len(t, scans, 4)
}
