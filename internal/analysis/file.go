package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xrflab/xrfmap-go/internal/conf"
	"github.com/xrflab/xrfmap-go/internal/errors"
	"github.com/xrflab/xrfmap-go/internal/fitparams"
	"github.com/xrflab/xrfmap-go/internal/output"
	"github.com/xrflab/xrfmap-go/internal/scanfile"
	"github.com/xrflab/xrfmap-go/internal/xrfmap"
)

// FileAnalysis fits the scan file named in settings.Input.Path and writes the
// requested elemental map artifacts. With Fit.ChannelEach set, each detector
// channel is fitted separately; otherwise only the summed channel is fitted.
func FileAnalysis(ctx context.Context, settings *conf.Settings) error {
	path := resolveInput(settings, settings.Input.Path)
	if err := validateScanPath(path); err != nil {
		return err
	}

	sf, err := scanfile.Open(path)
	if err != nil {
		return err
	}
	defer sf.Close()

	log := serviceLogger()
	meta := sf.Metadata()
	log.Info("scan file opened",
		"path", path,
		"run_id", meta.RunID,
		"channels", sf.Channels())

	channels, err := fitChannelList(settings, sf)
	if err != nil {
		return err
	}

	start := time.Now()
	written := 0
	for _, ch := range channels {
		files, err := fitChannel(ctx, settings, sf, ch)
		if err != nil {
			return err
		}
		written += len(files)
	}

	if settings.Catalog.Enabled {
		if err := recordRun(settings, sf, path); err != nil {
			// Catalog failures do not invalidate the fit artifacts.
			log.Warn("recording run in catalog failed", "error", err)
		}
	}

	log.Info("scan file processed",
		"path", path,
		"channels", len(channels),
		"artifacts", written,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// fitChannelList resolves which detector channels to fit.
func fitChannelList(settings *conf.Settings, sf *scanfile.ScanFile) ([]string, error) {
	if !settings.Fit.ChannelEach {
		if !sf.HasChannel(scanfile.SumChannel) {
			return nil, errors.Newf("scan file has no %s channel", scanfile.SumChannel).
				Category(errors.CategoryScanFile).
				ScanContext(sf.Path, scanfile.SumChannel).
				Build()
		}
		return []string{scanfile.SumChannel}, nil
	}

	var channels []string
	for _, ch := range sf.Channels() {
		if ch == scanfile.SumChannel {
			continue
		}
		channels = append(channels, ch)
	}
	if len(channels) == 0 {
		return nil, errors.Newf("scan file has no individual detector channels").
			Category(errors.CategoryScanFile).
			ScanContext(sf.Path, "").
			Build()
	}
	return channels, nil
}

// paramFileFor returns the parameter file for a channel. Entries of
// Fit.ParamChannels have the form "channel=file" and override the default
// parameter file for that channel.
func paramFileFor(settings *conf.Settings, channel string) string {
	for _, entry := range settings.Fit.ParamChannels {
		name, file, ok := strings.Cut(entry, "=")
		if ok && name == channel {
			return file
		}
	}
	return settings.Fit.ParamFile
}

// paramChannelName maps a scan file channel to the name parameter files use
// for channel association.
func paramChannelName(channel string) string {
	if channel == scanfile.SumChannel {
		return fitparams.SumChannel
	}
	return channel
}

// incidentEnergy picks the incident energy: explicit override first, then the
// parameter file, then the scan metadata. Zero disables the line cutoff.
func incidentEnergy(settings *conf.Settings, params *fitparams.Params, meta scanfile.Metadata) float64 {
	if settings.Fit.IncidentEnergy > 0 {
		return settings.Fit.IncidentEnergy
	}
	if params.IncidentEnergy > 0 {
		return params.IncidentEnergy
	}
	return meta.IncidentEnergy
}

// fitChannel fits one detector channel and writes its artifacts. Returns the
// paths of the written files.
func fitChannel(ctx context.Context, settings *conf.Settings, sf *scanfile.ScanFile, channel string) ([]string, error) {
	paramPath := resolveInput(settings, paramFileFor(settings, channel))
	if paramPath == "" {
		return nil, errors.Newf("no parameter file configured for channel %s", channel).
			Category(errors.CategoryParams).
			Build()
	}

	params, err := fitparams.Load(paramPath)
	if err != nil {
		return nil, err
	}
	if !params.AppliesTo(paramChannelName(channel)) {
		return nil, errors.Newf("parameter file %s does not apply to channel %s", paramPath, channel).
			Category(errors.CategoryParams).
			Context("channel", channel).
			Build()
	}

	src, err := sf.DataSource(channel)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	ny, nx, ne := src.Shape()
	winStart, winEnd, err := params.Window(ne)
	if err != nil {
		return nil, err
	}

	incident := incidentEnergy(settings, params, sf.Metadata())
	model, lines, err := params.ModelMatrix(winStart, winEnd, incident)
	if err != nil {
		return nil, err
	}

	cfg := xrfmap.FitConfig{
		Model:    model,
		WinStart: winStart,
		WinEnd:   winEnd,
	}
	if settings.Fit.UseSnip {
		cfg.Snip = params.Snip()
	}

	log := serviceLogger()
	log.Info("fitting channel",
		"channel", channel,
		"map_rows", ny,
		"map_cols", nx,
		"window", fmt.Sprintf("[%d, %d)", winStart, winEnd),
		"lines", len(lines),
		"incident_energy", incident,
		"snip", settings.Fit.UseSnip)

	opts := processingOptions(settings, "fit "+channel)
	result, err := xrfmap.FitMap(ctx, src, cfg, opts)
	if err != nil {
		return nil, err
	}

	prefix := filePrefix(sf.Path)
	files, err := output.WriteMaps(outputDir(settings), prefix, channel, result, lines,
		settings.Output.SaveTxt, settings.Output.SaveTiff)
	if err != nil {
		return nil, err
	}
	log.Info("channel artifacts written", "channel", channel, "files", len(files))
	return files, nil
}
