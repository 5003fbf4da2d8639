// Package fit implements the single scan file fitting command.
package fit

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xrflab/xrfmap-go/internal/analysis"
	"github.com/xrflab/xrfmap-go/internal/conf"
)

// Command creates the fit command for pixel-wise fitting of a single scan file.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fit [scan.h5]",
		Short: "Fit an XRF scan file",
		Long: `Fit every pixel of an XRF scan file against the emission line model of a
JSON parameter file and write the elemental map artifacts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings.Input.Path = args[0]
			return analysis.FileAnalysis(cmd.Context(), settings)
		},
	}

	setupFlags(cmd, settings)

	return cmd
}

// setupFlags configures flags specific to the fit command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().StringVarP(&settings.Fit.ParamFile, "params", "p", viper.GetString("fit.paramfile"), "Path to JSON fitting parameter file")
	cmd.Flags().BoolVar(&settings.Fit.ChannelEach, "each", viper.GetBool("fit.channeleach"), "Fit each detector channel instead of the sum")
	cmd.Flags().StringSliceVar(&settings.Fit.ParamChannels, "channel-params", nil, "Per-channel parameter files as channel=file entries")
	cmd.Flags().BoolVar(&settings.Fit.UseSnip, "snip", viper.GetBool("fit.usesnip"), "Subtract SNIP background before fitting")
	cmd.Flags().Float64Var(&settings.Fit.IncidentEnergy, "incident-energy", viper.GetFloat64("fit.incidentenergy"), "Incident energy override in keV, 0 to use scan metadata")
	cmd.Flags().StringVarP(&settings.Output.Dir, "output", "o", viper.GetString("output.dir"), "Output directory, working dir if empty")
	cmd.Flags().BoolVar(&settings.Output.SaveTxt, "txt", viper.GetBool("output.savetxt"), "Write text matrices")
	cmd.Flags().BoolVar(&settings.Output.SaveTiff, "tiff", viper.GetBool("output.savetiff"), "Write TIFF elemental maps")
}
