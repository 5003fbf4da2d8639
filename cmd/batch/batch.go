// Package batch implements the directory analysis command.
package batch

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xrflab/xrfmap-go/internal/analysis"
	"github.com/xrflab/xrfmap-go/internal/conf"
)

// Command creates the batch command for fitting every scan file in a directory.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [directory]",
		Short: "Fit every XRF scan file in a directory",
		Long: `Run the pixel-wise fit on every .h5 scan file found in a directory.
Failing scans are reported and skipped; the batch continues.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings.Input.Path = args[0]
			result, err := analysis.DirectoryAnalysis(cmd.Context(), settings)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "job %s: %d scans processed, %d failed\n",
				result.JobID, result.Processed, result.Failed)
			for path, scanErr := range result.Errors {
				fmt.Fprintf(out, "  %s: %v\n", path, scanErr)
			}
			if result.Failed > 0 {
				return fmt.Errorf("%d of %d scans failed",
					result.Failed, result.Processed+result.Failed)
			}
			return nil
		},
	}

	setupFlags(cmd, settings)

	return cmd
}

// setupFlags configures flags specific to the batch command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().BoolVarP(&settings.Input.Recursive, "recursive", "r", false, "Process subdirectories recursively")
	cmd.Flags().StringVarP(&settings.Fit.ParamFile, "params", "p", viper.GetString("fit.paramfile"), "Path to JSON fitting parameter file")
	cmd.Flags().BoolVar(&settings.Fit.ChannelEach, "each", viper.GetBool("fit.channeleach"), "Fit each detector channel instead of the sum")
	cmd.Flags().BoolVar(&settings.Fit.UseSnip, "snip", viper.GetBool("fit.usesnip"), "Subtract SNIP background before fitting")
	cmd.Flags().Float64Var(&settings.Fit.IncidentEnergy, "incident-energy", viper.GetFloat64("fit.incidentenergy"), "Incident energy override in keV, 0 to use scan metadata")
	cmd.Flags().StringVarP(&settings.Output.Dir, "output", "o", viper.GetString("output.dir"), "Output directory, working dir if empty")
	cmd.Flags().BoolVar(&settings.Output.SaveTxt, "txt", viper.GetBool("output.savetxt"), "Write text matrices")
	cmd.Flags().BoolVar(&settings.Output.SaveTiff, "tiff", viper.GetBool("output.savetiff"), "Write TIFF elemental maps")
}
