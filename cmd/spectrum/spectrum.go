// Package spectrum implements the total spectrum command.
package spectrum

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xrflab/xrfmap-go/internal/analysis"
	"github.com/xrflab/xrfmap-go/internal/conf"
)

// Command creates the spectrum command for computing the masked total
// spectrum of a scan file.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spectrum [scan.h5]",
		Short: "Compute the total spectrum of an XRF scan file",
		Long: `Sum the per-pixel spectra of a scan file over the selected pixels and write
the result as a two-column text file (point index, counts).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings.Input.Path = args[0]
			path, err := analysis.SpectrumAnalysis(cmd.Context(), settings)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	setupFlags(cmd, settings)

	return cmd
}

// setupFlags configures the mask selection flags of the spectrum command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().IntVarP(&settings.Mask.Mode, "mask", "m", viper.GetInt("mask.mode"), "Mask mode: 0 none, 1 rectangle, 2 file")
	cmd.Flags().IntVar(&settings.Mask.P1Row, "p1-row", viper.GetInt("mask.p1row"), "First corner row of the rectangle selection")
	cmd.Flags().IntVar(&settings.Mask.P1Col, "p1-col", viper.GetInt("mask.p1col"), "First corner column of the rectangle selection")
	cmd.Flags().IntVar(&settings.Mask.P2Row, "p2-row", viper.GetInt("mask.p2row"), "Second corner row of the rectangle selection")
	cmd.Flags().IntVar(&settings.Mask.P2Col, "p2-col", viper.GetInt("mask.p2col"), "Second corner column of the rectangle selection")
	cmd.Flags().StringVar(&settings.Mask.File, "mask-file", viper.GetString("mask.file"), "Path to TIFF or CSV mask file")
	cmd.Flags().StringVarP(&settings.Output.Dir, "output", "o", viper.GetString("output.dir"), "Output directory, working dir if empty")
}
