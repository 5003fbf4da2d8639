package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xrflab/xrfmap-go/cmd/batch"
	"github.com/xrflab/xrfmap-go/cmd/fit"
	"github.com/xrflab/xrfmap-go/cmd/runs"
	"github.com/xrflab/xrfmap-go/cmd/spectrum"
	"github.com/xrflab/xrfmap-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "xrfmap",
		Short: "XRF map processing CLI",
		Long:  `Pixel-wise spectral fitting and total-spectrum computation for XRF scan files.`,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		cobra.CheckErr(err)
	}

	subcommands := []*cobra.Command{
		fit.Command(settings),
		spectrum.Command(settings),
		batch.Command(settings),
		runs.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := cmd.Flags().Parse(args); err != nil {
			return err
		}
		return conf.ValidateSettings(settings)
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVarP(&settings.WorkingDir, "workingdir", "w", viper.GetString("workingdir"), "Working directory for scan files and outputs")
	rootCmd.PersistentFlags().IntVar(&settings.Processing.ChunkPixels, "chunkpixels", viper.GetInt("processing.chunkpixels"), "Desired number of pixels in one processing block")
	rootCmd.PersistentFlags().IntVar(&settings.Processing.Workers, "workers", viper.GetInt("processing.workers"), "Number of worker goroutines, 0 for all CPUs")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
