// Package runs implements the scan-run catalog commands.
package runs

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xrflab/xrfmap-go/internal/analysis"
	"github.com/xrflab/xrfmap-go/internal/catalog"
	"github.com/xrflab/xrfmap-go/internal/conf"
)

// Command creates the runs command group for catalog operations.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Scan-run catalog operations",
	}

	cmd.AddCommand(listCommand(settings), showCommand(settings), fetchCommand(settings))

	return cmd
}

func listCommand(settings *conf.Settings) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalogued scan runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := analysis.OpenCatalog(settings)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs recorded")
				return nil
			}
			for i := range runs {
				run := &runs[i]
				fmt.Fprintf(out, "%8d  %3dx%-3d  %6.2f keV  %s\n",
					run.RunID, run.Rows, run.Cols, run.IncidentEnergy, run.FilePath)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list, 0 for all")

	return cmd
}

func showCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show one catalogued scan run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := parseRunID(args[0])
			if err != nil {
				return err
			}

			store, err := analysis.OpenCatalog(settings)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(runID)
			if err != nil {
				return err
			}
			printRun(cmd, run)
			return nil
		},
	}
}

// fetchCommand reprocesses a catalogued scan by run ID. The loader's pending
// run ID is reset to the -1 sentinel after the attempt whether it succeeds
// or not.
func fetchCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [run-id]",
		Short: "Fetch a catalogued run and fit its scan file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := parseRunID(args[0])
			if err != nil {
				return err
			}

			store, err := analysis.OpenCatalog(settings)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := analysis.NewRunLoader(store).Load(runID)
			if err != nil {
				return err
			}
			printRun(cmd, run)

			settings.Input.Path = run.FilePath
			if settings.Fit.IncidentEnergy == 0 {
				settings.Fit.IncidentEnergy = run.IncidentEnergy
			}
			return analysis.FileAnalysis(cmd.Context(), settings)
		},
	}
}

func parseRunID(arg string) (int64, error) {
	runID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid run ID %q: %w", arg, err)
	}
	return runID, nil
}

func printRun(cmd *cobra.Command, run *catalog.ScanRun) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %d\n", run.RunID)
	fmt.Fprintf(out, "  file:            %s\n", run.FilePath)
	fmt.Fprintf(out, "  map:             %d x %d, %d points\n", run.Rows, run.Cols, run.Points)
	fmt.Fprintf(out, "  incident energy: %.3f keV\n", run.IncidentEnergy)
	fmt.Fprintf(out, "  recorded:        %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
	for _, kv := range run.Metadata {
		fmt.Fprintf(out, "  %s: %g\n", kv.Key, kv.Value)
	}
}
