package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/urizennnn/swebench-contributions/analysis"
	"github.com/urizennnn/swebench-contributions/config"
)

var showCmd = &cobra.Command{
	Use:   "show [FILE]",
	Short: "Print the summary of a saved results file (default: last output)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			st, err := config.LoadState(globalFlags.statePath)
			if err != nil {
				return err
			}
			path = st.LastOutput
		}
		if path == "" {
			return fmt.Errorf("no results file given and none remembered")
		}
		return showResults(cmd.OutOrStdout(), path)
	},
}

func showResults(w io.Writer, path string) error {
	out, err := analysis.LoadFile(path)
	if err != nil {
		return err
	}
	m := out.Metadata
	fmt.Fprintf(w, "Loaded %d results from %s", len(out.Results), path)
	if m.DateAnalyzed != "" {
		fmt.Fprintf(w, " (%s mode, %s)", m.AnalysisMode, m.DateAnalyzed)
	}
	fmt.Fprintln(w)
	analysis.PrintSummary(w, out)
	return nil
}
