package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MrWong99/podium/internal/analysis"
	"github.com/MrWong99/podium/internal/breakdown"
	"github.com/MrWong99/podium/pkg/speech"
)

func newAnalyzeCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analyze <video>",
		Short: "Submit one recording to the analysis backend and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath(cmd))
			if err != nil {
				return err
			}
			client, err := analysis.New(cfg.Backend.URL, analysis.WithTimeout(cfg.Backend.Timeout))
			if err != nil {
				return err
			}
			rep, err := client.AnalyzeFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			return printReport(cmd.OutOrStdout(), rep, rep.Fillers(cfg.FillerWords()))
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw report as JSON")
	return cmd
}

// printReport writes the summary, the category breakdown and the filler
// tally as plain text.
func printReport(w io.Writer, rep *analysis.Report, fillers []speech.FillerWord) error {
	if rep.Summary != "" {
		fmt.Fprintf(w, "%s\n\n", rep.Summary)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tSCORE\tSUGGESTION")
	for _, it := range breakdown.FromReport(rep, fillers) {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", it.Title, scoreText(it), it.Suggestion)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(fillers) == 0 {
		return nil
	}
	parts := make([]string, 0, len(fillers))
	for _, f := range fillers {
		parts = append(parts, fmt.Sprintf("%s ×%d", f.Word, f.Count))
	}
	_, err := fmt.Fprintf(w, "\nFiller words: %s\n", strings.Join(parts, ", "))
	return err
}

func scoreText(it breakdown.Item) string {
	switch {
	case !it.Available:
		return "n/a"
	case it.Unit == "%":
		return fmt.Sprintf("%.1f%%", it.Score)
	default:
		return fmt.Sprintf("%.1f %s", it.Score, it.Unit)
	}
}
