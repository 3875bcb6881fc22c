package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/bibpub/internal/pipeline"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the bibliography and page markers without writing",
	Long: `Validate the bibliography and page markers without writing anything.

Reports:
  - repeated citation keys and DOIs in the bibliography
  - missing, repeated, or reversed marker comments in the page
  - markers that appear outside HTML comments (warning)
  - entries without a citation key, which update skips (warning)

Exits with status 4 if any error is found; warnings alone do not fail.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

// CheckResponse is the JSON response of the check command.
type CheckResponse struct {
	Status string `json:"status"` // "ok" or "failed"
	*pipeline.Report
}

func runCheck(cmd *cobra.Command, args []string) error {
	opts, _, err := loadOptions()
	if err != nil {
		return err
	}

	report, err := pipeline.Check(opts)
	if err != nil {
		return err
	}

	logger.Info("check finished",
		zap.Int("entries", report.Entries),
		zap.Int("duplicates", len(report.Duplicates)),
		zap.Int("marker_errors", len(report.MarkerErrors)),
		zap.Int("warnings", len(report.Warnings)))

	status := "ok"
	if !report.OK() {
		status = "failed"
	}

	if humanOutput {
		outputHuman("%d entries in %s\n", report.Entries, opts.BibPath)
		for _, d := range report.Duplicates {
			outputHuman("error: line %d: duplicate %s %q (also %s)\n", d.Line, d.Field, d.Value, d.First)
		}
		for _, msg := range report.MarkerErrors {
			outputHuman("error: %s\n", msg)
		}
		for _, msg := range report.Warnings {
			outputHuman("warning: %s\n", msg)
		}
		outputHuman("%s\n", status)
	} else {
		outputJSON(CheckResponse{Status: status, Report: report})
	}

	if !report.OK() {
		return errCheckFailed
	}
	return nil
}
