package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/bibpub/internal/pipeline"
)

var (
	updateDryRun bool
	updateEscape bool
)

func init() {
	addUpdateFlags(updateCmd)
	rootCmd.AddCommand(updateCmd)
}

// addUpdateFlags registers the update flags on cmd. The root command shares
// them because it runs update when called without a subcommand.
func addUpdateFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "Print the updated page instead of writing it")
	cmd.Flags().BoolVar(&updateEscape, "escape", false, "HTML-escape titles, authors, and venues")
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Regenerate the publication lists in the HTML page",
	Long: `Regenerate the publication lists in the HTML page.

Reads the bibliography, sorts journal-like entries (article, book, thesis, ...)
and conference-like entries (inproceedings, techreport, ...) by year, newest
first, and replaces the content between the page's marker comments.
The page is only written if both regions could be updated.

Unlike the other commands, a successful update prints the same plain
confirmation line with or without --human:

  Updated publications.html from citations.bib

Errors are still reported as JSON unless --human is set.

Examples:
  bibpub update
  bibpub update --root ~/site
  bibpub update --dry-run > /tmp/preview.html`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	opts, cfg, err := loadOptions()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("escape") {
		opts.Escape = updateEscape
	}

	var res *pipeline.Result
	if updateDryRun {
		res, err = pipeline.Build(opts)
	} else {
		res, err = pipeline.Update(opts)
	}
	if err != nil {
		return err
	}

	logger.Info("publication lists rendered",
		zap.Int("journals", len(res.Journals)),
		zap.Int("conference", len(res.Conference)),
		zap.Int("ignored", res.Ignored),
		zap.Int("unkeyed", res.Unkeyed),
		zap.Bool("changed", res.Changed),
		zap.Bool("dry_run", updateDryRun))

	if updateDryRun {
		fmt.Print(res.Document)
		return nil
	}

	outputHuman("%s\n", updateMessage(cfg.HTMLFile, cfg.BibFile))
	return nil
}

// updateMessage is the confirmation printed after a successful write, in
// every output mode.
func updateMessage(htmlFile, bibFile string) string {
	return fmt.Sprintf("Updated %s from %s", filepath.Base(htmlFile), filepath.Base(bibFile))
}
