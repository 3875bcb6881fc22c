package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/bibpub/internal/pipeline"
	"github.com/matsen/bibpub/internal/publication"
)

var listKind string

func init() {
	listCmd.Flags().StringVar(&listKind, "kind", "all", "Section to list: journals, conference, or all")
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List bibliography entries in page order",
	Long: `List bibliography entries grouped and ordered as they appear on the page.

Examples:
  bibpub list
  bibpub list --kind journals --human`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	switch listKind {
	case "all", "journals", "conference":
	default:
		return fmt.Errorf("invalid --kind %q (valid: journals, conference, all)", listKind)
	}

	opts, _, err := loadOptions()
	if err != nil {
		return err
	}

	sections, err := pipeline.Collect(opts)
	if err != nil {
		return err
	}
	switch listKind {
	case "journals":
		sections.Conference = nil
	case "conference":
		sections.Journals = nil
	}

	if !humanOutput {
		return outputJSON(sections)
	}

	if listKind != "conference" {
		printSection("Journals", sections.Journals)
	}
	if listKind != "journals" {
		printSection("Conference", sections.Conference)
	}
	return nil
}

func printSection(name string, records []publication.Record) {
	outputHuman("%s (%d)\n", name, len(records))
	for _, r := range records {
		year := r.Year
		if year == "" {
			year = "----"
		}
		key := r.Key
		if key == "" {
			key = "(no key, skipped)"
		}
		outputHuman("  %-4s  %-24s  %s\n", year, key,
			truncateString(publication.FormatTitle(r.Title), ListTitleMaxLen))
	}
	outputHuman("\n")
}
