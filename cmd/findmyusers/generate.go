package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"findmyusers/internal/build"
	"findmyusers/internal/catalog"
	"findmyusers/internal/metrics"
)

var (
	generateCatalog string
	checkCatalog    string
	pruneCatalog    string
	pruneDelete     bool
)

func newRegenerator() *build.Regenerator {
	return &build.Regenerator{Cfg: cfg, Log: logger, Metrics: metrics.New()}
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Merge detail files into the catalog list files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		r := newRegenerator()
		for _, name := range catalogNames(generateCatalog) {
			sum, err := r.Run(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			printSummary(cmd.OutOrStdout(), sum)
		}
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report drift between list files and detail files without writing",
	RunE: func(cmd *cobra.Command, _ []string) error {
		r := newRegenerator()
		dirty := 0
		for _, name := range catalogNames(checkCatalog) {
			rep, err := r.Check(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			printReport(cmd.OutOrStdout(), name, rep)
			if !rep.Clean() {
				dirty++
			}
		}
		if dirty > 0 {
			return fmt.Errorf("%d catalog(s) need regeneration", dirty)
		}
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "List (or delete with --delete) detail files named after leaked form text",
	RunE: func(cmd *cobra.Command, _ []string) error {
		r := newRegenerator()
		out := cmd.OutOrStdout()
		for _, name := range catalogNames(pruneCatalog) {
			res, err := r.Prune(cmd.Context(), name, pruneDelete)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			for _, c := range res.Candidates {
				fmt.Fprintf(out, "%s\t%s\n", c.Path, c.Reason)
			}
			verb := "would delete"
			if pruneDelete {
				verb = "deleted"
			}
			fmt.Fprintf(out, "%s: %s %d file(s)\n", name, verb, len(res.Candidates))
		}
		return nil
	},
}

func printSummary(w io.Writer, s *build.Summary) {
	fmt.Fprintf(w, "%s: %d processed, %d added, %d skipped, %d orphans, %d total (%d bilingual, %d single-locale)\n",
		s.Catalog, s.Processed, s.Added, s.Skipped, s.Orphans, s.Total, s.Bilingual, s.PerLocaleOnly)
	if s.Backup != "" {
		fmt.Fprintf(w, "  backup: %s\n", s.Backup)
	}
	for _, sk := range s.SkippedEntries {
		fmt.Fprintf(w, "  skipped %s: %s\n", sk.Slug, sk.Reason)
	}
	for _, wn := range s.Warnings {
		fmt.Fprintf(w, "  unreadable %s: %s\n", wn.Path, wn.Msg)
	}
	if len(s.OrphanSlugs) > 0 {
		fmt.Fprintf(w, "  orphans: %s\n", strings.Join(s.OrphanSlugs, ", "))
	}
}

func printReport(w io.Writer, name string, r catalog.Report) {
	state := "clean"
	if !r.Clean() {
		state = "dirty"
	}
	fmt.Fprintf(w, "%s: %s, %d list entries, %d bilingual\n", name, state, r.ListEntries, r.Bilingual)
	for _, l := range cfg.Locales {
		fmt.Fprintf(w, "  %s: %d detail files\n", l, r.Coverage[l])
	}
	if len(r.MissingFromList) > 0 {
		fmt.Fprintf(w, "  missing from list: %s\n", strings.Join(r.MissingFromList, ", "))
	}
	if len(r.Orphans) > 0 {
		fmt.Fprintf(w, "  orphans: %s\n", strings.Join(r.Orphans, ", "))
	}
	if len(r.Duplicates) > 0 {
		fmt.Fprintf(w, "  duplicates: %s\n", strings.Join(r.Duplicates, ", "))
	}
	for _, sk := range r.Invalid {
		fmt.Fprintf(w, "  invalid %s: %s\n", sk.Slug, sk.Reason)
	}
}

func init() {
	generateCmd.Flags().StringVar(&generateCatalog, "catalog", "", "Only regenerate this catalog")
	rootCmd.AddCommand(generateCmd)

	checkCmd.Flags().StringVar(&checkCatalog, "catalog", "", "Only check this catalog")
	rootCmd.AddCommand(checkCmd)

	pruneCmd.Flags().StringVar(&pruneCatalog, "catalog", "sites", "Catalog whose detail files are scanned")
	pruneCmd.Flags().BoolVar(&pruneDelete, "delete", false, "Delete the matched files")
	rootCmd.AddCommand(pruneCmd)
}
