package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"findmyusers/internal/csvimport"
)

var (
	importCatalog   string
	importOverwrite bool
)

var importCSVCmd = &cobra.Command{
	Use:   "import-csv <file.csv>",
	Short: "Convert a spreadsheet export into per-locale detail JSON files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, ok := cfg.Catalog(importCatalog)
		if !ok {
			return fmt.Errorf("unknown catalog %q", importCatalog)
		}
		im := &csvimport.Importer{
			DetailDir: cfg.DetailRoot(cat),
			Locales:   cfg.Locales,
			Overwrite: importOverwrite,
			Log:       logger,
		}
		res, err := im.ImportFile(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, s := range res.Skipped {
			fmt.Fprintf(out, "line %d skipped: %s\n", s.Line, s.Reason)
		}
		fmt.Fprintf(out, "%d written, %d already present, %d skipped\n",
			len(res.Written), len(res.Exists), len(res.Skipped))
		return nil
	},
}

func init() {
	importCSVCmd.Flags().StringVar(&importCatalog, "catalog", "sites", "Catalog receiving the detail files")
	importCSVCmd.Flags().BoolVar(&importOverwrite, "overwrite", false, "Replace existing detail files")
	rootCmd.AddCommand(importCSVCmd)
}
