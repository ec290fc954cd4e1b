package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"findmyusers/internal/build"
	"findmyusers/internal/metrics"
	"findmyusers/internal/serve"
)

var (
	serveAddr       string
	serveNoWatch    bool
	serveRegenerate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalogs as a JSON API and reload on file changes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if serveAddr != "" {
			cfg.Serve.Addr = serveAddr
		}
		if serveNoWatch {
			cfg.Serve.Watch = false
		}
		m := metrics.New()

		if serveRegenerate {
			r := &build.Regenerator{Cfg: cfg, Log: logger, Metrics: m}
			if _, err := r.RunAll(cmd.Context()); err != nil {
				return fmt.Errorf("regenerate: %w", err)
			}
		}

		s, err := serve.New(serve.Options{Config: cfg, Log: logger, Metrics: m})
		if err != nil {
			return err
		}
		defer s.Close()

		return s.ListenAndServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides serve.addr)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Disable file watching")
	serveCmd.Flags().BoolVar(&serveRegenerate, "regenerate", false, "Regenerate all catalogs before serving")
	rootCmd.AddCommand(serveCmd)
}
