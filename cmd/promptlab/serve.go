package main

import (
	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/promptlab/internal/api"
	"github.com/matiasleandrokruk/promptlab/internal/server"
)

func (a *app) serveCommand() *cobra.Command {
	var (
		host      string
		port      int
		storeKind string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API: sessions, extraction and document search",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			svc, err := a.openServices(ctx, storeKind)
			if err != nil {
				return err
			}

			deps := api.Deps{
				Sessions:  svc.sessions,
				Extractor: svc.analyzer,
				Health:    svc.providers,
				JWTSecret: a.cfg.JWTSecret,
				Logger:    a.logger,
			}
			if svc.index != nil {
				deps.Search = svc.index
			}

			cfg := server.DefaultConfig()
			cfg.Host = host
			cfg.Port = a.cfg.HTTPPort
			if port > 0 {
				cfg.Port = port
			}
			srv := server.NewServer(api.NewRouter(deps), cfg, a.logger, svc.close)
			if err := srv.Start(ctx); err != nil {
				svc.close() //nolint:errcheck
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "listen host")
	cmd.Flags().IntVar(&port, "port", 0, "listen port; defaults to HTTP_PORT")
	cmd.Flags().StringVar(&storeKind, "store", "memory", "vector store for PDF_PATH: memory or sqlite")
	return cmd
}
