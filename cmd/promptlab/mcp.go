package main

import (
	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/promptlab/internal/mcpserver"
)

func (a *app) mcpCommand() *cobra.Command {
	var storeKind string
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tools over the Model Context Protocol on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			svc, err := a.openServices(ctx, storeKind)
			if err != nil {
				return err
			}
			defer svc.close() //nolint:errcheck

			deps := mcpserver.Deps{
				Extractor: svc.analyzer,
				Sessions:  svc.sessions,
				Logger:    a.logger,
			}
			if svc.index != nil {
				deps.Search = svc.index
			}
			if err := mcpserver.Run(ctx, deps); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&storeKind, "store", "memory", "vector store for PDF_PATH: memory or sqlite")
	return cmd
}
