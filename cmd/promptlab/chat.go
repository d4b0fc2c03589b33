package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/promptlab/internal/console"
	"github.com/matiasleandrokruk/promptlab/internal/domain/session"
	"github.com/matiasleandrokruk/promptlab/internal/infra/eventbus"
)

func (a *app) chatCommand() *cobra.Command {
	var (
		askKey  bool
		stream  bool
		history string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat about employee profiles; type exit to quit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if history != "" {
				switch mode := session.HistoryMode(history); mode {
				case session.HistoryFull, session.HistoryContext:
					a.cfg.HistoryMode = history
				default:
					return &usageError{err: fmt.Errorf("--history must be full or context, got %q", history)}
				}
			}
			provider, err := a.chatProvider(askKey)
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			bus := eventbus.New()
			defer bus.Close()

			con := console.New(a.out)
			con.Banner("Profiles chatbot")
			s := session.New(provider, a.sessionConfig(bus))

			src := a.contextSource()
			if src == nil {
				con.Info("No profile source configured; chatting without context.")
			} else if _, err := s.Initialize(ctx, src); err != nil {
				con.Warn("Error initializing context: %v", err)
			}

			err = session.NewREPL(s, con, stream).Run(ctx, a.in)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&askKey, "ask-key", false, "prompt for the API key when it is not configured")
	cmd.Flags().BoolVar(&stream, "stream", false, "print replies fragment by fragment")
	cmd.Flags().StringVar(&history, "history", "", "history mode: full or context; overrides HISTORY_MODE")
	return cmd
}
