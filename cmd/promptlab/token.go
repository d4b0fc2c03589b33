package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/promptlab/internal/infra/config"
	"github.com/matiasleandrokruk/promptlab/pkg/auth"
)

func (a *app) tokenCommand() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token SUBJECT",
		Short: "Issue a bearer token for the HTTP API, signed with JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if a.cfg.JWTSecret == "" {
				return &config.ConfigError{Var: "JWT_SECRET", Msg: "not set"}
			}
			token, err := auth.GenerateJWT([]byte(a.cfg.JWTSecret), args[0], ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, token)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTTL, "token lifetime")
	return cmd
}
