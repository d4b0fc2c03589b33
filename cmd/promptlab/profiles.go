package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matiasleandrokruk/promptlab/internal/domain/profile"
)

func (a *app) profilesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage the employee profiles used as chat context",
	}
	cmd.AddCommand(a.profilesImportCommand(), a.profilesListCommand())
	return cmd
}

func (a *app) openProfileStore(cmd *cobra.Command) (profile.Store, error) {
	if a.cfg.ProfileSource == "none" {
		return nil, &usageError{err: fmt.Errorf("PROFILE_SOURCE is none; choose mongo, sqlite or postgres")}
	}
	return profile.Open(commandContext(cmd), a.profileOptions())
}

func (a *app) profilesImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Upsert profiles from a YAML file (- for stdin) into PROFILE_SOURCE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = a.in
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("profiles import: %w", err)
				}
				defer f.Close()
				r = f
			}

			store, err := a.openProfileStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			w, ok := store.(profile.Writer)
			if !ok {
				return fmt.Errorf("profiles import: %s store is read-only", a.cfg.ProfileSource)
			}
			n, err := profile.Import(commandContext(cmd), w, r)
			if err != nil {
				return fmt.Errorf("profiles import: %w", err)
			}
			fmt.Fprintf(a.out, "imported %d profiles into %s\n", n, a.cfg.ProfileSource) //nolint:errcheck
			return nil
		},
	}
}

func (a *app) profilesListCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the profiles, as the chatbot sees them or as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "context" && format != "yaml" {
				return &usageError{err: fmt.Errorf("--output must be context or yaml, got %q", format)}
			}
			store, err := a.openProfileStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			profiles, err := store.Profiles(commandContext(cmd))
			if err != nil {
				return &profile.SourceError{Source: a.cfg.ProfileSource, Err: err}
			}
			if format == "yaml" {
				enc := yaml.NewEncoder(a.out)
				defer enc.Close()
				return enc.Encode(profiles)
			}
			if len(profiles) == 0 {
				fmt.Fprintln(a.out, "No profiles found.") //nolint:errcheck
				return nil
			}
			_, err = fmt.Fprint(a.out, profile.FormatAll(profiles))
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "context", "output format: context or yaml")
	return cmd
}
