package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/attest/internal/store"
)

// KeyOptions holds flags for the key subcommands.
type KeyOptions struct {
	*RootOptions
	Database string
}

// NewKeyCommand creates the key command group.
func NewKeyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &KeyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage API keys",
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(newKeyCreateCommand(opts))
	cmd.AddCommand(newKeyDeleteCommand(opts))
	return cmd
}

func newKeyCreateCommand(opts *KeyOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "create",
		Short:         "Create a new API key",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(opts.Database)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open database", err)
			}
			defer st.Close()

			key, err := st.CreateAPIKey(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to create api key", err)
			}

			if opts.Format == "json" {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"api_key": key.Key})
			}
			fmt.Fprintln(cmd.OutOrStdout(), key.Key)
			return nil
		},
	}
}

func newKeyDeleteCommand(opts *KeyOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <key>",
		Short:         "Delete an API key and everything it owns",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(opts.Database)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open database", err)
			}
			defer st.Close()

			key, err := st.APIKeyByKey(cmd.Context(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				return NewExitError(ExitCommandError, "api key not found")
			}
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to look up api key", err)
			}

			if err := st.DeleteAPIKey(cmd.Context(), key.ID); err != nil {
				return WrapExitError(ExitCommandError, "failed to delete api key", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted.")
			return nil
		},
	}
}
