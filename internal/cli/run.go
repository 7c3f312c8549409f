package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/attest/internal/engine"
	"github.com/roach88/attest/internal/model"
	"github.com/roach88/attest/internal/store"
	"github.com/roach88/attest/internal/worker"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Key      string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <checklist-id>",
		Short: "Run a checklist once and print the results",
		Long: `Execute one checklist run: send the checklist's known flows to its worker,
compare the fresh results against stored snapshots, and print each assertion
as NEW, MATCH, or MISS.

Exits 1 when any assertion misses, so the command can gate CI jobs.

Example:
  attest run --db ./attest.db --key <api-key> 1
  attest run --db ./attest.db --key <api-key> --format json 1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChecklist(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Key, "key", "", "API key owning the checklist (required)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

func runChecklist(opts *RunOptions, arg string, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid checklist id", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	key, err := st.APIKeyByKey(cmd.Context(), opts.Key)
	if errors.Is(err, store.ErrNotFound) {
		return NewExitError(ExitCommandError, "api key not found")
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to look up api key", err)
	}

	checklist, err := st.Checklist(cmd.Context(), id, key.ID)
	if errors.Is(err, store.ErrNotFound) {
		return NewExitError(ExitCommandError, "checklist not found")
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to look up checklist", err)
	}

	eng := engine.New(st, worker.NewClient(0))
	flows, err := eng.Run(cmd.Context(), checklist)
	if err != nil {
		return WrapExitError(ExitCommandError, "run failed", err)
	}

	if opts.Format == "json" {
		payload := map[string]any{"data": map[string]any{"flows": flows}}
		if err := json.NewEncoder(cmd.OutOrStdout()).Encode(payload); err != nil {
			return err
		}
	} else {
		printFlows(cmd, flows)
	}

	for _, f := range flows {
		if f.Summary.Miss > 0 {
			return NewExitError(ExitFailure, "run reported misses")
		}
	}
	return nil
}

func printFlows(cmd *cobra.Command, flows []model.Flow) {
	out := cmd.OutOrStdout()
	for _, f := range flows {
		fmt.Fprintf(out, "FLOW %s  (match=%d miss=%d new=%d)\n",
			f.Name, f.Summary.Match, f.Summary.Miss, f.Summary.New)
		for _, a := range f.Assertions {
			fmt.Fprintf(out, "  %-5s %s\n", a.Result, a.Name)
			if a.Result == model.ResultMiss {
				fmt.Fprintf(out, "        expected: %s\n", a.ExpectedSnapshot)
				fmt.Fprintf(out, "        observed: %s\n", a.Snapshot)
			}
		}
	}
}
