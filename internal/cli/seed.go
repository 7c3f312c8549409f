package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/attest/internal/store"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Database string
	Key      string
	File     string
}

type seedFileSnapshot struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

type seedFileFlow struct {
	Name      string             `yaml:"name"`
	Snapshots []seedFileSnapshot `yaml:"snapshots"`
}

type seedFile struct {
	Flows []seedFileFlow `yaml:"flows"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed <checklist-id>",
		Short: "Seed snapshots from a YAML file",
		Long: `Insert snapshots for existing flows from a YAML file. Each snapshot is
written only if no snapshot with that name exists on the flow; stored
snapshots are never overwritten. Flows named in the file but unknown to the
checklist are skipped.

The file lists flows and their snapshots:

  flows:
    - name: checkout
      snapshots:
        - name: total
          value: '{"amount": 42}'

Example:
  attest seed --db ./attest.db --key <api-key> --file seeds.yaml 1`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Key, "key", "", "API key owning the checklist (required)")
	cmd.Flags().StringVar(&opts.File, "file", "", "path to YAML seed file (required)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSeed(opts *SeedOptions, arg string, cmd *cobra.Command) error {
	setupLogging(opts.Verbose)

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid checklist id", err)
	}

	seeds, err := loadSeedFile(opts.File)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load seed file", err)
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

	seeded := 0
	for _, flow := range seeds.Flows {
		for _, snap := range flow.Snapshots {
			if err := st.SeedSnapshot(cmd.Context(), checklist.ID, flow.Name, snap.Name, snap.Value); err != nil {
				return WrapExitError(ExitCommandError, "failed to seed snapshot", err)
			}
			seeded++
		}
	}

	if opts.Format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]int{"seeded": seeded})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d snapshot(s).\n", seeded)
	return nil
}

func loadSeedFile(path string) (*seedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var seeds seedFile
	if err := yaml.Unmarshal(raw, &seeds); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if seeds.Flows == nil {
		return nil, fmt.Errorf("%s: missing flows list", path)
	}
	for i, f := range seeds.Flows {
		if f.Name == "" {
			return nil, fmt.Errorf("%s: flow %d has no name", path, i)
		}
		for j, snap := range f.Snapshots {
			if snap.Name == "" {
				return nil, fmt.Errorf("%s: flow %q snapshot %d has no name", path, f.Name, j)
			}
		}
	}
	return &seeds, nil
}
