package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/syncwatch/internal/config"
	"github.com/hupe1980/syncwatch/internal/logging"
	"github.com/hupe1980/syncwatch/internal/output"
)

func newConfigCommand() *cobra.Command {
	var (
		diff    bool
		outPath string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Config prints the configuration syncwatch would run with, after merging
defaults, the config file, SYNCWATCH_* environment variables and flags.
The deploy block is shown fully resolved.

Use --diff to show only how the effective configuration differs from
the built-in defaults, as a unified diff. Use --output to write the
rendered configuration to a file instead, e.g. to create a starting
.syncwatch.yaml; an existing file is only replaced with --force.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			w := cmd.OutOrStdout()

			if diff {
				d, err := config.Diff(cfg)
				if err != nil {
					return err
				}

				if d == "" {
					_, err = fmt.Fprintln(w, "configuration matches the defaults")
					return err
				}

				_, err = fmt.Fprint(w, d)

				return err
			}

			data, err := config.Render(cfg)
			if err != nil {
				return err
			}

			dest := output.New(outPath, w,
				output.WithOverwrite(force),
				output.WithLogger(logging.FromContext(cmd.Context())),
			)

			return dest.Write(data)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&diff, "diff", false, "show a unified diff against the defaults")
	f.StringVarP(&outPath, "output", "o", "", "write the configuration to this file")
	f.BoolVar(&force, "force", false, "replace an existing --output file")
	cmd.MarkFlagsMutuallyExclusive("diff", "output")

	// Accept every watch and serve flag so their effect can be previewed.
	registerWatchFlags(cmd)
	registerServeFlags(cmd)

	return cmd
}
