package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/syncwatch/internal/version"
)

func newVersionCommand() *cobra.Command {
	var (
		jsonOutput bool
		constraint string
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Display the syncwatch version, git commit, build date, Go version, and platform.

Use --check to test the binary against a semantic version constraint,
the same check applied to the "requires" key of .syncwatch.yaml.
Development builds satisfy every constraint.`,
		Example: `  syncwatch version
  syncwatch version --json
  syncwatch version --check ">= 1.2, < 2"`,
		Args: cobra.NoArgs,
		// Override parent PersistentPreRunE — version needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.GetInfo()

			if constraint != "" {
				ok, err := info.Satisfies(constraint)
				if err != nil {
					return &ExitError{Code: 2, Err: err}
				}

				if !ok {
					return &ExitError{Code: 1, Err: fmt.Errorf("syncwatch %s does not satisfy %q", info.Version, constraint)}
				}

				_, err = fmt.Fprintf(cmd.OutOrStdout(), "syncwatch %s satisfies %q\n", info.Version, constraint)

				return err
			}

			if jsonOutput {
				j, err := info.JSON()
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), j)

				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), info.String())

			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output version info as JSON")
	cmd.Flags().StringVar(&constraint, "check", "", "exit 1 unless the version satisfies this semver constraint")
	cmd.MarkFlagsMutuallyExclusive("json", "check")

	return cmd
}
