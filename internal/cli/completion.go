package cli

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/syncwatch/internal/config"
	"github.com/hupe1980/syncwatch/internal/watch"
)

func newCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion <shell>",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for syncwatch.

Besides subcommands and flag names the scripts complete the watched
directory argument, --config files, --log-level and --log-format values,
--ext with the default extensions and --ignore-dir with directories.

To load completions:

Bash:
  $ source <(syncwatch completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ syncwatch completion bash > /etc/bash_completion.d/syncwatch

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ syncwatch completion zsh > "${fpath[1]}/_syncwatch"

Fish:
  $ syncwatch completion fish > ~/.config/fish/completions/syncwatch.fish

PowerShell:
  PS> syncwatch completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> syncwatch completion powershell > syncwatch.ps1
  # and source this file from your PowerShell profile.
`,
		// Override parent PersistentPreRunE — completion needs no config.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Args:              cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:         []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(w, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(w)
			case "fish":
				return cmd.Root().GenFishCompletion(w, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(w)
			}

			return nil
		},
	}

	return cmd
}

// completeDirArg completes the optional directory argument of watch and
// serve with directories only.
func completeDirArg(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	return nil, cobra.ShellCompDirectiveFilterDirs
}

// registerGlobalCompletions adds value completion for the persistent flags.
func registerGlobalCompletions(cmd *cobra.Command) {
	_ = cmd.MarkPersistentFlagFilename("config", "yaml", "yml")
	_ = cmd.RegisterFlagCompletionFunc("log-level", cobra.FixedCompletions(
		[]string{config.LogLevelDebug, config.LogLevelInfo, config.LogLevelWarn, config.LogLevelError},
		cobra.ShellCompDirectiveNoFileComp,
	))
	_ = cmd.RegisterFlagCompletionFunc("log-format", cobra.FixedCompletions(
		[]string{config.LogFormatText, config.LogFormatJSON},
		cobra.ShellCompDirectiveNoFileComp,
	))
}

// registerWatchCompletions adds value completion for the watch flags.
func registerWatchCompletions(cmd *cobra.Command) {
	_ = cmd.RegisterFlagCompletionFunc("ext", cobra.FixedCompletions(
		watch.DefaultExtensions(),
		cobra.ShellCompDirectiveNoFileComp,
	))
	_ = cmd.RegisterFlagCompletionFunc("ignore-dir", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveFilterDirs
	})
}
