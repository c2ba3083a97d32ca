package cli

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/syncwatch/internal/config"
	"github.com/hupe1980/syncwatch/internal/watch"
)

// Flag values are read back through config.Load, which binds every flag
// of the executing command by name.

// registerWatchFlags adds the watcher and deploy flags to a cobra command.
func registerWatchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Duration("debounce", config.DefaultDebounce, "quiet period after the last change before deploying")
	f.StringSlice("ext", watch.DefaultExtensions(), "file extensions that trigger a deploy")
	f.StringSlice("ignore-dir", watch.DefaultIgnoreDirs(), "directory names that are never watched")
	f.Bool("initial", false, "deploy once right after the watch is attached")
	registerDeployFlags(cmd)
	registerWatchCompletions(cmd)
}

// registerDeployFlags adds the deploy command overrides to a cobra command.
func registerDeployFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("deploy-command", "", "deploy command to run (default: "+config.DefaultDeployCommand+")")
	f.Duration("deploy-timeout", 0, "kill the deploy command after this long (0 means no limit)")
}

// registerServeFlags adds the static server flags to a cobra command.
func registerServeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntP("port", "p", config.DefaultPort, "TCP port to listen on")
	f.String("host", "", "interface to bind (default: all interfaces)")
	f.Bool("cors", false, "send permissive CORS headers")
	f.Bool("open", false, "open the default browser once listening")
	f.Bool("log-requests", false, "log every served request")
}
