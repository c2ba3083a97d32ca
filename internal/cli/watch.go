package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hupe1980/syncwatch/internal/config"
	"github.com/hupe1980/syncwatch/internal/deploy"
	"github.com/hupe1980/syncwatch/internal/event"
	"github.com/hupe1980/syncwatch/internal/logging"
	"github.com/hupe1980/syncwatch/internal/watch"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch a directory and deploy when changes settle",
		Long: `Watch monitors a directory (default: the current one) recursively and
runs the deploy command once a burst of relevant changes has settled.

Every change restarts the debounce window; the deploy runs when no
relevant change has arrived for the whole window. Changes made while a
deploy is running are collected and deployed afterwards. Hidden
directories and the --ignore-dir names are not watched.

The deploy command is resolved on PATH. A command line containing
spaces runs through the shell. A nonzero exit is reported with the
command's stderr; the watcher keeps running and deploys again on the
next change.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeDirArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args)
		},
	}

	registerWatchFlags(cmd)

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)

	opts := newWatchOptions(cfg, logger, dirArg(args), cmd.OutOrStdout(), nil)

	return watchExit(watch.Run(ctx, opts))
}

// newWatchOptions maps the effective configuration onto session options
// whose sync action runs the configured deploy command.
func newWatchOptions(cfg *config.Config, logger *slog.Logger, dir string, out io.Writer, bus *event.Bus[watch.SyncResult]) watch.Options {
	deployCmd := newDeployCommand(cfg)
	deployLogger := logging.Component(logger, "deploy")

	opts := watch.DefaultOptions()
	opts.Root = dir
	opts.Debounce = cfg.Debounce
	opts.Extensions = cfg.Extensions
	opts.IgnoreDirs = cfg.IgnoreDirs
	opts.Initial = cfg.Initial
	opts.Bus = bus
	opts.Command = deployCmd.String()
	opts.Logger = logging.Component(logger, "watch")
	opts.Out = out
	opts.NoColor = cfg.NoColor
	opts.OnSync = func(ctx context.Context) error {
		return runDeploy(ctx, deployCmd, deployLogger)
	}

	return opts
}

func newDeployCommand(cfg *config.Config) deploy.Command {
	spec := cfg.EffectiveDeploy()

	c := deploy.Parse(spec.Command, spec.Args)
	c.Dir = spec.Dir
	c.Env = spec.Env
	c.Timeout = spec.Timeout

	return c
}

func runDeploy(ctx context.Context, c deploy.Command, logger *slog.Logger) error {
	logger.Debug("running deploy command", slog.String("command", c.String()))

	res, err := c.Run(ctx)
	if res != nil {
		logger.Debug("deploy command finished",
			slog.Int("exitCode", res.ExitCode),
			slog.Duration("duration", res.Duration),
			slog.String("stdout", res.Stdout),
		)
	}

	return err
}

// watchExit maps a failure to attach the watcher to exit code 1.
func watchExit(err error) error {
	if err == nil {
		return nil
	}

	var initErr *watch.WatchInitError
	if errors.As(err, &initErr) {
		return &ExitError{Code: 1, Err: err}
	}

	return err
}

func dirArg(args []string) string {
	if len(args) == 0 {
		return "."
	}

	return args[0]
}
