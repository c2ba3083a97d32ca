package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/syncwatch/internal/config"
	"github.com/hupe1980/syncwatch/internal/event"
	"github.com/hupe1980/syncwatch/internal/logging"
	"github.com/hupe1980/syncwatch/internal/serve"
	"github.com/hupe1980/syncwatch/internal/watch"
)

func newServeCommand() *cobra.Command {
	var withWatch bool

	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Serve a directory over HTTP for local testing",
		Long: `Serve exposes a directory (default: the current one) over HTTP with
caching disabled. Use --cors when the pages are loaded from another
origin, and --open to launch the default browser.

With --watch the directory is also watched and deployed exactly like
"syncwatch watch", and every deploy outcome is streamed as JSON to
websocket clients connected to ` + serve.EventsPath + `.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeDirArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, dirArg(args), withWatch)
		},
	}

	registerServeFlags(cmd)
	registerWatchFlags(cmd)
	cmd.Flags().BoolVarP(&withWatch, "watch", "w", false, "also watch the directory and deploy on change")

	return cmd
}

func runServe(cmd *cobra.Command, dir string, withWatch bool) error {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)
	out := cmd.OutOrStdout()

	opts := newServeOptions(cfg, dir)
	opts.Logger = logging.Component(logger, "serve")
	opts.Out = out

	if !withWatch {
		return serveExit(serve.Run(ctx, opts))
	}

	bus := event.NewBus[watch.SyncResult](event.BusOptions{})
	defer bus.Close()

	opts.Bus = bus

	sess, err := watch.NewSession(newWatchOptions(cfg, logger, dir, out, bus))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := sess.Start(ctx); err != nil {
		return watchExit(err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return serve.Run(gctx, opts)
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-sess.Done():
			cancel()
		}

		sess.Stop()

		return nil
	})

	return serveExit(g.Wait())
}

func newServeOptions(cfg *config.Config, dir string) serve.Options {
	opts := serve.DefaultOptions()
	opts.Dir = dir
	opts.Host = cfg.Host
	opts.Port = cfg.Port
	opts.CORS = cfg.CORS
	opts.Open = cfg.Open
	opts.LogRequests = cfg.LogRequests
	opts.NoColor = cfg.NoColor

	return opts
}

// serveExit maps a busy port to exit code 1.
func serveExit(err error) error {
	if err == nil {
		return nil
	}

	var inUse *serve.PortInUseError
	if errors.As(err, &inUse) {
		return &ExitError{Code: 1, Err: err}
	}

	return err
}
