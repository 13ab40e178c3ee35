package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"znkr.io/datasource/autodiff/report"
	"znkr.io/datasource/autodiff/server"
	"znkr.io/datasource/change"
)

func serveCmd() *cobra.Command {
	var (
		flags  itemFlags
		filter string
		addr   string
	)
	cmd := &cobra.Command{
		Use:   "serve FILE",
		Short: "Serves a live report of the changes of the items in FILE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.resolve(cmd)
			if !cmd.Flags().Changed("addr") {
				addr = cfg.Server.Addr
			}

			s, err := newSession(args[0], flags, filter, "serve")
			if err != nil {
				return err
			}
			defer s.Close()

			initial := &report.Report{
				Title: args[0],
				Time:  time.Now(),
				New:   items(s.view),
				Lang:  flags.lang,
			}

			// Update the report before any websocket client is notified: Clients subscribe when
			// they connect, after this subscriber. Changes are only published once the watch
			// starts, srv is set by then.
			var srv *server.Server
			seq := 0
			prev := initial.New
			s.view.Subscribe(func(c change.Change) {
				batch, ok := c.(change.Batch)
				if !ok {
					batch = change.Batch{Changes: []change.Change{c}}
				}
				seq++
				r := &report.Report{
					Seq:   seq,
					Title: args[0],
					Time:  time.Now(),
					Old:   prev,
					New:   items(s.view),
					Batch: batch,
					Lang:  flags.lang,
				}
				prev = r.New
				if err := srv.Update(r); err != nil {
					s.log.WithError(err).Error("failed to update report")
					return
				}
				s.log.WithField("seq", seq).Info(report.Summary(batch))
			})

			srv, err = server.Run(addr, s.view, initial, server.Options{
				Title:   args[0],
				History: cfg.Server.History,
			})
			if err != nil {
				return err
			}
			defer srv.Shutdown(context.Background())

			s.log.WithField("addr", srv.Addr().String()).Info("serving, press Ctrl-C to shut down")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			errc := make(chan error, 1)
			go func() { errc <- s.watch(ctx) }()

			select {
			case err := <-errc:
				return err
			case err := <-srv.Error():
				stop()
				return fmt.Errorf("serving: %w", err)
			case <-ctx.Done():
				fmt.Print("\r") // remove Ctrl-C output characters
				s.log.Info("received Ctrl-C, shutting down")
				return <-errc
			}
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&filter, "filter", "", "only observe items that fuzzy match this pattern")
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "address to listen on")
	return cmd
}
