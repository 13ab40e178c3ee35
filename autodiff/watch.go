package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"znkr.io/datasource"
	"znkr.io/datasource/autodiff/records"
	"znkr.io/datasource/change"
)

func watchCmd() *cobra.Command {
	var (
		flags  itemFlags
		filter string
	)
	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Logs the changes of the items in FILE whenever it's written",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.resolve(cmd)
			s, err := newSession(args[0], flags, filter, "watch")
			if err != nil {
				return err
			}
			defer s.Close()

			labels := datasource.Map(s.view, records.Record.String)
			defer labels.Close()
			labels.Subscribe(func(c change.Change) {
				logChange(s.log, labels, c)
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			s.log.WithField("items", s.view.Len()).Info("loaded")
			return s.watch(ctx)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&filter, "filter", "", "only observe items that fuzzy match this pattern")
	return cmd
}

// logChange writes one log line per changed item. Labels are read from ds, which has to be in
// the state after c.
func logChange(log *logrus.Entry, ds datasource.DataSource[string], c change.Change) {
	label := func(i int) string {
		v, err := ds.Item(i)
		if err != nil {
			return fmt.Sprintf("<%v>", err)
		}
		return v
	}

	for _, c := range change.Leaves(c) {
		l := log.WithField("kind", c.Kind().String())
		switch c := c.(type) {
		case change.DeleteItems:
			for _, i := range c.Indices {
				l.WithField("index", i).Info("deleted")
			}
		case change.InsertItems:
			for _, i := range c.Indices {
				l.WithFields(logrus.Fields{"index": i, "item": label(i)}).Info("inserted")
			}
		case change.MoveItem:
			l.WithFields(logrus.Fields{"from": c.From, "to": c.To, "item": label(c.To)}).Info("moved")
		case change.ReloadItem:
			l.WithFields(logrus.Fields{"index": c.Index, "old": c.Old, "item": label(c.Index)}).Info("reloaded")
		default:
			l.Warn("unexpected change")
		}
	}
}
