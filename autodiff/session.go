package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sirupsen/logrus"

	"znkr.io/datasource"
	"znkr.io/datasource/autodiff/logging"
	"znkr.io/datasource/autodiff/records"
)

// session keeps a data source in sync with the records of a file.
type session struct {
	path  string
	flags itemFlags
	log   *logrus.Entry

	src  *datasource.Source[records.Record]
	view datasource.DataSource[records.Record] // src, or a filtered view of it
	stop func()
}

// newSession loads the records of path into a new data source. With a non-empty filter, the
// session's view contains only the records whose value fuzzy matches filter.
func newSession(path string, flags itemFlags, filter string, component string) (*session, error) {
	recs, err := records.Load(path, flags.format, flags.key)
	if err != nil {
		return nil, err
	}

	opts := []datasource.Option[records.Record]{
		datasource.WithKey(records.Identity),
		datasource.WithEqual(records.Equal),
		datasource.WithFindMoves[records.Record](flags.moves),
	}
	s := &session{
		path:  path,
		flags: flags,
		log:   logging.New(component).WithField("file", path),
		src:   datasource.New(recs, opts...),
	}
	s.view, s.stop = s.src, s.src.Close
	if filter != "" {
		f := datasource.Filter[records.Record](s.src, func(r records.Record) bool {
			return fuzzy.MatchFold(filter, r.Value)
		}, opts...)
		s.view = f
		s.stop = func() {
			f.Close()
			s.src.Close()
		}
	}
	return s, nil
}

// Close tears down the data sources of the session.
func (s *session) Close() { s.stop() }

// reload reads the file again and updates the data source.
func (s *session) reload() error {
	start := time.Now()
	recs, err := records.Load(s.path, s.flags.format, s.flags.key)
	if err != nil {
		return err
	}
	s.src.SetItems(recs)
	s.log.WithFields(logrus.Fields{
		"items":    len(recs),
		"duration": time.Since(start),
	}).Debug("reloaded")
	return nil
}

// watch reloads the file whenever it changes until ctx is done. Failing reloads are logged, the
// data source keeps the last successfully loaded records.
func (s *session) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, editors often replace files instead of writing them.
	abs, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("starting watch: %w", err)
	}
	s.log.Info("watching for changes")

	for {
		select {
		case event := <-watcher.Events:
			// Absolutely no need to react to chmod.
			if event.Has(fsnotify.Chmod) || filepath.Clean(event.Name) != abs {
				continue
			}
			if _, err := os.Stat(abs); err != nil {
				// Removed or renamed, wait for the file to come back.
				continue
			}
			if err := s.reload(); err != nil {
				s.log.WithError(err).Warn("failed to reload")
			}
		case err := <-watcher.Errors:
			return fmt.Errorf("watching: %w", err)
		case <-ctx.Done():
			return nil
		}
	}
}

// items reads all items of a data source.
func items[T any](ds datasource.DataSource[T]) []T {
	ret := make([]T, 0, ds.Len())
	for i := range ds.Len() {
		v, err := ds.Item(i)
		if err != nil {
			break
		}
		ret = append(ret, v)
	}
	return ret
}
