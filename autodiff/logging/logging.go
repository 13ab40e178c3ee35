// Package logging provides the structured loggers of autodiff.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"znkr.io/datasource/autodiff/config"
)

var (
	logger    = newLogger(os.Stderr)
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex
)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(textFormatter(out))
	return l
}

func textFormatter(out io.Writer) logrus.Formatter {
	color := false
	if f, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &logrus.TextFormatter{
		DisableColors: !color,
		FullTimestamp: true,
	}
}

// Configure applies the log configuration to all loggers, including the ones already handed out.
func Configure(cfg config.Log) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	logger.SetLevel(level)

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(textFormatter(logger.Out))
	}
	return nil
}

// SetOutput redirects all log output to w.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// New returns the logger of a component. Every entry it writes carries a component field.
func New(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[component]; ok {
		return l
	}
	l := logger.WithField("component", component)
	loggers[component] = l
	return l
}
