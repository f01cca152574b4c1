// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/llehouerou/riptide/internal/config"
)

// Target decides where log lines go when file logging is off.
type Target struct {
	Fs     afero.Fs
	Dir    string    // log directory, default $XDG_STATE_HOME/riptide/logs
	Stderr io.Writer // nil discards, e.g. while a TUI owns the terminal
	Now    func() time.Time
}

// DefaultDir returns the directory dated log files are written to.
func DefaultDir() string {
	return filepath.Join(xdg.StateHome, "riptide", "logs")
}

// Setup returns a logger configured from cfg. The returned closer releases
// the log file, if one was opened.
func Setup(cfg config.LogConfig, t Target) (*logrus.Logger, io.Closer, error) {
	if t.Fs == nil {
		t.Fs = afero.NewOsFs()
	}
	if t.Dir == "" {
		t.Dir = DefaultDir()
	}
	if t.Now == nil {
		t.Now = time.Now
	}

	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var closer io.Closer = nopCloser{}
	switch {
	case cfg.File:
		if err := t.Fs.MkdirAll(t.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		path := filepath.Join(t.Dir, t.Now().Format("2006-01-02")+".log")
		f, err := t.Fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		logger.SetOutput(f)
		closer = f
	case t.Stderr != nil:
		logger.SetOutput(t.Stderr)
	default:
		logger.SetOutput(io.Discard)
	}
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
