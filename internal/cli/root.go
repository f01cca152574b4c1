// Package cli implements the riptide command line.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/llehouerou/riptide/internal/app"
	"github.com/llehouerou/riptide/internal/config"
	"github.com/llehouerou/riptide/internal/errmsg"
	"github.com/llehouerou/riptide/internal/media"
	"github.com/llehouerou/riptide/internal/tags"
)

// Options customizes the command tree. Zero values select the real
// terminal, configuration and environment.
type Options struct {
	Out        io.Writer
	Err        io.Writer
	LoadConfig func() (*config.Config, error)
	Deps       app.Deps
	// RunTUI runs the player UI until the user quits.
	RunTUI func(m app.Model) error
}

func (o *Options) defaults() {
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Err == nil {
		o.Err = os.Stderr
	}
	if o.LoadConfig == nil {
		o.LoadConfig = config.Load
	}
	if o.RunTUI == nil {
		o.RunTUI = runProgram
	}
}

func runProgram(m app.Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// NewRootCmd builds the riptide command tree.
func NewRootCmd(opts Options) *cobra.Command {
	opts.defaults()

	root := &cobra.Command{
		Use:           "riptide",
		Short:         "Queue, cache and play remote media",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)

	root.AddCommand(
		newPlayCmd(&opts),
		newDownloadCmd(&opts),
		newRemoveCmd(&opts),
		newInfoCmd(&opts),
	)
	return root
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	root := NewRootCmd(Options{})
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}

// openRuntime loads configuration and opens a runtime. logToStderr is false
// while the TUI owns the terminal.
func openRuntime(opts *Options, logToStderr bool) (*app.Runtime, error) {
	cfg, err := opts.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("%s", errmsg.Format(errmsg.OpConfigLoad, err))
	}
	deps := opts.Deps
	if logToStderr && deps.Stderr == nil {
		deps.Stderr = opts.Err
	}
	rt, err := app.NewRuntime(cfg, deps)
	if err != nil {
		return nil, fmt.Errorf("%s", errmsg.Format(errmsg.OpInitialize, err))
	}
	return rt, nil
}

// itemFlags are the flags describing a single item given on the command line.
type itemFlags struct {
	id     string
	title  string
	artist string
	mime   string
	live   bool
}

func (f *itemFlags) register(cmd *cobra.Command, withMeta bool) {
	cmd.Flags().StringVar(&f.id, "id", "", "Stable identifier used for the cache key (default: the URI)")
	cmd.Flags().StringVar(&f.mime, "mime", "", "MIME type hint, e.g. application/x-mpegURL")
	if withMeta {
		cmd.Flags().StringVar(&f.title, "title", "", "Display title")
		cmd.Flags().StringVar(&f.artist, "artist", "", "Display artist")
		cmd.Flags().BoolVar(&f.live, "live", false, "Treat the item as a live stream")
	}
}

// item builds a media item for uri. Local paths are made absolute so the
// identifier stays stable across working directories, and their tags fill
// in missing metadata.
func (f *itemFlags) item(uri string) media.Item {
	uri = normalizeURI(uri)
	return tags.Fill(media.Item{
		Identifier: lo.Ternary(f.id != "", f.id, uri),
		URL:        uri,
		Title:      f.title,
		Artist:     f.artist,
		MimeType:   f.mime,
		IsLive:     f.live,
	})
}

func normalizeURI(uri string) string {
	if strings.Contains(uri, "://") || strings.HasPrefix(uri, "/") {
		return uri
	}
	if abs, err := filepath.Abs(uri); err == nil {
		return abs
	}
	return uri
}
