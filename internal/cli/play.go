package cli

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/llehouerou/riptide/internal/errmsg"
	"github.com/llehouerou/riptide/internal/media"
)

var errNothingToPlay = errors.New("nothing to play: pass a URL or file, or queue something first")

func newPlayCmd(opts *Options) *cobra.Command {
	var flags itemFlags
	var start int

	cmd := &cobra.Command{
		Use:   "play [uri...]",
		Short: "Play URLs or files, or resume the saved queue",
		Long: "Play queues the given URLs or files and opens the player. " +
			"Without arguments the queue of the previous session is restored.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 && (flags.id != "" || flags.title != "" || flags.artist != "") {
				return errors.New("--id, --title and --artist apply to a single item")
			}

			rt, err := openRuntime(opts, false)
			if err != nil {
				return err
			}
			defer rt.Close()

			volume, err := rt.Restore()
			if err != nil {
				rt.Logger.WithError(err).Warn("restoring previous session failed")
			}

			if len(args) > 0 {
				items := lo.Map(args, func(uri string, _ int) media.Item { return flags.item(uri) })
				if err := rt.Playback.SetQueue(items, start); err != nil {
					return fmt.Errorf("%s", errmsg.Format(errmsg.OpQueueSet, err))
				}
				if err := rt.Playback.Play(); err != nil {
					return fmt.Errorf("%s", errmsg.Format(errmsg.OpPlaybackStart, err))
				}
			} else if len(rt.Playback.QueueItems()) == 0 {
				return errNothingToPlay
			}

			if err := rt.EnableDesktop(); err != nil {
				rt.Logger.WithError(err).Warn("desktop integration unavailable")
			}
			return opts.RunTUI(rt.Model(volume))
		},
	}
	flags.register(cmd, true)
	cmd.Flags().IntVar(&start, "start", 0, "Queue index to start from")
	return cmd
}
