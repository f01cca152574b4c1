package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/llehouerou/riptide/internal/engine"
	"github.com/llehouerou/riptide/internal/errmsg"
)

func newDownloadCmd(opts *Options) *cobra.Command {
	var flags itemFlags

	cmd := &cobra.Command{
		Use:   "download <uri>",
		Short: "Download an item for offline playback",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(opts, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			item := flags.item(args[0])
			task, err := rt.Playback.DownloadOffline(ctx, item)
			if err != nil {
				return fmt.Errorf("%s", errmsg.FormatWith(errmsg.OpOfflineDownload, item.DisplayTitle(), err))
			}

			out := cmd.OutOrStdout()
			for p := range task.Progress() {
				fmt.Fprintf(out, "\r%s", progressLine(p))
			}
			if err := task.Err(); err != nil {
				fmt.Fprintln(out)
				return fmt.Errorf("%s", errmsg.FormatWith(errmsg.OpOfflineDownload, item.DisplayTitle(), err))
			}
			return printSaved(out, item.DisplayTitle(), task.Last())
		},
	}
	flags.register(cmd, false)
	return cmd
}

// progressLine formats one progress report, e.g. "12 MB / 40 MB (30%)".
func progressLine(p engine.Progress) string {
	cached := humanize.Bytes(uint64(max(p.BytesCached, 0)))
	if p.BytesTotal <= 0 {
		return cached
	}
	pct := min(float64(p.BytesCached)/float64(p.BytesTotal)*100, 100)
	return fmt.Sprintf("%s / %s (%.0f%%)", cached, humanize.Bytes(uint64(p.BytesTotal)), pct)
}

func printSaved(w io.Writer, title string, last engine.Progress) error {
	_, err := fmt.Fprintf(w, "\rSaved %s (%s)\n", title, humanize.Bytes(uint64(max(last.BytesCached, 0))))
	return err
}
