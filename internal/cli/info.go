package cli

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/llehouerou/riptide/internal/cachepolicy"
	"github.com/llehouerou/riptide/internal/errmsg"
	"github.com/llehouerou/riptide/internal/filecache"
)

func newInfoCmd(opts *Options) *cobra.Command {
	var flags itemFlags

	cmd := &cobra.Command{
		Use:   "info <uri>",
		Short: "Show what the cache holds for an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(opts, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			item := flags.item(args[0])
			info, err := rt.Playback.CacheInfo(cmd.Context(), item)
			if err != nil {
				return fmt.Errorf("%s", errmsg.FormatWith(errmsg.OpCacheInfo, item.DisplayTitle(), err))
			}
			usage, err := rt.Store.Usage(cmd.Context())
			if err != nil {
				return fmt.Errorf("%s", errmsg.Format(errmsg.OpCacheInfo, err))
			}
			return printInfo(cmd.OutOrStdout(), cachepolicy.KeyFor(item), info, usage)
		},
	}
	flags.register(cmd, false)
	return cmd
}

func printInfo(w io.Writer, key string, info cachepolicy.CacheInfo, usage filecache.Usage) error {
	total := "unknown"
	if t, ok := info.TotalBytes.Get(); ok {
		total = humanize.Bytes(uint64(t))
	}
	fraction := "-"
	if f, ok := info.Fraction().Get(); ok {
		fraction = fmt.Sprintf("%.0f%%", f*100)
	}
	offline := "no"
	if info.OfflineReady {
		offline = "yes"
	}
	_, err := fmt.Fprintf(w,
		"key:      %s\ncached:   %s of %s (%s)\noffline:  %s\ncache:    %d entries, %s (%s offline)\n",
		key,
		humanize.Bytes(uint64(info.BytesCached)), total, fraction,
		offline,
		usage.Entries, humanize.Bytes(uint64(usage.Bytes)), humanize.Bytes(uint64(usage.OfflineBytes)),
	)
	return err
}
