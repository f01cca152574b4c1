package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/llehouerou/riptide/internal/errmsg"
)

func newRemoveCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove everything cached for an identifier",
		Long: "Remove deletes the cached and offline copies for an identifier. " +
			"Items added without --id use their URI as identifier.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(opts, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			id := args[0]
			if err := rt.Playback.RemoveOffline(cmd.Context(), id); err != nil {
				return fmt.Errorf("%s", errmsg.FormatWith(errmsg.OpOfflineRemove, id, err))
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
			return err
		},
	}
}
