// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/llehouerou/riptide/internal/filecache"
	"github.com/llehouerou/riptide/internal/media"
	"github.com/llehouerou/riptide/internal/playback"
	"github.com/llehouerou/riptide/internal/playlist"
)

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Queue operations
	OpQueueSet     Op = "set queue"
	OpQueueJump    Op = "jump to queue item"
	OpQueueRestore Op = "restore queue"
	OpQueueSave    Op = "save queue"

	// Playback operations
	OpPlaybackStart Op = "start playback"
	OpPlaybackPause Op = "pause playback"
	OpPlaybackStop  Op = "stop playback"
	OpPlaybackSeek  Op = "seek"
	OpPlaybackSpeed Op = "change speed"
	OpVolume        Op = "change volume"

	// Cache operations
	OpCacheInfo       Op = "read cache info"
	OpOfflineDownload Op = "download for offline use"
	OpOfflineRemove   Op = "remove offline copy"

	// Initialization
	OpConfigLoad Op = "load configuration"
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %s", op, describe(err))
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %s", op, context, describe(err))
}

// describe replaces known sentinel errors with a plain explanation.
func describe(err error) string {
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return "mpv is not installed or not in PATH"
	case errors.Is(err, media.ErrMissingURL):
		return "the item has no URL"
	case errors.Is(err, media.ErrInvalidURL):
		return "the URL is not absolute"
	case errors.Is(err, playlist.ErrIndexOutOfRange):
		return "no such queue position"
	case errors.Is(err, playback.ErrNoCurrentItem):
		return "nothing is loaded"
	case errors.Is(err, playback.ErrLiveItem):
		return "live streams cannot be downloaded"
	case errors.Is(err, filecache.ErrUnsupportedScheme):
		return "only http(s) URLs can be cached"
	default:
		return err.Error()
	}
}
