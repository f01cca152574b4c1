// Package keymap defines key bindings and action dispatch for the player.
package keymap

// Action represents a user-triggerable action.
type Action string

const (
	// Global actions
	ActionQuit Action = "quit"
	ActionHelp Action = "help"

	// Playback actions
	ActionPlayPause       Action = "play_pause"
	ActionStop            Action = "stop"
	ActionRelease         Action = "release"
	ActionNextTrack       Action = "next_track"
	ActionPrevTrack       Action = "prev_track"
	ActionSeekForward     Action = "seek_forward"
	ActionSeekBack        Action = "seek_back"
	ActionSeekForwardLong Action = "seek_forward_long"
	ActionSeekBackLong    Action = "seek_back_long"
	ActionToggleLoop      Action = "toggle_loop"
	ActionSpeedUp         Action = "speed_up"
	ActionSpeedDown       Action = "speed_down"
	ActionVolumeUp        Action = "volume_up"
	ActionVolumeDown      Action = "volume_down"

	// Queue actions
	ActionMoveUp   Action = "move_up"
	ActionMoveDown Action = "move_down"
	ActionSelect   Action = "select" // enter - jump to the item under the cursor
	ActionUndo     Action = "undo"
	ActionRedo     Action = "redo"

	// Cache actions
	ActionPreload         Action = "preload"
	ActionDownloadOffline Action = "download_offline"
	ActionRemoveOffline   Action = "remove_offline"
)
