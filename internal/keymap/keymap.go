package keymap

// Binding maps keys to an action, with help text.
type Binding struct {
	Action      Action
	Keys        []string
	Description string
	Context     string // "global", "playback", "queue", "cache"
}

// Bindings contains every key binding.
var Bindings = []Binding{
	// Global
	{ActionQuit, []string{"q", "ctrl+c"}, "Quit", "global"},
	{ActionHelp, []string{"?"}, "Show help", "global"},

	// Playback
	{ActionPlayPause, []string{" "}, "Play/pause", "playback"},
	{ActionStop, []string{"s"}, "Stop", "playback"},
	{ActionRelease, []string{"S"}, "Stop and release the engine", "playback"},
	{ActionNextTrack, []string{"n", "pgdown"}, "Next item", "playback"},
	{ActionPrevTrack, []string{"p", "pgup"}, "Previous item", "playback"},
	{ActionSeekForward, []string{"right"}, "Seek +5s", "playback"},
	{ActionSeekBack, []string{"left"}, "Seek -5s", "playback"},
	{ActionSeekForwardLong, []string{"shift+right"}, "Seek +30s", "playback"},
	{ActionSeekBackLong, []string{"shift+left"}, "Seek -30s", "playback"},
	{ActionToggleLoop, []string{"l"}, "Toggle loop", "playback"},
	{ActionSpeedUp, []string{"]"}, "Speed +0.25x", "playback"},
	{ActionSpeedDown, []string{"["}, "Speed -0.25x", "playback"},
	{ActionVolumeUp, []string{"+", "="}, "Volume +5%", "playback"},
	{ActionVolumeDown, []string{"-"}, "Volume -5%", "playback"},

	// Queue
	{ActionMoveUp, []string{"k", "up"}, "Move up", "queue"},
	{ActionMoveDown, []string{"j", "down"}, "Move down", "queue"},
	{ActionSelect, []string{"enter"}, "Play item", "queue"},
	{ActionUndo, []string{"u", "ctrl+z"}, "Undo queue change", "queue"},
	{ActionRedo, []string{"ctrl+r"}, "Redo queue change", "queue"},

	// Cache
	{ActionPreload, []string{"P"}, "Preload upcoming items now", "cache"},
	{ActionDownloadOffline, []string{"d"}, "Download item for offline use", "cache"},
	{ActionRemoveOffline, []string{"D"}, "Remove offline copy", "cache"},
}

// ByContext returns key bindings filtered by context.
func ByContext(context string) []Binding {
	var result []Binding
	for _, kb := range Bindings {
		if kb.Context == context {
			result = append(result, kb)
		}
	}
	return result
}
