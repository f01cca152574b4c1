package mpris

import (
	"os"
	"path/filepath"

	"github.com/llehouerou/riptide/internal/media"
	"github.com/llehouerou/riptide/internal/tags"
)

// coverNames lists album art filenames in priority order.
var coverNames = []string{
	"cover.jpg", "cover.png", "cover.jpeg",
	"folder.jpg", "folder.png", "folder.jpeg",
	"front.jpg", "front.png",
}

// ArtworkURL returns the item's artwork URL. Local files without one fall
// back to a cover image in the same directory.
func ArtworkURL(item media.Item) string {
	if item.ArtworkURL != "" {
		return item.ArtworkURL
	}
	path, ok := tags.LocalPath(item.URL)
	if !ok {
		return ""
	}
	dir := filepath.Dir(path)
	for _, name := range coverNames {
		cover := filepath.Join(dir, name)
		if _, err := os.Stat(cover); err == nil {
			return "file://" + cover
		}
	}
	return ""
}
