// Package tags reads display metadata from local media files.
package tags

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"github.com/llehouerou/riptide/internal/media"
)

// Info is the subset of tag metadata shown in the player.
type Info struct {
	Title  string
	Artist string
	Album  string
}

// Read reads tags from the file at path. MP3 files whose tags the generic
// reader rejects, such as some UTF-16 frames, are retried with a
// dedicated ID3v2 parser.
func Read(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		if strings.EqualFold(filepath.Ext(path), ".mp3") {
			return readID3v2(path)
		}
		return Info{}, err
	}
	artist := m.Artist()
	if artist == "" {
		artist = m.AlbumArtist()
	}
	return Info{
		Title:  strings.TrimSpace(m.Title()),
		Artist: strings.TrimSpace(artist),
		Album:  strings.TrimSpace(m.Album()),
	}, nil
}

// Fill copies tag metadata into the empty display fields of a local item.
// Remote items and untagged files are returned unchanged.
func Fill(item media.Item) media.Item {
	path, ok := LocalPath(item.URL)
	if !ok || item.Title != "" && item.Artist != "" {
		return item
	}
	info, err := Read(path)
	if err != nil {
		return item
	}
	if item.Title == "" {
		item.Title = info.Title
	}
	if item.Artist == "" {
		item.Artist = info.Artist
	}
	return item
}

// LocalPath returns the filesystem path for absolute paths and file URIs.
func LocalPath(uri string) (string, bool) {
	if strings.HasPrefix(uri, "/") {
		return uri, true
	}
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" || u.Path == "" {
		return "", false
	}
	return u.Path, true
}
