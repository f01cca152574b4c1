package tags

import (
	"strings"

	"github.com/bogem/id3v2/v2"
)

func readID3v2(path string) (Info, error) {
	t, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return Info{}, err
	}
	defer t.Close()

	artist := t.Artist()
	if artist == "" {
		artist = textFrame(t, "TPE2") // album artist
	}
	return Info{
		Title:  strings.TrimSpace(t.Title()),
		Artist: strings.TrimSpace(artist),
		Album:  strings.TrimSpace(t.Album()),
	}, nil
}

func textFrame(t *id3v2.Tag, id string) string {
	frames := t.GetFrames(id)
	if len(frames) == 0 {
		return ""
	}
	if tf, ok := frames[0].(id3v2.TextFrame); ok {
		return tf.Text
	}
	return ""
}
