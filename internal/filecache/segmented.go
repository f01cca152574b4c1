package filecache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/llehouerou/riptide/internal/engine"
)

const (
	localPlaylist = "index.m3u8"
	localManifest = "manifest.mpd"
	maxManifest   = 4 << 20
)

var (
	ErrMasterPlaylist = errors.New("variant playlist points at another master playlist")
	uriAttr           = regexp.MustCompile(`URI="([^"]+)"`)
)

// playlist is the subset of an HLS playlist the store needs.
type playlist struct {
	lines    []string
	variants []string
	segments []int // indexes into lines
}

func parsePlaylist(body string) playlist {
	var pl playlist
	sc := bufio.NewScanner(strings.NewReader(body))
	streamInf := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		pl.lines = append(pl.lines, line)
		switch {
		case line == "":
		case strings.HasPrefix(line, "#EXT-X-STREAM-INF"):
			streamInf = true
		case strings.HasPrefix(line, "#"):
		case streamInf:
			pl.variants = append(pl.variants, line)
			streamInf = false
		default:
			pl.segments = append(pl.segments, len(pl.lines)-1)
		}
	}
	return pl
}

func resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

func isDASH(uri, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "dash") {
		return true
	}
	u, err := url.Parse(uri)
	return err == nil && strings.HasSuffix(strings.ToLower(u.Path), ".mpd")
}

// DownloadSegmented downloads an HLS media playlist segment by segment and
// writes a local playlist next to them. Segments already on disk are kept,
// so a timed-out head download resumes where it stopped. DASH manifests are
// stored as-is; their segments are left to the engine.
func (s *Store) DownloadSegmented(ctx context.Context, req engine.Request) *engine.Task {
	return s.run(ctx, req, func(ctx context.Context, report engine.Reporter) error {
		return s.segmented(ctx, req, report)
	})
}

func (s *Store) fetchText(ctx context.Context, uri string) (string, string, error) {
	resp, err := s.fetch(ctx, uri, nil)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", &StatusError{URI: uri, Code: resp.StatusCode}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxManifest))
	if err != nil {
		return "", "", err
	}
	return string(b), resp.Header.Get("Content-Type"), nil
}

func (s *Store) segmented(ctx context.Context, req engine.Request, report engine.Reporter) error {
	body, contentType, err := s.fetchText(ctx, req.URI)
	if err != nil {
		return err
	}
	dir := s.pathFor(req.Key)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	offline := isOffline(req.Directives)

	if isDASH(req.URI, contentType) {
		n, err := s.writeAtomic(filepath.Join(dir, localManifest), strings.NewReader(body), nil)
		if err != nil {
			return err
		}
		report(engine.Progress{Key: req.Key, BytesCached: n, BytesTotal: -1})
		return s.put(ctx, record{
			Entry:   engine.Entry{Key: req.Key, Bytes: n, Total: -1},
			Path:    dir,
			Offline: offline,
		})
	}

	base := req.URI
	pl := parsePlaylist(body)
	if len(pl.variants) > 0 {
		if base, err = resolve(base, pl.variants[0]); err != nil {
			return err
		}
		if body, _, err = s.fetchText(ctx, base); err != nil {
			return err
		}
		if pl = parsePlaylist(body); len(pl.variants) > 0 {
			return ErrMasterPlaylist
		}
	}

	r := record{Entry: engine.Entry{Key: req.Key, Total: -1}, Path: dir, Offline: offline}
	out := make([]string, len(pl.lines))
	copy(out, pl.lines)
	for i, line := range out {
		if strings.HasPrefix(line, "#") {
			out[i] = uriAttr.ReplaceAllStringFunc(line, func(m string) string {
				abs, err := resolve(base, uriAttr.FindStringSubmatch(m)[1])
				if err != nil {
					return m
				}
				return fmt.Sprintf("URI=%q", abs)
			})
		}
	}

	for n, idx := range pl.segments {
		segURI, err := resolve(base, pl.lines[idx])
		if err != nil {
			return err
		}
		name := fmt.Sprintf("seg%05d%s", n, path.Ext(strings.SplitN(pl.lines[idx], "?", 2)[0]))
		out[idx] = name
		p := filepath.Join(dir, name)

		if fi, err := s.fs.Stat(p); err == nil && fi.Size() > 0 {
			r.Bytes += fi.Size()
			continue
		}
		written, err := s.fetchSegment(ctx, segURI, p)
		if err != nil {
			if putErr := s.put(context.WithoutCancel(ctx), r); putErr != nil {
				s.log.WithError(putErr).Warn("record partial segments")
			}
			return err
		}
		r.Bytes += written
		report(engine.Progress{Key: req.Key, BytesCached: r.Bytes, BytesTotal: -1})
	}

	local := filepath.Join(dir, localPlaylist)
	if _, err := s.writeAtomic(local, strings.NewReader(strings.Join(out, "\n")+"\n"), nil); err != nil {
		return err
	}
	r.Total = r.Bytes
	r.Complete = true
	r.Location = local
	report(engine.Progress{Key: req.Key, BytesCached: r.Bytes, BytesTotal: r.Total})
	return s.put(ctx, r)
}

func (s *Store) fetchSegment(ctx context.Context, uri, dst string) (int64, error) {
	resp, err := s.fetch(ctx, uri, nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, &StatusError{URI: uri, Code: resp.StatusCode}
	}
	return s.writeAtomic(dst, resp.Body, nil)
}
