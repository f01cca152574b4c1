package filecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/llehouerou/riptide/internal/engine"
)

func checkScheme(uri string) error {
	u, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedScheme, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, uri)
	}
	return nil
}

// StatusError is returned when the origin answers with an unexpected status.
type StatusError struct {
	URI  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URI, e.Code)
}

// progressWriter reports cumulative bytes after every write.
type progressWriter struct {
	w      io.Writer
	key    string
	base   int64
	total  int64
	n      int64
	report engine.Reporter
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.n += int64(n)
	p.report(engine.Progress{Key: p.key, BytesCached: p.base + p.n, BytesTotal: p.total})
	return n, err
}

// contentRangeTotal parses the complete length out of a Content-Range
// header, e.g. "bytes 0-99/1000" or "bytes */1000". -1 if unknown.
func contentRangeTotal(h string) int64 {
	_, total, ok := strings.Cut(h, "/")
	if !ok {
		return -1
	}
	n, err := strconv.ParseInt(strings.TrimSpace(total), 10, 64)
	if err != nil {
		return -1
	}
	return n
}

func (s *Store) fetch(ctx context.Context, uri string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	return s.client.Do(req)
}

// PrefetchByteRange caches the first req.Length bytes of req.URI, resuming
// from whatever is already on disk.
func (s *Store) PrefetchByteRange(ctx context.Context, req engine.Request) *engine.Task {
	return s.run(ctx, req, func(ctx context.Context, report engine.Reporter) error {
		return s.prefetch(ctx, req, report)
	})
}

func (s *Store) prefetch(ctx context.Context, req engine.Request, report engine.Reporter) error {
	r, err := s.get(ctx, req.Key)
	switch {
	case errors.Is(err, ErrNotFound):
		r = record{Entry: engine.Entry{Key: req.Key, Total: -1}, Path: s.pathFor(req.Key)}
	case err != nil:
		return err
	}
	r.Offline = r.Offline || isOffline(req.Directives)

	if r.Complete || r.Bytes >= req.Length {
		report(engine.Progress{Key: r.Key, BytesCached: r.Bytes, BytesTotal: r.Total})
		return s.put(ctx, r)
	}

	header := http.Header{}
	header.Set("Range", fmt.Sprintf("bytes=%d-%d", r.Bytes, req.Length-1))
	resp, err := s.fetch(ctx, req.URI, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	flag := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	switch resp.StatusCode {
	case http.StatusPartialContent:
		r.Total = contentRangeTotal(resp.Header.Get("Content-Range"))
	case http.StatusOK:
		// Range ignored: the body starts at zero.
		r.Bytes = 0
		r.Total = resp.ContentLength
		flag = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	case http.StatusRequestedRangeNotSatisfiable:
		if total := contentRangeTotal(resp.Header.Get("Content-Range")); total >= 0 && r.Bytes >= total {
			r.Total = total
			s.markComplete(&r)
			return s.put(ctx, r)
		}
		return &StatusError{URI: req.URI, Code: resp.StatusCode}
	default:
		return &StatusError{URI: req.URI, Code: resp.StatusCode}
	}

	f, err := s.fs.OpenFile(r.Path, flag, 0o644)
	if err != nil {
		return err
	}
	pw := &progressWriter{w: f, key: r.Key, base: r.Bytes, total: r.Total, report: report}
	n, copyErr := io.Copy(pw, io.LimitReader(resp.Body, req.Length-r.Bytes))
	if err := f.Close(); err != nil && copyErr == nil {
		copyErr = err
	}
	r.Bytes += n
	if r.Total >= 0 && r.Bytes >= r.Total {
		s.markComplete(&r)
	}
	if err := s.put(context.WithoutCancel(ctx), r); err != nil {
		return err
	}
	return copyErr
}

func (s *Store) markComplete(r *record) {
	r.Bytes = r.Total
	r.Complete = true
	r.Location = r.Path
}

// DownloadFull fetches the whole resource into a temp file and moves it
// into place once the body has been read completely.
func (s *Store) DownloadFull(ctx context.Context, req engine.Request) *engine.Task {
	return s.run(ctx, req, func(ctx context.Context, report engine.Reporter) error {
		return s.download(ctx, req, report)
	})
}

func (s *Store) download(ctx context.Context, req engine.Request, report engine.Reporter) error {
	resp, err := s.fetch(ctx, req.URI, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{URI: req.URI, Code: resp.StatusCode}
	}

	path := s.pathFor(req.Key)
	n, err := s.writeAtomic(path, resp.Body, &progressWriter{key: req.Key, total: resp.ContentLength, report: report})
	if err != nil {
		return err
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		_ = s.fs.Remove(path)
		return fmt.Errorf("download %s: %w", req.Key, io.ErrUnexpectedEOF)
	}
	return s.put(ctx, record{
		Entry: engine.Entry{
			Key:      req.Key,
			Bytes:    n,
			Total:    n,
			Complete: true,
			Location: path,
		},
		Path:    path,
		Offline: isOffline(req.Directives),
	})
}

// writeAtomic copies body to a uniquely named temp file and renames it to
// path. pw, when set, wraps the temp file for progress reporting.
func (s *Store) writeAtomic(path string, body io.Reader, pw *progressWriter) (int64, error) {
	tmp := filepath.Join(s.dir, tmpDir, uuid.NewString())
	f, err := s.fs.Create(tmp)
	if err != nil {
		return 0, err
	}
	var dst io.Writer = f
	if pw != nil {
		pw.w = f
		dst = pw
	}
	n, err := io.Copy(dst, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove(tmp)
		return n, err
	}
	if err := s.fs.RemoveAll(path); err != nil {
		_ = s.fs.Remove(tmp)
		return n, err
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return n, err
	}
	return n, nil
}
