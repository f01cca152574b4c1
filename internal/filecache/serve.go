package filecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/llehouerou/riptide/internal/engine"
)

const readHeaderTimeout = 10 * time.Second

type source struct {
	key    string
	origin string
}

// Server streams partially cached entries over loopback HTTP. Bytes the
// store already holds are read from disk; the remainder is fetched from
// the origin with a range request.
type Server struct {
	store *Store
	ln    net.Listener
	srv   *http.Server
	base  string

	mu      sync.Mutex
	sources map[string]source
}

// Serve starts a Server on addr, usually "127.0.0.1:0".
func (s *Store) Serve(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	sv := &Server{
		store:   s,
		ln:      ln,
		base:    "http://" + ln.Addr().String(),
		sources: make(map[string]source),
	}
	r := chi.NewRouter()
	r.Get("/stream/{id}", sv.stream)
	sv.srv = &http.Server{Handler: r, ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		if err := sv.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Warn("stream server stopped")
		}
	}()
	return sv, nil
}

// StreamURL registers origin under key and returns the local URL serving it.
func (sv *Server) StreamURL(key, origin string) (string, bool) {
	if checkScheme(origin) != nil {
		return "", false
	}
	id := fileName(key)
	sv.mu.Lock()
	sv.sources[id] = source{key: key, origin: origin}
	sv.mu.Unlock()
	return sv.base + "/stream/" + id, true
}

// Close stops accepting requests and drops open streams.
func (sv *Server) Close() error {
	return sv.srv.Close()
}

func (sv *Server) stream(w http.ResponseWriter, r *http.Request) {
	sv.mu.Lock()
	src, ok := sv.sources[chi.URLParam(r, "id")]
	sv.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	log := sv.store.log.WithField("key", src.key)

	done := sv.store.begin(src.key)
	defer done()

	rec, err := sv.store.get(r.Context(), src.key)
	if err != nil || rec.Total < 0 || rec.Bytes <= 0 {
		sv.proxy(w, r, src.origin)
		return
	}
	cached := min(rec.Bytes, rec.Total)

	start, end, partial, ok := parseRange(r.Header.Get("Range"), rec.Total)
	if !ok {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", rec.Total))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
	if partial {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, rec.Total))
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	pos := start
	if pos < cached {
		n, err := sv.copyCached(w, rec.Path, pos, min(end+1, cached))
		pos += n
		if err != nil {
			log.WithError(err).Debug("cached read failed")
			return
		}
	}
	if pos > end {
		return
	}
	if err := sv.copyOrigin(r.Context(), w, src.origin, pos, end); err != nil {
		log.WithError(err).Debug("origin read failed")
	}
}

// copyCached writes bytes [from, to) of the cached file.
func (sv *Server) copyCached(w io.Writer, path string, from, to int64) (int64, error) {
	f, err := sv.store.fs.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	if _, err := f.Seek(from, io.SeekStart); err != nil {
		return 0, err
	}
	return io.CopyN(w, f, to-from)
}

// copyOrigin writes bytes [from, to] fetched from origin.
func (sv *Server) copyOrigin(ctx context.Context, w io.Writer, origin string, from, to int64) error {
	header := http.Header{}
	header.Set("Range", fmt.Sprintf("bytes=%d-%d", from, to))
	resp, err := sv.store.fetch(ctx, origin, header)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusPartialContent:
	case http.StatusOK:
		// Range ignored: skip to from.
		if _, err := io.CopyN(io.Discard, resp.Body, from); err != nil {
			return err
		}
	default:
		return &StatusError{URI: origin, Code: resp.StatusCode}
	}
	_, err = io.CopyN(w, resp.Body, to-from+1)
	return err
}

// proxy relays the request to origin unchanged.
func (sv *Server) proxy(w http.ResponseWriter, r *http.Request, origin string) {
	header := http.Header{}
	if rng := r.Header.Get("Range"); rng != "" {
		header.Set("Range", rng)
	}
	resp, err := sv.store.fetch(r.Context(), origin, header)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()
	for _, h := range []string{"Content-Type", "Content-Length", "Content-Range", "Accept-Ranges"} {
		if v := resp.Header.Get(h); v != "" {
			w.Header().Set(h, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

// parseRange reads a single "bytes=" range against a resource of total
// bytes. Without a usable header the whole resource is selected. ok is false
// when the range starts past the end.
func parseRange(h string, total int64) (start, end int64, partial, ok bool) {
	spec, found := strings.CutPrefix(strings.TrimSpace(h), "bytes=")
	if !found || strings.Contains(spec, ",") {
		return 0, total - 1, false, total > 0
	}
	first, last, _ := strings.Cut(spec, "-")
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)

	switch {
	case first == "" && last != "":
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 {
			return 0, total - 1, false, total > 0
		}
		start = max(total-n, 0)
		end = total - 1
	default:
		n, err := strconv.ParseInt(first, 10, 64)
		if err != nil || n < 0 {
			return 0, total - 1, false, total > 0
		}
		start, end = n, total-1
		if last != "" {
			if m, err := strconv.ParseInt(last, 10, 64); err == nil && m >= start {
				end = min(m, total-1)
			}
		}
	}
	if start >= total {
		return 0, 0, false, false
	}
	return start, end, true, true
}

var _ engine.Streamer = (*Server)(nil)
