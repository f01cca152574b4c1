// internal/playback/service_impl.go
package playback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"github.com/llehouerou/riptide/internal/cachepolicy"
	"github.com/llehouerou/riptide/internal/device"
	"github.com/llehouerou/riptide/internal/engine"
	"github.com/llehouerou/riptide/internal/keylock"
	"github.com/llehouerou/riptide/internal/media"
	"github.com/llehouerou/riptide/internal/offline"
	"github.com/llehouerou/riptide/internal/playlist"
	"github.com/llehouerou/riptide/internal/preload"
)

const defaultHistorySize = 50

// ErrLiveItem is returned when a live item is downloaded for offline use.
var ErrLiveItem = errors.New("live items cannot be downloaded")

// Options configures a Service. Zero values select defaults.
type Options struct {
	Logger        logrus.FieldLogger
	CachePolicy   mo.Option[cachepolicy.CachePolicy]
	PreloadPolicy mo.Option[cachepolicy.PreloadPolicy]
	Preload       preload.Options
	// PreloadInterval enables periodic preload ticks on top of the ticks
	// issued after every navigation.
	PreloadInterval time.Duration
	Offline         offline.Locations
	// Locks must be shared with anything else that touches store.
	Locks *keylock.Locker
	// Streamer, when set, lets partially cached items start from their
	// cached prefix.
	Streamer    engine.Streamer
	HistorySize int
	// OnQueueChange is called with the mutex held; it must not call back
	// into the Service.
	OnQueueChange func(items []media.Item, index int)
}

// Verify serviceImpl implements Service at compile time.
var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	mu sync.Mutex

	engine        engine.Interface
	store         engine.Store
	streamer      engine.Streamer
	locks         *keylock.Locker
	offline       offline.Locations
	preloader     *preload.Preloader
	log           logrus.FieldLogger
	onQueueChange func([]media.Item, int)

	queue   *playlist.Queue
	history *playlist.History

	snap        Event
	loop        bool
	cachePolicy cachepolicy.CachePolicy

	// gen identifies the latest prepare. A completion carrying an older
	// generation is discarded.
	gen           uint64
	cancelPrepare context.CancelFunc
	loading       bool
	prepared      bool
	playWhenReady bool

	// tick holds the preload window queued while mu was held.
	tick mo.Option[preload.Window]

	subs   []*Subscription
	subsMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// New creates a playback service that owns eng and shares store.
func New(eng engine.Interface, store engine.Store, signals device.Signals, opts Options) Service {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Offline == nil {
		opts.Offline = offline.NewMemory()
	}
	if opts.Locks == nil {
		opts.Locks = keylock.New()
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = defaultHistorySize
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &serviceImpl{
		engine:        eng,
		store:         store,
		streamer:      opts.Streamer,
		locks:         opts.Locks,
		offline:       opts.Offline,
		log:           opts.Logger.WithField("component", "playback"),
		onQueueChange: opts.OnQueueChange,
		queue:         playlist.NewQueue(),
		history:       playlist.NewHistory(opts.HistorySize),
		snap:          idleEvent(),
		cachePolicy:   opts.CachePolicy.OrElse(cachepolicy.DefaultCachePolicy()),
		ctx:           ctx,
		cancel:        cancel,
	}

	popts := opts.Preload
	popts.Logger = opts.Logger
	popts.OnProgress = s.onCacheProgress
	s.preloader = preload.New(store, signals, s.locks, popts)
	s.preloader.SetPolicy(opts.PreloadPolicy.OrElse(cachepolicy.DefaultPreloadPolicy()))

	s.wg.Add(1)
	go s.pump()

	if opts.PreloadInterval > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.preloader.Run(ctx, opts.PreloadInterval, s.window)
		}()
	}
	return s
}

// pump applies engine callbacks to the snapshot.
func (s *serviceImpl) pump() {
	defer s.wg.Done()
	events := s.engine.Events()
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handleEngineEvent(ev)
		}
	}
}

func (s *serviceImpl) handleEngineEvent(ev engine.Event) {
	s.mu.Lock()
	defer s.unlockAndTick()

	// While loading, and after a stop, the controller owns the state.
	// Anything the engine reports then belongs to the previous item.
	if s.closed || s.loading || !s.prepared {
		return
	}

	state := fromEngine(ev)
	s.snap.State = state
	s.snap.Err = ev.Err
	s.refreshLocked()
	s.publishLocked()

	switch state {
	case StateError:
		s.prepared = false
		s.log.WithError(ev.Err).WithField("item", s.snap.Item.Identifier).Warn("playback failed")
	case StateEnded:
		s.handleEndedLocked()
	}
}

func (s *serviceImpl) handleEndedLocked() {
	if s.loop && s.queue.Len() <= 1 {
		s.restartLocked()
		return
	}
	if item, ok := s.queue.Next(); ok {
		s.navigateLocked(item, s.queue.CurrentIndex())
		return
	}
	if s.loop && s.queue.Len() > 1 {
		item, _ := s.queue.JumpTo(0)
		s.navigateLocked(item, 0)
	}
}

func (s *serviceImpl) restartLocked() {
	if err := s.engine.SeekTo(0); err != nil {
		s.failLocked(fmt.Errorf("loop seek: %w", err))
		return
	}
	if err := s.engine.Play(); err != nil {
		s.failLocked(fmt.Errorf("loop play: %w", err))
		return
	}
	s.snap.State = StatePlaying
	s.refreshLocked()
	s.snap.Position = 0
	s.publishLocked()
}

func (s *serviceImpl) failLocked(err error) {
	s.prepared = false
	s.snap.State = StateError
	s.snap.Err = err
	s.publishLocked()
	s.log.WithError(err).Warn("playback failed")
}

// beginLoadLocked supersedes any in-flight prepare and resets the snapshot
// for item.
func (s *serviceImpl) beginLoadLocked(parent context.Context, item media.Item, index int) (context.Context, uint64) {
	if s.cancelPrepare != nil {
		s.cancelPrepare()
	}
	s.gen++
	ctx, cancel := context.WithCancel(parent)
	s.cancelPrepare = cancel
	s.loading = true
	s.prepared = false
	s.snap = Event{
		Item:  item,
		Index: index,
		State: StateBuffering,
		Speed: s.snap.Speed,
	}
	s.publishLocked()
	return ctx, s.gen
}

// loadAsyncLocked prepares item in the background.
func (s *serviceImpl) loadAsyncLocked(item media.Item, index int) {
	ctx, gen := s.beginLoadLocked(s.ctx, item, index)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Failures are reported through the snapshot.
		_ = s.load(ctx, gen, item)
	}()
}

// navigateLocked prepares and plays item, then queues a preload tick.
func (s *serviceImpl) navigateLocked(item media.Item, index int) {
	s.playWhenReady = true
	s.loadAsyncLocked(item, index)
	s.queueChangedLocked()
	s.tick = mo.Some(s.windowLocked())
}

// unlockAndTick releases mu, then runs the preload tick queued while it was
// held. Ticks read device signals and must not run under mu.
func (s *serviceImpl) unlockAndTick() {
	w, ok := s.tick.Get()
	s.tick = mo.None[preload.Window]()
	s.mu.Unlock()
	if ok {
		s.preloader.Tick(w)
	}
}

func (s *serviceImpl) load(ctx context.Context, gen uint64, item media.Item) error {
	key := cachepolicy.KeyFor(item)
	s.mu.Lock()
	d := engine.DirectivesFor(s.cachePolicy, key)
	s.mu.Unlock()

	uri := s.resolve(ctx, item, key, d.Mode)
	err := s.engine.Prepare(ctx, uri, d)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return ErrSuperseded
	}
	s.loading = false
	s.cancelPrepare()
	s.cancelPrepare = nil

	log := s.log.WithField("key", key)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.snap.State = StateIdle
			s.publishLocked()
			return ctxErr
		}
		s.snap.State = StateError
		s.snap.Err = err
		s.publishLocked()
		log.WithError(err).Warn("prepare failed")
		return fmt.Errorf("prepare %s: %w", key, err)
	}

	s.prepared = true
	state := StatePaused
	if s.playWhenReady {
		if err := s.engine.Play(); err != nil {
			s.failLocked(fmt.Errorf("play: %w", err))
			return err
		}
		state = StatePlaying
	}
	s.snap.State = state
	s.refreshLocked()
	s.publishLocked()
	log.WithField("uri", uri).Debug("prepared")
	return nil
}

// resolve picks what the engine loads: a complete local copy, a stream
// over a cached prefix, or the network URL. An offline record is trusted
// only while the store still holds that complete copy; eviction may have
// removed it.
func (s *serviceImpl) resolve(ctx context.Context, item media.Item, key string, mode cachepolicy.Mode) string {
	if item.IsLocal() {
		return item.URL
	}
	log := s.log.WithField("key", key)
	entry, cached, err := s.store.Lookup(ctx, key)
	if err != nil {
		log.WithError(err).Warn("cache lookup failed")
		return item.URL
	}
	complete := cached && entry.Complete && entry.Location != ""

	if loc, err := s.offline.Get(ctx, key); err == nil && loc != "" {
		if complete && entry.Location == loc {
			return loc
		}
		log.WithField("location", loc).Info("dropping stale offline record")
		if err := s.offline.Delete(ctx, key); err != nil {
			log.WithError(err).Warn("offline record removal failed")
		}
	}
	if complete {
		return entry.Location
	}
	if s.streamer != nil && cached && entry.Bytes > 0 && mode != cachepolicy.ModeNone &&
		!item.IsLive && !item.IsSegmented() {
		if uri, ok := s.streamer.StreamURL(key, item.URL); ok {
			return uri
		}
	}
	return item.URL
}

func (s *serviceImpl) refreshLocked() {
	s.snap.Position = s.engine.Position()
	s.snap.Duration = s.engine.Duration()
	s.snap.Buffered = s.engine.Buffered()
	s.snap.Speed = s.engine.Speed()
}

func (s *serviceImpl) publishLocked() {
	e := s.snap
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, sub := range s.subs {
		sub.send(e)
	}
}

func (s *serviceImpl) queueChangedLocked() {
	if s.onQueueChange != nil {
		s.onQueueChange(s.queue.Items(), s.queue.CurrentIndex())
	}
}

func (s *serviceImpl) windowLocked() preload.Window {
	return preload.Window{
		Items:       s.queue.Items(),
		Current:     s.queue.CurrentIndex(),
		CachePolicy: s.cachePolicy,
		Seq:         s.gen,
	}
}

func (s *serviceImpl) window() (preload.Window, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.queue.IsEmpty() {
		return preload.Window{}, false
	}
	return s.windowLocked(), true
}

// Queue

func (s *serviceImpl) SetQueue(items []media.Item, startIndex int) error {
	if err := media.ValidateAll(items); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.unlockAndTick()
	if s.closed {
		return ErrClosed
	}

	item, ok := s.queue.Set(items, startIndex)
	s.history.Push(playlist.Snapshot{Items: items, Index: s.queue.CurrentIndex()})
	s.applyQueueLocked(item, ok, false)
	return nil
}

// applyQueueLocked loads the new current item of a replaced queue.
func (s *serviceImpl) applyQueueLocked(item media.Item, ok, play bool) {
	if !ok {
		s.resetLocked(true)
		s.preloader.CancelAll()
		s.queueChangedLocked()
		return
	}
	if play {
		s.navigateLocked(item, s.queue.CurrentIndex())
		return
	}
	s.playWhenReady = false
	s.loadAsyncLocked(item, s.queue.CurrentIndex())
	s.queueChangedLocked()
	s.tick = mo.Some(s.windowLocked())
}

func (s *serviceImpl) Next() bool {
	s.mu.Lock()
	defer s.unlockAndTick()
	if s.closed {
		return false
	}
	item, ok := s.queue.Next()
	if !ok {
		return false
	}
	s.navigateLocked(item, s.queue.CurrentIndex())
	return true
}

func (s *serviceImpl) Previous() bool {
	s.mu.Lock()
	defer s.unlockAndTick()
	if s.closed {
		return false
	}
	item, ok := s.queue.Previous()
	if !ok {
		return false
	}
	s.navigateLocked(item, s.queue.CurrentIndex())
	return true
}

func (s *serviceImpl) JumpTo(index int) error {
	s.mu.Lock()
	defer s.unlockAndTick()
	if s.closed {
		return ErrClosed
	}
	item, err := s.queue.JumpTo(index)
	if err != nil {
		return err
	}
	s.navigateLocked(item, index)
	return nil
}

func (s *serviceImpl) Current() (media.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Current()
}

func (s *serviceImpl) QueueItems() []media.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Items()
}

func (s *serviceImpl) QueueIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.CurrentIndex()
}

func (s *serviceImpl) Undo() bool {
	s.mu.Lock()
	defer s.unlockAndTick()
	if s.closed {
		return false
	}
	snap, ok := s.history.Undo()
	if !ok {
		return false
	}
	item, ok := s.queue.Set(snap.Items, snap.Index)
	s.applyQueueLocked(item, ok, true)
	return true
}

func (s *serviceImpl) Redo() bool {
	s.mu.Lock()
	defer s.unlockAndTick()
	if s.closed {
		return false
	}
	snap, ok := s.history.Redo()
	if !ok {
		return false
	}
	item, ok := s.queue.Set(snap.Items, snap.Index)
	s.applyQueueLocked(item, ok, true)
	return true
}

// Playback

// Prepare loads item and waits for the engine. A newer prepare, navigation,
// Stop or Close makes it return ErrSuperseded without touching the snapshot.
func (s *serviceImpl) Prepare(ctx context.Context, item media.Item) error {
	if err := item.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.playWhenReady = false
	index := -1
	if cur, ok := s.queue.Current(); ok && cachepolicy.KeyFor(cur) == cachepolicy.KeyFor(item) {
		index = s.queue.CurrentIndex()
	}
	ctx, gen := s.beginLoadLocked(ctx, item, index)
	s.mu.Unlock()

	return s.load(ctx, gen, item)
}

func (s *serviceImpl) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.playWhenReady = true

	if s.loading {
		return nil
	}
	if !s.prepared {
		item, index, ok := s.resumeTargetLocked()
		if !ok {
			return ErrNoCurrentItem
		}
		s.loadAsyncLocked(item, index)
		return nil
	}
	if s.snap.State == StateEnded {
		if err := s.engine.SeekTo(0); err != nil {
			return fmt.Errorf("play: %w", err)
		}
	}
	if err := s.engine.Play(); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	s.snap.State = StatePlaying
	s.snap.Err = nil
	s.refreshLocked()
	s.publishLocked()
	return nil
}

// resumeTargetLocked picks what Play loads when nothing is prepared.
func (s *serviceImpl) resumeTargetLocked() (media.Item, int, bool) {
	if s.snap.HasItem() {
		return s.snap.Item, s.snap.Index, true
	}
	item, ok := s.queue.Current()
	return item, s.queue.CurrentIndex(), ok
}

func (s *serviceImpl) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.playWhenReady = false
	if !s.prepared {
		return nil
	}
	if err := s.engine.Pause(); err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	s.snap.State = StatePaused
	s.refreshLocked()
	s.publishLocked()
	return nil
}

func (s *serviceImpl) Toggle() error {
	if s.Snapshot().State == StatePlaying {
		return s.Pause()
	}
	return s.Play()
}

// Stop halts playback and cancels any in-flight prepare. With release the
// engine handle is freed and in-flight prefetches are cancelled; the queue
// is kept so Play can start over.
func (s *serviceImpl) Stop(release bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	err := s.engine.Stop(release)
	s.resetLocked(release)
	if release {
		s.preloader.CancelAll()
	}
	if err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}

func (s *serviceImpl) resetLocked(clearItem bool) {
	if s.cancelPrepare != nil {
		s.cancelPrepare()
		s.cancelPrepare = nil
	}
	s.gen++
	s.loading = false
	s.prepared = false
	s.playWhenReady = false

	speed := s.snap.Speed
	if clearItem {
		s.snap = idleEvent()
	} else {
		s.snap.State = StateIdle
		s.snap.Err = nil
		s.snap.Position = 0
		s.snap.Buffered = 0
	}
	s.snap.Speed = speed
	s.publishLocked()
}

func (s *serviceImpl) SeekTo(position time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if !s.prepared {
		return ErrNoCurrentItem
	}
	position = max(position, 0)
	if d := s.engine.Duration(); d > 0 {
		position = min(position, d)
	}
	if err := s.engine.SeekTo(position); err != nil {
		return fmt.Errorf("seek: %w", err)
	}
	s.refreshLocked()
	s.snap.Position = position
	s.publishLocked()
	return nil
}

func (s *serviceImpl) Seek(delta time.Duration) error {
	return s.SeekTo(s.engine.Position() + delta)
}

func (s *serviceImpl) SetSpeed(speed float64) error {
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, speed)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.engine.SetSpeed(speed); err != nil {
		return fmt.Errorf("set speed: %w", err)
	}
	s.snap.Speed = speed
	s.publishLocked()
	return nil
}

func (s *serviceImpl) SetVolume(volume float64) error {
	if math.IsNaN(volume) {
		volume = 0
	}
	volume = min(max(volume, 0), 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.engine.SetVolume(volume); err != nil {
		return fmt.Errorf("set volume: %w", err)
	}
	return nil
}

func (s *serviceImpl) SetLoop(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loop = enabled
}

func (s *serviceImpl) Loop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop
}

// State

// Snapshot returns the latest state. Progress is read from the engine while
// an item is prepared, since the engine does not report every position change.
func (s *serviceImpl) Snapshot() Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prepared && !s.loading {
		s.refreshLocked()
	}
	return s.snap
}

// Subscribe creates a subscription primed with the current snapshot.
func (s *serviceImpl) Subscribe() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := newSubscription()
	if s.closed {
		sub.close()
		return sub
	}
	sub.send(s.snap)
	s.subsMu.Lock()
	s.subs = append(s.subs, sub)
	s.subsMu.Unlock()
	return sub
}

// Cache

// onCacheProgress records download progress for the loaded item. Progress
// for other keys is ignored.
func (s *serviceImpl) onCacheProgress(p engine.Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.snap.HasItem() || cachepolicy.KeyFor(s.snap.Item) != p.Key {
		return
	}
	s.snap.CacheBytesCached = mo.Some(p.BytesCached)
	if p.BytesTotal > 0 {
		s.snap.CacheBytesTotal = mo.Some(p.BytesTotal)
	}
	s.publishLocked()
}

// Preload evaluates the preload policy now. It returns the keys scheduled.
func (s *serviceImpl) Preload(ctx context.Context) []string {
	if ctx.Err() != nil {
		return nil
	}
	w, ok := s.window()
	if !ok {
		return nil
	}
	return s.preloader.Tick(w)
}

// DownloadOffline starts a full download of item. The returned task reports
// progress and fails with the download error.
func (s *serviceImpl) DownloadOffline(ctx context.Context, item media.Item) (*engine.Task, error) {
	if err := item.Validate(); err != nil {
		return nil, err
	}
	if item.IsLive {
		return nil, ErrLiveItem
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	key := cachepolicy.KeyFor(item)
	d := engine.DirectivesFor(s.cachePolicy, key)
	s.mu.Unlock()
	d.Mode = cachepolicy.ModeFullOffline

	log := s.log.WithField("key", key)
	return engine.Go(ctx, func(ctx context.Context, report engine.Reporter) error {
		unlock, err := s.locks.Lock(ctx, key)
		if err != nil {
			return err
		}
		defer unlock()

		req := engine.Request{URI: item.URL, Key: key, Directives: d}
		var task *engine.Task
		if item.IsSegmented() {
			task = s.store.DownloadSegmented(ctx, req)
		} else {
			task = s.store.DownloadFull(ctx, req)
		}
		for p := range task.Progress() {
			report(p)
			s.onCacheProgress(p)
		}
		if err := task.Err(); err != nil {
			return fmt.Errorf("download %s: %w", key, err)
		}

		entry, ok, err := s.store.Lookup(ctx, key)
		if err != nil {
			return fmt.Errorf("lookup %s: %w", key, err)
		}
		if ok && entry.Location != "" {
			if err := s.offline.Put(ctx, key, entry.Location); err != nil {
				return fmt.Errorf("record %s: %w", key, err)
			}
		}
		log.WithField("bytes", entry.Bytes).Info("offline download complete")
		return nil
	}), nil
}

// RemoveOffline deletes everything cached for identifier. Unknown
// identifiers and store failures are not errors; a failed removal cannot be
// told apart from absent data.
func (s *serviceImpl) RemoveOffline(ctx context.Context, identifier string) error {
	key := cachepolicy.KeyForID(identifier)
	unlock, err := s.locks.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()

	log := s.log.WithField("key", key)
	if err := s.store.RemoveByKey(ctx, key); err != nil {
		log.WithError(err).Warn("cache removal failed")
	}
	if err := s.offline.Delete(ctx, key); err != nil {
		log.WithError(err).Warn("offline record removal failed")
	}
	return nil
}

func (s *serviceImpl) CacheInfo(ctx context.Context, item media.Item) (cachepolicy.CacheInfo, error) {
	key := cachepolicy.KeyFor(item)
	entry, ok, err := s.store.Lookup(ctx, key)
	if err != nil {
		return cachepolicy.CacheInfo{}, fmt.Errorf("lookup %s: %w", key, err)
	}
	if !ok {
		return cachepolicy.CacheInfo{}, nil
	}
	info := cachepolicy.CacheInfo{
		BytesCached:  entry.Bytes,
		OfflineReady: entry.Complete,
	}
	if entry.Total >= 0 {
		info.TotalBytes = mo.Some(entry.Total)
	}
	return info, nil
}

func (s *serviceImpl) SetCachePolicy(p cachepolicy.CachePolicy) {
	s.mu.Lock()
	s.cachePolicy = p
	s.mu.Unlock()
	if p.Mode == cachepolicy.ModeNone {
		s.preloader.CancelAll()
	}
}

func (s *serviceImpl) CachePolicy() cachepolicy.CachePolicy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cachePolicy
}

func (s *serviceImpl) SetPreloadPolicy(p cachepolicy.PreloadPolicy) {
	s.preloader.SetPolicy(p)
}

// Close shuts down the service and releases the engine.
func (s *serviceImpl) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.gen++
	if s.cancelPrepare != nil {
		s.cancelPrepare()
		s.cancelPrepare = nil
	}
	s.cancel()
	s.mu.Unlock()

	s.preloader.Close()
	err := s.engine.Stop(true)
	s.wg.Wait()

	s.subsMu.Lock()
	for _, sub := range s.subs {
		sub.close()
	}
	s.subs = nil
	s.subsMu.Unlock()

	if err != nil {
		return fmt.Errorf("release engine: %w", err)
	}
	return nil
}
