// Package preload prefetches upcoming queue items ahead of playback,
// gated by device conditions.
package preload

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/llehouerou/riptide/internal/cachepolicy"
	"github.com/llehouerou/riptide/internal/device"
	"github.com/llehouerou/riptide/internal/engine"
	"github.com/llehouerou/riptide/internal/keylock"
	"github.com/llehouerou/riptide/internal/media"
)

const (
	defaultConcurrency = 2
	defaultInterval    = 30 * time.Second
)

// Window is the queue state a tick evaluates.
type Window struct {
	Items       []media.Item
	Current     int
	CachePolicy cachepolicy.CachePolicy
	// Seq orders windows taken from a changing queue. A tick carrying a
	// lower Seq than one already evaluated is dropped.
	Seq uint64
}

// Options configures a Preloader. Zero values select defaults.
type Options struct {
	Concurrency int
	AssumedKbps int
	Logger      logrus.FieldLogger
	// OnProgress receives every prefetch progress snapshot.
	OnProgress func(engine.Progress)
}

type flight struct {
	cancel    context.CancelFunc
	cancelled bool
}

type job struct {
	item   media.Item
	key    string
	ctx    context.Context
	flight *flight
}

// Preloader evaluates the preload policy on each tick and issues prefetches.
// Prefetch failures are logged and otherwise ignored.
type Preloader struct {
	store   engine.Store
	signals device.Signals
	locks   *keylock.Locker
	opts    Options
	log     logrus.FieldLogger

	policy atomic.Pointer[cachepolicy.PreloadPolicy]

	tickMu  sync.Mutex
	lastSeq uint64

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	inflight map[string]*flight
	wg       sync.WaitGroup

	trigger chan struct{}
}

// New creates a Preloader. locks must be shared with every other component
// that touches the same store, so that operations on one key never overlap.
func New(store engine.Store, signals device.Signals, locks *keylock.Locker, opts Options) *Preloader {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.AssumedKbps <= 0 {
		opts.AssumedKbps = cachepolicy.DefaultAssumedKbps
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Preloader{
		store:    store,
		signals:  signals,
		locks:    locks,
		opts:     opts,
		log:      opts.Logger.WithField("component", "preload"),
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[string]*flight),
		trigger:  make(chan struct{}, 1),
	}
	p.SetPolicy(cachepolicy.DefaultPreloadPolicy())
	return p
}

// SetPolicy replaces the policy. The next tick reads it.
func (p *Preloader) SetPolicy(policy cachepolicy.PreloadPolicy) {
	policy = policy.Normalize()
	p.policy.Store(&policy)
}

// Policy returns the current policy.
func (p *Preloader) Policy() cachepolicy.PreloadPolicy {
	return *p.policy.Load()
}

// Tick gates on device signals, then prefetches the items following the
// current one. In-flight prefetches for items that left the window are
// cancelled, and a closed gate cancels all of them. Returns the keys newly
// scheduled.
func (p *Preloader) Tick(w Window) []string {
	p.tickMu.Lock()
	defer p.tickMu.Unlock()
	if w.Seq < p.lastSeq {
		p.log.WithField("seq", w.Seq).Debug("skipping preload: stale window")
		return nil
	}
	p.lastSeq = w.Seq
	policy := p.Policy()

	if w.CachePolicy.Mode == cachepolicy.ModeNone {
		p.cancelExcept(nil)
		return nil
	}
	window := windowItems(w.Items, w.Current, policy.AheadCount)
	wanted := lo.SliceToMap(window, func(it media.Item) (string, media.Item) {
		return cachepolicy.KeyFor(it), it
	})
	p.cancelExcept(wanted)

	if policy.WifiOnly && !p.signals.IsOnUnmeteredNetwork() {
		p.log.Debug("skipping preload: metered network")
		p.cancelExcept(nil)
		return nil
	}
	if battery := p.signals.BatteryPercentage(); battery < policy.MinBatteryPercent {
		p.log.WithField("battery", battery).Debug("skipping preload: battery low")
		p.cancelExcept(nil)
		return nil
	}

	jobs := p.schedule(window)
	if len(jobs) == 0 {
		return nil
	}

	budget := cachepolicy.EstimateByteBudgetAt(policy.PreloadHead, p.opts.AssumedKbps)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		var g errgroup.Group
		g.SetLimit(p.opts.Concurrency)
		for _, j := range jobs {
			g.Go(func() error {
				p.prefetch(j, policy.PreloadHead, budget, w.CachePolicy)
				return nil
			})
		}
		_ = g.Wait()
	}()

	return lo.Map(jobs, func(j job, _ int) string { return j.key })
}

// windowItems returns the non-live items at current+1 .. current+ahead.
func windowItems(items []media.Item, current, ahead int) []media.Item {
	if current < 0 || current >= len(items) || ahead <= 0 {
		return nil
	}
	last := min(current+ahead, len(items)-1)
	var out []media.Item
	for i := current + 1; i <= last; i++ {
		if items[i].IsLive {
			continue
		}
		out = append(out, items[i])
	}
	return out
}

func (p *Preloader) schedule(window []media.Item) []job {
	p.mu.Lock()
	defer p.mu.Unlock()
	var jobs []job
	for _, it := range window {
		key := cachepolicy.KeyFor(it)
		// A cancelled flight may still be unwinding; replace it so the key
		// is fetched again.
		if f, busy := p.inflight[key]; busy && !f.cancelled {
			continue
		}
		ctx, cancel := context.WithCancel(p.ctx)
		f := &flight{cancel: cancel}
		p.inflight[key] = f
		jobs = append(jobs, job{item: it, key: key, ctx: ctx, flight: f})
	}
	return jobs
}

func (p *Preloader) prefetch(j job, head time.Duration, budget int64, cp cachepolicy.CachePolicy) {
	defer p.finish(j)
	log := p.log.WithField("key", j.key)

	unlock, err := p.locks.Lock(j.ctx, j.key)
	if err != nil {
		return
	}
	defer unlock()

	if e, ok, err := p.store.Lookup(j.ctx, j.key); err == nil && ok && (e.Complete || e.Bytes >= budget) {
		log.Debug("already cached")
		return
	}

	req := engine.Request{
		URI:        j.item.URL,
		Key:        j.key,
		Length:     budget,
		Directives: engine.DirectivesFor(cp, j.key),
	}

	var task *engine.Task
	segmented := j.item.IsSegmented()
	if segmented {
		ctx, cancel := context.WithTimeout(j.ctx, cachepolicy.SegmentedHeadTimeout(head))
		defer cancel()
		task = p.store.DownloadSegmented(ctx, req)
	} else {
		task = p.store.PrefetchByteRange(j.ctx, req)
	}

	for prog := range task.Progress() {
		if p.opts.OnProgress != nil {
			p.opts.OnProgress(prog)
		}
	}

	err = task.Err()
	switch {
	case err == nil:
		log.Debug("prefetch complete")
	case segmented && errors.Is(err, context.DeadlineExceeded):
		log.Debug("segmented prefetch reached its time budget")
	case j.ctx.Err() != nil:
		log.Debug("prefetch cancelled")
	default:
		log.WithError(err).Warn("prefetch failed")
	}
}

func (p *Preloader) finish(j job) {
	j.flight.cancel()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inflight[j.key] == j.flight {
		delete(p.inflight, j.key)
	}
}

func (p *Preloader) cancelExcept(keep map[string]media.Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, f := range p.inflight {
		if _, ok := keep[key]; !ok {
			f.cancelled = true
			f.cancel()
		}
	}
}

// CancelAll cancels every in-flight prefetch.
func (p *Preloader) CancelAll() {
	p.cancelExcept(nil)
}

// inflightKeys returns the keys currently being prefetched.
func (p *Preloader) inflightKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo.Keys(p.inflight)
}

// Wait blocks until every scheduled prefetch has finished.
func (p *Preloader) Wait() {
	p.wg.Wait()
}

// Trigger asks a running scheduler to tick now.
func (p *Preloader) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Run ticks every interval and on Trigger until ctx ends. source supplies
// the latest queue state; it returns false when there is nothing to evaluate.
func (p *Preloader) Run(ctx context.Context, interval time.Duration, source func() (Window, bool)) {
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.ctx.Done():
			return
		case <-ticker.C:
		case <-p.trigger:
		}
		if w, ok := source(); ok {
			p.Tick(w)
		}
	}
}

// Close cancels all prefetches and waits for them to unwind.
func (p *Preloader) Close() {
	p.cancel()
	p.wg.Wait()
}
