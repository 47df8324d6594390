package detector

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sonido-labs/keyscope/chroma"
	"github.com/sonido-labs/keyscope/config"
	"github.com/sonido-labs/keyscope/effects"
	"github.com/sonido-labs/keyscope/keys"
	"github.com/sonido-labs/keyscope/logging"
	"github.com/sonido-labs/keyscope/stream"
)

// ChangeHandler receives confirmed key-change notifications. Handlers run on
// a dedicated delivery goroutine, so a slow handler delays its own deliveries
// but never the analysis loop.
type ChangeHandler func(old, new string)

// Stats is a snapshot of a session's pipeline counters
type Stats struct {
	WindowsAnalyzed int64
	SamplesDropped  int64
	ChangesDropped  int64
}

// keyState is the atomically-swapped current-key snapshot; readers always
// see a consistent (key, label) pair.
type keyState struct {
	key   keys.Key
	label string
	valid bool
}

// Detector runs one detection session: it pumps frames from an audio source
// through an optional effects chain into the window scheduler, and analyzes
// ready windows into a stable current key.
//
// Two goroutines serve a running session: the producer (frame ingestion) and
// the analysis loop. Callers read CurrentKey or receive change notifications
// at their own pace; neither path can stall the pipeline.
type Detector struct {
	cfg       *config.Config
	source    stream.Source
	chain     *effects.Chain
	scheduler *stream.Scheduler
	extractor *chroma.Extractor
	estimator *keys.Estimator
	tracker   *keys.Tracker

	current atomic.Pointer[keyState]

	onChange ChangeHandler
	changes  chan keys.Change
	notifyCh chan keys.Change

	windowsAnalyzed atomic.Int64
	changesDropped  atomic.Int64

	mu         sync.Mutex
	started    bool
	stopped    bool
	cancel     context.CancelFunc
	group      *errgroup.Group
	notifyOnce sync.Once

	producerDone chan struct{}
	deliverDone  chan struct{}
}

// Option configures a Detector
type Option func(*Detector)

// WithChain attaches an effects chain applied to every frame before analysis
func WithChain(chain *effects.Chain) Option {
	return func(d *Detector) { d.chain = chain }
}

// WithChangeHandler registers a handler invoked once per visible key change
func WithChangeHandler(h ChangeHandler) Option {
	return func(d *Detector) { d.onChange = h }
}

// New creates a detector for the given source. The source must not be
// started; the detector owns its lifecycle from Start to Stop.
func New(cfg *config.Config, source stream.Source, opts ...Option) *Detector {
	d := &Detector{
		cfg:    cfg,
		source: source,
		scheduler: stream.NewScheduler(
			cfg.WindowSamples(), cfg.HopSamples(), cfg.BufferWindows),
		extractor: chroma.NewExtractorWithParams(source.SampleRate(), chroma.Params{
			TuningFreq: cfg.TuningFreq,
			MinFreq:    cfg.MinFreq,
			MaxFreq:    cfg.MaxFreq,
			FFTSize:    cfg.FFTSize,
			FFTHop:     cfg.FFTHop,
		}),
		estimator:    keys.NewEstimator(),
		tracker:      keys.NewTracker(cfg.ConfirmationCount, cfg.MinConfidence),
		changes:      make(chan keys.Change, 16),
		notifyCh:     make(chan keys.Change, 16),
		producerDone: make(chan struct{}),
		deliverDone:  make(chan struct{}),
	}
	d.current.Store(&keyState{})
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start opens the source and launches the pipeline. Fails fast when the
// source cannot open; no goroutines are left running on failure.
func (d *Detector) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return fmt.Errorf("detector already started")
	}
	if d.stopped {
		return fmt.Errorf("detector already stopped")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.source.Start(runCtx); err != nil {
		cancel()
		return fmt.Errorf("failed to start audio source: %w", err)
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return d.produce(gctx) })
	g.Go(func() error { return d.analyze(gctx) })
	go d.deliver()

	d.cancel = cancel
	d.group = g
	d.started = true

	logging.Info("Detection session started", logging.Fields{
		"component":   "detector",
		"sample_rate": d.source.SampleRate(),
		"window_s":    d.cfg.WindowDuration,
		"hop_s":       d.cfg.HopDuration,
	})
	return nil
}

// produce pumps frames from the source through the effects chain into the
// scheduler until the source ends or the session is cancelled.
func (d *Detector) produce(ctx context.Context) error {
	defer close(d.producerDone)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-d.source.Errors():
			if ok && err != nil {
				return fmt.Errorf("audio source failed: %w", err)
			}
		case frame, ok := <-d.source.Frames():
			if !ok {
				// The frame channel closes on failure too; report the
				// terminal error when one was left behind.
				select {
				case err, ok := <-d.source.Errors():
					if ok && err != nil {
						return fmt.Errorf("audio source failed: %w", err)
					}
				default:
				}
				return nil
			}
			if d.chain != nil {
				frame = d.chain.Process(frame)
			}
			mono := frame.Mono()
			if len(mono) == 0 {
				continue
			}
			if err := d.scheduler.Push(mono, frame.SampleRate); err != nil {
				if err == stream.ErrSampleRateChanged {
					return err
				}
				// Malformed frames are skipped, not fatal
				logging.Debug("Frame rejected by scheduler", logging.Fields{
					"component": "detector",
					"error":     err.Error(),
				})
			}
		}
	}
}

// analyze polls the scheduler at a fraction of the hop cadence, draining
// every ready window per tick so bursty producers (file decode) do not back
// up behind the ticker.
func (d *Detector) analyze(ctx context.Context) error {
	interval := d.pollInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for {
				window, ok := d.scheduler.Poll()
				if !ok {
					break
				}
				d.analyzeWindow(window)
			}

			select {
			case <-d.producerDone:
				// Producer finished; drain any final window and exit
				if window, ok := d.scheduler.Poll(); ok {
					d.analyzeWindow(window)
					continue
				}
				return nil
			default:
			}
		}
	}
}

// analyzeWindow runs one window through chroma extraction, estimation, and
// the stability tracker.
func (d *Detector) analyzeWindow(window []float64) {
	d.windowsAnalyzed.Add(1)

	chromagram := d.extractor.Compute(window)

	var prev *keys.Key
	if confirmed, ok := d.tracker.Confirmed(); ok {
		prev = &confirmed
	}

	estimate := d.estimator.Estimate(chromagram, prev)
	change, changed := d.tracker.Observe(estimate)
	if !changed {
		return
	}

	if confirmed, ok := d.tracker.Confirmed(); ok {
		d.current.Store(&keyState{key: confirmed, label: confirmed.Label(), valid: true})
	}

	logging.Info("Key change confirmed", logging.Fields{
		"component":  "detector",
		"old_key":    change.Old,
		"new_key":    change.New,
		"confidence": estimate.Confidence,
	})

	// Fire-and-forget relative to the analysis cadence
	select {
	case d.notifyCh <- change:
	default:
		d.changesDropped.Add(1)
	}
}

// deliver fans notifications out to the handler and the Changes channel
func (d *Detector) deliver() {
	defer close(d.deliverDone)
	for change := range d.notifyCh {
		if d.onChange != nil {
			d.onChange(change.Old, change.New)
		}
		select {
		case d.changes <- change:
		default:
			d.changesDropped.Add(1)
		}
	}
}

// pollInterval derives the analysis tick from the hop duration, clamped so
// short hops do not spin and long hops still observe stop promptly.
func (d *Detector) pollInterval() time.Duration {
	interval := time.Duration(d.cfg.HopDuration/4*1000) * time.Millisecond
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	if interval > 500*time.Millisecond {
		interval = 500 * time.Millisecond
	}
	return interval
}

// CurrentKey returns the externally-visible key label, "none" before the
// first confirmation. Always safe to call concurrently with the pipeline.
func (d *Detector) CurrentKey() string {
	state := d.current.Load()
	if !state.valid {
		return "none"
	}
	return state.label
}

// CurrentEstimate returns the visible key and whether one is confirmed
func (d *Detector) CurrentEstimate() (keys.Key, bool) {
	state := d.current.Load()
	return state.key, state.valid
}

// Changes returns the key-change notification channel. Deliveries are
// dropped, not blocked on, when the receiver lags.
func (d *Detector) Changes() <-chan keys.Change {
	return d.changes
}

// Wait blocks until the pipeline exits and returns its terminal error, if any
func (d *Detector) Wait() error {
	d.mu.Lock()
	g := d.group
	d.mu.Unlock()
	if g == nil {
		return nil
	}
	err := g.Wait()
	d.notifyOnce.Do(func() { close(d.notifyCh) })
	<-d.deliverDone
	return err
}

// Stop halts the session and releases the source. Idempotent; safe to call
// whether or not Start succeeded.
func (d *Detector) Stop() error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	cancel := d.cancel
	started := d.started
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	err := d.source.Close()
	if started {
		d.mu.Lock()
		g := d.group
		d.mu.Unlock()
		if g != nil {
			_ = g.Wait()
		}
		d.notifyOnce.Do(func() { close(d.notifyCh) })
		<-d.deliverDone
	}

	logging.Info("Detection session stopped", logging.Fields{
		"component":        "detector",
		"windows_analyzed": d.windowsAnalyzed.Load(),
		"samples_dropped":  d.scheduler.Dropped(),
	})
	return err
}

// Stats returns a snapshot of the session's pipeline counters
func (d *Detector) Stats() Stats {
	return Stats{
		WindowsAnalyzed: d.windowsAnalyzed.Load(),
		SamplesDropped:  d.scheduler.Dropped(),
		ChangesDropped:  d.changesDropped.Load(),
	}
}
