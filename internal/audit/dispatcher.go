package audit

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering and delivery.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// SinkTimeout bounds the context handed to each Sink.Emit call.
	// Zero leaves the sink unbounded.
	SinkTimeout time.Duration
}

// Stats counts dispatcher outcomes since construction.
type Stats struct {
	Delivered uint64
	Dropped   uint64
	Panicked  uint64
}

// redactedKeys are metadata keys that may carry credentials. Their values are
// replaced before an event leaves the request goroutine.
var redactedKeys = []string{"token", "password", "secret", "authorization"}

const redacted = "[redacted]"

// Dispatcher hands events to a Sink on a single background goroutine.
// A nil *Dispatcher is valid and ignores every call.
type Dispatcher struct {
	cfg   Config
	sink  Sink
	queue chan Event
	stop  chan struct{}
	idle  sync.WaitGroup

	delivered atomic.Uint64
	dropped   atomic.Uint64
	panicked  atomic.Uint64

	shutdown atomic.Bool
	once     sync.Once
}

// NewDispatcher returns nil when auditing is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.SinkTimeout < 0 {
		cfg.SinkTimeout = 0
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:   cfg,
		sink:  sink,
		queue: make(chan Event, cfg.BufferSize),
		stop:  make(chan struct{}),
	}
	d.idle.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer d.idle.Done()
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		default:
			return
		}
	}
}

// deliver isolates the sink: a panicking sink is counted and the loop
// keeps running.
func (d *Dispatcher) deliver(ev Event) {
	defer func() {
		if recover() != nil {
			d.panicked.Add(1)
		}
	}()

	ctx := context.Background()
	if d.cfg.SinkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.SinkTimeout)
		defer cancel()
	}
	d.sink.Emit(ctx, ev)
	d.delivered.Add(1)
}

// Emit redacts and enqueues ev. A full buffer drops the event under
// DropIfFull; otherwise Emit waits for room, ctx, or Close.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil || d.shutdown.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ev.Metadata = redact(ev.Metadata)

	if d.cfg.DropIfFull {
		select {
		case d.queue <- ev:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- ev:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop:
	}
}

// Close rejects new events and blocks until queued ones reach the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.shutdown.Store(true)
		close(d.stop)
		d.idle.Wait()
	})
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

func (d *Dispatcher) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	return Stats{
		Delivered: d.delivered.Load(),
		Dropped:   d.dropped.Load(),
		Panicked:  d.panicked.Load(),
	}
}

func redact(meta map[string]string) map[string]string {
	if len(meta) == 0 {
		return meta
	}
	var out map[string]string
	for k := range meta {
		if !sensitiveKey(k) {
			continue
		}
		if out == nil {
			out = make(map[string]string, len(meta))
			for kk, vv := range meta {
				out[kk] = vv
			}
		}
		out[k] = redacted
	}
	if out == nil {
		return meta
	}
	return out
}

func sensitiveKey(k string) bool {
	k = strings.ToLower(k)
	for _, s := range redactedKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
