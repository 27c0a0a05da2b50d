package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering and which kinds are recorded.
type Config struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`

	// Kinds restricts dispatch to the listed kinds. Empty records all.
	Kinds []Kind `yaml:"kinds"`
}

// Dispatcher hands events to a sink on one goroutine, so the sink sees them
// in emission order and the session path never waits on sink I/O.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	allow      map[Kind]bool
	now        func() time.Time

	queue    chan Event
	stop     chan struct{}
	stopped  sync.WaitGroup
	stopOnce sync.Once
	closed   atomic.Bool

	dropped   atomic.Uint64
	delivered atomic.Uint64
}

// NewDispatcher starts a dispatcher. It returns nil when cfg is disabled; a
// nil Dispatcher accepts and discards everything.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		now:        time.Now,
		queue:      make(chan Event, size),
		stop:       make(chan struct{}),
	}
	if len(cfg.Kinds) > 0 {
		d.allow = make(map[Kind]bool, len(cfg.Kinds))
		for _, k := range cfg.Kinds {
			d.allow[k] = true
		}
	}
	d.stopped.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer d.stopped.Done()
	for {
		select {
		case e := <-d.queue:
			d.deliver(e)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

// drain delivers what was queued before Close.
func (d *Dispatcher) drain() {
	for {
		select {
		case e := <-d.queue:
			d.deliver(e)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(e Event) {
	d.sink.Emit(context.Background(), e)
	d.delivered.Add(1)
}

// Records reports whether events of kind k pass the configured filter.
func (d *Dispatcher) Records(k Kind) bool {
	return d != nil && (d.allow == nil || d.allow[k])
}

// Emit stamps a zero Timestamp and queues e. It reports whether the event
// was queued. With DropIfFull a full queue drops and counts the event;
// otherwise Emit waits for room or Close.
func (d *Dispatcher) Emit(e Event) bool {
	if !d.Records(e.Kind) || d.closed.Load() {
		return false
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = d.now().UTC()
	}

	if d.dropIfFull {
		select {
		case d.queue <- e:
			return true
		case <-d.stop:
			return false
		default:
			d.dropped.Add(1)
			return false
		}
	}
	select {
	case d.queue <- e:
		return true
	case <-d.stop:
		return false
	}
}

// Close stops accepting events, delivers the queued ones and waits.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		d.stopped.Wait()
	})
}

// Dropped returns the number of events dropped because the queue was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Delivered returns the number of events handed to the sink.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
