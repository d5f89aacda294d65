package hci

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Timer is a pending call scheduled with a Clock.
type Timer interface {
	// Stop prevents the call from running. It reports whether the call
	// was still pending.
	Stop() bool
}

// Clock schedules calls onto the dispatch sequence.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// ErrDispatcherClosed is returned for work posted after Close.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// Dispatcher runs posted functions one at a time, in order, on a single
// goroutine. The command channel and the data channels attached to it
// must only be touched from functions running on a Dispatcher.
type Dispatcher struct {
	mu     sync.Mutex
	queue  []func()
	closed bool

	wake chan struct{}
	done chan struct{}
	exit chan struct{}
}

// NewDispatcher starts the dispatch goroutine.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		exit: make(chan struct{}),
	}
	go d.run()
	return d
}

// Post queues f. It returns false once the dispatcher is closed.
func (d *Dispatcher) Post(f func()) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.queue = append(d.queue, f)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return true
}

// Do runs f on the sequence and waits for it to return. It must not be
// called from the sequence itself.
func (d *Dispatcher) Do(ctx context.Context, f func()) error {
	ran := make(chan struct{})
	if !d.Post(func() {
		f()
		close(ran)
	}) {
		return ErrDispatcherClosed
	}

	select {
	case <-ran:
		return nil
	case <-d.exit:
		select {
		case <-ran:
			return nil
		default:
			return ErrDispatcherClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AfterFunc runs f on the sequence once d has elapsed.
func (d *Dispatcher) AfterFunc(dur time.Duration, f func()) Timer {
	t := &dispatcherTimer{}
	t.t = time.AfterFunc(dur, func() {
		d.Post(func() {
			if t.stopped {
				return
			}
			t.stopped = true
			f()
		})
	})
	return t
}

// Close stops the dispatch goroutine after the functions already queued
// have run.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.exit
		return
	}
	d.closed = true
	d.mu.Unlock()

	close(d.done)
	<-d.exit
}

// Done is closed once the dispatch goroutine has exited.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.exit
}

func (d *Dispatcher) run() {
	defer close(d.exit)

	for {
		select {
		case <-d.wake:
			d.drain()
		case <-d.done:
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		f := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.mu.Unlock()

		f()
	}
}

// dispatcherTimer is only touched from the sequence, apart from the
// underlying time.Timer.
type dispatcherTimer struct {
	t       *time.Timer
	stopped bool
}

func (t *dispatcherTimer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	t.t.Stop()
	return true
}
