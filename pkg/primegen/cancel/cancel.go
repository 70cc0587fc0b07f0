// Package cancel provides the cooperative cancellation capability the
// generator polls between iterations.
//
// The core never touches the underlying input mechanism (keypress, OS
// signal, test hook); it only needs PollCancelRequested. Cancellation is
// honored at iteration boundaries: an in-flight primality test always
// completes first.
package cancel

import (
	"context"
	"io"
	"sync/atomic"
)

// Poller reports whether a cancellation has been requested.
// Implementations must be safe for concurrent use.
type Poller interface {
	PollCancelRequested() bool
}

// None is a Poller that never reports cancellation.
var None Poller = nonePoller{}

type nonePoller struct{}

func (nonePoller) PollCancelRequested() bool { return false }

// Flag is a manually raised cancellation flag.
// Raise it from any goroutine; once raised it stays raised.
type Flag struct {
	raised atomic.Bool
}

// NewFlag creates an unraised flag.
func NewFlag() *Flag {
	return &Flag{}
}

// Request raises the flag.
func (f *Flag) Request() {
	f.raised.Store(true)
}

// PollCancelRequested implements Poller.
func (f *Flag) PollCancelRequested() bool {
	return f.raised.Load()
}

// FromReader returns a Poller backed by r: the first byte read (a keypress
// on a raw terminal, a newline on a cooked one) raises the flag. The read
// happens on a background goroutine that exits after the first byte or
// read error.
func FromReader(r io.Reader) Poller {
	f := NewFlag()
	go func() {
		buf := make([]byte, 1)
		if n, _ := r.Read(buf); n > 0 {
			f.Request()
		}
	}()
	return f
}

// FromContext returns a Poller that reports cancellation once ctx is done.
func FromContext(ctx context.Context) Poller {
	return contextPoller{ctx: ctx}
}

type contextPoller struct {
	ctx context.Context
}

func (p contextPoller) PollCancelRequested() bool {
	return p.ctx.Err() != nil
}
