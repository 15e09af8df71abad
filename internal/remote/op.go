package remote

import (
	"context"
)

// Op is an asynchronous persistence call. Callers may wait on it, poll it
// or ignore it; the outcome is recorded either way.
type Op struct {
	Kind string
	done chan struct{}
	err  error
}

func newOp(kind string) *Op {
	return &Op{Kind: kind, done: make(chan struct{})}
}

func (o *Op) finish(err error) {
	o.err = err
	close(o.done)
}

// Done is closed when the call has returned.
func (o *Op) Done() <-chan struct{} {
	return o.done
}

// Err returns the call's error once Done is closed, nil before.
func (o *Op) Err() error {
	select {
	case <-o.done:
		return o.err
	default:
		return nil
	}
}

// Wait blocks until the call returns or ctx is done.
func (o *Op) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Completed returns an Op that has already finished with err.
func Completed(kind string, err error) *Op {
	o := newOp(kind)
	o.finish(err)
	return o
}
