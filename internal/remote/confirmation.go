package remote

import (
	"context"
	"sync"
)

// Pending is a Confirmation resolved exactly once by its producer.
// Producers call Resolve from whatever goroutine applies the write.
type Pending struct {
	key  string
	once sync.Once
	done chan struct{}
	err  error
}

// NewPending creates an unresolved confirmation for key.
func NewPending(key string) *Pending {
	return &Pending{key: key, done: make(chan struct{})}
}

// Resolved returns a confirmation that is already settled with err.
func Resolved(key string, err error) *Pending {
	p := NewPending(key)
	p.Resolve(err)
	return p
}

// Resolve settles the confirmation. Later calls are ignored.
func (p *Pending) Resolve(err error) {
	p.once.Do(func() {
		if err != nil {
			p.err = AsWriteError(p.key, err)
		}
		close(p.done)
	})
}

// Done is closed once the confirmation is settled.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait implements Confirmation. A settled confirmation reports its
// outcome even when ctx is already done.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	default:
	}

	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return NewWriteError(p.key, CauseTimeout, ctx.Err())
	}
}
