package entries

import (
	"context"

	"github.com/google/uuid"
)

// Pending tracks one background persist started by Edit.
type Pending struct {
	entryID    uuid.UUID
	done       chan struct{}
	err        error
	superseded bool
}

func newPending(id uuid.UUID) *Pending {
	return &Pending{entryID: id, done: make(chan struct{})}
}

func (p *Pending) finish(err error, superseded bool) {
	p.err = err
	p.superseded = superseded
	close(p.done)
}

func (p *Pending) EntryID() uuid.UUID { return p.entryID }

// Done is closed once the persist has settled.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the persist settles or ctx ends. A persist skipped
// because a newer edit of the same row replaced it reports no error.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Superseded reports whether the write was skipped in favour of a newer
// edit. It blocks until the persist settles.
func (p *Pending) Superseded() bool {
	<-p.done
	return p.superseded
}
