package cluster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeusync/eca/internal/core/events"
	"github.com/zeusync/eca/internal/core/models"
	"github.com/zeusync/eca/internal/core/observability/log"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoForwarder = errors.New("cluster: no forwarder for a foreign entity")
	ErrRejected    = errors.New("cluster: proposal rejected")
)

// Forwarder hands a proposal to the authority that owns the entity.
type Forwarder interface {
	Forward(ctx context.Context, owner uuid.UUID, p models.Proposal) error
}

type ForwarderFunc func(ctx context.Context, owner uuid.UUID, p models.Proposal) error

func (f ForwarderFunc) Forward(ctx context.Context, owner uuid.UUID, p models.Proposal) error {
	return f(ctx, owner, p)
}

// Policy inspects a proposal before it is committed. It may return a rewritten
// proposal, or an error wrapping ErrRejected to drop it.
type Policy func(p models.Proposal) (models.Proposal, error)

type Option func(*Arbiter)

func WithForwarder(f Forwarder) Option { return func(a *Arbiter) { a.forwarder = f } }
func WithPolicy(p Policy) Option       { return func(a *Arbiter) { a.policy = p } }
func WithLogger(l log.Log) Option      { return func(a *Arbiter) { a.log = l } }

// WithLocker makes Commit hold l while it applies proposals, excluding other
// writers of the model that take the same lock.
func WithLocker(l sync.Locker) Option { return func(a *Arbiter) { a.locker = l } }

// WithParallelism bounds how many entities Commit works on at once. n <= 0 means no limit.
func WithParallelism(n int) Option { return func(a *Arbiter) { a.parallelism = n } }

// Arbiter governs attribute changes of the entities it is attached to.
//
// Attached entities hand their proposals to the arbiter instead of applying
// them. Proposals queue until Commit, which applies the ones for entities owned
// by this authority and forwards the rest to their owners.
type Arbiter struct {
	authority   uuid.UUID
	forwarder   Forwarder
	policy      Policy
	log         log.Log
	locker      sync.Locker
	parallelism int

	mx       sync.Mutex
	pending  []models.Proposal
	attached map[uuid.UUID]events.Subscription
	watched  []events.Subscription

	queued events.Feed[models.Proposal]
}

// NewArbiter creates an arbiter acting for authority, usually the id of the
// collection whose entities it governs.
func NewArbiter(authority uuid.UUID, opts ...Option) *Arbiter {
	a := &Arbiter{
		authority: authority,
		attached:  make(map[uuid.UUID]events.Subscription),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = log.Provide()
	}
	a.log = a.log.Named("arbiter")
	return a
}

func (a *Arbiter) Authority() uuid.UUID { return a.authority }

// Attach routes proposals of e to the arbiter. Attaching twice is a no-op.
func (a *Arbiter) Attach(e *models.Entity) {
	a.mx.Lock()
	defer a.mx.Unlock()
	if _, ok := a.attached[e.ID()]; ok {
		return
	}
	a.attached[e.ID()] = e.OnProposed(a.enqueue)
}

// Detach returns e to applying its proposals directly. Already queued
// proposals of e stay queued.
func (a *Arbiter) Detach(e *models.Entity) {
	a.mx.Lock()
	sub, ok := a.attached[e.ID()]
	delete(a.attached, e.ID())
	a.mx.Unlock()
	if ok {
		sub.Cancel()
	}
}

func (a *Arbiter) Attached(e *models.Entity) bool {
	a.mx.Lock()
	defer a.mx.Unlock()
	_, ok := a.attached[e.ID()]
	return ok
}

// Watch attaches every current and future member of c, and detaches removed ones.
func (a *Arbiter) Watch(c *models.EntityCollection) {
	added := c.OnAdded(func(ev models.EntityEvent) { a.Attach(ev.Entity) })
	removed := c.OnRemoved(func(ev models.EntityEvent) { a.Detach(ev.Entity) })

	a.mx.Lock()
	a.watched = append(a.watched, added, removed)
	a.mx.Unlock()

	for e := range c.All() {
		a.Attach(e)
	}
}

// OnQueued subscribes fn to proposals as they are queued.
func (a *Arbiter) OnQueued(fn func(models.Proposal)) events.Subscription {
	return a.queued.Subscribe(fn)
}

// Pending returns the number of queued proposals.
func (a *Arbiter) Pending() int {
	a.mx.Lock()
	defer a.mx.Unlock()
	return len(a.pending)
}

func (a *Arbiter) enqueue(p models.Proposal) {
	a.mx.Lock()
	a.pending = append(a.pending, p)
	a.mx.Unlock()
	a.queued.Emit(p)
}

// Commit drains the queue.
//
// Proposals of one entity are handled in queue order by a single goroutine;
// different entities are handled in parallel. Every failure is collected and
// returned joined; a failed proposal does not stop the others. When ctx ends
// first, the proposals not yet handled go back to the front of the queue.
func (a *Arbiter) Commit(ctx context.Context) error {
	a.mx.Lock()
	batch := a.pending
	a.pending = nil
	a.mx.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if a.locker != nil {
		a.locker.Lock()
		defer a.locker.Unlock()
	}

	groups := groupByEntity(batch)
	errs := make([]error, len(groups))
	unprocessed := make([][]models.Proposal, len(groups))

	g, ctx := errgroup.WithContext(ctx)
	if a.parallelism > 0 {
		g.SetLimit(a.parallelism)
	}
	for i, group := range groups {
		g.Go(func() error {
			var groupErr error
			for j, p := range group {
				if err := ctx.Err(); err != nil {
					unprocessed[i] = group[j:]
					errs[i] = groupErr
					return err
				}
				if err := a.commit(ctx, p); err != nil {
					groupErr = errors.Join(groupErr, err)
				}
			}
			errs[i] = groupErr
			return nil
		})
	}
	errs = append(errs, g.Wait())
	a.requeue(unprocessed)

	err := errors.Join(errs...)
	if err != nil {
		a.log.Warn("commit finished with errors", log.Int("proposals", len(batch)), log.Error(err))
	} else {
		a.log.Debug("commit finished", log.Int("proposals", len(batch)))
	}
	return err
}

func (a *Arbiter) requeue(groups [][]models.Proposal) {
	var back []models.Proposal
	for _, group := range groups {
		back = append(back, group...)
	}
	if len(back) == 0 {
		return
	}
	a.mx.Lock()
	a.pending = append(back, a.pending...)
	a.mx.Unlock()
	a.log.Debug("proposals requeued", log.Int("proposals", len(back)))
}

func (a *Arbiter) commit(ctx context.Context, p models.Proposal) error {
	if a.policy != nil {
		next, err := a.policy(p)
		if err != nil {
			return fmt.Errorf("%s %s.%s: %w", p.Entity, p.Component, p.Attribute, err)
		}
		if next.Entity == nil {
			next.Entity = p.Entity
		}
		p = next
	}

	owner := p.Entity.Owner()
	if owner == a.authority {
		return p.Apply()
	}
	if a.forwarder == nil {
		return fmt.Errorf("%s owned by %s: %w", p.Entity, owner, ErrNoForwarder)
	}
	return a.forwarder.Forward(ctx, owner, p)
}

// Run commits every interval until ctx is done, then commits what is left.
func (a *Arbiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.log.Info("arbiter started", log.UUID("authority", a.authority), log.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			_ = a.Commit(context.Background())
			a.log.Info("arbiter stopped", log.UUID("authority", a.authority))
			return
		case <-ticker.C:
			_ = a.Commit(ctx)
		}
	}
}

// Close detaches every entity and stops watching collections.
// Queued proposals are kept and can still be committed.
func (a *Arbiter) Close() {
	a.mx.Lock()
	subs := a.watched
	a.watched = nil
	for id, s := range a.attached {
		subs = append(subs, s)
		delete(a.attached, id)
	}
	a.mx.Unlock()
	events.CancelAll(subs...)
}

func groupByEntity(batch []models.Proposal) [][]models.Proposal {
	index := make(map[uuid.UUID]int)
	var groups [][]models.Proposal
	for _, p := range batch {
		i, ok := index[p.Entity.ID()]
		if !ok {
			i = len(groups)
			index[p.Entity.ID()] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], p)
	}
	return groups
}
