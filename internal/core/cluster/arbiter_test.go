package cluster

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/eca/internal/core/fields"
	"github.com/zeusync/eca/internal/core/models"
	"github.com/zeusync/eca/internal/core/observability/log"
	"github.com/zeusync/eca/internal/core/schema"
	"github.com/zeusync/eca/internal/core/schema/registry"
)

func newRegistry(t *testing.T) *registry.Registry {
	reg := registry.New()
	health := schema.NewComponent("health")
	require.NoError(t, health.Define("hp", fields.Int, 100))
	require.NoError(t, reg.Register(health))
	return reg
}

func hp(t *testing.T, e *models.Entity) any {
	attr, err := e.Attribute("health", "hp")
	require.NoError(t, err)
	return attr.Value()
}

func TestArbiterQueuesUntilCommit(t *testing.T) {
	reg := newRegistry(t)
	collection := models.NewCollection()
	arbiter := NewArbiter(collection.ID(), WithLogger(log.Nop()))
	arbiter.Watch(collection)

	entity := models.NewEntityWithID(uuid.New(), collection.ID(), reg)
	require.NoError(t, collection.Add(entity))
	assert.True(t, arbiter.Attached(entity))
	assert.True(t, entity.Arbitrated())

	var queued []models.Proposal
	arbiter.OnQueued(func(p models.Proposal) { queued = append(queued, p) })

	require.NoError(t, entity.Propose(models.Proposal{Component: "health", Attribute: "hp", Value: 50}))
	require.NoError(t, entity.Propose(models.Proposal{Component: "health", Attribute: "hp", Value: 40}))

	assert.Equal(t, 100, hp(t, entity))
	assert.Equal(t, 2, arbiter.Pending())
	require.Len(t, queued, 2)
	assert.Same(t, entity, queued[0].Entity)

	require.NoError(t, arbiter.Commit(context.Background()))
	assert.Equal(t, 40, hp(t, entity))
	assert.Zero(t, arbiter.Pending())
}

func TestArbiterDetachRestoresDirectApply(t *testing.T) {
	reg := newRegistry(t)
	collection := models.NewCollection()
	arbiter := NewArbiter(collection.ID(), WithLogger(log.Nop()))
	arbiter.Watch(collection)

	entity := models.NewEntityWithID(uuid.New(), collection.ID(), reg)
	require.NoError(t, collection.Add(entity))
	assert.True(t, collection.Remove(entity))
	assert.False(t, arbiter.Attached(entity))
	assert.False(t, entity.Arbitrated())

	require.NoError(t, entity.Propose(models.Proposal{Component: "health", Attribute: "hp", Value: 7}))
	assert.Equal(t, 7, hp(t, entity))
}

func TestArbiterForwardsForeignEntities(t *testing.T) {
	reg := newRegistry(t)
	local := uuid.New()
	remote := uuid.New()

	var mx sync.Mutex
	var forwarded []uuid.UUID
	forwarder := ForwarderFunc(func(_ context.Context, owner uuid.UUID, p models.Proposal) error {
		mx.Lock()
		defer mx.Unlock()
		forwarded = append(forwarded, owner)
		return nil
	})
	arbiter := NewArbiter(local, WithForwarder(forwarder), WithLogger(log.Nop()))

	mine := models.NewEntityWithID(uuid.New(), local, reg)
	theirs := models.NewEntityWithID(uuid.New(), remote, reg)
	arbiter.Attach(mine)
	arbiter.Attach(theirs)

	require.NoError(t, mine.Propose(models.Proposal{Component: "health", Attribute: "hp", Value: 1}))
	require.NoError(t, theirs.Propose(models.Proposal{Component: "health", Attribute: "hp", Value: 2}))
	require.NoError(t, arbiter.Commit(context.Background()))

	assert.Equal(t, 1, hp(t, mine))
	assert.Equal(t, 100, hp(t, theirs))
	assert.Equal(t, []uuid.UUID{remote}, forwarded)
}

func TestArbiterCollectsErrors(t *testing.T) {
	reg := newRegistry(t)
	local := uuid.New()
	arbiter := NewArbiter(local, WithLogger(log.Nop()))

	foreign := models.NewEntityWithID(uuid.New(), uuid.New(), reg)
	broken := models.NewEntityWithID(uuid.New(), local, reg)
	fine := models.NewEntityWithID(uuid.New(), local, reg)
	for _, e := range []*models.Entity{foreign, broken, fine} {
		arbiter.Attach(e)
	}

	require.NoError(t, foreign.Propose(models.Proposal{Component: "health", Attribute: "hp", Value: 1}))
	require.NoError(t, broken.Propose(models.Proposal{Component: "health", Attribute: "hp", Value: "lots"}))
	require.NoError(t, fine.Propose(models.Proposal{Component: "health", Attribute: "hp", Value: 3}))

	err := arbiter.Commit(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoForwarder)
	assert.ErrorIs(t, err, fields.ErrTypeMismatch)
	assert.Equal(t, 3, hp(t, fine))
	assert.Equal(t, 100, hp(t, broken))
}

func TestArbiterPolicy(t *testing.T) {
	reg := newRegistry(t)
	local := uuid.New()
	clamp := func(p models.Proposal) (models.Proposal, error) {
		v, ok := p.Value.(int)
		if !ok {
			return p, ErrRejected
		}
		if v < 0 {
			p.Value = 0
		}
		return p, nil
	}
	arbiter := NewArbiter(local, WithPolicy(clamp), WithParallelism(1), WithLogger(log.Nop()))

	entity := models.NewEntityWithID(uuid.New(), local, reg)
	arbiter.Attach(entity)
	require.NoError(t, entity.Propose(models.Proposal{Component: "health", Attribute: "hp", Value: -5}))
	require.NoError(t, arbiter.Commit(context.Background()))
	assert.Equal(t, 0, hp(t, entity))

	require.NoError(t, entity.Propose(models.Proposal{Component: "health", Attribute: "hp", Value: "x"}))
	assert.True(t, errors.Is(arbiter.Commit(context.Background()), ErrRejected))
	assert.Equal(t, 0, hp(t, entity))
}

func TestArbiterRunCommitsOnTickAndStop(t *testing.T) {
	reg := newRegistry(t)
	local := uuid.New()
	arbiter := NewArbiter(local, WithLogger(log.Nop()))
	entity := models.NewEntityWithID(uuid.New(), local, reg)
	arbiter.Attach(entity)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		arbiter.Run(ctx, time.Hour)
		close(done)
	}()

	require.NoError(t, entity.Propose(models.Proposal{Component: "health", Attribute: "hp", Value: 9}))
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("arbiter did not stop")
	}
	assert.Equal(t, 9, hp(t, entity))
	assert.Zero(t, arbiter.Pending())

	arbiter.Close()
	assert.False(t, entity.Arbitrated())
}

func TestArbiterCancelledCommitKeepsProposals(t *testing.T) {
	reg := newRegistry(t)
	collection := models.NewCollection()
	arbiter := NewArbiter(collection.ID(), WithLogger(log.Nop()))
	arbiter.Watch(collection)

	first := models.NewEntityWithID(uuid.New(), collection.ID(), reg)
	second := models.NewEntityWithID(uuid.New(), collection.ID(), reg)
	require.NoError(t, collection.Add(first))
	require.NoError(t, collection.Add(second))

	require.NoError(t, first.Propose(models.Proposal{Component: "health", Attribute: "hp", Value: 5}))
	require.NoError(t, first.Propose(models.Proposal{Component: "health", Attribute: "hp", Value: 6}))
	require.NoError(t, second.Propose(models.Proposal{Component: "health", Attribute: "hp", Value: 9}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := arbiter.Commit(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, arbiter.Pending())
	assert.Equal(t, 100, hp(t, first))

	// proposals queued meanwhile stay behind the requeued ones
	require.NoError(t, first.Propose(models.Proposal{Component: "health", Attribute: "hp", Value: 7}))

	require.NoError(t, arbiter.Commit(context.Background()))
	assert.Zero(t, arbiter.Pending())
	assert.Equal(t, 7, hp(t, first))
	assert.Equal(t, 9, hp(t, second))
}
