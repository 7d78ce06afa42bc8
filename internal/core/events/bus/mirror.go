package bus

import (
	"sync"

	"github.com/google/uuid"
	"github.com/zeusync/eca/internal/core/events"
	"github.com/zeusync/eca/internal/core/fields"
	"github.com/zeusync/eca/internal/core/models"
	"github.com/zeusync/eca/internal/core/observability/log"
	"github.com/zeusync/eca/internal/core/schema"
	"github.com/zeusync/eca/internal/core/schema/registry"
)

const mirrorSource = "eca.mirror"

// Mirror republishes registry, collection and entity notifications on a bus topic.
//
// It never subscribes to proposals: doing so would register it as an arbiter
// and stop entities from applying proposals directly. Proposals reach the bus
// through Proposal, called by whoever arbitrates them.
type Mirror struct {
	bus   EventBus
	topic string
	log   log.Log

	mx       sync.Mutex
	closed   bool
	filters  []EventFilter
	global   []events.Subscription
	entities map[uuid.UUID][]events.Subscription
}

func NewMirror(b EventBus, topic string, l log.Log) *Mirror {
	if l == nil {
		l = log.Provide()
	}
	_ = b.CreateTopic(topic)
	return &Mirror{
		bus:      b,
		topic:    topic,
		log:      l.Named("mirror"),
		entities: make(map[uuid.UUID][]events.Subscription),
	}
}

func (m *Mirror) Topic() string { return m.topic }

// Filter adds filters every mirrored event must pass before it is published.
func (m *Mirror) Filter(filters ...EventFilter) {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.filters = append(m.filters, filters...)
}

// WatchRegistry publishes the schemas already in r as one batch, then every
// future registration.
func (m *Mirror) WatchRegistry(r *registry.Registry) error {
	m.mx.Lock()
	if m.closed {
		m.mx.Unlock()
		return ErrClosed
	}
	existing := r.List()
	m.global = append(m.global, r.OnRegistered(func(e registry.RegisteredEvent) {
		m.publish(TypeSchemaRegistered, schemaPayload(e.Schema))
	}))
	m.mx.Unlock()

	batch := make([]Event, 0, len(existing))
	for _, s := range existing {
		e := NewEvent(TypeSchemaRegistered, mirrorSource, schemaPayload(s))
		if m.accepts(e) {
			batch = append(batch, e)
		}
	}
	if len(batch) == 0 {
		return nil
	}
	if err := m.bus.PublishBatch(m.topic, batch...); err != nil {
		m.log.Warn("event handler failed", log.String("type", TypeSchemaRegistered), log.Error(err))
	}
	return nil
}

// WatchCollection publishes membership changes of c and follows its members:
// current members are watched at once, added ones when they join, removed ones
// are released.
func (m *Mirror) WatchCollection(c *models.EntityCollection) error {
	m.mx.Lock()
	if m.closed {
		m.mx.Unlock()
		return ErrClosed
	}
	m.global = append(m.global,
		c.OnAdded(func(e models.EntityEvent) {
			m.publish(TypeEntityAdded, membershipPayload(e))
			_ = m.WatchEntity(e.Entity)
		}),
		c.OnRemoved(func(e models.EntityEvent) {
			m.Unwatch(e.Entity)
			m.publish(TypeEntityRemoved, membershipPayload(e))
		}),
	)
	m.mx.Unlock()

	for e := range c.All() {
		if err := m.WatchEntity(e); err != nil {
			return err
		}
	}
	return nil
}

// WatchEntity publishes component creation and attribute changes of e.
// Watching an entity twice is a no-op.
func (m *Mirror) WatchEntity(e *models.Entity) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	if m.closed {
		return ErrClosed
	}
	if _, ok := m.entities[e.ID()]; ok {
		return nil
	}
	m.entities[e.ID()] = []events.Subscription{
		e.OnComponentCreated(func(ev models.ComponentCreated) {
			m.publish(TypeComponentCreated, ComponentCreated{
				Entity:    ev.Entity.ID().String(),
				Component: ev.Component.Name(),
			})
		}),
		e.OnChanged(func(ev models.AttributeChanged) {
			m.publish(TypeAttributeChanged, changePayload(ev))
		}),
	}
	return nil
}

// Unwatch stops publishing for e.
func (m *Mirror) Unwatch(e *models.Entity) {
	m.mx.Lock()
	subs := m.entities[e.ID()]
	delete(m.entities, e.ID())
	m.mx.Unlock()
	events.CancelAll(subs...)
}

// Watching reports whether e is followed.
func (m *Mirror) Watching(e *models.Entity) bool {
	m.mx.Lock()
	defer m.mx.Unlock()
	_, ok := m.entities[e.ID()]
	return ok
}

// Proposal publishes a queued proposal.
func (m *Mirror) Proposal(p models.Proposal) {
	payload := AttributeProposed{
		Component: p.Component,
		Attribute: p.Attribute,
		Value:     fields.Plain(p.Value),
	}
	if p.Entity != nil {
		payload.Entity = p.Entity.ID().String()
	}
	m.publish(TypeAttributeProposed, payload)
}

// Close cancels every subscription. Further Watch calls fail with ErrClosed.
func (m *Mirror) Close() {
	m.mx.Lock()
	if m.closed {
		m.mx.Unlock()
		return
	}
	m.closed = true
	subs := m.global
	m.global = nil
	for id, s := range m.entities {
		subs = append(subs, s...)
		delete(m.entities, id)
	}
	m.mx.Unlock()

	events.CancelAll(subs...)
}

func (m *Mirror) publish(eventType string, payload any) {
	m.mx.Lock()
	filters := m.filters
	m.mx.Unlock()

	err := m.bus.PublishWithFilters(m.topic, NewEvent(eventType, mirrorSource, payload), filters...)
	if err != nil {
		m.log.Warn("event handler failed",
			log.String("type", eventType),
			log.String("entity", EntityID(payload)),
			log.Error(err),
		)
	}
}

func (m *Mirror) accepts(e Event) bool {
	m.mx.Lock()
	defer m.mx.Unlock()
	for _, f := range m.filters {
		if !f(e) {
			return false
		}
	}
	return true
}

func schemaPayload(s *schema.ComponentSchema) SchemaRegistered {
	attrs := s.Attributes()
	names := make([]string, 0, len(attrs))
	for _, a := range attrs {
		names = append(names, a.Name())
	}
	return SchemaRegistered{Schema: s.Name(), ID: s.ID().String(), Attributes: names}
}

func membershipPayload(e models.EntityEvent) EntityMembership {
	return EntityMembership{
		Collection: e.Collection.ID().String(),
		Entity:     e.Entity.ID().String(),
		Owner:      e.Entity.Owner().String(),
	}
}

func changePayload(e models.AttributeChanged) AttributeChanged {
	return AttributeChanged{
		Entity:    e.Entity().ID().String(),
		Component: e.Component.Name(),
		Attribute: e.Attribute,
		Old:       fields.Plain(e.Old),
		New:       fields.Plain(e.New),
		InPlace:   e.InPlace,
	}
}
