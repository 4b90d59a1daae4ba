package ecs

import (
	"reflect"
	"time"

	"github.com/sirupsen/logrus"
)

// Version is the module's semantic version, reported in WorldCreatedEvent.
const Version = "1.0.0"

// WorldCreatedEvent is delivered to the optional world-created hook (§4.6,
// §9 "Global dispatch bus" — modeled as an injectable listener instead of a
// process-wide event).
type WorldCreatedEvent struct {
	World   *World
	Version string
}

// World is the public façade owning the system manager, the entity pool,
// the entity list and uuid index, the component-type registry, the query
// index, and the deferred-removal queues (§4.6).
type World struct {
	registry *ComponentRegistry
	kinds    map[string]Kind
	index    *QueryIndex
	Systems  *SystemManager
	logger   *logrus.Logger

	entities   []*Entity
	entityIdx  map[*Entity]int
	byUUID     map[EntityID]*Entity
	entityFree []*Entity

	disposalQueue         []*Entity
	componentRemovalQueue []*Entity

	enabled   bool
	lastTime  float64
	now       func() float64
	onCreated func(WorldCreatedEvent)
}

// WorldOption configures NewWorld.
type WorldOption func(*World)

// WithLogger injects a *logrus.Logger for §7 warning-kind diagnostics.
func WithLogger(l *logrus.Logger) WorldOption {
	return func(w *World) { w.logger = l }
}

// WithNow overrides the external monotonic clock source used to derive
// delta when World.Execute is called without one (§1's external `now()`).
func WithNow(now func() float64) WorldOption {
	return func(w *World) { w.now = now }
}

// WithWorldCreatedHook registers the optional world-created notification
// (§4.6, §6).
func WithWorldCreatedHook(hook func(WorldCreatedEvent)) WorldOption {
	return func(w *World) { w.onCreated = hook }
}

// WithKind registers a user-defined schema Kind, resolvable from component
// field tags as `ecs:"kind=<id>"` (§9 "Dynamic schema kinds").
func WithKind(k Kind) WorldOption {
	return func(w *World) { w.kinds[k.ID] = k }
}

func defaultNow() float64 {
	return float64(time.Now().UnixMilli())
}

// NewWorld constructs a World with the fixed primitive kinds registered,
// applies opts, and emits WorldCreatedEvent to the optional hook.
func NewWorld(opts ...WorldOption) *World {
	w := &World{
		registry:  newComponentRegistry(),
		kinds:     builtinKinds(),
		entityIdx: make(map[*Entity]int),
		byUUID:    make(map[EntityID]*Entity),
		enabled:   true,
		now:       defaultNow,
		logger:    logrus.New(),
	}
	w.index = newQueryIndex(w)

	for _, opt := range opts {
		opt(w)
	}
	w.Systems = newSystemManager(w, w.logger)
	w.lastTime = w.now()

	if w.onCreated != nil {
		w.onCreated(WorldCreatedEvent{World: w, Version: Version})
	}
	return w
}

func builtinKinds() map[string]Kind {
	return map[string]Kind{
		KindNumber.ID:  KindNumber,
		KindBoolean.ID: KindBoolean,
		KindString.ID:  KindString,
		KindOpaque.ID:  KindOpaque,
		KindArray.ID:   KindArray,
		KindJSON.ID:    KindJSON,
	}
}

func (w *World) warnf(format string, args ...any) {
	w.logger.Warnf(format, args...)
}

// RegisterComponent registers T's schema on w, returning its ComponentType
// for use in AddComponent/GetQuery/etc. Re-registering the same Go type is
// a non-fatal, logged no-op that returns the existing ComponentType (§7).
func RegisterComponent[T any](w *World, opts ...ComponentOption) *ComponentType {
	var zero T
	goType := reflect.TypeOf(zero)
	if existing, ok := w.registry.byGoType[goType]; ok {
		w.warnf("ecs: component %s already registered", existing.Name)
		return existing
	}
	ct := registerComponentType[T](w, opts...)
	w.registry.add(goType, ct)
	return ct
}

// RegisterSystem registers system on w's SystemManager.
func (w *World) RegisterSystem(system System, attrs ...SystemAttributes) *World {
	w.Systems.Register(system, attrs...)
	return w
}

// CreateComponent returns a schema-initialized instance of c, pooled if c
// has a pool (§6).
func (w *World) CreateComponent(c *ComponentType) any {
	inst := c.newInstance()
	c.applyDefaults(inst)
	return inst
}

// createDetachedEntityInternal acquires an entity from the free pool or
// allocates a fresh one, in state detached.
func (w *World) createDetachedEntityInternal() *Entity {
	if n := len(w.entityFree); n > 0 {
		e := w.entityFree[n-1]
		w.entityFree = w.entityFree[:n-1]
		e.resetForReuse()
		return e
	}
	return newEntity(w)
}

// CreateDetachedEntity constructs an entity not yet visible to queries
// (§4.2).
func (w *World) CreateDetachedEntity() *Entity {
	return w.createDetachedEntityInternal()
}

// CreateEntity constructs an entity and immediately adds it to the world.
func (w *World) CreateEntity() *Entity {
	e := w.createDetachedEntityInternal()
	w.AddEntity(e)
	return e
}

// AddEntity adopts a detached entity, making it active and visible to every
// matching query. Adding an already-tracked entity is a warning that
// returns the existing entity (§7 DuplicateEntity).
func (w *World) AddEntity(e *Entity) *Entity {
	if existing, ok := w.byUUID[e.ID]; ok {
		w.warnf("ecs: entity %s is already tracked", e.ID)
		return existing
	}
	e.state = StateActive
	w.entityIdx[e] = len(w.entities)
	w.entities = append(w.entities, e)
	w.byUUID[e.ID] = e
	w.index.activateEntity(e)
	return e
}

// GetEntityByUUID looks up a tracked entity by its identifier.
func (w *World) GetEntityByUUID(id EntityID) (*Entity, bool) {
	e, ok := w.byUUID[id]
	return e, ok
}

// GetQuery returns the shared Query for terms (§6). Panics if terms carries
// no positive (C⁺) component.
func (w *World) GetQuery(terms ...Term) *Query {
	return w.index.getQuery(terms)
}

// queueDispose enqueues e for the end-of-tick disposal drain.
func (w *World) queueDispose(e *Entity) {
	w.disposalQueue = append(w.disposalQueue, e)
}

// queueComponentRemoval enqueues e for the end-of-tick pending-component
// drain. Callers must only invoke this once per entity per queue cycle
// (Entity.RemoveComponent guards via removalQueued, design note iii).
func (w *World) queueComponentRemoval(e *Entity) {
	w.componentRemovalQueue = append(w.componentRemovalQueue, e)
}

// releaseEntity removes e from the world's tracking structures and returns
// it to the entity pool (I4: a dead entity is in the free pool, referenced
// by no query).
func (w *World) releaseEntity(e *Entity) {
	if idx, ok := w.entityIdx[e]; ok {
		last := len(w.entities) - 1
		moved := w.entities[last]
		w.entities[idx] = moved
		w.entityIdx[moved] = idx
		w.entities = w.entities[:last]
		delete(w.entityIdx, e)
	}
	delete(w.byUUID, e.ID)
	w.entityFree = append(w.entityFree, e)
}

// Stop disables stepping until Play is called (§5, §6).
func (w *World) Stop() { w.enabled = false }

// Play re-enables stepping after Stop.
func (w *World) Play() { w.enabled = true }

// Enabled reports whether the world currently steps on Execute.
func (w *World) Enabled() bool { return w.enabled }

// Execute runs one tick: orders and executes every enabled system, then
// drains deferred entity disposals followed by deferred per-entity
// component removals (§4.5 step 2, §4.6). delta/time default to values
// derived from the injected now() clock when nil.
func (w *World) Execute(delta, tickTime *float64) {
	now := w.now()
	t := now
	if tickTime != nil {
		t = *tickTime
	}
	d := now - w.lastTime
	if delta != nil {
		d = *delta
	}
	w.lastTime = now

	if !w.enabled {
		return
	}

	w.Systems.executeAll(d, t)
	w.drain()
}

// Tick runs Execute deriving both delta and time from the world's clock.
func (w *World) Tick() { w.Execute(nil, nil) }

func (w *World) drain() {
	disposals := w.disposalQueue
	w.disposalQueue = nil
	for _, e := range disposals {
		if e.state == StateDead {
			continue
		}
		if e.systemStateCount > 0 {
			continue // ghost (I5): stays in `removed` until the last system-state component is removed
		}
		e.fullDispose()
	}

	removals := w.componentRemovalQueue
	w.componentRemovalQueue = nil
	for _, e := range removals {
		e.removalQueued = false
		if e.state == StateDead {
			clear(e.pending)
			continue
		}
		for len(e.pending) > 0 {
			var next *ComponentType
			for c := range e.pending {
				next = c
				break
			}
			e.RemoveComponent(next, true)
		}
	}
}

// Stats aggregates entity, entity-pool, query, and per-system statistics
// (§4.5's "aggregate statistics", §4.6).
type Stats struct {
	EntityCount   int
	ActiveCount   int
	RemovedCount  int
	FreePoolCount int
	QueryCount    int
	SystemStats   []SystemStat
}

// Stats reports current world-level aggregate statistics.
func (w *World) Stats() Stats {
	var active, removed int
	for _, e := range w.entities {
		switch e.state {
		case StateActive:
			active++
		case StateRemoved:
			removed++
		}
	}
	return Stats{
		EntityCount:   len(w.entities),
		ActiveCount:   active,
		RemovedCount:  removed,
		FreePoolCount: len(w.entityFree),
		QueryCount:    len(w.index.queries),
		SystemStats:   w.Systems.Stats(),
	}
}
