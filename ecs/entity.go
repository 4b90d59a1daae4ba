package ecs

// LifecycleState is an entity's position in the detached/active/removed/dead
// state machine.
type LifecycleState int

const (
	StateDetached LifecycleState = iota
	StateActive
	StateRemoved
	StateDead
)

func (s LifecycleState) String() string {
	switch s {
	case StateDetached:
		return "detached"
	case StateActive:
		return "active"
	case StateRemoved:
		return "removed"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// componentInstance pairs a component value with the ComponentType that
// owns it, so disposing it is a single call regardless of the concrete Go
// type underneath.
type componentInstance struct {
	value any
	owner *ComponentType
}

func (ci *componentInstance) dispose() {
	ci.owner.releaseInstance(ci.value)
}

// Entity holds a stable identity plus the live and pending-removal
// component sets, the query back-reference list, and the lifecycle state.
type Entity struct {
	ID    EntityID
	world *World

	types      []*ComponentType
	components map[*ComponentType]*componentInstance
	pending    map[*ComponentType]*componentInstance

	queries []*Query

	systemStateCount int
	state            LifecycleState
	removalQueued    bool // push onto the removal queue only once
}

func newEntity(w *World) *Entity {
	return &Entity{
		ID:         newEntityID(),
		world:      w,
		components: make(map[*ComponentType]*componentInstance),
		pending:    make(map[*ComponentType]*componentInstance),
		state:      StateDetached,
	}
}

// resetForReuse clears an entity's collections in place (preserving
// backing-array capacity) and assigns it a fresh identity, so the world's
// entity pool can recycle it without reallocating.
func (e *Entity) resetForReuse() {
	e.ID = newEntityID()
	e.types = e.types[:0]
	clear(e.components)
	clear(e.pending)
	e.queries = e.queries[:0]
	e.systemStateCount = 0
	e.state = StateDetached
	e.removalQueued = false
}

// State returns the entity's current lifecycle state.
func (e *Entity) State() LifecycleState { return e.state }

// ComponentTypes returns the set of component types currently attached.
func (e *Entity) ComponentTypes() []*ComponentType {
	out := make([]*ComponentType, len(e.types))
	copy(out, e.types)
	return out
}

// HasComponent reports whether c is attached. If includeRemoved is true, a
// component that is pending deferred removal still counts.
func (e *Entity) HasComponent(c *ComponentType, includeRemoved bool) bool {
	if _, ok := e.components[c]; ok {
		return true
	}
	if includeRemoved {
		_, ok := e.pending[c]
		return ok
	}
	return false
}

// HasAllComponents reports whether every type in types is attached.
func (e *Entity) HasAllComponents(types []*ComponentType) bool {
	for _, c := range types {
		if _, ok := e.components[c]; !ok {
			return false
		}
	}
	return true
}

// HasAnyComponents reports whether any type in types is attached.
func (e *Entity) HasAnyComponents(types []*ComponentType) bool {
	for _, c := range types {
		if _, ok := e.components[c]; ok {
			return true
		}
	}
	return false
}

// GetComponent returns c's instance, or nil if absent. It is the same live
// pointer GetMutableComponent returns; nothing prevents writes through it,
// so callers treat it as read-only. Writing through the returned value does
// not announce COMPONENT_CHANGED; see GetMutableComponent for that.
func (e *Entity) GetComponent(c *ComponentType) any {
	ci, ok := e.components[c]
	if !ok {
		return nil
	}
	return ci.value
}

// GetMutableComponent returns c's instance and, if the entity is active,
// announces a component change to every reactive query watching c. The
// handle is only valid until the next structural change to this entity.
func (e *Entity) GetMutableComponent(c *ComponentType) any {
	ci, ok := e.components[c]
	if !ok {
		return nil
	}
	if e.state == StateActive {
		e.world.index.notifyChange(e, c)
	}
	return ci.value
}

// GetRemovedComponent returns the instance of c while it sits in the
// pending-removal set (after a deferred RemoveComponent but before the tick
// drain), or nil if c is not pending.
func (e *Entity) GetRemovedComponent(c *ComponentType) any {
	ci, ok := e.pending[c]
	if !ok {
		return nil
	}
	return ci.value
}

// GetComponents returns every currently attached component instance.
func (e *Entity) GetComponents() map[*ComponentType]any {
	out := make(map[*ComponentType]any, len(e.components))
	for c, ci := range e.components {
		out[c] = ci.value
	}
	return out
}

// AddComponent attaches c to the entity, initializing it from schema
// defaults overlaid with props, and returns the entity for chaining.
// Idempotent: a no-op if c is already attached.
func (e *Entity) AddComponent(c *ComponentType, props map[string]any) *Entity {
	if _, ok := e.components[c]; ok {
		return e
	}
	if e.world.registry.lookup(c) == nil {
		e.world.warnf("addComponent: %q is not registered on this world; proceeding without guarantees", c.Name)
	}

	instance := c.newInstance()
	c.applyDefaults(instance)
	c.overlayProps(instance, props)

	e.components[c] = &componentInstance{value: instance, owner: c}
	e.types = append(e.types, c)

	if e.state == StateActive {
		e.world.index.notifyAdd(e, c)
	}
	if c.isSystemState {
		e.systemStateCount++
	}
	return e
}

// RemoveComponent detaches c. When immediate is false the instance is moved
// to the pending-removal set and the entity is queued for the end-of-tick
// drain; when true it is disposed right away. Returns true iff c was live
// and got detached, or immediate is true and a pending-removal instance of
// c was disposed. A deferred call on a component that is only pending
// removal leaves it untouched and returns false.
func (e *Entity) RemoveComponent(c *ComponentType, immediate bool) bool {
	ci, live := e.components[c]
	if !live {
		// Not attached. It may still be sitting in the pending-removal set
		// from an earlier deferred call — the end-of-tick drain finalizes
		// those with a second, immediate=true call (§4.3's
		// processRemovedComponents). That second call is not itself "the"
		// detachment (notification already fired on the first), so it
		// skips straight to disposal instead of re-running the protocol.
		if pending, ok := e.pending[c]; ok && immediate {
			delete(e.pending, c)
			pending.dispose()
			return true
		}
		return false
	}

	delete(e.components, c)
	for i, t := range e.types {
		if t == c { // pointer identity, not value equality
			e.types = append(e.types[:i], e.types[i+1:]...)
			break
		}
	}

	if e.state == StateActive {
		e.world.index.notifyRemove(e, c)
	}

	if immediate {
		ci.dispose()
	} else {
		e.pending[c] = ci
		if !e.removalQueued {
			e.removalQueued = true
			e.world.queueComponentRemoval(e)
		}
	}

	if c.isSystemState {
		e.systemStateCount--
		if e.systemStateCount == 0 && e.state != StateActive {
			e.fullDispose()
		}
	}
	return true
}

// RemoveAllComponents detaches every currently attached component type.
func (e *Entity) RemoveAllComponents(immediate bool) {
	for _, c := range e.ComponentTypes() {
		e.RemoveComponent(c, immediate)
	}
}

// Copy overlays every field of this entity's components onto other's
// matching component types, attaching any type other does not yet carry.
func (e *Entity) Copy(other *Entity) {
	for _, c := range e.types {
		src := e.components[c].value
		if dst, ok := other.components[c]; ok {
			c.copyInto(src, dst.value)
		} else {
			other.AddComponent(c, nil)
			c.copyInto(src, other.components[c].value)
		}
	}
}

// Clone creates a new detached entity carrying an independent copy of every
// component on e.
func (e *Entity) Clone() *Entity {
	clone := e.world.createDetachedEntityInternal()
	for _, c := range e.types {
		cloned := c.clone(e.components[c].value)
		clone.components[c] = &componentInstance{value: cloned, owner: c}
		clone.types = append(clone.types, c)
		if c.isSystemState {
			clone.systemStateCount++
		}
	}
	return clone
}

// Dispose requests the entity's removal. immediate=true tears the entity
// down in place; immediate=false enqueues it for the end-of-tick drain.
// An entity with a positive system-state counter becomes a ghost instead:
// every non-system-state component is removed (so queries and reactive
// listeners observe its departure normally, while state is still Active),
// but the entity itself holds in Removed until its last system-state
// component is explicitly removed — that final RemoveComponent call is what
// completes the teardown (see RemoveComponent's systemStateCount==0 branch).
func (e *Entity) Dispose(immediate bool) {
	if e.state == StateDead {
		return
	}
	if e.systemStateCount > 0 {
		for _, c := range e.ComponentTypes() {
			if !c.isSystemState {
				e.RemoveComponent(c, immediate)
			}
		}
		e.state = StateRemoved
		return
	}
	if immediate {
		e.fullDispose()
		return
	}
	e.state = StateRemoved
	e.world.queueDispose(e)
}

// fullDispose performs the complete in-place teardown: remove from every
// query, dispose every component (live and pending), clear collections, and
// release the entity back to the world's entity pool.
func (e *Entity) fullDispose() {
	queries := append([]*Query(nil), e.queries...)
	for _, q := range queries {
		q.removeEntity(e)
	}
	e.queries = e.queries[:0]

	for _, ci := range e.components {
		ci.dispose()
	}
	for _, ci := range e.pending {
		ci.dispose()
	}
	e.types = e.types[:0]
	clear(e.components)
	clear(e.pending)

	e.world.releaseEntity(e)
	e.state = StateDead
}
