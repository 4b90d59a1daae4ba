package ecs

// ChangedListen selects which COMPONENT_CHANGED events a query bucket
// collects.
type ChangedListen int

const (
	// NoChangeListen disables the changed bucket for a query.
	NoChangeListen ChangedListen = iota
	// AnyChange observes a change to any C⁺ component (listen.changed = true).
	AnyChange
	// FilteredChange observes only changes to the types named in
	// ListenConfig.ChangedTypes (listen.changed = [Types...]).
	FilteredChange
)

// ListenConfig declares which reactive buckets a query should populate.
type ListenConfig struct {
	Added        bool
	Removed      bool
	Changed      ChangedListen
	ChangedTypes []*ComponentType
}

// QueryConfig is one entry of a System's static query configuration: a
// component list plus whether the query is mandatory for canExecute and
// which reactive buckets it should populate.
type QueryConfig struct {
	Terms     []Term
	Mandatory bool
	Listen    ListenConfig
}

// QueryRef exposes a configured query's live result set plus its per-tick
// reactive buckets to a System.
type QueryRef struct {
	query *Query

	added   []*Entity
	removed []*Entity
	changed []*Entity

	addedSeen   map[*Entity]bool
	removedSeen map[*Entity]bool
	changedSeen map[*Entity]bool

	changedTypes map[*ComponentType]bool
}

// Results returns the query's current matching entity set.
func (r *QueryRef) Results() []*Entity { return r.query.Entities() }

// Added returns the entities added to the query since the last clearEvents.
func (r *QueryRef) Added() []*Entity { return r.added }

// Removed returns the entities removed from the query since the last
// clearEvents.
func (r *QueryRef) Removed() []*Entity { return r.removed }

// Changed returns the entities whose watched components changed since the
// last clearEvents.
func (r *QueryRef) Changed() []*Entity { return r.changed }

func (r *QueryRef) clearEvents() {
	r.added = r.added[:0]
	r.removed = r.removed[:0]
	r.changed = r.changed[:0]
	clear(r.addedSeen)
	clear(r.removedSeen)
	clear(r.changedSeen)
}

// Queries is the map a System exposes as its single `Queries Queries`
// field; SystemManager.Register populates it by reflection, mirroring the
// teacher's field-scanning idiom in the scheduler.
type Queries map[string]*QueryRef

// System is a unit of behavior with a static query configuration. Setup is
// called once at registration.
type System interface {
	Setup() map[string]QueryConfig
}

// Executor is implemented by systems that run on every tick; only such
// systems are placed in the ordered execution list.
type Executor interface {
	Execute(delta, time float64)
}

// Initializer is implemented by systems with one-time setup to run right
// after registration.
type Initializer interface {
	Init()
}
