package ecs

import (
	"reflect"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// SystemAttributes configures a system's registration.
type SystemAttributes struct {
	// Priority orders execution ascending (priority, registration-order).
	Priority int
	// ForcePlay runs the system even while it is disabled via SetEnabled. A
	// stopped world runs no systems, ForcePlay or not.
	ForcePlay bool
}

type systemRecord struct {
	system      System
	attrs       SystemAttributes
	order       int
	refs        map[string]*QueryRef
	mandatory   []*QueryRef
	executor    Executor
	enabled     bool
	lastElapsed time.Duration
}

func (r *systemRecord) canExecute() bool {
	for _, ref := range r.mandatory {
		if len(ref.Results()) == 0 {
			return false
		}
	}
	return true
}

// SystemManager orders systems and drives their execution each tick.
type SystemManager struct {
	world      *World
	logger     *logrus.Logger
	byType     map[reflect.Type]*systemRecord
	records    []*systemRecord
	executable []*systemRecord
	nextOrder  int
}

func newSystemManager(w *World, logger *logrus.Logger) *SystemManager {
	return &SystemManager{
		world:  w,
		logger: logger,
		byType: make(map[reflect.Type]*systemRecord),
	}
}

// Register resolves a system's query configuration against the world's
// query index, wires its reactive listeners, and — if it declares Execute —
// places it in the ordered execution list. Registering the same system
// type twice is a non-fatal, logged no-op.
func (sm *SystemManager) Register(system System, attrs ...SystemAttributes) {
	t := reflect.TypeOf(system)
	if _, ok := sm.byType[t]; ok {
		sm.logger.WithField("system", t.String()).Warn("ecs: system already registered")
		return
	}

	a := SystemAttributes{}
	if len(attrs) > 0 {
		a = attrs[0]
	}

	refs := make(map[string]*QueryRef)
	var mandatory []*QueryRef
	for name, cfg := range system.Setup() {
		ref := sm.buildQueryRef(cfg)
		refs[name] = ref
		if cfg.Mandatory {
			mandatory = append(mandatory, ref)
		}
	}
	bindQueriesField(system, refs)

	rec := &systemRecord{
		system:    system,
		attrs:     a,
		order:     sm.nextOrder,
		refs:      refs,
		mandatory: mandatory,
		enabled:   true,
	}
	sm.nextOrder++
	sm.byType[t] = rec
	sm.records = append(sm.records, rec)

	if init, ok := system.(Initializer); ok {
		init.Init()
	}

	if exec, ok := system.(Executor); ok {
		rec.executor = exec
		sm.executable = append(sm.executable, rec)
		sort.SliceStable(sm.executable, func(i, j int) bool {
			if sm.executable[i].attrs.Priority != sm.executable[j].attrs.Priority {
				return sm.executable[i].attrs.Priority < sm.executable[j].attrs.Priority
			}
			return sm.executable[i].order < sm.executable[j].order
		})
	}
}

func (sm *SystemManager) buildQueryRef(cfg QueryConfig) *QueryRef {
	q := sm.world.index.getQuery(cfg.Terms)
	ref := &QueryRef{query: q}

	if cfg.Listen.Added {
		ref.addedSeen = make(map[*Entity]bool)
		q.On("added", func(args ...any) {
			e := args[0].(*Entity)
			if ref.addedSeen[e] {
				return
			}
			ref.addedSeen[e] = true
			ref.added = append(ref.added, e)
		})
	}
	if cfg.Listen.Removed {
		ref.removedSeen = make(map[*Entity]bool)
		q.On("removed", func(args ...any) {
			e := args[0].(*Entity)
			if ref.removedSeen[e] {
				return
			}
			ref.removedSeen[e] = true
			ref.removed = append(ref.removed, e)
		})
	}
	if cfg.Listen.Changed != NoChangeListen {
		q.reactive = true
		if cfg.Listen.Changed == FilteredChange {
			ref.changedTypes = make(map[*ComponentType]bool, len(cfg.Listen.ChangedTypes))
			for _, t := range cfg.Listen.ChangedTypes {
				ref.changedTypes[t] = true
			}
		}
		ref.changedSeen = make(map[*Entity]bool)
		q.On("changed", func(args ...any) {
			e := args[0].(*Entity)
			changedType := args[1].(*ComponentType)
			if ref.changedTypes != nil && !ref.changedTypes[changedType] {
				return // filtered bucket requires membership in the configured subset
			}
			if ref.changedSeen[e] {
				return
			}
			ref.changedSeen[e] = true
			ref.changed = append(ref.changed, e)
		})
	}
	return ref
}

// bindQueriesField locates the system struct's single exported field of
// type Queries and sets it to refs, mirroring the teacher scheduler's
// reflect-based field scanning for Query[T] fields.
func bindQueriesField(system System, refs Queries) {
	v := reflect.ValueOf(system)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return
	}
	queriesType := reflect.TypeOf(Queries{})
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Type() == queriesType {
			field.Set(reflect.ValueOf(refs))
			return
		}
	}
}

// SetEnabled toggles whether a registered system participates in ticks; a
// disabled system with ForcePlay still runs.
func (sm *SystemManager) SetEnabled(system System, enabled bool) {
	if rec, ok := sm.byType[reflect.TypeOf(system)]; ok {
		rec.enabled = enabled
	}
}

// Get returns the registered system of type T, if any.
func Get[T System](sm *SystemManager) (T, bool) {
	var zero T
	t := reflect.TypeOf(zero)
	if rec, ok := sm.byType[t]; ok {
		return rec.system.(T), true
	}
	return zero, false
}

// Systems returns every registered system in registration order.
func (sm *SystemManager) Systems() []System {
	out := make([]System, len(sm.records))
	for i, r := range sm.records {
		out[i] = r.system
	}
	return out
}

// executeAll runs every enabled, executable system in priority order whose
// mandatory queries are non-empty, then clears its per-tick event buckets.
// A system panic is recovered and logged so it cannot corrupt other
// systems' view of the tick.
func (sm *SystemManager) executeAll(delta, tickTime float64) {
	for _, rec := range sm.executable {
		if !(rec.enabled || rec.attrs.ForcePlay) {
			continue
		}
		if !rec.canExecute() {
			continue
		}

		start := time.Now()
		func() {
			defer func() {
				if r := recover(); r != nil {
					sm.logger.WithField("system", reflect.TypeOf(rec.system).String()).
						Errorf("ecs: system panicked, tick continues: %v", r)
				}
			}()
			rec.executor.Execute(delta, tickTime)
		}()
		rec.lastElapsed = time.Since(start)

		for _, ref := range rec.refs {
			ref.clearEvents()
		}
	}
}

// SystemStat is one entry of SystemManager.Stats().
type SystemStat struct {
	Name        string
	LastElapsed time.Duration
	Queries     map[string]int
}

// Stats returns aggregate per-system execution and query statistics.
func (sm *SystemManager) Stats() []SystemStat {
	out := make([]SystemStat, 0, len(sm.records))
	for _, rec := range sm.records {
		queries := make(map[string]int, len(rec.refs))
		for name, ref := range rec.refs {
			queries[name] = len(ref.Results())
		}
		out = append(out, SystemStat{
			Name:        reflect.TypeOf(rec.system).String(),
			LastElapsed: rec.lastElapsed,
			Queries:     queries,
		})
	}
	return out
}
