package ecs_test

import (
	"testing"

	"github.com/plus3/ecsworld/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addRemoveRecorder is spec §8 scenario 3's listening system: it watches
// added/removed on a single-term query and snapshots each tick's bucket.
type addRemoveRecorder struct {
	Queries ecs.Queries
	term    ecs.Term

	addedAtTick   [][]*ecs.Entity
	removedAtTick [][]*ecs.Entity
}

func (s *addRemoveRecorder) Setup() map[string]ecs.QueryConfig {
	return map[string]ecs.QueryConfig{
		"q": {Terms: []ecs.Term{s.term}, Listen: ecs.ListenConfig{Added: true, Removed: true}},
	}
}

func (s *addRemoveRecorder) Execute(delta, time float64) {
	ref := s.Queries["q"]
	s.addedAtTick = append(s.addedAtTick, append([]*ecs.Entity(nil), ref.Added()...))
	s.removedAtTick = append(s.removedAtTick, append([]*ecs.Entity(nil), ref.Removed()...))
}

func TestReactiveAddedRemovedScenario(t *testing.T) {
	w := ecs.NewWorld()
	a := ecs.RegisterComponent[Position](w)

	sys := &addRemoveRecorder{term: ecs.Include(a)}
	w.RegisterSystem(sys)

	e1 := w.CreateEntity()
	e1.AddComponent(a, nil)
	w.Tick()

	require.Len(t, sys.addedAtTick, 1)
	assert.ElementsMatch(t, []*ecs.Entity{e1}, sys.addedAtTick[0])
	assert.Empty(t, sys.removedAtTick[0])

	e1.RemoveComponent(a, false) // deferred
	w.Tick()

	require.Len(t, sys.removedAtTick, 2)
	assert.ElementsMatch(t, []*ecs.Entity{e1}, sys.removedAtTick[1])

	w.Tick()
	assert.Empty(t, sys.addedAtTick[2], "added bucket must be empty at the start of the next tick")
}

// changedFilterRecorder is spec §8 scenario 4.
type changedFilterRecorder struct {
	Queries    ecs.Queries
	includeA   ecs.Term
	includeB   ecs.Term
	filterType *ecs.ComponentType

	changedAtTick [][]*ecs.Entity
}

func (s *changedFilterRecorder) Setup() map[string]ecs.QueryConfig {
	return map[string]ecs.QueryConfig{
		"q": {
			Terms: []ecs.Term{s.includeA, s.includeB},
			Listen: ecs.ListenConfig{
				Changed:      ecs.FilteredChange,
				ChangedTypes: []*ecs.ComponentType{s.filterType},
			},
		},
	}
}

func (s *changedFilterRecorder) Execute(delta, time float64) {
	ref := s.Queries["q"]
	s.changedAtTick = append(s.changedAtTick, append([]*ecs.Entity(nil), ref.Changed()...))
}

func TestReactiveChangedFilterScenario(t *testing.T) {
	w := ecs.NewWorld()
	a := ecs.RegisterComponent[Position](w)
	b := ecs.RegisterComponent[Velocity](w)

	sys := &changedFilterRecorder{includeA: ecs.Include(a), includeB: ecs.Include(b), filterType: a}
	w.RegisterSystem(sys)

	e2 := w.CreateEntity()
	e2.AddComponent(a, nil)
	e2.AddComponent(b, nil)

	e2.GetMutableComponent(b) // mutate only B
	w.Tick()
	assert.Empty(t, sys.changedAtTick[0])

	e2.GetMutableComponent(a) // mutate A
	w.Tick()
	assert.ElementsMatch(t, []*ecs.Entity{e2}, sys.changedAtTick[1])

	e2.GetMutableComponent(a)
	e2.GetMutableComponent(a) // mutate A twice in the same tick
	w.Tick()
	// TestReactiveChangedDedup (property P6) covers dedup precisely; here we
	// just confirm the bucket still contains exactly one entry.
	assert.ElementsMatch(t, []*ecs.Entity{e2}, sys.changedAtTick[2])
}

// TestReactiveChangedDedup is property P6: at most one occurrence per
// entity per tick, even across several distinct mutations.
func TestReactiveChangedDedup(t *testing.T) {
	w := ecs.NewWorld()
	a := ecs.RegisterComponent[Position](w)
	b := ecs.RegisterComponent[Velocity](w)

	sys := &changedFilterRecorder{includeA: ecs.Include(a), includeB: ecs.Include(b), filterType: a}
	w.RegisterSystem(sys)

	e := w.CreateEntity()
	e.AddComponent(a, nil)
	e.AddComponent(b, nil)

	for i := 0; i < 5; i++ {
		e.GetMutableComponent(a)
	}
	w.Tick()

	require.Len(t, sys.changedAtTick[0], 1)
	assert.Same(t, e, sys.changedAtTick[0][0])
}

// prioritySystem records the global call order it observes via a shared
// counter, for spec §8 scenario 6.
type prioritySystem struct {
	Queries ecs.Queries
	onRun   func()
}

func (s *prioritySystem) Setup() map[string]ecs.QueryConfig { return nil }
func (s *prioritySystem) Execute(delta, time float64)       { s.onRun() }

// otherPrioritySystem is a second system type: systems are registered per
// type, so a second *prioritySystem would be rejected as a duplicate.
type otherPrioritySystem struct {
	prioritySystem
}

func TestSystemPriorityOrdering(t *testing.T) {
	var order []string

	w := ecs.NewWorld()
	s1 := &prioritySystem{onRun: func() { order = append(order, "s1") }}
	s2 := &otherPrioritySystem{prioritySystem{onRun: func() { order = append(order, "s2") }}}

	w.RegisterSystem(s1, ecs.SystemAttributes{Priority: 10})
	w.RegisterSystem(s2, ecs.SystemAttributes{Priority: 1})

	w.Tick()
	assert.Equal(t, []string{"s2", "s1"}, order)
}

func TestMandatoryQueryGatesExecution(t *testing.T) {
	w := ecs.NewWorld()
	a := ecs.RegisterComponent[Position](w)

	var ran int
	sys := &mandatorySystem{term: ecs.Include(a), onRun: func() { ran++ }}
	w.RegisterSystem(sys)

	w.Tick() // no entities yet: mandatory query empty, canExecute() false
	assert.Equal(t, 0, ran)

	e := w.CreateEntity()
	e.AddComponent(a, nil)
	w.Tick()
	assert.Equal(t, 1, ran)
}

type mandatorySystem struct {
	Queries ecs.Queries
	term    ecs.Term
	onRun   func()
}

func (s *mandatorySystem) Setup() map[string]ecs.QueryConfig {
	return map[string]ecs.QueryConfig{
		"q": {Terms: []ecs.Term{s.term}, Mandatory: true},
	}
}

func (s *mandatorySystem) Execute(delta, time float64) { s.onRun() }

func TestRegisteringSameSystemTwiceIsNoop(t *testing.T) {
	w := ecs.NewWorld()
	sys := &prioritySystem{onRun: func() {}}
	w.RegisterSystem(sys)
	w.RegisterSystem(sys)
	assert.Len(t, w.Systems.Systems(), 1)
}

func TestSystemPanicDoesNotAbortTick(t *testing.T) {
	w := ecs.NewWorld()

	var ranAfter bool
	panicky := &prioritySystem{onRun: func() { panic("boom") }}
	ok := &otherPrioritySystem{prioritySystem{onRun: func() { ranAfter = true }}}

	w.RegisterSystem(panicky, ecs.SystemAttributes{Priority: 0})
	w.RegisterSystem(ok, ecs.SystemAttributes{Priority: 1})

	require.NotPanics(t, func() { w.Tick() })
	assert.True(t, ranAfter)
}
