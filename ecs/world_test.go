package ecs_test

import (
	"regexp"
	"testing"

	"github.com/plus3/ecsworld/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var uuidV4Pattern = regexp.MustCompile(`^[0-9A-F]{8}-[0-9A-F]{4}-4[0-9A-F]{3}-[89AB][0-9A-F]{3}-[0-9A-F]{12}$`)

func TestEntityIDIsUppercaseV4UUID(t *testing.T) {
	w := ecs.NewWorld()
	e := w.CreateEntity()
	assert.Regexp(t, uuidV4Pattern, string(e.ID))
}

func TestGetEntityByUUID(t *testing.T) {
	w := ecs.NewWorld()
	e := w.CreateEntity()

	found, ok := w.GetEntityByUUID(e.ID)
	require.True(t, ok)
	assert.Same(t, e, found)

	_, ok = w.GetEntityByUUID("not-a-real-id")
	assert.False(t, ok)
}

func TestAddEntityTwiceReturnsExisting(t *testing.T) {
	w := ecs.NewWorld()
	e := w.CreateEntity()

	returned := w.AddEntity(e)
	assert.Same(t, e, returned)
}

func TestRegisterComponentTwiceReturnsExisting(t *testing.T) {
	w := ecs.NewWorld()
	first := ecs.RegisterComponent[Position](w)
	second := ecs.RegisterComponent[Position](w)
	assert.Same(t, first, second)
}

func TestWorldCreatedHookFires(t *testing.T) {
	var got *ecs.WorldCreatedEvent
	w := ecs.NewWorld(ecs.WithWorldCreatedHook(func(ev ecs.WorldCreatedEvent) {
		got = &ev
	}))

	require.NotNil(t, got)
	assert.Same(t, w, got.World)
	assert.Equal(t, ecs.Version, got.Version)
}

func TestStopPreventsExecution(t *testing.T) {
	w := ecs.NewWorld()
	a := ecs.RegisterComponent[Position](w)

	var ran int
	sys := &prioritySystem{onRun: func() { ran++ }}
	w.RegisterSystem(sys)
	_ = a

	w.Stop()
	w.Tick()
	assert.Equal(t, 0, ran)
	assert.False(t, w.Enabled())

	w.Play()
	w.Tick()
	assert.Equal(t, 1, ran)
}

func TestWorldStatsTracksEntitiesAndQueries(t *testing.T) {
	w := ecs.NewWorld()
	a := ecs.RegisterComponent[Position](w)
	w.GetQuery(ecs.Include(a))

	e1 := w.CreateEntity()
	e1.AddComponent(a, nil)
	e2 := w.CreateEntity()
	e2.AddComponent(a, nil)
	e2.Dispose(false)

	stats := w.Stats()
	assert.Equal(t, 2, stats.EntityCount)
	assert.Equal(t, 1, stats.ActiveCount)
	assert.Equal(t, 1, stats.RemovedCount)
	assert.Equal(t, 1, stats.QueryCount)

	w.Tick()
	stats = w.Stats()
	assert.Equal(t, 1, stats.EntityCount)
	assert.Equal(t, 1, stats.FreePoolCount)
}

func TestCreateDetachedEntityIsInvisibleToQueries(t *testing.T) {
	w := ecs.NewWorld()
	a := ecs.RegisterComponent[Position](w)
	q := w.GetQuery(ecs.Include(a))

	e := w.CreateDetachedEntity()
	e.AddComponent(a, nil)
	assert.Empty(t, q.Entities())

	w.AddEntity(e)
	assert.Contains(t, q.Entities(), e)
}

func TestExecuteDerivesDeltaFromInjectedClock(t *testing.T) {
	clock := float64(1000)
	w := ecs.NewWorld(ecs.WithNow(func() float64 { return clock }))

	var deltas []float64
	sys := &deltaRecorder{onRun: func(d, _ float64) { deltas = append(deltas, d) }}
	w.RegisterSystem(sys)

	clock = 1016
	w.Execute(nil, nil)

	require.Len(t, deltas, 1)
	assert.Equal(t, float64(16), deltas[0])
}

type deltaRecorder struct {
	Queries ecs.Queries
	onRun   func(delta, time float64)
}

func (s *deltaRecorder) Setup() map[string]ecs.QueryConfig { return nil }
func (s *deltaRecorder) Execute(delta, time float64)       { s.onRun(delta, time) }
