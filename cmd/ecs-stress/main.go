package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/plus3/ecsworld/ecs"
)

// Component and system counts driving the report header. Unlike the
// generator-driven original this binary is self-contained: a small, fixed
// component/system set run against a large, configurable entity count.
const (
	componentCount = 4
	systemCount    = 2
)

// Position, Velocity, Health, and the Decaying tag are the stress test's
// component set: enough variety to exercise multi-term queries, the mutable
// write path (and its COMPONENT_CHANGED fan-out), and deferred disposal.
type Position struct{ X, Y float64 }
type Velocity struct{ DX, DY float64 }
type Health struct{ HP float64 }
type Decaying struct{}

var (
	positionType *ecs.ComponentType
	velocityType *ecs.ComponentType
	healthType   *ecs.ComponentType
	decayingType *ecs.ComponentType
)

// MovementSystem integrates Position by Velocity every tick. Its query is
// mandatory: with zero moving entities the system is skipped entirely.
type MovementSystem struct {
	Queries ecs.Queries
}

func (s *MovementSystem) Setup() map[string]ecs.QueryConfig {
	return map[string]ecs.QueryConfig{
		"moving": {
			Terms:     []ecs.Term{ecs.Include(positionType), ecs.Include(velocityType)},
			Mandatory: true,
		},
	}
}

func (s *MovementSystem) Execute(delta, _ float64) {
	for _, e := range s.Queries["moving"].Results() {
		pos := e.GetMutableComponent(positionType).(*Position)
		vel := e.GetComponent(velocityType).(*Velocity)
		pos.X += vel.DX * delta
		pos.Y += vel.DY * delta
	}
}

// DecaySystem drains Health on every Decaying entity and disposes those that
// reach zero, exercising the deferred-disposal drain under sustained churn.
type DecaySystem struct {
	Queries ecs.Queries
}

func (s *DecaySystem) Setup() map[string]ecs.QueryConfig {
	return map[string]ecs.QueryConfig{
		"decaying": {
			Terms: []ecs.Term{ecs.Include(healthType), ecs.Include(decayingType)},
		},
	}
}

func (s *DecaySystem) Execute(delta, _ float64) {
	for _, e := range s.Queries["decaying"].Results() {
		hp := e.GetMutableComponent(healthType).(*Health)
		hp.HP -= delta * 10
		if hp.HP <= 0 {
			e.Dispose(false)
		}
	}
}

// spawnRandomEntity creates an entity with Position and a random subset of
// Velocity / Health+Decaying, mirroring the generator's "1 to 5 random
// components" mix without depending on generated code.
func spawnRandomEntity(w *ecs.World) {
	e := w.CreateEntity()
	e.AddComponent(positionType, map[string]any{
		"X": rand.Float64() * 100,
		"Y": rand.Float64() * 100,
	})
	if rand.Intn(2) == 0 {
		e.AddComponent(velocityType, map[string]any{
			"DX": rand.Float64()*2 - 1,
			"DY": rand.Float64()*2 - 1,
		})
	}
	if rand.Intn(3) == 0 {
		e.AddComponent(healthType, map[string]any{"HP": 100.0})
		e.AddComponent(decayingType, nil)
	}
}

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the test should run for.")
	entityCount := flag.Int("entities", 10000, "The initial number of entities to create.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	spawnChurn := flag.Bool("spawn-churn", true, "Keep spawning replacement entities as decayed ones are disposed.")
	flag.Parse()

	log.Println("Starting ECS stress test...")

	w := ecs.NewWorld()
	positionType = ecs.RegisterComponent[Position](w)
	velocityType = ecs.RegisterComponent[Velocity](w)
	healthType = ecs.RegisterComponent[Health](w)
	decayingType = ecs.RegisterComponent[Decaying](w, ecs.AsTag())

	w.RegisterSystem(&MovementSystem{}, ecs.SystemAttributes{Priority: 0})
	w.RegisterSystem(&DecaySystem{}, ecs.SystemAttributes{Priority: 1})

	log.Printf("Populating world with %d entities...\n", *entityCount)
	for i := 0; i < *entityCount; i++ {
		spawnRandomEntity(w)
	}
	log.Println("Population complete.")

	report := &Report{
		Duration:       *duration,
		Entities:       *entityCount,
		Components:     componentCount,
		Systems:        systemCount,
		GCPauseMetrics: *gcPauseMetrics,
		UpdateTime: Stats{
			Samples: make([]time.Duration, 0),
		},
	}

	runtime.ReadMemStats(&report.MemStatsStart)

	log.Printf("Running simulation for %s...\n", *duration)
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	startTime := time.Now()
	var totalUpdates int64
	lastFrameTime := time.Now()

Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			now := time.Now()
			deltaTime := now.Sub(lastFrameTime)
			lastFrameTime = now

			d := deltaTime.Seconds()
			t := now.Sub(startTime).Seconds()

			updateStart := time.Now()
			w.Execute(&d, &t)
			updateDuration := time.Since(updateStart)

			report.UpdateTime.Samples = append(report.UpdateTime.Samples, updateDuration)
			totalUpdates++

			if *spawnChurn && totalUpdates%50 == 0 {
				spawnRandomEntity(w)
			}
		}
	}

	report.TotalTime = time.Since(startTime)
	report.TotalUpdates = totalUpdates
	report.UpdateTime.Finalize()
	runtime.ReadMemStats(&report.MemStatsEnd)

	log.Println("Simulation finished.")

	fmt.Println("\n\n--- Stress Test Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		log.Fatalf("Failed to generate report: %v", err)
	}
	fmt.Println("--- End of Report ---")

	stats := w.Stats()
	fmt.Printf("World stats: entities=%d active=%d removed=%d free=%d queries=%d\n",
		stats.EntityCount, stats.ActiveCount, stats.RemovedCount, stats.FreePoolCount, stats.QueryCount)

	log.Println("Stress test complete.")
}
