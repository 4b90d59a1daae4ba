package ecs_test

// Common component types shared across the package's test files.

type Position struct {
	X, Y float64
}

type Velocity struct {
	DX, DY float64
}

type Health struct {
	HP int
}

// Poisoned is a tag component: presence alone is the datum.
type Poisoned struct{}

// Owner is system-state: it survives normal disposal so owning systems can
// observe the entity's death before it is released.
type Owner struct {
	Name string
}
