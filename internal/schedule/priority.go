package schedule

import (
	"math"
	"math/rand"
)

// Queue priority bounds accepted by the task queue.
const (
	PriorityMin = 0
	PriorityMax = 100
)

// Weight maps a caller-supplied base priority (1-10) to an execution
// priority on the queue's 0-100 scale. A uniform random draw is blended
// with the base so that higher base priorities dominate queue order while
// low priorities keep some fairness.
func Weight(base int) int {
	return weightDraw(base, rand.Float64()*PriorityMax)
}

func weightDraw(base int, draw float64) int {
	f := float64(base) / 10
	actual := int(math.Round(draw*f + float64(base)*10*(1-f)))

	if actual < PriorityMin {
		return PriorityMin
	}
	if actual > PriorityMax {
		return PriorityMax
	}

	return actual
}
