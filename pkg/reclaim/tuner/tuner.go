// Package tuner sizes the engine's worker pools from the host's CPU count.
// Traversal is metadata heavy and the per-file moves of a batch mostly wait
// on disk, so the two pools scale differently.
package tuner

import (
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
)

// Worker limits.
const (
	// maxWorkers caps every pool.
	maxWorkers = 64

	// minWalkWorkers is the floor for traversal goroutines.
	minWalkWorkers = 4

	// minBatchWorkers is the floor for per-file clean and restore workers.
	minBatchWorkers = 4

	// batchPerCore scales batch workers for I/O bound moves.
	batchPerCore = 2
)

// SystemResources contains detected system resources.
type SystemResources struct {
	// CPUCores is the number of logical CPU cores available.
	CPUCores int
}

// Plan is the worker configuration for one engine.
type Plan struct {
	// WalkWorkers is the number of triage traversal goroutines.
	WalkWorkers int

	// BatchWorkers bounds parallel per-file moves in a clean or restore.
	BatchWorkers int
}

// Detect reports the logical CPU count. When the platform query fails it
// falls back to runtime.NumCPU.
func Detect() SystemResources {
	cores, err := cpu.Counts(true)
	if err != nil || cores < 1 {
		cores = runtime.NumCPU()
	}
	return SystemResources{CPUCores: cores}
}

// Calculate returns the plan for the given resources:
//   - WalkWorkers: NumCPU, at least 4
//   - BatchWorkers: NumCPU * 2, at least 4
//
// Both are capped at 64.
func Calculate(resources SystemResources) Plan {
	walk := min(max(resources.CPUCores, minWalkWorkers), maxWorkers)
	batch := min(max(resources.CPUCores*batchPerCore, minBatchWorkers), maxWorkers)
	return Plan{WalkWorkers: walk, BatchWorkers: batch}
}

// CalculateWithOverrides applies configured worker counts on top of
// Calculate. Zero or negative overrides keep the calculated value; positive
// ones are still capped at 64.
func CalculateWithOverrides(resources SystemResources, walkOverride, batchOverride int) Plan {
	plan := Calculate(resources)
	if walkOverride > 0 {
		plan.WalkWorkers = min(walkOverride, maxWorkers)
	}
	if batchOverride > 0 {
		plan.BatchWorkers = min(batchOverride, maxWorkers)
	}
	return plan
}
