package tuner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	resources := Detect()
	assert.Positive(t, resources.CPUCores)
}

func TestCalculate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		cores int
		want  Plan
	}{
		{name: "single core", cores: 1, want: Plan{WalkWorkers: 4, BatchWorkers: 4}},
		{name: "two cores", cores: 2, want: Plan{WalkWorkers: 4, BatchWorkers: 4}},
		{name: "eight cores", cores: 8, want: Plan{WalkWorkers: 8, BatchWorkers: 16}},
		{name: "forty cores", cores: 40, want: Plan{WalkWorkers: 40, BatchWorkers: 64}},
		{name: "huge", cores: 256, want: Plan{WalkWorkers: 64, BatchWorkers: 64}},
		{name: "zero reported", cores: 0, want: Plan{WalkWorkers: 4, BatchWorkers: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Calculate(SystemResources{CPUCores: tt.cores}))
		})
	}
}

func TestCalculateWithOverrides(t *testing.T) {
	t.Parallel()

	res := SystemResources{CPUCores: 8}

	assert.Equal(t, Calculate(res), CalculateWithOverrides(res, 0, -1))
	assert.Equal(t, Plan{WalkWorkers: 2, BatchWorkers: 16}, CalculateWithOverrides(res, 2, 0))
	assert.Equal(t, Plan{WalkWorkers: 8, BatchWorkers: 3}, CalculateWithOverrides(res, 0, 3))
	assert.Equal(t, Plan{WalkWorkers: 64, BatchWorkers: 64}, CalculateWithOverrides(res, 500, 500))
}
