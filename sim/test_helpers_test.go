package sim

import "testing"

func constSpec(v float64) DistSpec {
	return DistSpec{Kind: KindConstant, Params: map[string]float64{"value": v}}
}

func expSpec(mean float64) DistSpec {
	return DistSpec{Kind: KindExponential, Params: map[string]float64{"mean": mean}}
}

// twoStationConfig is two capacity-1 resources in series with constant
// service times 5 and 3.
func twoStationConfig(arrival DistSpec, horizon float64) *ModelConfig {
	return &ModelConfig{
		Horizon: horizon,
		Entry:   "cut",
		Arrival: arrival,
		Resources: []ResourceConfig{
			{ID: "saw", Capacity: 1},
			{ID: "drill", Capacity: 1},
		},
		Steps: []ProcessStepConfig{
			{ID: "cut", Resource: "saw", Duration: constSpec(5), Next: "bore"},
			{ID: "bore", Resource: "drill", Duration: constSpec(3)},
		},
	}
}

// singleStationConfig is one resource and one terminal step.
func singleStationConfig(capacity int, disc Discipline, arrival, duration DistSpec, horizon float64) *ModelConfig {
	return &ModelConfig{
		Horizon:   horizon,
		Entry:     "serve",
		Arrival:   arrival,
		Resources: []ResourceConfig{{ID: "desk", Capacity: capacity, Discipline: disc}},
		Steps:     []ProcessStepConfig{{ID: "serve", Resource: "desk", Duration: duration}},
	}
}

func mustCompile(t *testing.T, cfg *ModelConfig) *Model {
	t.Helper()
	m, err := cfg.Compile()
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return m
}

func mustSimulator(t *testing.T, cfg *ModelConfig, seed int64) *Simulator {
	t.Helper()
	s, err := NewSimulator(mustCompile(t, cfg), seed)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	return s
}
