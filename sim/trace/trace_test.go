package trace

import "testing"

func TestIsValidTraceLevel(t *testing.T) {
	tests := []struct {
		level string
		want  bool
	}{
		{"none", true},
		{"events", true},
		{"", true},
		{"decisions", false},
		{"verbose", false},
	}
	for _, tt := range tests {
		if got := IsValidTraceLevel(tt.level); got != tt.want {
			t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestSimulationTrace_RecordService_Appends(t *testing.T) {
	// GIVEN a new trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelEvents})

	// WHEN two service records are appended
	st.RecordService(ServiceRecord{EntityID: 3, Clock: 1.5, Resource: "saw", Seized: true})
	st.RecordService(ServiceRecord{EntityID: 4, Clock: 2, Resource: "saw", QueueLength: 1})

	// THEN both are kept in order
	if len(st.Services) != 2 {
		t.Fatalf("len(Services) = %d, want 2", len(st.Services))
	}
	if st.Services[0].EntityID != 3 || st.Services[1].QueueLength != 1 {
		t.Errorf("Services = %+v", st.Services)
	}
}

func TestSimulationTrace_RecordRouting_Appends(t *testing.T) {
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelEvents})
	st.RecordRouting(RoutingRecord{EntityID: 1, FromStep: "cut", ChosenStep: "bore", Probability: 1})
	if len(st.Routings) != 1 || st.Routings[0].ChosenStep != "bore" {
		t.Errorf("Routings = %+v", st.Routings)
	}
}

func TestSimulationTrace_Reset_KeepsConfig(t *testing.T) {
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelEvents})
	st.RecordService(ServiceRecord{EntityID: 1})
	st.RecordRouting(RoutingRecord{EntityID: 1})

	st.Reset()

	if len(st.Services) != 0 || len(st.Routings) != 0 {
		t.Error("Reset left records")
	}
	if st.Config.Level != TraceLevelEvents {
		t.Errorf("Level = %q after Reset", st.Config.Level)
	}
}
