package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelEvents captures every seize attempt and routing decision.
	TraceLevelEvents TraceLevel = "events"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelEvents:    true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects decision records during one run.
type SimulationTrace struct {
	Config   TraceConfig
	Services []ServiceRecord
	Routings []RoutingRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:   config,
		Services: make([]ServiceRecord, 0),
		Routings: make([]RoutingRecord, 0),
	}
}

// RecordService appends a seize-attempt record.
func (st *SimulationTrace) RecordService(record ServiceRecord) {
	st.Services = append(st.Services, record)
}

// RecordRouting appends a routing decision record.
func (st *SimulationTrace) RecordRouting(record RoutingRecord) {
	st.Routings = append(st.Routings, record)
}

// Reset discards all records, keeping the configuration.
func (st *SimulationTrace) Reset() {
	st.Services = st.Services[:0]
	st.Routings = st.Routings[:0]
}
