package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures dispatch decisions, skips, conflicts and suspensions.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
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

// SimulationTrace collects decision records during a run.
// A nil *SimulationTrace is valid and records nothing.
type SimulationTrace struct {
	Config      TraceConfig
	Dispatches  []DispatchRecord
	Skips       []SkipRecord
	Conflicts   []ConflictRecord
	Suspensions []SuspensionRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
// Returns nil when the level disables tracing.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	if config.Level == TraceLevelNone || config.Level == "" {
		return nil
	}
	return &SimulationTrace{
		Config:      config,
		Dispatches:  make([]DispatchRecord, 0),
		Skips:       make([]SkipRecord, 0),
		Conflicts:   make([]ConflictRecord, 0),
		Suspensions: make([]SuspensionRecord, 0),
	}
}

// RecordDispatch appends a dispatch record.
func (st *SimulationTrace) RecordDispatch(record DispatchRecord) {
	if st == nil {
		return
	}
	st.Dispatches = append(st.Dispatches, record)
}

// RecordSkip appends a skip record.
func (st *SimulationTrace) RecordSkip(record SkipRecord) {
	if st == nil {
		return
	}
	st.Skips = append(st.Skips, record)
}

// RecordConflict appends a conflict record.
func (st *SimulationTrace) RecordConflict(record ConflictRecord) {
	if st == nil {
		return
	}
	st.Conflicts = append(st.Conflicts, record)
}

// RecordSuspension appends a suspension record.
func (st *SimulationTrace) RecordSuspension(record SuspensionRecord) {
	if st == nil {
		return
	}
	st.Suspensions = append(st.Suspensions, record)
}
