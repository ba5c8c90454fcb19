package sim

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every configuration error.
var ErrInvalidConfig = errors.New("invalid model configuration")

// ConfigError reports the first malformed field found while compiling a model.
type ConfigError struct {
	Field string // dotted path, e.g. "steps[2].resource"
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrInvalidConfig, e.Field, e.Msg)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// ModelConfig is the plain-data system description handed to the kernel by
// whatever produced it (a YAML file, an extraction pipeline, an optimizer).
type ModelConfig struct {
	Horizon           float64             `yaml:"horizon" json:"horizon"`
	MaxArrivals       int                 `yaml:"max_arrivals,omitempty" json:"max_arrivals,omitempty"` // 0 = unlimited
	Entry             string              `yaml:"entry" json:"entry"`
	Arrival           DistSpec            `yaml:"arrival" json:"arrival"`
	ArrivalAttributes *AttributeSpec      `yaml:"arrival_attributes,omitempty" json:"arrival_attributes,omitempty"`
	Resources         []ResourceConfig    `yaml:"resources" json:"resources"`
	Steps             []ProcessStepConfig `yaml:"steps" json:"steps"`
}

// AttributeSpec samples typed attributes for each arriving entity.
type AttributeSpec struct {
	Priority      *DistSpec `yaml:"priority,omitempty" json:"priority,omitempty"`
	DueDateOffset *DistSpec `yaml:"due_date_offset,omitempty" json:"due_date_offset,omitempty"`
}

// ResourceConfig declares one capacity-bounded server.
type ResourceConfig struct {
	ID         string     `yaml:"id" json:"id"`
	Name       string     `yaml:"name,omitempty" json:"name,omitempty"`
	Capacity   int        `yaml:"capacity" json:"capacity"`
	Discipline Discipline `yaml:"discipline,omitempty" json:"discipline,omitempty"` // fifo (default), spt, edd, priority
}

// ProcessStepConfig declares one step. Next and Routes are mutually
// exclusive; leaving both empty makes the step terminal.
type ProcessStepConfig struct {
	ID       string        `yaml:"id" json:"id"`
	Name     string        `yaml:"name,omitempty" json:"name,omitempty"`
	Resource string        `yaml:"resource" json:"resource"`
	Duration DistSpec      `yaml:"duration" json:"duration"`
	Travel   *DistSpec     `yaml:"travel,omitempty" json:"travel,omitempty"`
	Next     string        `yaml:"next,omitempty" json:"next,omitempty"`
	Routes   []RouteConfig `yaml:"routes,omitempty" json:"routes,omitempty"`
}

// RouteConfig is one probabilistic branch. An empty Step means departure.
type RouteConfig struct {
	Step        string  `yaml:"step" json:"step"`
	Probability float64 `yaml:"probability" json:"probability"`
}

// LoadModelConfig reads and parses a YAML model file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadModelConfig(path string) (*ModelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model config: %w", err)
	}
	return ParseModelConfig(data)
}

// ParseModelConfig parses YAML bytes with strict field checking.
func ParseModelConfig(data []byte) (*ModelConfig, error) {
	var cfg ModelConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing model config: %w", err)
	}
	return &cfg, nil
}

// routeSumTolerance absorbs float rounding in hand-written probabilities.
const routeSumTolerance = 1e-9

// Compile validates the configuration and resolves every string reference
// into an arena handle. A *Model can only be obtained this way, so a
// Simulator never sees a malformed model.
func (c *ModelConfig) Compile() (*Model, error) {
	if c == nil {
		return nil, configErrorf("model", "configuration is nil")
	}
	if c.Horizon <= 0 || math.IsNaN(c.Horizon) || math.IsInf(c.Horizon, 0) {
		return nil, configErrorf("horizon", "must be positive and finite, got %v", c.Horizon)
	}
	if c.MaxArrivals < 0 {
		return nil, configErrorf("max_arrivals", "must be non-negative, got %d", c.MaxArrivals)
	}

	m := &Model{
		Horizon:       c.Horizon,
		MaxArrivals:   c.MaxArrivals,
		resourceIndex: make(map[string]ResourceID, len(c.Resources)),
		stepIndex:     make(map[string]StepID, len(c.Steps)),
	}

	arrival, err := NewDistribution(c.Arrival)
	if err != nil {
		return nil, configErrorf("arrival", "%v", err)
	}
	if arrival.Mean() <= 0 {
		return nil, configErrorf("arrival", "mean inter-arrival time must be positive, got %g", arrival.Mean())
	}
	m.Arrival = arrival

	if c.ArrivalAttributes != nil {
		if spec := c.ArrivalAttributes.Priority; spec != nil {
			if m.PriorityDist, err = NewDistribution(*spec); err != nil {
				return nil, configErrorf("arrival_attributes.priority", "%v", err)
			}
		}
		if spec := c.ArrivalAttributes.DueDateOffset; spec != nil {
			if m.DueDateDist, err = NewDistribution(*spec); err != nil {
				return nil, configErrorf("arrival_attributes.due_date_offset", "%v", err)
			}
		}
	}

	if len(c.Resources) == 0 {
		return nil, configErrorf("resources", "at least one resource is required")
	}
	for i, rc := range c.Resources {
		field := fmt.Sprintf("resources[%d]", i)
		if rc.ID == "" {
			return nil, configErrorf(field+".id", "must not be empty")
		}
		if _, dup := m.resourceIndex[rc.ID]; dup {
			return nil, configErrorf(field+".id", "duplicate resource id %q", rc.ID)
		}
		if rc.Capacity < 1 {
			return nil, configErrorf(field+".capacity", "must be >= 1, got %d", rc.Capacity)
		}
		if !IsValidDiscipline(string(rc.Discipline)) {
			return nil, configErrorf(field+".discipline", "unknown discipline %q; valid: fifo, spt, edd, priority", rc.Discipline)
		}
		name := rc.Name
		if name == "" {
			name = rc.ID
		}
		disc := rc.Discipline
		if disc == "" {
			disc = DisciplineFIFO
		}
		m.resourceIndex[rc.ID] = ResourceID(len(m.Resources))
		m.Resources = append(m.Resources, ResourceSpec{ID: rc.ID, Name: name, Capacity: rc.Capacity, Discipline: disc})
	}

	if len(c.Steps) == 0 {
		return nil, configErrorf("steps", "at least one process step is required")
	}
	// First pass assigns handles so that routes may point forward.
	for i, sc := range c.Steps {
		field := fmt.Sprintf("steps[%d]", i)
		if sc.ID == "" {
			return nil, configErrorf(field+".id", "must not be empty")
		}
		if _, dup := m.stepIndex[sc.ID]; dup {
			return nil, configErrorf(field+".id", "duplicate step id %q", sc.ID)
		}
		m.stepIndex[sc.ID] = StepID(i)
	}
	for i, sc := range c.Steps {
		step, err := m.compileStep(i, sc)
		if err != nil {
			return nil, err
		}
		m.Steps = append(m.Steps, step)
	}

	entry, ok := m.stepIndex[c.Entry]
	if !ok {
		return nil, configErrorf("entry", "undefined step %q", c.Entry)
	}
	m.Entry = entry

	if err := m.checkTopology(); err != nil {
		return nil, err
	}
	m.compiled = true
	return m, nil
}

func (m *Model) compileStep(i int, sc ProcessStepConfig) (ProcessStep, error) {
	field := fmt.Sprintf("steps[%d]", i)
	res, ok := m.resourceIndex[sc.Resource]
	if !ok {
		return ProcessStep{}, configErrorf(field+".resource", "undefined resource %q", sc.Resource)
	}
	dur, err := NewDistribution(sc.Duration)
	if err != nil {
		return ProcessStep{}, configErrorf(field+".duration", "%v", err)
	}
	name := sc.Name
	if name == "" {
		name = sc.ID
	}
	step := ProcessStep{ID: sc.ID, Name: name, Resource: res, Duration: dur}

	if sc.Travel != nil && !sc.Travel.IsZero() {
		if step.Travel, err = NewDistribution(*sc.Travel); err != nil {
			return ProcessStep{}, configErrorf(field+".travel", "%v", err)
		}
	}

	if sc.Next != "" && len(sc.Routes) > 0 {
		return ProcessStep{}, configErrorf(field, "next and routes are mutually exclusive")
	}
	if sc.Next != "" {
		next, ok := m.stepIndex[sc.Next]
		if !ok {
			return ProcessStep{}, configErrorf(field+".next", "undefined step %q", sc.Next)
		}
		step.Routes = []Route{{Next: next, Probability: 1}}
	}
	if len(sc.Routes) > 0 {
		sum := 0.0
		for j, rc := range sc.Routes {
			rf := fmt.Sprintf("%s.routes[%d]", field, j)
			if !(rc.Probability > 0 && rc.Probability <= 1) {
				return ProcessStep{}, configErrorf(rf+".probability", "must be in (0, 1], got %v", rc.Probability)
			}
			next := NoStep
			if rc.Step != "" {
				if next, ok = m.stepIndex[rc.Step]; !ok {
					return ProcessStep{}, configErrorf(rf+".step", "undefined step %q", rc.Step)
				}
			}
			sum += rc.Probability
			step.Routes = append(step.Routes, Route{Next: next, Probability: rc.Probability})
		}
		if math.Abs(sum-1) > routeSumTolerance {
			return ProcessStep{}, configErrorf(field+".routes", "probabilities must sum to 1, got %v", sum)
		}
	}
	return step, nil
}

// checkTopology rejects steps unreachable from the entry and steps from
// which no departure is reachable (entities there would circulate forever).
func (m *Model) checkTopology() error {
	reachable := make([]bool, len(m.Steps))
	stack := []StepID{m.Entry}
	reachable[m.Entry] = true
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, r := range m.Steps[s].Routes {
			if r.Next != NoStep && !reachable[r.Next] {
				reachable[r.Next] = true
				stack = append(stack, r.Next)
			}
		}
	}
	for i, ok := range reachable {
		if !ok {
			return configErrorf(fmt.Sprintf("steps[%d]", i), "step %q is unreachable from entry %q", m.Steps[i].ID, m.Steps[m.Entry].ID)
		}
	}

	// Fixed point: a step can exit if it is terminal or has a route to a step that can.
	canExit := make([]bool, len(m.Steps))
	for changed := true; changed; {
		changed = false
		for i, s := range m.Steps {
			if canExit[i] {
				continue
			}
			if s.IsTerminal() {
				canExit[i] = true
				changed = true
				continue
			}
			for _, r := range s.Routes {
				if r.Next == NoStep || canExit[r.Next] {
					canExit[i] = true
					changed = true
					break
				}
			}
		}
	}
	for i, ok := range canExit {
		if !ok {
			return configErrorf(fmt.Sprintf("steps[%d]", i), "no departure is reachable from step %q", m.Steps[i].ID)
		}
	}
	return nil
}
