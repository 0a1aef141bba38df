package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlist"
	"github.com/roach88/sqlist/internal/config"
)

// Scenario defines a list conformance scenario: a starting list, a sequence
// of operations with expected outcomes, and assertions over the trace and
// the final contents.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config configures the list. The path is ignored: scenarios always run
	// in memory. The codec defaults to "json".
	Config config.File `yaml:"config"`

	// Values are passed to the list constructor.
	Values []any `yaml:"values,omitempty"`

	// Setup steps run before Steps and must succeed. They are not traced.
	Setup []Step `yaml:"setup,omitempty"`

	// Steps are the traced operations.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and contents.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Properties name invariants checked against the final list.
	Properties []string `yaml:"properties,omitempty"`
}

// Step is one list operation.
type Step struct {
	// Op is the operation: append, extend, get, set, delete, pop, len,
	// contains, index, sort, rekey, clear or values.
	Op string `yaml:"op"`

	// At selects an index ("0", "-1") or, for get and delete, a range
	// ("1:3", ":2"). Pop defaults to -1.
	At string `yaml:"at,omitempty"`

	// Value is the argument of append, set, contains and index.
	Value any `yaml:"value,omitempty"`

	// Values is the argument of extend.
	Values []any `yaml:"values,omitempty"`

	// Key names an ordering function for sort and rekey (see keys.Named).
	Key string `yaml:"key,omitempty"`

	// Reverse sorts descending.
	Reverse bool `yaml:"reverse,omitempty"`

	// Expect specifies the expected outcome. If nil the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step. Unset fields are not
// checked.
type Expect struct {
	// Error is the expected error code, e.g. INDEX_OUT_OF_RANGE.
	Error string `yaml:"error,omitempty"`

	// Value is the expected single result (get, pop, index).
	Value any `yaml:"value,omitempty"`

	// Values is the expected result of a range get or values.
	Values []any `yaml:"values,omitempty"`

	// Len is the expected result of len, or the number removed by a range
	// delete.
	Len *int `yaml:"len,omitempty"`

	// Bool is the expected result of contains.
	Bool *bool `yaml:"bool,omitempty"`
}

// Assertion validates the trace or the final contents.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": an invocation of Op with Args (subset match)
	// - "trace_order": invocations of Ops in order
	// - "trace_count": exactly Count invocations of Op
	// - "final_values": the final contents equal Values
	// - "final_len": the final length equals Count
	Type string `yaml:"type"`

	Op     string         `yaml:"op,omitempty"`
	Args   map[string]any `yaml:"args,omitempty"`
	Ops    []string       `yaml:"ops,omitempty"`
	Count  int            `yaml:"count,omitempty"`
	Values []any          `yaml:"values,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalValues   = "final_values"
	AssertFinalLen      = "final_len"
)

// Operation names.
const (
	OpAppend   = "append"
	OpExtend   = "extend"
	OpGet      = "get"
	OpSet      = "set"
	OpDelete   = "delete"
	OpPop      = "pop"
	OpLen      = "len"
	OpContains = "contains"
	OpIndex    = "index"
	OpSort     = "sort"
	OpRekey    = "rekey"
	OpClear    = "clear"
	OpValues   = "values"
)

var knownOps = map[string]bool{
	OpAppend: true, OpExtend: true, OpGet: true, OpSet: true, OpDelete: true,
	OpPop: true, OpLen: true, OpContains: true, OpIndex: true, OpSort: true,
	OpRekey: true, OpClear: true, OpValues: true,
}

var knownCodes = map[string]bool{
	string(sqlist.CodeInvalidArgument): true,
	string(sqlist.CodeIndexOutOfRange): true,
	string(sqlist.CodeNotComparable):   true,
	string(sqlist.CodeTypeMismatch):    true,
	string(sqlist.CodeNotFound):        true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: setup steps take no expect clause", i)
		}
	}
	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	for i, p := range s.Properties {
		if _, ok := properties[p]; !ok {
			return fmt.Errorf("properties[%d]: unknown property %q", i, p)
		}
	}
	return nil
}

func validateStep(step Step) error {
	if !knownOps[step.Op] {
		return fmt.Errorf("unknown op %q", step.Op)
	}

	switch step.Op {
	case OpGet, OpSet, OpDelete:
		if step.At == "" {
			return fmt.Errorf("%s: at is required", step.Op)
		}
	}
	if step.At != "" {
		sel, err := sqlist.ParseSelector(step.At)
		if err != nil {
			return fmt.Errorf("%s: %w", step.Op, err)
		}
		if sel.IsRange && step.Op != OpGet && step.Op != OpDelete {
			return fmt.Errorf("%s: takes an index, not a range", step.Op)
		}
	}

	if step.Expect != nil && step.Expect.Error != "" && !knownCodes[step.Expect.Error] {
		return fmt.Errorf("expect: unknown error code %q", step.Expect.Error)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalValues:
		if a.Values == nil {
			return fmt.Errorf("assertions[%d]: values is required for final_values (use [] for empty)", index)
		}
	case AssertFinalLen:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for final_len", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
