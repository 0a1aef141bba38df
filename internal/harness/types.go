package harness

// Trace event types.
const (
	EventInvocation = "invocation"
	EventCompletion = "completion"
)

// OutcomeOK is the outcome of a step that returned no error.
const OutcomeOK = "OK"

// TraceEvent records one side of a list operation: the invocation with its
// arguments, or the completion with its outcome and result.
type TraceEvent struct {
	Type    string         `json:"type"` // "invocation" or "completion"
	Op      string         `json:"op,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Outcome string         `json:"outcome,omitempty"`
	Result  any            `json:"result,omitempty"`
	Seq     int64          `json:"seq"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses, assertions and properties hold.
	Pass bool `json:"pass"`

	// Trace contains all invocations and completions in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final holds the list contents after the last step.
	Final []any `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Final:  []any{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddInvocationTrace adds an invocation to the trace.
func (r *Result) AddInvocationTrace(op string, args map[string]any, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type: EventInvocation,
		Op:   op,
		Args: args,
		Seq:  seq,
	})
}

// AddCompletionTrace adds a completion to the trace.
func (r *Result) AddCompletionTrace(op, outcome string, result any, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:    EventCompletion,
		Op:      op,
		Outcome: outcome,
		Result:  result,
		Seq:     seq,
	})
}
