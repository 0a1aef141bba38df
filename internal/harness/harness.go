package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/sqlist"
	"github.com/roach88/sqlist/internal/store"
	"github.com/roach88/sqlist/keys"
)

// Harness executes scenario steps against one list.
type Harness struct {
	list   *sqlist.List[any]
	seq    int64
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs on a fresh in-memory list. The returned error reports
// a scenario that could not be executed (bad configuration, failing setup);
// failed expectations are reported in Result.Errors.
//
// Execution flow:
// 1. Open the list with the scenario's config and initial values
// 2. Execute setup steps, which must succeed
// 3. Execute steps, tracing each and checking its expect clause
// 4. Evaluate assertions and properties on the final list
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with step logging sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	ctx := context.Background()

	fc := scenario.Config
	fc.Path = store.MemoryPath
	fc.KeepExisting = false
	fc.AutoRemove = false
	if fc.Codec == "" {
		fc.Codec = "json"
	}
	cfg, err := fc.ListConfig()
	if err != nil {
		return nil, fmt.Errorf("scenario config: %w", err)
	}
	cfg.Logger = logger

	l, err := sqlist.Open(ctx, cfg, scenario.Values...)
	if err != nil {
		return nil, fmt.Errorf("failed to open list: %w", err)
	}
	defer l.Close()

	h := &Harness{list: l, logger: logger}
	result := NewResult()

	for i, step := range scenario.Setup {
		if _, err := h.apply(ctx, step); err != nil {
			return nil, fmt.Errorf("setup step %d (%s): %w", i, step.Op, err)
		}
	}

	for i, step := range scenario.Steps {
		h.executeStep(ctx, i, step, result)
	}

	final, err := l.ToSlice(ctx)
	if err != nil {
		return nil, fmt.Errorf("read final contents: %w", err)
	}
	result.Final = final

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	for _, name := range scenario.Properties {
		if err := checkProperty(ctx, name, l); err != nil {
			result.AddError(fmt.Sprintf("property %s: %v", name, err))
		}
	}

	return result, nil
}

// executeStep runs one step, records invocation and completion, and checks
// the step's expect clause.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) {
	h.seq++
	result.AddInvocationTrace(step.Op, stepArgs(step), h.seq)

	out, err := h.apply(ctx, step)
	outcome := outcomeOf(err)

	h.seq++
	if err != nil {
		result.AddCompletionTrace(step.Op, outcome, nil, h.seq)
	} else {
		result.AddCompletionTrace(step.Op, outcome, out, h.seq)
	}

	h.logger.Info("step completed",
		"step", i,
		"op", step.Op,
		"outcome", outcome,
	)

	for _, msg := range checkExpect(step, out, err) {
		result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, step.Op, msg))
	}
}

// apply performs one step on the list and returns its result, if any.
func (h *Harness) apply(ctx context.Context, step Step) (any, error) {
	l := h.list

	var sel sqlist.Selector
	if step.At != "" {
		var err error
		if sel, err = sqlist.ParseSelector(step.At); err != nil {
			return nil, err
		}
	}

	switch step.Op {
	case OpAppend:
		return nil, l.Append(ctx, step.Value)
	case OpExtend:
		return nil, l.Extend(ctx, step.Values...)
	case OpGet:
		if sel.IsRange {
			return l.Slice(ctx, sel.Range)
		}
		return l.Get(ctx, sel.Index)
	case OpSet:
		return nil, l.Set(ctx, sel.Index, step.Value)
	case OpDelete:
		if sel.IsRange {
			return l.DeleteRange(ctx, sel.Range)
		}
		return nil, l.Delete(ctx, sel.Index)
	case OpPop:
		i := -1
		if step.At != "" {
			i = sel.Index
		}
		return l.Pop(ctx, i)
	case OpLen:
		return l.Len(ctx)
	case OpContains:
		return l.Contains(ctx, step.Value)
	case OpIndex:
		return l.Index(ctx, step.Value)
	case OpSort:
		key, err := keys.Named(step.Key)
		if err != nil {
			return nil, err
		}
		return nil, l.Sort(ctx, sqlist.SortOptions[any]{Key: key, Reverse: step.Reverse})
	case OpRekey:
		key, err := keys.Named(step.Key)
		if err != nil {
			return nil, err
		}
		return nil, l.Rekey(ctx, key)
	case OpClear:
		return nil, l.Clear(ctx)
	case OpValues:
		return l.ToSlice(ctx)
	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

// stepArgs returns the traced arguments of a step.
func stepArgs(step Step) map[string]any {
	args := map[string]any{}
	if step.At != "" {
		args["at"] = step.At
	}
	if step.Value != nil {
		args["value"] = step.Value
	}
	if step.Values != nil {
		args["values"] = step.Values
	}
	if step.Key != "" {
		args["key"] = step.Key
	}
	if step.Reverse {
		args["reverse"] = true
	}
	if len(args) == 0 {
		return nil
	}
	return args
}

// outcomeOf maps an error to its trace outcome: OK, a list error code, or
// ERROR for failures outside the list's own error model.
func outcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var le *sqlist.Error
	if errors.As(err, &le) {
		return string(le.Code)
	}
	return "ERROR"
}

// checkExpect compares a step's outcome with its expect clause.
func checkExpect(step Step, out any, err error) []string {
	exp := step.Expect
	if exp == nil || exp.Error == "" {
		if err != nil {
			return []string{fmt.Sprintf("unexpected error: %v", err)}
		}
	}
	if exp == nil {
		return nil
	}

	if exp.Error != "" {
		if got := outcomeOf(err); got != exp.Error {
			return []string{fmt.Sprintf("expected error %s, got %s", exp.Error, got)}
		}
		return nil
	}

	var msgs []string
	if exp.Value != nil && !sameJSON(exp.Value, out) {
		msgs = append(msgs, fmt.Sprintf("expected value %s, got %s", toJSON(exp.Value), toJSON(out)))
	}
	if exp.Values != nil && !sameJSON(exp.Values, out) {
		msgs = append(msgs, fmt.Sprintf("expected values %s, got %s", toJSON(exp.Values), toJSON(out)))
	}
	if exp.Len != nil && !sameJSON(*exp.Len, out) {
		msgs = append(msgs, fmt.Sprintf("expected len %d, got %s", *exp.Len, toJSON(out)))
	}
	if exp.Bool != nil && !sameJSON(*exp.Bool, out) {
		msgs = append(msgs, fmt.Sprintf("expected %t, got %s", *exp.Bool, toJSON(out)))
	}
	return msgs
}

// sameJSON compares two values by their JSON encoding, so YAML integers
// match decoded floats and map key order does not matter.
func sameJSON(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(ja) == string(jb)
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
