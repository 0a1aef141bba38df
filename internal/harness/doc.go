// Package harness runs conformance scenarios against persistent lists.
//
// A scenario opens a fresh in-memory list, applies a sequence of
// operations, checks each outcome and then asserts on the recorded trace
// and the final contents.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	config:
//	  key: len
//	  strategy: exchange
//	values: ["bb", "a", "ccc"]
//	setup:
//	  - op: append
//	    value: "dddd"
//	steps:
//	  - op: get
//	    at: "0"
//	    expect: { value: "a" }
//	  - op: set
//	    at: "10"
//	    value: "Z"
//	    expect: { error: INDEX_OUT_OF_RANGE }
//	assertions:
//	  - type: trace_count
//	    op: get
//	    count: 1
//	  - type: final_values
//	    values: ["a", "bb", "ccc", "dddd"]
//	properties: [negative_index, contains_all]
//
// Values are compared by their JSON encoding, so the integer 3 in a
// scenario matches the number 3 read back from the list. The list codec
// defaults to "json".
//
// # Assertion Types
//
//   - trace_contains: an invocation of op with matching args (subset match)
//   - trace_order: invocations of ops appear in the given order
//   - trace_count: op is invoked exactly count times
//   - final_values: the final contents, in order
//   - final_len: the final length
//
// # Deterministic Testing
//
// Every step is traced as an invocation and a completion with consecutive
// sequence numbers starting at 1, so identical scenarios produce identical
// traces for golden file comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/natural_order.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
