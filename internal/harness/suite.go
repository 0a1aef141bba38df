package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ScenarioNotFoundError is returned when a scenario path doesn't exist.
type ScenarioNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	return fmt.Sprintf("scenario path %q does not exist", e.Path)
}

// SuiteResult summarizes a run over several scenario files.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure represents a scenario that failed to load, run or pass.
type ScenarioFailure struct {
	Scenario string `json:"scenario"`
	Path     string `json:"path"`
	Error    string `json:"error"`
}

// FindScenarios returns the scenario files at path: path itself if it is a
// file, or every .yaml and .yml file directly inside it, sorted.
func FindScenarios(path string) ([]string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &ScenarioNotFoundError{Path: path}
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(path, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// RunSuite loads and runs every scenario file in paths.
//
// For each file:
// 1. Load the scenario
// 2. Run it via harness.Run
// 3. Record a failure for load errors, run errors or failed expectations
func RunSuite(paths []string) *SuiteResult {
	result := &SuiteResult{}

	for _, path := range paths {
		result.TotalScenarios++

		scenario, err := LoadScenario(path)
		if err != nil {
			result.fail("", path, fmt.Sprintf("failed to load scenario: %v", err))
			continue
		}

		runResult, err := Run(scenario)
		if err != nil {
			result.fail(scenario.Name, path, fmt.Sprintf("scenario execution failed: %v", err))
			continue
		}
		if !runResult.Pass {
			result.fail(scenario.Name, path, fmt.Sprintf("scenario assertions failed: %v", runResult.Errors))
			continue
		}

		result.Passed++
	}

	return result
}

func (r *SuiteResult) fail(name, path, msg string) {
	r.Failed++
	r.Failures = append(r.Failures, ScenarioFailure{Scenario: name, Path: path, Error: msg})
}
