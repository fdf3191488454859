package runner

import (
	"encoding/json"
	"os"
	"time"
)

// StatusPassed is the only step status that counts as passing.
const StatusPassed = "passed"

type cucumberResult struct {
	Status       string `json:"status"`
	Duration     int64  `json:"duration"`
	ErrorMessage string `json:"error_message"`
}

type cucumberStep struct {
	Keyword string          `json:"keyword"`
	Name    string          `json:"name"`
	Result  *cucumberResult `json:"result"`
}

type cucumberScenario struct {
	Name  string         `json:"name"`
	Type  string         `json:"type"`
	Steps []cucumberStep `json:"steps"`
}

type cucumberFeature struct {
	URI      string             `json:"uri"`
	Name     string             `json:"name"`
	Elements []cucumberScenario `json:"elements"`
}

// ScenarioOutcome is one scenario as read from the result file.
type ScenarioOutcome struct {
	Feature    string
	Name       string
	Passed     bool
	Steps      int
	FailedStep string
	Error      string
	Duration   time.Duration
}

// Counts aggregates a result file. Passed+Failed == len(Scenarios).
type Counts struct {
	Passed    uint
	Failed    uint
	Scenarios []ScenarioOutcome
}

// ParseReport reads a cucumber JSON result file. A scenario passes iff every
// one of its steps has status "passed"; a scenario without steps passes.
func ParseReport(path string) (Counts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Counts{}, &ResultParseError{Path: path, Err: err}
	}

	var features []cucumberFeature
	if err := json.Unmarshal(data, &features); err != nil {
		return Counts{}, &ResultParseError{Path: path, Err: err}
	}

	var c Counts
	for _, f := range features {
		for _, sc := range f.Elements {
			o := ScenarioOutcome{Feature: f.Name, Name: sc.Name, Passed: true, Steps: len(sc.Steps)}
			for _, st := range sc.Steps {
				status := ""
				if st.Result != nil {
					status = st.Result.Status
					o.Duration += time.Duration(st.Result.Duration)
				}
				if status != StatusPassed && o.Passed {
					o.Passed = false
					o.FailedStep = st.Keyword + st.Name
					if st.Result != nil {
						o.Error = st.Result.ErrorMessage
					}
				}
			}
			if o.Passed {
				c.Passed++
			} else {
				c.Failed++
			}
			c.Scenarios = append(c.Scenarios, o)
		}
	}
	return c, nil
}
