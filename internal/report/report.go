package report

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// LatestExecution is the outline execution id meaning "the latest execution of the scenario".
const LatestExecution int64 = -1

// Campaign is a named, ordered group of scenarios with its execution history.
type Campaign struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	ScenarioIDs []string          `json:"scenarioIds"`
	Reports     []ExecutionReport `json:"campaignExecutionReports"`
}

// ExecutionReport records one run of a campaign.
type ExecutionReport struct {
	ExecutionID      int64             `json:"executionId"`
	Status           Status            `json:"status"`
	PartialExecution bool              `json:"partialExecution"`
	Environment      string            `json:"executionEnvironment,omitempty"`
	StartDate        *time.Time        `json:"startDate,omitempty"`
	UserID           string            `json:"userId,omitempty"`
	Scenarios        []ScenarioOutline `json:"scenarioExecutionReports"`
}

// ScenarioOutline is the per-scenario result reference inside an execution report.
type ScenarioOutline struct {
	ScenarioID   string `json:"scenarioId"`
	ScenarioName string `json:"scenarioName,omitempty"`
	Status       Status `json:"status"`
	ExecutionID  int64  `json:"executionId"`
}

// ExecutionRef returns the navigation reference of the outline's scenario execution.
func (o ScenarioOutline) ExecutionRef() string {
	if o.ExecutionID == LatestExecution {
		return "last"
	}
	return strconv.FormatInt(o.ExecutionID, 10)
}

// ScenarioIndex holds display metadata of a scenario, independent of any execution.
type ScenarioIndex struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	CreationDate *time.Time `json:"creationDate,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
}

// Composed reports whether the scenario is built from components. Composed
// scenario ids carry a dash separated database reference.
func (s ScenarioIndex) Composed() bool {
	return strings.Contains(s.ID, "-")
}

// TestCase is the raw definition of a scenario as stored by the backend.
type TestCase struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Clone returns a deep copy of the report.
func (r ExecutionReport) Clone() ExecutionReport {
	out := r
	if r.StartDate != nil {
		start := *r.StartDate
		out.StartDate = &start
	}
	if r.Scenarios != nil {
		out.Scenarios = append([]ScenarioOutline{}, r.Scenarios...)
	}
	return out
}

// SortByExecutionDesc sorts reports in place, most recent execution first.
func SortByExecutionDesc(reports []ExecutionReport) {
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].ExecutionID > reports[j].ExecutionID
	})
}

// Find returns the index of the report with the given execution id, or -1.
func Find(reports []ExecutionReport, executionID int64) int {
	for i := range reports {
		if reports[i].ExecutionID == executionID {
			return i
		}
	}
	return -1
}

// AnyRunning reports whether one of the reports is still running.
func AnyRunning(reports []ExecutionReport) bool {
	for _, r := range reports {
		if r.Status == StatusRunning {
			return true
		}
	}
	return false
}
