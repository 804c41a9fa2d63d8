package report

import (
	"encoding/json"
	"testing"
)

func outlines(statuses ...Status) []ScenarioOutline {
	out := make([]ScenarioOutline, 0, len(statuses))
	for i, st := range statuses {
		out = append(out, ScenarioOutline{ScenarioID: string(rune('a' + i)), Status: st, ExecutionID: int64(i + 1)})
	}
	return out
}

func TestClassifyCounts(t *testing.T) {
	r := ExecutionReport{
		ExecutionID: 7,
		Status:      StatusFailure,
		Scenarios: outlines(
			StatusSuccess, StatusSuccess, StatusFailure,
			StatusStopped, StatusNotExecuted, StatusNotExecuted,
		),
	}

	s := Classify(r)
	if s.Passed != 2 || s.Failed != 1 || s.Stopped != 1 || s.NotExecuted != 2 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if s.Total != s.Passed+s.Failed+s.Stopped+s.NotExecuted {
		t.Fatalf("total %d is not the sum of counts: %+v", s.Total, s)
	}
	if s.Total != len(r.Scenarios) {
		t.Fatalf("total %d does not match outline count %d", s.Total, len(r.Scenarios))
	}
	if s.IsRunning() {
		t.Fatalf("failure report classified as running")
	}
	if !s.HasFailure() || !s.HasStopped() || !s.HasNotExecuted() || !s.HasPassed() {
		t.Fatalf("unexpected predicates: %+v", s)
	}
	if s.AllPassed() {
		t.Fatalf("report with failures should not be all passed")
	}
}

func TestClassifyUnknownStatusIsInvisible(t *testing.T) {
	var r ExecutionReport
	payload := `{"executionId":3,"status":"PAUSED","scenarioExecutionReports":[
		{"scenarioId":"1","status":"SUCCESS","executionId":10},
		{"scenarioId":"2","status":"WAITING","executionId":11}
	]}`
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if r.Status != StatusUnknown {
		t.Fatalf("expected unknown report status, got %s", r.Status)
	}

	s := Classify(r)
	if s.Total != 1 || s.Passed != 1 || s.Unknown != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
	if s.Total+s.Unknown != len(r.Scenarios) {
		t.Fatalf("outlines lost: %+v", s)
	}
	if s.IsRunning() {
		t.Fatalf("unknown status must not count as running")
	}
}

func TestClassifyDoesNotMutate(t *testing.T) {
	r := ExecutionReport{ExecutionID: 1, Status: StatusRunning, Scenarios: outlines(StatusFailure, StatusSuccess)}
	before := r.Clone()

	first := Classify(r)
	second := Classify(r)
	if first != second {
		t.Fatalf("classification is not deterministic: %+v vs %+v", first, second)
	}
	for i := range r.Scenarios {
		if r.Scenarios[i] != before.Scenarios[i] {
			t.Fatalf("outline %d mutated: %+v", i, r.Scenarios[i])
		}
	}
	if !first.IsRunning() {
		t.Fatalf("running report must be classified as running")
	}
}

func TestAllPassed(t *testing.T) {
	cases := []struct {
		name     string
		statuses []Status
		want     bool
	}{
		{name: "all success", statuses: []Status{StatusSuccess, StatusSuccess}, want: true},
		{name: "failure", statuses: []Status{StatusSuccess, StatusFailure}, want: false},
		{name: "stopped", statuses: []Status{StatusStopped}, want: false},
		{name: "not executed", statuses: []Status{StatusNotExecuted}, want: false},
		{name: "empty", statuses: nil, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Classify(ExecutionReport{Status: StatusSuccess, Scenarios: outlines(tc.statuses...)})
			if got := s.AllPassed(); got != tc.want {
				t.Fatalf("AllPassed() = %v, want %v (%+v)", got, tc.want, s)
			}
		})
	}
}

func TestIsComplete(t *testing.T) {
	cases := []struct {
		name   string
		report ExecutionReport
		want   bool
	}{
		{name: "success", report: ExecutionReport{Status: StatusSuccess, Scenarios: outlines(StatusSuccess)}, want: true},
		{name: "failure is still complete", report: ExecutionReport{Status: StatusFailure, Scenarios: outlines(StatusFailure)}, want: true},
		{name: "running", report: ExecutionReport{Status: StatusRunning, Scenarios: outlines(StatusSuccess)}, want: false},
		{name: "partial", report: ExecutionReport{Status: StatusSuccess, PartialExecution: true, Scenarios: outlines(StatusSuccess)}, want: false},
		{name: "stopped scenario", report: ExecutionReport{Status: StatusStopped, Scenarios: outlines(StatusSuccess, StatusStopped)}, want: false},
		{name: "not executed scenario", report: ExecutionReport{Status: StatusFailure, Scenarios: outlines(StatusNotExecuted)}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsComplete(tc.report); got != tc.want {
				t.Fatalf("IsComplete() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLastComplete(t *testing.T) {
	reports := []ExecutionReport{
		{ExecutionID: 9, Status: StatusRunning, Scenarios: outlines(StatusSuccess)},
		{ExecutionID: 8, Status: StatusSuccess, PartialExecution: true, Scenarios: outlines(StatusSuccess)},
		{ExecutionID: 7, Status: StatusFailure, Scenarios: outlines(StatusFailure, StatusSuccess)},
		{ExecutionID: 6, Status: StatusSuccess, Scenarios: outlines(StatusSuccess)},
	}

	last, ok := LastComplete(reports)
	if !ok {
		t.Fatalf("expected a complete report")
	}
	if last.ExecutionID != 7 {
		t.Fatalf("expected execution 7, got %d", last.ExecutionID)
	}

	if _, ok := LastComplete(reports[:2]); ok {
		t.Fatalf("expected no complete report among running and partial runs")
	}
}
