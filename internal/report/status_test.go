package report

import (
	"encoding/json"
	"testing"
)

func TestParseStatusIsExact(t *testing.T) {
	cases := map[string]Status{
		"RUNNING":      StatusRunning,
		"SUCCESS":      StatusSuccess,
		"FAILURE":      StatusFailure,
		"STOPPED":      StatusStopped,
		"NOT_EXECUTED": StatusNotExecuted,
		"running":      StatusUnknown,
		" RUNNING":     StatusUnknown,
		"PAUSED":       StatusUnknown,
		"":             StatusUnknown,
	}
	for in, want := range cases {
		if got := ParseStatus(in); got != want {
			t.Fatalf("ParseStatus(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestLowercaseRunningDoesNotCountAsRunning(t *testing.T) {
	var r ExecutionReport
	if err := json.Unmarshal([]byte(`{"executionId": 3, "status": "running"}`), &r); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if r.Status != StatusUnknown {
		t.Fatalf("expected UNKNOWN, got %s", r.Status)
	}
	if AnyRunning([]ExecutionReport{r}) {
		t.Fatalf("lowercase status must not keep polling alive")
	}
}
