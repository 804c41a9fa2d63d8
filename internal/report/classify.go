package report

// Summary aggregates the scenario outcomes of one execution report.
// Outlines with a status outside the known set are counted in Unknown and
// are not part of Total.
type Summary struct {
	ExecutionID int64  `json:"execution_id"`
	Status      Status `json:"status"`
	Passed      int    `json:"passed"`
	Failed      int    `json:"failed"`
	Stopped     int    `json:"stopped"`
	NotExecuted int    `json:"not_executed"`
	Unknown     int    `json:"unknown,omitempty"`
	Total       int    `json:"total"`
	Partial     bool   `json:"partial,omitempty"`
}

// Classify counts the scenario outlines of r by status. It does not modify r.
func Classify(r ExecutionReport) Summary {
	s := Summary{
		ExecutionID: r.ExecutionID,
		Status:      r.Status,
		Partial:     r.PartialExecution,
	}
	for _, o := range r.Scenarios {
		switch o.Status {
		case StatusSuccess:
			s.Passed++
		case StatusFailure:
			s.Failed++
		case StatusStopped:
			s.Stopped++
		case StatusNotExecuted:
			s.NotExecuted++
		default:
			s.Unknown++
		}
	}
	s.Total = s.Passed + s.Failed + s.Stopped + s.NotExecuted
	return s
}

// IsRunning reports whether the summarized report is still running.
func (s Summary) IsRunning() bool { return s.Status == StatusRunning }

// HasPassed reports whether at least one scenario succeeded.
func (s Summary) HasPassed() bool { return s.Passed > 0 }

// HasFailure reports whether at least one scenario failed.
func (s Summary) HasFailure() bool { return s.Failed > 0 }

// HasStopped reports whether at least one scenario was stopped.
func (s Summary) HasStopped() bool { return s.Stopped > 0 }

// HasNotExecuted reports whether at least one scenario was not executed.
func (s Summary) HasNotExecuted() bool { return s.NotExecuted > 0 }

// AllPassed reports whether no scenario failed, stopped or was left unexecuted.
func (s Summary) AllPassed() bool {
	return !s.HasFailure() && !s.HasStopped() && !s.HasNotExecuted()
}

// IsComplete reports whether r is a stable, full run usable as a baseline:
// finished, not partial, and with every scenario actually executed to the end.
func IsComplete(r ExecutionReport) bool {
	s := Classify(r)
	return !s.IsRunning() && !r.PartialExecution && !s.HasNotExecuted() && !s.HasStopped()
}

// LastComplete returns the first complete report in reports order.
func LastComplete(reports []ExecutionReport) (ExecutionReport, bool) {
	for _, r := range reports {
		if IsComplete(r) {
			return r, true
		}
	}
	return ExecutionReport{}, false
}
