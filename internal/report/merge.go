package report

// Selection identifies the locally selected execution report, if any.
type Selection struct {
	ExecutionID int64
	Set         bool
}

// Select returns a Selection of the given execution id.
func Select(executionID int64) Selection {
	return Selection{ExecutionID: executionID, Set: true}
}

// Is reports whether the selection points at executionID.
func (s Selection) Is(executionID int64) bool {
	return s.Set && s.ExecutionID == executionID
}

// MergeResult is the outcome of reconciling a fetched report history.
type MergeResult struct {
	Reports []ExecutionReport
	// Selection is the selection to apply after the merge. It only differs
	// from the input selection when a new run was detected.
	Selection Selection
	// NewRun is set when the fetched top report was not known locally.
	NewRun bool
	// RefreshSelected is set when the selected report is the fetched top
	// report and its detail must be rebuilt from the new data.
	RefreshSelected bool
	// Top is the most recent fetched report.
	Top ExecutionReport
	// Changed is false when nothing was merged.
	Changed bool
}

// Merge reconciles the fetched reports with the locally held history.
//
// The fetched top report (highest execution id) is either a new run, which
// is prepended and becomes the selection, or an update of a known report,
// which replaces it in place. An empty fetch leaves the history untouched.
// existing may be modified in place; fetched is not.
func Merge(existing, fetched []ExecutionReport, selected Selection) MergeResult {
	result := MergeResult{Reports: existing, Selection: selected}
	if len(fetched) == 0 {
		return result
	}

	sorted := make([]ExecutionReport, len(fetched))
	copy(sorted, fetched)
	SortByExecutionDesc(sorted)
	top := sorted[0]

	result.Top = top
	result.Changed = true

	idx := Find(existing, top.ExecutionID)
	if idx < 0 {
		result.Reports = append([]ExecutionReport{top}, existing...)
		result.Selection = Select(top.ExecutionID)
		result.NewRun = true
		return result
	}

	existing[idx] = top
	result.RefreshSelected = selected.Is(top.ExecutionID)
	return result
}
