package output

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bgricker/campwatch/internal/export"
	"github.com/bgricker/campwatch/internal/monitor"
	"github.com/bgricker/campwatch/internal/report"
)

// PrettyRenderer renders campaign views in a human-friendly format.
type PrettyRenderer struct {
	out io.Writer
	now func() time.Time
}

// NewPretty creates a PrettyRenderer writing to the provided writer.
func NewPretty(out io.Writer) *PrettyRenderer {
	return &PrettyRenderer{out: out, now: time.Now}
}

// RenderView shows the campaign history, the selected report with its
// scenario outlines and a summary line.
func (p *PrettyRenderer) RenderView(v monitor.View) error {
	var buffer bytes.Buffer

	if !v.Loaded() {
		fmt.Fprintln(&buffer, "No campaign loaded")
		p.notes(&buffer, v)
		_, err := buffer.WriteTo(p.out)
		return err
	}

	fmt.Fprintf(&buffer, "Campaign %s\n", decorateName(v.Title, v.CampaignID))
	if len(v.History) == 0 {
		fmt.Fprintln(&buffer, "  No executions")
	}
	for _, s := range v.History {
		marker := " "
		if v.Selected != nil && v.Selected.ExecutionID == s.ExecutionID {
			marker = ">"
		}
		fmt.Fprintf(&buffer, "%s %s #%d %s (%s)\n", marker, statusGlyph(s.Status), s.ExecutionID, s.Status, counts(s))
	}

	if v.Selected != nil {
		p.execution(&buffer, "Execution", *v.Selected)
		for _, o := range v.Outlines {
			label := o.ScenarioName
			if label == "" {
				label = o.ScenarioID
			}
			fmt.Fprintf(&buffer, "    %s %s [%s] (execution %s)\n", statusGlyph(o.Status), label, o.ScenarioID, o.ExecutionRef())
		}
	}
	if v.Last != nil {
		p.execution(&buffer, "Last complete", *v.Last)
	}

	if v.Summary != nil {
		fmt.Fprintf(&buffer, "SUMMARY: %s\n", counts(*v.Summary))
	}
	if v.Running {
		state := "running"
		if v.StopRequested {
			state = "stopping"
		}
		fmt.Fprintf(&buffer, "STATE: %s (%s, %d ticks every %s)\n", state, v.Polling, v.Cycle.Ticks, formatDuration(v.Cycle.Interval))
	}
	p.notes(&buffer, v)

	_, err := buffer.WriteTo(p.out)
	return err
}

// RenderScenarios lists the campaign scenarios in their current order.
func (p *PrettyRenderer) RenderScenarios(v monitor.View) error {
	if len(v.Scenarios) == 0 {
		_, err := fmt.Fprintln(p.out, "No matching scenarios")
		return err
	}
	for _, s := range v.Scenarios {
		line := fmt.Sprintf("  • %s %s", s.ID, s.Title)
		if s.CreationDate != nil {
			line += " (" + s.CreationDate.Format(time.DateOnly) + ")"
		}
		if _, err := fmt.Fprintln(p.out, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderExport reports the files written to an export archive.
func (p *PrettyRenderer) RenderExport(path string, res export.Result) error {
	var buffer bytes.Buffer
	fmt.Fprintf(&buffer, "Exported %d scenarios to %s\n", len(res.Files), path)
	for _, name := range res.Files {
		fmt.Fprintf(&buffer, "  • %s\n", name)
	}
	for _, id := range res.Composed {
		fmt.Fprintf(&buffer, "  - %s skipped (component scenario)\n", id)
	}
	_, err := buffer.WriteTo(p.out)
	return err
}

func (p *PrettyRenderer) execution(buf *bytes.Buffer, label string, r report.ExecutionReport) {
	fmt.Fprintf(buf, "%s #%d %s %s", label, r.ExecutionID, statusGlyph(r.Status), r.Status)
	if r.Environment != "" {
		fmt.Fprintf(buf, " on %s", r.Environment)
	}
	if r.StartDate != nil {
		fmt.Fprintf(buf, " started %s", r.StartDate.UTC().Format(time.RFC3339))
		if r.Status == report.StatusRunning {
			fmt.Fprintf(buf, " (%s ago)", formatDuration(p.now().Sub(*r.StartDate)))
		}
	}
	if r.PartialExecution {
		fmt.Fprint(buf, " [partial]")
	}
	fmt.Fprintln(buf)
}

func (p *PrettyRenderer) notes(buf *bytes.Buffer, v monitor.View) {
	if v.Warning != "" {
		fmt.Fprintf(buf, "warning: %s\n", v.Warning)
	}
	if v.Error == "" {
		return
	}
	// Backend bodies can span several lines.
	if strings.Contains(v.Error, "\n") {
		fmt.Fprintf(buf, "error:\n%s\n", indent(v.Error, "  "))
		return
	}
	fmt.Fprintf(buf, "error: %s\n", v.Error)
}

func counts(s report.Summary) string {
	parts := []string{
		fmt.Sprintf("%d passed", s.Passed),
		fmt.Sprintf("%d failed", s.Failed),
		fmt.Sprintf("%d stopped", s.Stopped),
		fmt.Sprintf("%d not executed", s.NotExecuted),
	}
	if s.Unknown > 0 {
		parts = append(parts, fmt.Sprintf("%d other", s.Unknown))
	}
	return strings.Join(parts, ", ")
}

func decorateName(title string, id int64) string {
	if title == "" {
		return fmt.Sprintf("#%d", id)
	}
	return fmt.Sprintf("%s (#%d)", title, id)
}

func statusGlyph(status report.Status) string {
	switch status {
	case report.StatusSuccess:
		return "✓"
	case report.StatusFailure:
		return "✗"
	case report.StatusStopped:
		return "■"
	case report.StatusNotExecuted:
		return "-"
	case report.StatusRunning:
		return "…"
	default:
		return "?"
	}
}

func indent(s, pad string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = pad + lines[i]
	}
	return strings.Join(lines, "\n")
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Truncate(time.Second).String()
}
