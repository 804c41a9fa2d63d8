package monitor

import (
	"github.com/bgricker/campwatch/internal/poller"
	"github.com/bgricker/campwatch/internal/report"
)

// View is a read-only snapshot of the monitor state.
type View struct {
	CampaignID    int64                    `json:"campaign_id"`
	Title         string                   `json:"title"`
	History       []report.Summary         `json:"history"`
	Selected      *report.ExecutionReport  `json:"selected,omitempty"`
	Summary       *report.Summary          `json:"summary,omitempty"`
	Last          *report.ExecutionReport  `json:"last,omitempty"`
	LastSummary   *report.Summary          `json:"last_summary,omitempty"`
	Scenarios     []report.ScenarioIndex   `json:"scenarios,omitempty"`
	ScenarioOrder report.Ordering          `json:"scenario_order"`
	Outlines      []report.ScenarioOutline `json:"outlines,omitempty"`
	OutlineOrder  report.Ordering          `json:"outline_order"`
	Running       bool                     `json:"running"`
	StopRequested bool                     `json:"stop_requested,omitempty"`
	Polling       string                   `json:"polling"`
	Cycle         poller.Stats             `json:"cycle"`
	Error         string                   `json:"error,omitempty"`
	Warning       string                   `json:"warning,omitempty"`
}

// Loaded reports whether the view holds a campaign.
func (v View) Loaded() bool {
	return v.CampaignID != 0 || v.Title != ""
}

// View returns a snapshot of the current state.
func (m *Monitor) View() View {
	stats := m.poller.Stats()

	m.mu.Lock()
	defer m.mu.Unlock()

	v := View{
		ScenarioOrder: m.scenarioOrder,
		OutlineOrder:  m.outlineOrder,
		Running:       m.running,
		StopRequested: m.stopRequested,
		Polling:       stats.State.String(),
		Cycle:         stats,
		Error:         m.lastErr,
		Warning:       m.warning,
	}
	if m.campaign == nil {
		return v
	}

	v.CampaignID = m.campaign.ID
	v.Title = m.campaign.Title
	v.History = make([]report.Summary, 0, len(m.campaign.Reports))
	for _, r := range m.campaign.Reports {
		v.History = append(v.History, report.Classify(r))
	}
	v.Selected, v.Summary = m.lookupLocked(m.selected)
	v.Last, v.LastSummary = m.lookupLocked(m.last)
	if m.ordered != nil {
		v.Scenarios = append([]report.ScenarioIndex{}, m.ordered...)
	}
	if m.outlines != nil {
		v.Outlines = append([]report.ScenarioOutline{}, m.outlines...)
	}
	return v
}

func (m *Monitor) lookupLocked(sel report.Selection) (*report.ExecutionReport, *report.Summary) {
	if !sel.Set {
		return nil, nil
	}
	idx := report.Find(m.campaign.Reports, sel.ExecutionID)
	if idx < 0 {
		return nil, nil
	}
	r := m.campaign.Reports[idx].Clone()
	s := report.Classify(r)
	return &r, &s
}
