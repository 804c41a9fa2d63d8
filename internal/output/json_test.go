package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/bgricker/campwatch/internal/export"
	"github.com/bgricker/campwatch/internal/monitor"
	"github.com/bgricker/campwatch/internal/poller"
	"github.com/bgricker/campwatch/internal/report"
)

func TestJSONRenderer(t *testing.T) {
	buf := &bytes.Buffer{}
	renderer := NewJSON(buf)
	v := sampleView()
	v.Cycle = poller.Stats{CycleID: "c1", State: poller.Stopped, Interval: time.Second, Ticks: 4, Rescheduled: 3}
	if err := renderer.Render(v); err != nil {
		t.Fatalf("render json: %v", err)
	}

	var decoded monitor.View
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if decoded.CampaignID != 12 || decoded.Title != "regression" {
		t.Fatalf("campaign mismatch: %d %q", decoded.CampaignID, decoded.Title)
	}
	if decoded.Selected == nil || decoded.Selected.Status != report.StatusFailure {
		t.Fatalf("selected mismatch: %+v", decoded.Selected)
	}
	if decoded.Summary == nil || decoded.Summary.Failed != 1 || decoded.Summary.Total != 2 {
		t.Fatalf("summary mismatch: %+v", decoded.Summary)
	}
	if decoded.Cycle != v.Cycle {
		t.Fatalf("cycle stats mismatch: %+v", decoded.Cycle)
	}
	if len(decoded.History) != 2 {
		t.Fatalf("expected history serialized, got %+v", decoded.History)
	}

	var raw map[string]any
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("decode raw: %v", err)
	}
	selected := raw["selected"].(map[string]any)
	if selected["status"] != "FAILURE" {
		t.Fatalf("expected textual status, got %v", selected["status"])
	}
	cycle := raw["cycle"].(map[string]any)
	if cycle["state"] != "stopped" || cycle["ticks"] != float64(4) {
		t.Fatalf("unexpected cycle stats %v", cycle)
	}
}

func TestJSONRenderExport(t *testing.T) {
	buf := &bytes.Buffer{}
	res := export.Result{Files: []string{"1-login.chutney.hjson"}}
	if err := NewJSON(buf).RenderExport("out.zip", res); err != nil {
		t.Fatalf("render export: %v", err)
	}

	var decoded ExportReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if decoded.Path != "out.zip" || len(decoded.Files) != 1 || len(decoded.Composed) != 0 {
		t.Fatalf("unexpected export report: %+v", decoded)
	}
}
