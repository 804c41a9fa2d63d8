package output

import (
	"encoding/json"
	"io"

	"github.com/bgricker/campwatch/internal/export"
	"github.com/bgricker/campwatch/internal/monitor"
)

// JSONRenderer emits structured campaign data.
type JSONRenderer struct {
	out io.Writer
}

// NewJSON creates a JSON renderer writing to out.
func NewJSON(out io.Writer) *JSONRenderer {
	return &JSONRenderer{out: out}
}

// ExportReport captures the JSON output of an export.
type ExportReport struct {
	Path     string   `json:"path"`
	Files    []string `json:"files"`
	Composed []string `json:"skipped_composed,omitempty"`
}

// Render encodes the view as JSON.
func (j *JSONRenderer) Render(v monitor.View) error {
	return j.encode(v)
}

// RenderExport encodes the export result as JSON.
func (j *JSONRenderer) RenderExport(path string, res export.Result) error {
	return j.encode(ExportReport{Path: path, Files: res.Files, Composed: res.Composed})
}

func (j *JSONRenderer) encode(v any) error {
	enc := json.NewEncoder(j.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
