// Package export writes the raw definitions of a campaign's scenarios to a zip archive.
package export

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bgricker/campwatch/internal/report"
)

// DefaultConcurrency bounds parallel raw definition fetches.
const DefaultConcurrency = 4

// Source provides raw scenario definitions.
type Source interface {
	FetchRawTestCase(ctx context.Context, scenarioID string) (report.TestCase, error)
}

// Result describes a finished export.
type Result struct {
	Files []string
	// Composed lists ids of component scenarios that cannot be exported.
	Composed []string
}

// FileName returns the archive entry name of a test case.
func FileName(tc report.TestCase) string {
	title := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, tc.Title)
	return fmt.Sprintf("%s-%s.chutney.hjson", tc.ID, title)
}

// Zip fetches the raw definitions of scenarios from src and writes them to w.
// Composed scenarios are skipped and reported in the result.
func Zip(ctx context.Context, w io.Writer, src Source, scenarios []report.ScenarioIndex, concurrency int) (Result, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var res Result
	wanted := make([]report.ScenarioIndex, 0, len(scenarios))
	for _, s := range scenarios {
		if s.Composed() {
			res.Composed = append(res.Composed, s.ID)
			continue
		}
		wanted = append(wanted, s)
	}

	cases := make([]report.TestCase, len(wanted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, s := range wanted {
		i, s := i, s
		g.Go(func() error {
			tc, err := src.FetchRawTestCase(gctx, s.ID)
			if err != nil {
				return fmt.Errorf("fetch raw scenario %s: %w", s.ID, err)
			}
			if tc.ID == "" {
				tc.ID = s.ID
			}
			if tc.Title == "" {
				tc.Title = s.Title
			}
			cases[i] = tc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	zw := zip.NewWriter(w)
	for _, tc := range cases {
		name := FileName(tc)
		f, err := zw.Create(name)
		if err != nil {
			return Result{}, fmt.Errorf("create archive entry %q: %w", name, err)
		}
		if _, err := io.WriteString(f, tc.Content); err != nil {
			return Result{}, fmt.Errorf("write archive entry %q: %w", name, err)
		}
		res.Files = append(res.Files, name)
	}
	if err := zw.Close(); err != nil {
		return Result{}, fmt.Errorf("close archive: %w", err)
	}
	return res, nil
}
