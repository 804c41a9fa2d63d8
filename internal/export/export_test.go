package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bgricker/campwatch/internal/report"
)

type sourceFunc func(ctx context.Context, id string) (report.TestCase, error)

func (f sourceFunc) FetchRawTestCase(ctx context.Context, id string) (report.TestCase, error) {
	return f(ctx, id)
}

func TestZipWritesDefinitionsInOrder(t *testing.T) {
	src := sourceFunc(func(_ context.Context, id string) (report.TestCase, error) {
		return report.TestCase{ID: id, Content: "content of " + id}, nil
	})
	scenarios := []report.ScenarioIndex{
		{ID: "2", Title: "checkout/full"},
		{ID: "10-3", Title: "composed"},
		{ID: "1", Title: "login"},
	}

	var buf bytes.Buffer
	res, err := Zip(context.Background(), &buf, src, scenarios, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"2-checkout_full.chutney.hjson", "1-login.chutney.hjson"}, res.Files)
	require.Equal(t, []string{"10-3"}, res.Composed)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	f, err := zr.File[1].Open()
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "content of 1", string(data))
}

func TestZipFailsOnFetchError(t *testing.T) {
	boom := errors.New("unavailable")
	src := sourceFunc(func(context.Context, string) (report.TestCase, error) {
		return report.TestCase{}, boom
	})

	var buf bytes.Buffer
	_, err := Zip(context.Background(), &buf, src, []report.ScenarioIndex{{ID: "1"}}, 0)
	require.ErrorIs(t, err, boom)
	require.Zero(t, buf.Len())
}
