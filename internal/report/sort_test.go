package report

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func scenarioIDs(items []ScenarioIndex) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		out = append(out, s.ID)
	}
	return out
}

func TestSortScenariosByTitleMissingFirst(t *testing.T) {
	items := []ScenarioIndex{
		{ID: "1", Title: "beta"},
		{ID: "2"},
		{ID: "3", Title: "Alpha"},
	}

	var o Ordering
	o.Toggle(SortTitle)
	require.NoError(t, SortScenarios(items, o))
	require.Equal(t, []string{"2", "3", "1"}, scenarioIDs(items))

	o.Toggle(SortTitle)
	require.True(t, o.Reverse)
	require.NoError(t, SortScenarios(items, o))
	require.Equal(t, []string{"1", "3", "2"}, scenarioIDs(items))
}

func TestSortToggleTwiceRestoresOrder(t *testing.T) {
	items := []ScenarioIndex{
		{ID: "1", Title: "same"},
		{ID: "2", Title: "other"},
		{ID: "3", Title: "same"},
		{ID: "4"},
	}

	var o Ordering
	o.Toggle(SortTitle)
	require.NoError(t, SortScenarios(items, o))
	first := scenarioIDs(items)

	o.Toggle(SortTitle)
	require.NoError(t, SortScenarios(items, o))
	o.Toggle(SortTitle)
	require.NoError(t, SortScenarios(items, o))

	if diff := cmp.Diff(first, scenarioIDs(items)); diff != "" {
		t.Fatalf("order not restored (-want +got):\n%s", diff)
	}
}

func TestSortScenariosByCreationDate(t *testing.T) {
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	items := []ScenarioIndex{
		{ID: "old", CreationDate: &old},
		{ID: "none"},
		{ID: "recent", CreationDate: &recent},
	}

	o := Ordering{By: SortCreationDate}
	require.NoError(t, SortScenarios(items, o))
	require.Equal(t, []string{"recent", "old", "none"}, scenarioIDs(items))

	o.Toggle(SortCreationDate)
	require.NoError(t, SortScenarios(items, o))
	require.Equal(t, []string{"none", "old", "recent"}, scenarioIDs(items))
}

func TestSortOutlines(t *testing.T) {
	items := []ScenarioOutline{
		{ScenarioID: "1", ScenarioName: "zeta", Status: StatusSuccess},
		{ScenarioID: "2", ScenarioName: "Eta", Status: StatusFailure},
		{ScenarioID: "3", Status: StatusNotExecuted},
	}

	require.NoError(t, SortOutlines(items, Ordering{By: SortTitle}))
	require.Equal(t, "3", items[0].ScenarioID)
	require.Equal(t, "2", items[1].ScenarioID)

	require.NoError(t, SortOutlines(items, Ordering{By: SortStatus}))
	require.Equal(t, StatusFailure, items[0].Status)
	require.Equal(t, StatusSuccess, items[2].Status)
}

func TestSortUnknownKey(t *testing.T) {
	require.Error(t, SortScenarios([]ScenarioIndex{{ID: "1"}}, Ordering{By: "duration"}))
	require.Error(t, SortOutlines([]ScenarioOutline{{ScenarioID: "1"}}, Ordering{By: SortCreationDate}))
}

func TestOrderingToggle(t *testing.T) {
	var o Ordering
	o.Toggle(SortTitle)
	require.Equal(t, Ordering{By: SortTitle}, o)
	o.Toggle(SortStatus)
	require.Equal(t, Ordering{By: SortStatus}, o)
	o.Toggle(SortStatus)
	require.Equal(t, Ordering{By: SortStatus, Reverse: true}, o)
	o.Reset()
	require.Equal(t, Ordering{}, o)
}
