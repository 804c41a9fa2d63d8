package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// SortKey names the property a list view is ordered by.
type SortKey string

const (
	SortNone         SortKey = ""
	SortTitle        SortKey = "title"
	SortCreationDate SortKey = "creationDate"
	SortID           SortKey = "id"
	SortStatus       SortKey = "status"
	SortScenarioID   SortKey = "scenarioId"
)

// Ordering is the sort state of a list view.
type Ordering struct {
	By      SortKey `json:"by,omitempty"`
	Reverse bool    `json:"reverse,omitempty"`
}

// Toggle selects key as the sort property. Selecting the current property
// again flips the direction.
func (o *Ordering) Toggle(key SortKey) {
	if o.By == key {
		o.Reverse = !o.Reverse
	}
	o.By = key
}

// Reset clears the sort state.
func (o *Ordering) Reset() {
	*o = Ordering{}
}

type sortValue struct {
	text string
	num  int64
}

func (a sortValue) less(b sortValue) bool {
	if a.text != b.text {
		return a.text < b.text
	}
	return a.num < b.num
}

// SortScenarios orders items in place. Missing titles sort as the empty
// string, missing creation dates as the oldest possible date. Creation
// dates sort most recent first in ascending order.
func SortScenarios(items []ScenarioIndex, o Ordering) error {
	var key func(ScenarioIndex) sortValue
	switch o.By {
	case SortNone:
		return nil
	case SortTitle:
		key = func(s ScenarioIndex) sortValue { return sortValue{text: strings.ToLower(s.Title)} }
	case SortID:
		key = func(s ScenarioIndex) sortValue { return sortValue{text: s.ID} }
	case SortCreationDate:
		key = func(s ScenarioIndex) sortValue {
			if s.CreationDate == nil || s.CreationDate.IsZero() {
				return sortValue{num: math.MaxInt64}
			}
			return sortValue{num: -s.CreationDate.UnixMilli()}
		}
	default:
		return fmt.Errorf("unsupported scenario sort key %q", o.By)
	}
	sortByAndOrder(items, key, o.Reverse)
	return nil
}

// SortOutlines orders scenario outlines in place.
func SortOutlines(items []ScenarioOutline, o Ordering) error {
	var key func(ScenarioOutline) sortValue
	switch o.By {
	case SortNone:
		return nil
	case SortTitle:
		key = func(s ScenarioOutline) sortValue { return sortValue{text: strings.ToLower(s.ScenarioName)} }
	case SortScenarioID, SortID:
		key = func(s ScenarioOutline) sortValue { return sortValue{text: s.ScenarioID} }
	case SortStatus:
		key = func(s ScenarioOutline) sortValue { return sortValue{text: s.Status.String()} }
	default:
		return fmt.Errorf("unsupported outline sort key %q", o.By)
	}
	sortByAndOrder(items, key, o.Reverse)
	return nil
}

func sortByAndOrder[T any](items []T, key func(T) sortValue, reverse bool) {
	sort.SliceStable(items, func(i, j int) bool {
		if reverse {
			return key(items[j]).less(key(items[i]))
		}
		return key(items[i]).less(key(items[j]))
	})
}
