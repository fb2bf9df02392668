package strava

import (
	"testing"
)

func TestMergeNewestWins(t *testing.T) {
	existing := []Activity{
		{ID: "1", StartDate: 100, Distance: 1000},
		{ID: "2", StartDate: 200, Distance: 2000},
	}
	fetched := []Activity{
		{ID: "2", StartDate: 200, Distance: 2500}, // corrected distance
		{ID: "3", StartDate: 300, Distance: 3000},
	}

	merged := Merge(existing, fetched)

	if len(merged) != 3 {
		t.Fatalf("expected 3 activities, got %d", len(merged))
	}
	for i, want := range []string{"1", "2", "3"} {
		if merged[i].ID != want {
			t.Errorf("merged[%d].ID = %s, want %s", i, merged[i].ID, want)
		}
	}
	if merged[1].Distance != 2500 {
		t.Errorf("duplicate id should take the fetched record, got distance %.0f", merged[1].Distance)
	}
}

func TestMergeSortsAscending(t *testing.T) {
	fetched := []Activity{
		{ID: "c", StartDate: 300},
		{ID: "a", StartDate: 100},
		{ID: "b", StartDate: 200},
	}

	merged := Merge(nil, fetched)
	for i := 1; i < len(merged); i++ {
		if merged[i].StartDate < merged[i-1].StartDate {
			t.Fatal("merged activities not ascending by start date")
		}
	}
}

func TestMergeEmpty(t *testing.T) {
	if got := Merge(nil, nil); len(got) != 0 {
		t.Errorf("merge of nothing should be empty, got %d", len(got))
	}

	existing := []Activity{{ID: "1", StartDate: 100}}
	merged := Merge(existing, nil)
	if len(merged) != 1 || merged[0].ID != "1" {
		t.Error("merge with no fetched activities should keep existing set")
	}
}
