package store

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestMergeTimestampRangeUsesConfiguredField(t *testing.T) {
	since := time.Date(2025, 8, 25, 15, 0, 0, 0, time.UTC)
	until := since.Add(time.Hour)

	q := mergeTimestampRange("request_time", since, until)
	rng, ok := q["request_time"].(bson.M)
	if !ok {
		t.Fatalf("expected request_time range clause, got %#v", q)
	}
	if rng["$gte"] != since || rng["$lt"] != until {
		t.Errorf("range = %#v, want gte=%v lt=%v", rng, since, until)
	}
}

func TestMergeTimestampRangeFallsBackToLegacyOr(t *testing.T) {
	since := time.Date(2025, 8, 25, 15, 0, 0, 0, time.UTC)
	until := since.Add(time.Hour)

	q := mergeTimestampRange("", since, until)
	or, ok := q["$or"].(bson.A)
	if !ok {
		t.Fatalf("expected $or clause, got %#v", q)
	}
	if len(or) != len(legacyTimestampFields) {
		t.Fatalf("expected %d legacy fallback clauses, got %d", len(legacyTimestampFields), len(or))
	}
	for i, field := range legacyTimestampFields {
		clause, ok := or[i].(bson.M)
		if !ok {
			t.Fatalf("clause %d not a bson.M: %#v", i, or[i])
		}
		if _, present := clause[field]; !present {
			t.Errorf("clause %d missing expected field %q: %#v", i, field, clause)
		}
	}
}

func TestBuildFilterCombinesMethodAndStatusRange(t *testing.T) {
	f := Filter{Method: "POST", StatusMin: 400, StatusMax: 499}
	q := buildFilter(f)
	if q["method"] != "POST" {
		t.Errorf("method = %v, want POST", q["method"])
	}
	rng, ok := q["response_status"].(bson.M)
	if !ok {
		t.Fatalf("expected response_status range clause, got %#v", q)
	}
	if rng["$gte"] != 400 || rng["$lte"] != 499 {
		t.Errorf("range = %#v, want gte=400 lte=499", rng)
	}
}
