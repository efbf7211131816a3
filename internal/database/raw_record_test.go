package database_test

import (
	"testing"
	"time"

	"github.com/seawatch/seawatch/internal/database"
	"github.com/seawatch/seawatch/internal/testhelpers"
)

func TestListUnprocessed(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	base := time.Date(2024, 10, 17, 12, 0, 0, 0, time.UTC)

	testhelpers.MustCreate(t, db, testhelpers.NewRawRecordBuilder().
		WithID("fresh-old").WithDate(base.Add(-1*time.Hour)).BuildPtr())
	testhelpers.MustCreate(t, db, testhelpers.NewRawRecordBuilder().
		WithID("fresh-new").WithDate(base).BuildPtr())
	testhelpers.MustCreate(t, db, testhelpers.NewRawRecordBuilder().
		WithID("merged-root").WithDate(base).
		WithMergeStatus(database.MergeStatusMerged).BuildPtr())
	testhelpers.MustCreate(t, db, testhelpers.NewRawRecordBuilder().
		WithID("superseded").WithDate(base).
		MergedInto("merged-root").BuildPtr())
	testhelpers.MustCreate(t, db, testhelpers.NewRawRecordBuilder().
		WithID("too-old").WithDate(base.Add(-40*24*time.Hour)).BuildPtr())

	since := base.Add(-30 * 24 * time.Hour)
	records, err := database.ListUnprocessed(db, since, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 unprocessed records, got %d", len(records))
	}
	// Newest first.
	if records[0].ID != "fresh-new" || records[1].ID != "fresh-old" {
		t.Errorf("expected [fresh-new fresh-old], got [%s %s]", records[0].ID, records[1].ID)
	}
}

func TestListUnprocessed_Pagination(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	base := time.Date(2024, 10, 17, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		testhelpers.MustCreate(t, db, testhelpers.NewRawRecordBuilder().
			WithDate(base.Add(time.Duration(i)*time.Minute)).BuildPtr())
	}

	since := base.Add(-time.Hour)
	page1, err := database.ListUnprocessed(db, since, 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	page2, err := database.ListUnprocessed(db, since, 2, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	page3, err := database.ListUnprocessed(db, since, 2, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(page1) != 2 || len(page2) != 2 || len(page3) != 1 {
		t.Errorf("expected page sizes 2/2/1, got %d/%d/%d", len(page1), len(page2), len(page3))
	}
}

func TestPatchRawRecord(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	testhelpers.MustCreate(t, db, testhelpers.NewRawRecordBuilder().WithID("r1").BuildPtr())

	err := database.PatchRawRecord(db, "r1", map[string]interface{}{
		"merge_status":     string(database.MergeStatusMergedInto),
		"merged_into":      "r2",
		"processing_notes": "[2024-10-18] merged into r2",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	record, err := database.GetRawRecord(db, "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.MergeStatus != database.MergeStatusMergedInto || record.MergedInto != "r2" {
		t.Errorf("patch not applied: %+v", record)
	}
	// Untouched fields survive a partial update.
	if record.Source != "UKMTO" || record.Title != "Incident report" {
		t.Errorf("partial update must not clear other fields: %+v", record)
	}
}

func TestRawRecord_GeneratesID(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	record := testhelpers.MustCreate(t, db, testhelpers.NewRawRecordBuilder().BuildPtr())
	if record.ID == "" {
		t.Error("expected a generated id")
	}
}

func TestRawRecord_ListRoundTrip(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	testhelpers.MustCreate(t, db, testhelpers.NewRawRecordBuilder().
		WithID("root").
		WithRelated("a1", "b2").
		BuildPtr())

	record, err := database.GetRawRecord(db, "root")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(record.RelatedRawData) != 2 || record.RelatedRawData[0] != "a1" || record.RelatedRawData[1] != "b2" {
		t.Errorf("related list did not round-trip: %v", record.RelatedRawData)
	}
}

func TestRawRecord_JSONBRoundTrip(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	record := testhelpers.NewRawRecordBuilder().WithID("r1").BuildPtr()
	record.MergeScore = database.JSONB{
		"primary_source":   "RECAAP",
		"secondary_source": "UKMTO",
		"score":            0.91,
	}
	testhelpers.MustCreate(t, db, record)

	got, err := database.GetRawRecord(db, "r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.MergeScore["primary_source"] != "RECAAP" {
		t.Errorf("merge score did not round-trip: %v", got.MergeScore)
	}
}

func TestRawRecord_Comparable(t *testing.T) {
	full := testhelpers.NewRawRecordBuilder().Build()
	if !full.Comparable() {
		t.Error("record with date and coordinates must be comparable")
	}
	noDate := testhelpers.NewRawRecordBuilder().WithoutDate().Build()
	if noDate.Comparable() {
		t.Error("record without a date must not be comparable")
	}
	noPos := testhelpers.NewRawRecordBuilder().WithoutPosition().Build()
	if noPos.Comparable() {
		t.Error("record without coordinates must not be comparable")
	}
}

func TestRawRecord_IsRoot(t *testing.T) {
	unset := testhelpers.NewRawRecordBuilder().Build()
	if !unset.IsRoot() {
		t.Error("unset record is a root")
	}
	merged := testhelpers.NewRawRecordBuilder().WithMergeStatus(database.MergeStatusMerged).Build()
	if !merged.IsRoot() {
		t.Error("merged record is still a root")
	}
	superseded := testhelpers.NewRawRecordBuilder().MergedInto("x").Build()
	if superseded.IsRoot() {
		t.Error("superseded record is not a root")
	}
}
