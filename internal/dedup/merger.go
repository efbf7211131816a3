package dedup

import (
	"fmt"
	"strings"
	"time"

	"github.com/seawatch/seawatch/internal/database"
)

// MergePatches holds the two field patches a merge commits: one promoting
// the primary to (or keeping it as) the root, one demoting the secondary.
// The root patch is written first; when it fails the secondary patch is not
// attempted, leaving the pair unset for a later run to retry.
type MergePatches struct {
	Primary   map[string]interface{}
	Secondary map[string]interface{}

	// ManualReview is set when both records were already linked to different
	// consolidated incidents. The merge proceeds with the primary's linkage;
	// the conflict is a data-quality signal, not a failure.
	ManualReview bool
	Warnings     []string
}

// Merger builds the field-level patches that fold a secondary record's
// complementary data into the primary.
type Merger struct {
	now func() time.Time
}

// NewMerger creates a merger using wall-clock time for audit stamps
func NewMerger() *Merger {
	return &Merger{now: time.Now}
}

// NewMergerWithClock creates a merger with an injected clock for tests
func NewMergerWithClock(now func() time.Time) *Merger {
	return &Merger{now: now}
}

// Build produces the patches for merging secondary into primary. score is
// the pair's composite similarity, recorded in the audit blob.
func (m *Merger) Build(primary, secondary *database.RawRecord, score float64) MergePatches {
	now := m.now().UTC()
	patches := MergePatches{
		Primary:   make(map[string]interface{}),
		Secondary: make(map[string]interface{}),
	}

	if desc := mergeDescriptions(primary, secondary); desc != primary.Description {
		patches.Primary["description"] = desc
	}
	if update := mergeUpdateText(primary, secondary); update != primary.UpdateText {
		patches.Primary["update_text"] = update
	}

	// Scalar fields: fill gaps on the primary, never overwrite.
	fillEmpty(patches.Primary, "vessel_name", primary.VesselName, secondary.VesselName)
	fillEmpty(patches.Primary, "vessel_type", primary.VesselType, secondary.VesselType)
	fillEmpty(patches.Primary, "vessel_flag", primary.VesselFlag, secondary.VesselFlag)
	fillEmpty(patches.Primary, "vessel_imo", primary.VesselIMO, secondary.VesselIMO)
	fillEmpty(patches.Primary, "vessel_status", primary.VesselStatus, secondary.VesselStatus)
	fillEmpty(patches.Primary, "region", primary.Region, secondary.Region)

	patches.Primary["related_raw_data"] = mergeRelated(primary, secondary)

	// Existing incident linkage survives the merge, whichever side carries it.
	switch {
	case primary.LinkedIncidentID != "" && secondary.LinkedIncidentID != "" &&
		primary.LinkedIncidentID != secondary.LinkedIncidentID:
		patches.ManualReview = true
		patches.Warnings = append(patches.Warnings, fmt.Sprintf(
			"records %s and %s are linked to different consolidated incidents (%s vs %s); keeping %s",
			primary.ID, secondary.ID, primary.LinkedIncidentID, secondary.LinkedIncidentID, primary.LinkedIncidentID))
		patches.Primary["has_incident"] = true
	case primary.LinkedIncidentID != "":
		patches.Primary["has_incident"] = true
	case secondary.LinkedIncidentID != "":
		patches.Primary["linked_incident_id"] = secondary.LinkedIncidentID
		patches.Primary["has_incident"] = true
	}

	patches.Primary["merge_status"] = database.MergeStatusMerged
	patches.Primary["merge_score"] = database.JSONB{
		"primary_source":   primary.Source,
		"secondary_source": secondary.Source,
		"merge_timestamp":  now.Format(time.RFC3339),
		"score":            score,
	}
	patches.Primary["processing_notes"] = appendNote(primary.ProcessingNotes, fmt.Sprintf(
		"[%s] absorbed %s (%s), score %.2f",
		now.Format(time.RFC3339), secondary.ID, secondary.Source, score))
	patches.Primary["last_processed"] = now

	patches.Secondary["merge_status"] = database.MergeStatusMergedInto
	patches.Secondary["merged_into"] = primary.ID
	patches.Secondary["processing_notes"] = appendNote(secondary.ProcessingNotes, fmt.Sprintf(
		"[%s] merged into %s (%s), score %.2f",
		now.Format(time.RFC3339), primary.ID, primary.Source, score))
	patches.Secondary["last_processed"] = now

	return patches
}

// mergeDescriptions keeps the longer description when one contains the
// other; otherwise it concatenates both with an attribution header naming
// the secondary's source.
func mergeDescriptions(primary, secondary *database.RawRecord) string {
	p, s := primary.Description, secondary.Description
	switch {
	case p == "":
		return s
	case s == "":
		return p
	case strings.Contains(p, s):
		return p
	case strings.Contains(s, p):
		return s
	default:
		return p + "\n\n--- Additional details from " + secondary.Source + " ---\n" + s
	}
}

// mergeUpdateText appends the secondary's update addendum under a source
// header, either as the primary's first update block or as a second one.
func mergeUpdateText(primary, secondary *database.RawRecord) string {
	if secondary.UpdateText == "" {
		return primary.UpdateText
	}
	block := "Update from " + secondary.Source + ":\n" + secondary.UpdateText
	if primary.UpdateText == "" {
		return block
	}
	return primary.UpdateText + "\n\n" + block
}

// mergeRelated accumulates the transitive absorption list: everything the
// primary already absorbed, everything the secondary absorbed while it was a
// root, and the secondary itself.
func mergeRelated(primary, secondary *database.RawRecord) database.StringList {
	seen := make(map[string]struct{}, len(primary.RelatedRawData)+len(secondary.RelatedRawData)+1)
	related := make(database.StringList, 0, len(primary.RelatedRawData)+len(secondary.RelatedRawData)+1)
	appendID := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		related = append(related, id)
	}
	for _, id := range primary.RelatedRawData {
		appendID(id)
	}
	for _, id := range secondary.RelatedRawData {
		appendID(id)
	}
	appendID(secondary.ID)
	return related
}

func fillEmpty(patch map[string]interface{}, field, primaryValue, secondaryValue string) {
	if primaryValue == "" && secondaryValue != "" {
		patch[field] = secondaryValue
	}
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
