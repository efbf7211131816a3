// Package testhelpers provides reusable testing utilities: an in-memory
// record store database and fluent builders for raw incident records.
package testhelpers

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/seawatch/seawatch/internal/database"
)

// SetupTestDB creates an in-memory SQLite database with the record store
// schema migrated.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&database.RawRecord{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// MustCreate inserts a record and fails the test on error
func MustCreate(t *testing.T, db *gorm.DB, record *database.RawRecord) *database.RawRecord {
	t.Helper()
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("Failed to create test record: %v", err)
	}
	return record
}

// ========================================
// Raw Record Builder
// ========================================

// RawRecordBuilder builds RawRecord instances for testing
type RawRecordBuilder struct {
	record database.RawRecord
}

// NewRawRecordBuilder creates a builder with a comparable default record:
// UKMTO report, dated now, positioned in the Singapore Strait.
func NewRawRecordBuilder() *RawRecordBuilder {
	date := time.Date(2024, 10, 17, 18, 0, 0, 0, time.UTC)
	lat := 1.13
	lon := 103.50
	return &RawRecordBuilder{
		record: database.RawRecord{
			Source:       "UKMTO",
			Title:        "Incident report",
			Description:  "Vessel reported an incident while transiting.",
			IncidentType: "Robbery",
			Date:         &date,
			Latitude:     &lat,
			Longitude:    &lon,
		},
	}
}

// WithID sets the record id
func (b *RawRecordBuilder) WithID(id string) *RawRecordBuilder {
	b.record.ID = id
	return b
}

// WithSource sets the reporting source
func (b *RawRecordBuilder) WithSource(source string) *RawRecordBuilder {
	b.record.Source = source
	return b
}

// WithTitle sets the title
func (b *RawRecordBuilder) WithTitle(title string) *RawRecordBuilder {
	b.record.Title = title
	return b
}

// WithDescription sets the description
func (b *RawRecordBuilder) WithDescription(desc string) *RawRecordBuilder {
	b.record.Description = desc
	return b
}

// WithUpdateText sets the update addendum
func (b *RawRecordBuilder) WithUpdateText(text string) *RawRecordBuilder {
	b.record.UpdateText = text
	return b
}

// WithReference sets the source reference code
func (b *RawRecordBuilder) WithReference(ref string) *RawRecordBuilder {
	b.record.Reference = ref
	return b
}

// WithRegion sets the region
func (b *RawRecordBuilder) WithRegion(region string) *RawRecordBuilder {
	b.record.Region = region
	return b
}

// WithDate sets the incident date
func (b *RawRecordBuilder) WithDate(date time.Time) *RawRecordBuilder {
	b.record.Date = &date
	return b
}

// WithoutDate clears the incident date
func (b *RawRecordBuilder) WithoutDate() *RawRecordBuilder {
	b.record.Date = nil
	return b
}

// WithPosition sets latitude and longitude
func (b *RawRecordBuilder) WithPosition(lat, lon float64) *RawRecordBuilder {
	b.record.Latitude = &lat
	b.record.Longitude = &lon
	return b
}

// WithoutPosition clears both coordinates
func (b *RawRecordBuilder) WithoutPosition() *RawRecordBuilder {
	b.record.Latitude = nil
	b.record.Longitude = nil
	return b
}

// WithoutLatitude clears only the latitude
func (b *RawRecordBuilder) WithoutLatitude() *RawRecordBuilder {
	b.record.Latitude = nil
	return b
}

// WithVessel sets vessel name and IMO
func (b *RawRecordBuilder) WithVessel(name, imo string) *RawRecordBuilder {
	b.record.VesselName = name
	b.record.VesselIMO = imo
	return b
}

// WithVesselDetails sets the remaining vessel sub-fields
func (b *RawRecordBuilder) WithVesselDetails(vesselType, flag, status string) *RawRecordBuilder {
	b.record.VesselType = vesselType
	b.record.VesselFlag = flag
	b.record.VesselStatus = status
	return b
}

// WithIncidentType sets the free-text incident type
func (b *RawRecordBuilder) WithIncidentType(incidentType string) *RawRecordBuilder {
	b.record.IncidentType = incidentType
	return b
}

// WithMergeStatus sets the merge linkage state
func (b *RawRecordBuilder) WithMergeStatus(status database.MergeStatus) *RawRecordBuilder {
	b.record.MergeStatus = status
	return b
}

// MergedInto marks the record as superseded by rootID
func (b *RawRecordBuilder) MergedInto(rootID string) *RawRecordBuilder {
	b.record.MergeStatus = database.MergeStatusMergedInto
	b.record.MergedInto = rootID
	return b
}

// WithRelated sets the absorbed-record list
func (b *RawRecordBuilder) WithRelated(ids ...string) *RawRecordBuilder {
	b.record.RelatedRawData = ids
	return b
}

// WithLinkedIncident links the record to a consolidated incident
func (b *RawRecordBuilder) WithLinkedIncident(incidentID string) *RawRecordBuilder {
	b.record.LinkedIncidentID = incidentID
	b.record.HasIncident = true
	return b
}

// Build returns the constructed record
func (b *RawRecordBuilder) Build() database.RawRecord {
	return b.record
}

// BuildPtr returns the constructed record as a pointer
func (b *RawRecordBuilder) BuildPtr() *database.RawRecord {
	record := b.record
	return &record
}
