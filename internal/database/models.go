package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if str, ok := value.(string); ok {
			bytes = []byte(str)
		} else {
			return errors.New("type assertion to []byte failed")
		}
	}
	return json.Unmarshal(bytes, j)
}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// StringList is a JSON-encoded list of record ids stored in a single column
type StringList []string

// Scan implements the sql.Scanner interface
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if str, ok := value.(string); ok {
			bytes = []byte(str)
		} else {
			return errors.New("type assertion to []byte failed")
		}
	}
	return json.Unmarshal(bytes, l)
}

// Value implements the driver.Valuer interface
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// MergeStatus tracks where a raw record sits in its merge chain
type MergeStatus string

const (
	// MergeStatusNone marks a record that has never been touched by the engine
	MergeStatusNone MergeStatus = ""
	// MergeStatusMerged marks an authoritative root that absorbed at least one record
	MergeStatusMerged MergeStatus = "merged"
	// MergeStatusMergedInto marks a superseded record; it is never compared again
	MergeStatusMergedInto MergeStatus = "merged_into"
)

// RawRecord is one source's report of a possible maritime incident, prior to
// cross-source consolidation. Records are never deleted: a duplicate is
// demoted via MergedInto and kept as provenance.
type RawRecord struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	Source string `gorm:"size:64;not null;index" json:"source"`

	Title         string `gorm:"size:512" json:"title"`
	Description   string `gorm:"type:text" json:"description"`
	UpdateText    string `gorm:"type:text" json:"update_text"`
	Reference     string `gorm:"size:128" json:"reference"`
	Region        string `gorm:"size:128" json:"region"`
	CategoryNotes string `gorm:"type:text" json:"category_notes"`
	RawPayload    JSONB  `gorm:"type:jsonb" json:"raw_payload"`

	// Date and both coordinates are hard prerequisites for comparison.
	Date      *time.Time `gorm:"index" json:"date"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`

	VesselName   string `gorm:"size:256" json:"vessel_name"`
	VesselType   string `gorm:"size:128" json:"vessel_type"`
	VesselFlag   string `gorm:"size:128" json:"vessel_flag"`
	VesselIMO    string `gorm:"column:vessel_imo;size:32" json:"vessel_imo"`
	VesselStatus string `gorm:"size:128" json:"vessel_status"`

	IncidentType string `gorm:"size:128" json:"incident_type"`

	// Merge linkage state. MergedInto is set iff MergeStatus is "merged_into";
	// RelatedRawData on a root accumulates every record absorbed into it.
	MergeStatus    MergeStatus `gorm:"size:16;index" json:"merge_status"`
	MergedInto     string      `gorm:"size:36" json:"merged_into"`
	RelatedRawData StringList  `gorm:"type:text" json:"related_raw_data"`

	// Link to a consolidated incident entity owned outside this engine.
	LinkedIncidentID string `gorm:"size:36" json:"linked_incident_id"`
	HasIncident      bool   `gorm:"default:false" json:"has_incident"`

	// Audit metadata written at merge time.
	MergeScore      JSONB      `gorm:"type:jsonb" json:"merge_score"`
	ProcessingNotes string     `gorm:"type:text" json:"processing_notes"`
	LastProcessed   *time.Time `json:"last_processed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (RawRecord) TableName() string {
	return "raw_records"
}

// BeforeCreate assigns a store id when the caller did not provide one
func (r *RawRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Comparable reports whether the record meets the hard prerequisites for
// similarity scoring: a date and both coordinates.
func (r *RawRecord) Comparable() bool {
	return r.Date != nil && r.Latitude != nil && r.Longitude != nil
}

// IsRoot reports whether the record is currently authoritative for its cluster
func (r *RawRecord) IsRoot() bool {
	return r.MergeStatus != MergeStatusMergedInto
}
