package database

import (
	"time"

	"gorm.io/gorm"
)

// ListUnprocessed returns comparable candidate records: merge status unset and
// dated on or after since, newest first. Pagination is offset-based; callers
// page until they hit their record cap or an empty page.
func ListUnprocessed(db *gorm.DB, since time.Time, limit, offset int) ([]RawRecord, error) {
	var records []RawRecord
	err := db.
		Where("(merge_status IS NULL OR merge_status = ?)", MergeStatusNone).
		Where("date >= ?", since).
		Order("date DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	return records, err
}

// GetRawRecord returns a single record by id
func GetRawRecord(db *gorm.DB, id string) (*RawRecord, error) {
	var record RawRecord
	if err := db.Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// PatchRawRecord applies a partial field update to a record by id
func PatchRawRecord(db *gorm.DB, id string, fields map[string]interface{}) error {
	return db.Model(&RawRecord{}).Where("id = ?", id).Updates(fields).Error
}
