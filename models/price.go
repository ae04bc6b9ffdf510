package models

import (
	"time"

	"gorm.io/gorm"
)

// HourlyPrice is one observed or estimated spot price for a single hour in a
// market area. Ingested rows are unique per (area, date, hour); predicted rows
// are returned to callers but never persisted.
type HourlyPrice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      time.Time `gorm:"type:date;uniqueIndex:idx_area_date_hour" json:"date"`
	Hour      int       `gorm:"uniqueIndex:idx_area_date_hour" json:"hour"`
	Price     float64   `json:"price"`
	Area      string    `gorm:"uniqueIndex:idx_area_date_hour" json:"area"`
	Predicted bool      `json:"predicted"`
	CreatedAt time.Time `json:"created_at"`
}

// DateOnly truncates a timestamp to its calendar date in UTC, the canonical
// form stored in HourlyPrice.Date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MigratePriceModels runs database migrations for price-related models
func MigratePriceModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&HourlyPrice{},
		&ReservoirFill{},
	)
}
