package models

import "time"

// ReservoirFill is one weekly hydro-reservoir filling statistic for an area.
// The statistics feed publishes one row per (area type, area number, ISO week).
type ReservoirFill struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Date            time.Time `gorm:"type:date;index" json:"date"`
	AreaType        string    `gorm:"uniqueIndex:idx_reservoir_week" json:"area_type"`
	AreaNumber      int       `gorm:"uniqueIndex:idx_reservoir_week" json:"area_number"`
	ISOYear         int       `gorm:"uniqueIndex:idx_reservoir_week" json:"iso_year"`
	ISOWeek         int       `gorm:"uniqueIndex:idx_reservoir_week" json:"iso_week"`
	CapacityTWh     float64   `json:"capacity_twh"`
	FillingTWh      float64   `json:"filling_twh"`
	FillingFactor   float64   `json:"filling_factor"`
	FillingLastWeek float64   `json:"filling_factor_last_week"`
	FillingChange   float64   `json:"filling_factor_change"`
	CreatedAt       time.Time `json:"created_at"`
}
