package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"strompris-api/models"
)

// ReservoirService ingests the weekly hydro-reservoir filling statistics and
// answers range queries over them. It follows the same shape as the price
// ingestion: fetch, normalize, batch insert with duplicate suppression.
type ReservoirService struct {
	db         *gorm.DB
	feedURL    string
	httpClient *http.Client
}

// NewReservoirService creates a new reservoir statistics service
func NewReservoirService(db *gorm.DB, feedURL string, timeout time.Duration) *ReservoirService {
	return &ReservoirService{
		db:      db,
		feedURL: feedURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// reservoirEntry mirrors the statistics feed's JSON field names
type reservoirEntry struct {
	DateID          string  `json:"dato_Id"`
	AreaType        string  `json:"omrType"`
	AreaNumber      int     `json:"omrnr"`
	ISOYear         int     `json:"iso_aar"`
	ISOWeek         int     `json:"iso_uke"`
	FillingFactor   float64 `json:"fyllingsgrad"`
	CapacityTWh     float64 `json:"kapasitet_TWh"`
	FillingTWh      float64 `json:"fylling_TWh"`
	FillingLastWeek float64 `json:"fyllingsgrad_forrige_uke"`
	FillingChange   float64 `json:"endring_fyllingsgrad"`
}

// Refresh fetches the full public statistics dataset and persists any weeks
// not already stored. The feed always returns the complete history, so one
// call serves both startup backfill and the recurring weekly update.
func (s *ReservoirService) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return fmt.Errorf("build reservoir request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch reservoir statistics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch reservoir statistics: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read reservoir response: %w", err)
	}

	var entries []reservoirEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return fmt.Errorf("decode reservoir response: %w", err)
	}

	rows := make([]models.ReservoirFill, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, models.ReservoirFill{
			Date:            isoWeekStart(entry.ISOYear, entry.ISOWeek),
			AreaType:        entry.AreaType,
			AreaNumber:      entry.AreaNumber,
			ISOYear:         entry.ISOYear,
			ISOWeek:         entry.ISOWeek,
			CapacityTWh:     entry.CapacityTWh,
			FillingTWh:      entry.FillingTWh,
			FillingFactor:   entry.FillingFactor,
			FillingLastWeek: entry.FillingLastWeek,
			FillingChange:   entry.FillingChange,
		})
	}

	if len(rows) == 0 {
		log.Println("Reservoir feed returned no entries")
		return nil
	}

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, 500)
	if result.Error != nil {
		return fmt.Errorf("persist reservoir batch: %w", result.Error)
	}
	log.Printf("%d reservoir statistics added to database", result.RowsAffected)
	return nil
}

// GetRange returns all reservoir rows with date in [from, to]
func (s *ReservoirService) GetRange(ctx context.Context, from, to time.Time) ([]models.ReservoirFill, error) {
	from = models.DateOnly(from)
	to = models.DateOnly(to)

	var fills []models.ReservoirFill
	err := s.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", from, to).
		Order("date").
		Find(&fills).Error
	if err != nil {
		return nil, fmt.Errorf("load reservoir statistics: %w", err)
	}
	return fills, nil
}

// isoWeekStart returns the Monday of the given ISO week as a UTC date
func isoWeekStart(year, week int) time.Time {
	// Jan 4 is always in ISO week 1.
	jan4 := time.Date(year, 1, 4, 0, 0, 0, 0, time.UTC)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	week1Monday := jan4.AddDate(0, 0, 1-weekday)
	return week1Monday.AddDate(0, 0, (week-1)*7)
}
