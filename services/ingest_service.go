package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"strompris-api/config"
	"strompris-api/models"
	"strompris-api/services/pricefeed"
)

// IngestService populates the price store from the external hourly-price
// feed. It backs the startup backfill and the daily day-ahead refresh; both
// paths share the same normalization rules.
type IngestService struct {
	db   *gorm.DB
	cfg  *config.Config
	feed *pricefeed.Client
}

// NewIngestService creates a new ingest service
func NewIngestService(db *gorm.DB, cfg *config.Config, feed *pricefeed.Client) *IngestService {
	return &IngestService{db: db, cfg: cfg, feed: feed}
}

// FetchFailure records one failed (day, area) fetch unit
type FetchFailure struct {
	Date time.Time
	Area string
	Err  error
}

// IngestReport summarizes one ingestion batch
type IngestReport struct {
	Attempted int
	Inserted  int
	Failures  []FetchFailure
}

// FetchDayAhead fetches tomorrow's prices for every configured area and
// persists the new rows.
func (s *IngestService) FetchDayAhead(ctx context.Context) (*IngestReport, error) {
	tomorrow := models.DateOnly(time.Now()).AddDate(0, 0, 1)
	log.Printf("Fetching prices for %s", tomorrow.Format("2006-01-02"))
	return s.ingestDays(ctx, []time.Time{tomorrow})
}

// Backfill fetches daysBack consecutive days of prices ending today,
// inclusive, for every configured area. Repeated backfills are idempotent:
// rows already present for an (area, date, hour) key are left untouched.
func (s *IngestService) Backfill(ctx context.Context, daysBack int) (*IngestReport, error) {
	log.Printf("Fetching historical prices for the last %d days...", daysBack)
	today := models.DateOnly(time.Now())

	dates := make([]time.Time, 0, daysBack)
	for i := 0; i < daysBack; i++ {
		dates = append(dates, today.AddDate(0, 0, -i))
	}
	return s.ingestDays(ctx, dates)
}

// ingestDays fetches every (day, area) pair, normalizes the entries and
// persists the whole batch in one write. Each pair is fully isolated: a
// failed fetch or a malformed payload is logged, recorded in the report and
// never aborts the remaining pairs.
func (s *IngestService) ingestDays(ctx context.Context, dates []time.Time) (*IngestReport, error) {
	report := &IngestReport{}
	var rows []models.HourlyPrice

	for _, date := range dates {
		for _, area := range s.cfg.MarketAreas {
			report.Attempted++

			entries, err := s.feed.FetchDay(ctx, date, area)
			if err != nil {
				log.Printf("Fetch failed for %s %s: %v", date.Format("2006-01-02"), area, err)
				report.Failures = append(report.Failures, FetchFailure{Date: date, Area: area, Err: err})
				continue
			}
			rows = append(rows, s.normalize(entries, area)...)
		}
	}

	if len(rows) > 0 {
		result := s.db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, 500)
		if result.Error != nil {
			return report, fmt.Errorf("persist price batch: %w", result.Error)
		}
		report.Inserted = int(result.RowsAffected)
	}

	log.Printf("%d prices added to database (%d fetched, %d failed units)",
		report.Inserted, len(rows), len(report.Failures))
	return report, nil
}

// normalize converts raw feed entries for one area into storable rows:
// negative raw prices are floored to zero, the tax adjustment is applied for
// non-exempt areas, and the start timestamp is split into date and hour.
func (s *IngestService) normalize(entries []pricefeed.HourlyEntry, area string) []models.HourlyPrice {
	rows := make([]models.HourlyPrice, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, models.HourlyPrice{
			Date:  models.DateOnly(entry.TimeStart),
			Hour:  entry.TimeStart.Hour(),
			Price: s.adjustPrice(entry.NOKPerKWh, area),
			Area:  area,
		})
	}
	return rows
}

// adjustPrice applies the negative clamp and the per-area tax adjustment.
// A negative raw price is stored as zero with no surcharge on top. The
// adjustment arithmetic runs in decimal so the surcharge lands exactly.
func (s *IngestService) adjustPrice(raw float64, area string) float64 {
	if raw < 0 {
		return 0
	}
	adj := s.cfg.AdjustmentFor(area)
	if adj.Exempt {
		return raw
	}
	return decimal.NewFromFloat(raw).Mul(adj.Multiplier).Add(adj.Surcharge).InexactFloat64()
}
