package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"strompris-api/cache"
	"strompris-api/models"
)

const dateLayout = "2006-01-02"

// averageCacheTTL bounds how stale a cached area average may get between
// daily refreshes.
const averageCacheTTL = 10 * time.Minute

// QueryService answers day, range and aggregate queries over the price
// store, falling back to the predictor for calendar days with no
// observations.
type QueryService struct {
	db        *gorm.DB
	predictor *PredictorService
	cache     *cache.Cache
}

// NewQueryService creates a new query service. The cache may be nil.
func NewQueryService(db *gorm.DB, predictor *PredictorService, c *cache.Cache) *QueryService {
	return &QueryService{db: db, predictor: predictor, cache: c}
}

// ParseDate validates and parses a YYYY-MM-DD date string. The length check
// runs before parsing so malformed input is rejected as a client error.
func ParseDate(s string) (time.Time, error) {
	if len(s) != len(dateLayout) {
		return time.Time{}, ErrInvalidDate
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidDate, err)
	}
	return t, nil
}

// GetDay returns the persisted rows for one (area, date). When no rows exist
// the predictor's 24 estimates are returned instead; a partially observed
// day is returned as-is, never topped up.
func (s *QueryService) GetDay(ctx context.Context, area string, date time.Time) ([]models.HourlyPrice, error) {
	date = models.DateOnly(date)

	var prices []models.HourlyPrice
	err := s.db.WithContext(ctx).
		Where("area = ? AND date = ?", area, date).
		Order("hour").
		Find(&prices).Error
	if err != nil {
		return nil, fmt.Errorf("load prices for %s %s: %w", area, date.Format(dateLayout), err)
	}

	if len(prices) == 0 {
		log.Printf("No prices found for %s %s: predictor model used", area, date.Format(dateLayout))
		return s.predictor.PredictDay(date, area)
	}
	return prices, nil
}

// GetRange returns all persisted rows with date in [from, to] and appends 24
// predicted rows for every day in [from, to) that has no observations. Days
// with at least one persisted row are never supplemented.
func (s *QueryService) GetRange(ctx context.Context, area string, from, to time.Time) ([]models.HourlyPrice, error) {
	from = models.DateOnly(from)
	to = models.DateOnly(to)

	var prices []models.HourlyPrice
	err := s.db.WithContext(ctx).
		Where("area = ? AND date >= ? AND date <= ?", area, from, to).
		Order("date").Order("hour").
		Find(&prices).Error
	if err != nil {
		return nil, fmt.Errorf("load prices for %s [%s, %s]: %w",
			area, from.Format(dateLayout), to.Format(dateLayout), err)
	}

	observed := make(map[string]bool, len(prices))
	for _, p := range prices {
		observed[p.Date.Format(dateLayout)] = true
	}

	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		if observed[day.Format(dateLayout)] {
			continue
		}
		log.Printf("No prices found for %s %s: predictor model used", area, day.Format(dateLayout))
		predicted, err := s.predictor.PredictDay(day, area)
		if err != nil {
			return nil, err
		}
		prices = append(prices, predicted...)
	}
	return prices, nil
}

// AverageCacheKey is the cache key for an area's mean price. Ingestion
// invalidates these after each batch.
func AverageCacheKey(area string) string {
	return "price:avg:" + area
}

// GetAverage returns the arithmetic mean price over all persisted rows for
// an area. An empty result set is an explicit error, not a zero.
func (s *QueryService) GetAverage(ctx context.Context, area string) (float64, error) {
	cacheKey := AverageCacheKey(area)
	var cached float64
	if s.cache.Get(ctx, cacheKey, &cached) {
		return cached, nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.HourlyPrice{}).
		Where("area = ?", area).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count prices for %s: %w", area, err)
	}
	if count == 0 {
		return 0, fmt.Errorf("%w: %s", ErrEmptyAggregate, area)
	}

	var average float64
	if err := s.db.WithContext(ctx).Model(&models.HourlyPrice{}).
		Where("area = ?", area).
		Select("AVG(price)").
		Scan(&average).Error; err != nil {
		return 0, fmt.Errorf("average prices for %s: %w", area, err)
	}

	s.cache.Set(ctx, cacheKey, average, averageCacheTTL)
	return average, nil
}
