package services

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"strompris-api/models"
	"strompris-api/services/regression"
)

// PredictorService owns the regression model trained over the persisted
// price history and serves hourly estimates for dates with no observations.
// The serving model is an immutable snapshot swapped atomically on retrain:
// concurrent predictions see either the old or the new model, never one
// under construction, and a failed retrain leaves the old snapshot serving.
type PredictorService struct {
	db      *gorm.DB
	trainer regression.Trainer
	current atomic.Pointer[modelSnapshot]
}

type modelSnapshot struct {
	model     regression.Model
	version   int
	samples   int
	trainedAt time.Time
}

// NewPredictorService creates a predictor in the untrained state
func NewPredictorService(db *gorm.DB, trainer regression.Trainer) *PredictorService {
	return &PredictorService{db: db, trainer: trainer}
}

// Ready reports whether at least one training has completed
func (s *PredictorService) Ready() bool {
	return s.current.Load() != nil
}

// Train loads the full persisted history, fits a fresh model and publishes
// it. On any failure the currently serving model is left in place.
func (s *PredictorService) Train(ctx context.Context) error {
	var prices []models.HourlyPrice
	if err := s.db.WithContext(ctx).Find(&prices).Error; err != nil {
		return fmt.Errorf("load training history: %w", err)
	}

	samples := make([]regression.Sample, len(prices))
	for i, p := range prices {
		samples[i] = regression.Sample{Date: p.Date, Hour: p.Hour, Area: p.Area, Price: p.Price}
	}

	model, err := s.trainer.Fit(samples)
	if err != nil {
		return fmt.Errorf("train model: %w", err)
	}

	version := 1
	if prev := s.current.Load(); prev != nil {
		version = prev.version + 1
	}
	s.current.Store(&modelSnapshot{
		model:     model,
		version:   version,
		samples:   len(samples),
		trainedAt: time.Now(),
	})

	log.Printf("Price prediction model v%d trained on %d samples", version, len(samples))
	return nil
}

// Retrain is the scheduled full refit. It logs the outcome and reports the
// error to the scheduler; the occurrence re-arms either way.
func (s *PredictorService) Retrain(ctx context.Context) error {
	log.Println("Retraining model...")
	if err := s.Train(ctx); err != nil {
		log.Printf("Retraining failed, keeping current model: %v", err)
		return err
	}
	log.Println("Model retrained")
	return nil
}

// PredictDay produces one estimated price per hour 00 through 23 for the
// given date and area, all marked predicted. Fails with ErrNotReady before
// the first successful training.
func (s *PredictorService) PredictDay(date time.Time, area string) ([]models.HourlyPrice, error) {
	snapshot := s.current.Load()
	if snapshot == nil {
		return nil, ErrNotReady
	}

	prices := make([]models.HourlyPrice, 0, 24)
	for hour := 0; hour < 24; hour++ {
		value, err := snapshot.model.Predict(date, hour, area)
		if err != nil {
			return nil, err
		}
		prices = append(prices, models.HourlyPrice{
			Date:      models.DateOnly(date),
			Hour:      hour,
			Price:     value,
			Area:      area,
			Predicted: true,
		})
	}
	return prices, nil
}
